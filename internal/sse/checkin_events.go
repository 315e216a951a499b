package sse

import (
	"context"
	"sync"

	"campus-events/internal/models"
)

const clientBuffer = 10

// TicketEventEmitter fans ticket events out to the SSE clients watching an event.
type TicketEventEmitter struct {
	eventClients     map[string][]chan models.TicketEvent
	eventClientMutex sync.RWMutex
}

func NewTicketEventEmitter() *TicketEventEmitter {
	return &TicketEventEmitter{
		eventClients: make(map[string][]chan models.TicketEvent),
	}
}

// SubscribeToEvent registers a client for eventID. The channel is closed once
// ctx is done.
func (e *TicketEventEmitter) SubscribeToEvent(ctx context.Context, eventID string) <-chan models.TicketEvent {
	clientChan := make(chan models.TicketEvent, clientBuffer)

	e.eventClientMutex.Lock()
	e.eventClients[eventID] = append(e.eventClients[eventID], clientChan)
	e.eventClientMutex.Unlock()

	go func() {
		<-ctx.Done()
		e.removeEventClient(eventID, clientChan)
	}()

	return clientChan
}

// Emit delivers evt to every subscriber of its event. A client whose buffer
// is full misses the event.
func (e *TicketEventEmitter) Emit(evt models.TicketEvent) {
	e.eventClientMutex.RLock()
	defer e.eventClientMutex.RUnlock()

	for _, clientChan := range e.eventClients[evt.EventID] {
		select {
		case clientChan <- evt:
		default:
		}
	}
}

// PublishTicketEvent lets the emitter stand in for the Kafka producer when
// the broker is disabled.
func (e *TicketEventEmitter) PublishTicketEvent(_ context.Context, evt models.TicketEvent) error {
	e.Emit(evt)
	return nil
}

func (e *TicketEventEmitter) removeEventClient(eventID string, clientChan chan models.TicketEvent) {
	e.eventClientMutex.Lock()
	defer e.eventClientMutex.Unlock()

	clients := e.eventClients[eventID]
	for i, ch := range clients {
		if ch == clientChan {
			e.eventClients[eventID] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}

	if len(e.eventClients[eventID]) == 0 {
		delete(e.eventClients, eventID)
	}
}

func (e *TicketEventEmitter) GetEventClientCount(eventID string) int {
	e.eventClientMutex.RLock()
	defer e.eventClientMutex.RUnlock()
	return len(e.eventClients[eventID])
}
