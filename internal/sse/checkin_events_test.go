package sse

import (
	"context"
	"testing"
	"time"

	"campus-events/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkedIn(eventID, ticketID string) models.TicketEvent {
	return models.TicketEvent{Type: models.TicketCheckedIn, EventID: eventID, TicketID: ticketID, OccurredAt: time.Now()}
}

func TestEmit_OnlyReachesEventSubscribers(t *testing.T) {
	e := NewTicketEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := e.SubscribeToEvent(ctx, "ev-a")
	b := e.SubscribeToEvent(ctx, "ev-b")

	e.Emit(checkedIn("ev-a", "t1"))

	select {
	case got := <-a:
		assert.Equal(t, "t1", got.TicketID)
	case <-time.After(time.Second):
		t.Fatal("subscriber of ev-a got nothing")
	}
	select {
	case got := <-b:
		t.Fatalf("unexpected event for ev-b: %+v", got)
	default:
	}
}

func TestEmit_SkipsFullClients(t *testing.T) {
	e := NewTicketEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := e.SubscribeToEvent(ctx, "ev")
	for i := 0; i < clientBuffer+5; i++ {
		require.NoError(t, e.PublishTicketEvent(ctx, checkedIn("ev", "t")))
	}
	assert.Len(t, ch, clientBuffer)
}

func TestSubscribe_CancelRemovesAndCloses(t *testing.T) {
	e := NewTicketEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())

	ch := e.SubscribeToEvent(ctx, "ev")
	assert.Equal(t, 1, e.GetEventClientCount("ev"))

	cancel()
	require.Eventually(t, func() bool { return e.GetEventClientCount("ev") == 0 }, time.Second, 5*time.Millisecond)

	_, open := <-ch
	assert.False(t, open)

	// emitting after removal must not panic
	e.Emit(checkedIn("ev", "t"))
}
