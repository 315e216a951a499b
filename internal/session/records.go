package session

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"campus-events/internal/models"
)

// ScanRecord is one check-in attempt made by an operator.
type ScanRecord struct {
	EventID string               `json:"event_id"`
	Code    string               `json:"code"`
	Result  models.CheckInResult `json:"result"`
	At      time.Time            `json:"at"`
}

// PaymentConfirmation is a client-side payment acknowledgement for an event.
type PaymentConfirmation struct {
	EventID   string    `json:"event_id"`
	Reference string    `json:"reference,omitempty"`
	Confirmed bool      `json:"confirmed"`
	At        time.Time `json:"at"`
}

func (s *Store) RecordScan(ctx context.Context, operatorID string, rec ScanRecord) error {
	field := rec.At.UTC().Format(time.RFC3339Nano) + "|" + rec.Code
	return s.Put(ctx, operatorID, NamespaceScans, field, rec)
}

// RecentScans returns the operator's scans, newest first.
func (s *Store) RecentScans(ctx context.Context, operatorID string) ([]ScanRecord, error) {
	raw, err := s.All(ctx, operatorID, NamespaceScans)
	if err != nil {
		return nil, err
	}
	scans := make([]ScanRecord, 0, len(raw))
	for _, v := range raw {
		var rec ScanRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			continue
		}
		scans = append(scans, rec)
	}
	sort.Slice(scans, func(i, j int) bool { return scans[i].At.After(scans[j].At) })
	return scans, nil
}

func (s *Store) ConfirmPayment(ctx context.Context, userID string, p PaymentConfirmation) error {
	return s.Put(ctx, userID, NamespacePayments, p.EventID, p)
}

func (s *Store) PaymentFor(ctx context.Context, userID, eventID string) (*PaymentConfirmation, error) {
	var p PaymentConfirmation
	ok, err := s.Get(ctx, userID, NamespacePayments, eventID, &p)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}
