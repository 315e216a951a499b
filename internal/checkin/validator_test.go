package checkin_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"campus-events/internal/checkin"
	"campus-events/internal/models"
	"campus-events/internal/tickets/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore keeps tickets, events and profiles in maps. MarkCheckedIn is a
// mutex-guarded compare-and-set.
type memStore struct {
	mu        sync.Mutex
	tickets   map[string]*models.Ticket
	events    map[string]*models.Event
	profiles  map[string]*models.Profile
	writes    int
	lookupErr error
}

func newMemStore() *memStore {
	return &memStore{
		tickets:  map[string]*models.Ticket{},
		events:   map[string]*models.Event{},
		profiles: map[string]*models.Profile{},
	}
}

func (m *memStore) GetTicketByCode(_ context.Context, code string) (*models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	for _, t := range m.tickets {
		if t.QRCode == code {
			cp := *t
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *memStore) MarkCheckedIn(_ context.Context, ticketID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[ticketID]
	if !ok || t.IsCheckedIn {
		return db.ErrAlreadyCheckedIn
	}
	t.IsCheckedIn = true
	t.CheckedInAt = &at
	m.writes++
	return nil
}

func (m *memStore) GetEvent(_ context.Context, eventID string) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[eventID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return e, nil
}

func (m *memStore) GetProfile(_ context.Context, userID string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return p, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.TicketEvent
}

func (r *recordingPublisher) PublishTicketEvent(_ context.Context, e models.TicketEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func fixture() (*memStore, *checkin.Validator, *recordingPublisher) {
	store := newMemStore()
	store.events["ev-a"] = &models.Event{EventID: "ev-a", CreatedBy: "org-a"}
	store.events["ev-b"] = &models.Event{EventID: "ev-b", CreatedBy: "org-b"}
	store.profiles["org-a"] = &models.Profile{UserID: "org-a", Role: models.RoleCompany}
	store.profiles["admin"] = &models.Profile{UserID: "admin", Role: models.RoleAdmin}
	store.profiles["student"] = &models.Profile{UserID: "student", Role: models.RoleStudent}
	store.tickets["t-1"] = &models.Ticket{TicketID: "t-1", EventID: "ev-a", UserID: "student", QRCode: "CE-one"}

	pub := &recordingPublisher{}
	v := checkin.NewValidator(store, checkin.NewEventAccess(store), pub, nil)
	return store, v, pub
}

func TestValidateAndCheckIn_AcceptThenReject(t *testing.T) {
	store, v, pub := fixture()
	ctx := context.Background()

	first, err := v.ValidateAndCheckIn(ctx, "CE-one", "org-a", "ev-a")
	require.NoError(t, err)
	assert.Equal(t, models.CheckInResult{OK: true, Message: checkin.MsgCheckedIn}, first)

	second, err := v.ValidateAndCheckIn(ctx, "CE-one", "org-a", "ev-a")
	require.NoError(t, err)
	assert.False(t, second.OK)
	assert.Equal(t, checkin.MsgAlreadyCheckedIn, second.Message)
	assert.False(t, second.Retryable)

	assert.Equal(t, 1, store.writes)
	require.Len(t, pub.events, 1)
	assert.Equal(t, models.TicketCheckedIn, pub.events[0].Type)
	assert.Equal(t, "org-a", pub.events[0].OperatorID)
}

func TestValidateAndCheckIn_TrimsCode(t *testing.T) {
	_, v, _ := fixture()

	res, err := v.ValidateAndCheckIn(context.Background(), "  CE-one\t\n", "admin", "ev-a")
	require.NoError(t, err)
	assert.True(t, res.OK)
}

func TestValidateAndCheckIn_UnknownCode(t *testing.T) {
	store, v, _ := fixture()

	for _, code := range []string{"CE-nope", "", "   "} {
		res, err := v.ValidateAndCheckIn(context.Background(), code, "org-a", "ev-a")
		require.NoError(t, err)
		assert.Equal(t, checkin.MsgInvalidCode, res.Message)
		assert.False(t, res.OK)
	}
	assert.Zero(t, store.writes)
}

func TestValidateAndCheckIn_WrongEventRegardlessOfRole(t *testing.T) {
	store, v, _ := fixture()

	for _, operator := range []string{"org-a", "org-b", "admin", "student"} {
		res, err := v.ValidateAndCheckIn(context.Background(), "CE-one", operator, "ev-b")
		require.NoError(t, err)
		assert.Equal(t, checkin.MsgWrongEvent, res.Message, operator)
	}
	assert.Zero(t, store.writes)
	assert.False(t, store.tickets["t-1"].IsCheckedIn)
}

func TestValidateAndCheckIn_RequiresOrganizerOrAdmin(t *testing.T) {
	store, v, _ := fixture()
	ctx := context.Background()

	for _, operator := range []string{"student", "org-b", "stranger", ""} {
		res, err := v.ValidateAndCheckIn(ctx, "CE-one", operator, "ev-a")
		require.NoError(t, err)
		assert.Equal(t, checkin.MsgOrganizerOnly, res.Message, operator)
	}
	assert.Zero(t, store.writes)

	res, err := v.ValidateAndCheckIn(ctx, "CE-one", "admin", "ev-a")
	require.NoError(t, err)
	assert.True(t, res.OK)
}

func TestValidateAndCheckIn_AuthorizationBeforeAlreadyCheckedIn(t *testing.T) {
	store, v, _ := fixture()
	now := time.Now()
	store.tickets["t-1"].IsCheckedIn = true
	store.tickets["t-1"].CheckedInAt = &now

	res, err := v.ValidateAndCheckIn(context.Background(), "CE-one", "student", "ev-a")
	require.NoError(t, err)
	assert.Equal(t, checkin.MsgOrganizerOnly, res.Message)
}

func TestValidateAndCheckIn_Concurrent(t *testing.T) {
	store, v, pub := fixture()
	ctx := context.Background()

	const callers = 16
	results := make(chan models.CheckInResult, callers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			res, err := v.ValidateAndCheckIn(ctx, "CE-one", "org-a", "ev-a")
			assert.NoError(t, err)
			results <- res
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	accepted := 0
	for res := range results {
		if res.OK {
			accepted++
			continue
		}
		assert.Equal(t, checkin.MsgAlreadyCheckedIn, res.Message)
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, 1, store.writes)
	assert.Len(t, pub.events, 1)
}

func TestValidateAndCheckIn_InfrastructureFailureIsRetryable(t *testing.T) {
	store, v, _ := fixture()
	boom := errors.New("connection reset")
	store.lookupErr = boom

	res, err := v.ValidateAndCheckIn(context.Background(), "CE-one", "org-a", "ev-a")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, models.CheckInResult{OK: false, Message: checkin.MsgFailed, Retryable: true}, res)
	assert.Zero(t, store.writes)
}

func TestEventAccess(t *testing.T) {
	store, _, _ := fixture()
	access := checkin.NewEventAccess(store)
	ctx := context.Background()

	ok, err := access.CanManage(ctx, "org-a", "ev-a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = access.CanManage(ctx, "org-a", "ev-b")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = access.CanManage(ctx, "admin", "ev-missing")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = access.CanManage(ctx, "student", "ev-missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
