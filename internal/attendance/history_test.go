package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"campus-events/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSource struct {
	mock.Mock
}

func (m *MockSource) GetRegistrationsByEvent(ctx context.Context, eventID string) ([]models.Registration, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Registration), args.Error(1)
}

func (m *MockSource) GetTicketsByEvent(ctx context.Context, eventID string) ([]models.Ticket, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Ticket), args.Error(1)
}

func (m *MockSource) GetProfiles(ctx context.Context, userIDs []string) ([]models.Profile, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Profile), args.Error(1)
}

func newTestService(src Source) *Service {
	svc := NewService(src, nil)
	svc.Now = func() time.Time { return now }
	return svc
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	src := new(MockSource)
	src.On("GetRegistrationsByEvent", ctx, "ev").Return([]models.Registration{{RegistrationID: "r1", UserID: "u1", CreatedAt: t0}}, nil)
	src.On("GetTicketsByEvent", ctx, "ev").Return([]models.Ticket{{TicketID: "tk1", UserID: "u1", CreatedAt: t0}}, nil)
	src.On("GetProfiles", ctx, []string{"u1"}).Return([]models.Profile{{UserID: "u1", FullName: "Ada"}}, nil)

	h := newTestService(src).History(ctx, "ev")

	assert.Empty(t, h.Warnings)
	require.Len(t, h.Rows, 1)
	assert.Equal(t, "Ada", h.Rows[0].Profile.FullName)
	assert.Equal(t, now, h.GeneratedAt)
	src.AssertExpectations(t)
}

func TestHistory_DegradesOnRegistrationFailure(t *testing.T) {
	ctx := context.Background()
	src := new(MockSource)
	src.On("GetRegistrationsByEvent", ctx, "ev").Return(nil, errors.New("permission denied"))
	src.On("GetTicketsByEvent", ctx, "ev").Return([]models.Ticket{
		{TicketID: "tk1", UserID: "u1", CreatedAt: t0},
		{TicketID: "tk2", UserID: "u1", CreatedAt: at(time.Hour)},
	}, nil)
	src.On("GetProfiles", ctx, []string{"u1"}).Return(nil, errors.New("timeout"))

	h := newTestService(src).History(ctx, "ev")

	require.Len(t, h.Warnings, 2)
	assert.Len(t, h.Rows, 2, "ticket fallback yields one row per ticket")
	assert.Nil(t, h.Rows[0].Profile)
}

func TestHistory_AllSourcesFail(t *testing.T) {
	ctx := context.Background()
	src := new(MockSource)
	src.On("GetRegistrationsByEvent", ctx, "ev").Return(nil, errors.New("down"))
	src.On("GetTicketsByEvent", ctx, "ev").Return(nil, errors.New("down"))

	h := newTestService(src).History(ctx, "ev")

	assert.Len(t, h.Warnings, 2)
	assert.Empty(t, h.Rows)
	src.AssertNotCalled(t, "GetProfiles", mock.Anything, mock.Anything)
}
