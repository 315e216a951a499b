//go:build integration

package db_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"campus-events/internal/config"
	"campus-events/internal/database/migrations"
	"campus-events/internal/logger"
	"campus-events/internal/tickets/db"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func setupPostgres(t *testing.T) *db.DB {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "campus",
				"POSTGRES_PASSWORD": "campus",
				"POSTGRES_DB":       "campus_events",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Postgres container: %v", err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://campus:campus@%s:%s/campus_events?sslmode=disable", host, port.Port())
	sqldb, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	bunDB := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() { bunDB.Close() })

	runner := migrations.NewRunner(bunDB, config.DatabaseConfig{MigrationsDir: "../../../migrations"}, logger.NewWithWriter(io.Discard))
	require.NoError(t, runner.Up())

	return &db.DB{Bun: bunDB}
}

func TestPostgres_ConcurrentCheckInSucceedsOnce(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Postgres integration test in short mode")
	}
	ticketDB := setupPostgres(t)
	ctx := context.Background()
	event := insertEvent(t, ticketDB.Bun, 0)

	reg, ticket := newPair(event.EventID, "student-1")
	require.NoError(t, ticketDB.CreateRegistrationWithTicket(ctx, reg, ticket))

	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, rejected := 0, 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := ticketDB.MarkCheckedIn(ctx, ticket.TicketID, time.Now().UTC())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, db.ErrAlreadyCheckedIn):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, rejected)

	got, err := ticketDB.GetTicketByID(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.True(t, got.IsCheckedIn)
	require.NotNil(t, got.CheckedInAt)
}

func TestPostgres_ConcurrentRSVPsRespectCapacity(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Postgres integration test in short mode")
	}
	ticketDB := setupPostgres(t)
	ctx := context.Background()
	event := insertEvent(t, ticketDB.Bun, 3)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reg, ticket := newPair(event.EventID, fmt.Sprintf("student-%d", i))
			errs <- ticketDB.CreateRegistrationWithTicket(ctx, reg, ticket)
		}(i)
	}
	wg.Wait()
	close(errs)

	ok, full := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, db.ErrEventFull):
			full++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 3, ok)
	assert.Equal(t, 7, full)

	count, err := ticketDB.CountRegistrations(ctx, event.EventID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestPostgres_DuplicateRSVPRace(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Postgres integration test in short mode")
	}
	ticketDB := setupPostgres(t)
	ctx := context.Background()
	event := insertEvent(t, ticketDB.Bun, 0)

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg, ticket := newPair(event.EventID, "student-1")
			errs <- ticketDB.CreateRegistrationWithTicket(ctx, reg, ticket)
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, db.ErrAlreadyRegistered)
	}
	assert.Equal(t, 1, ok)

	list, err := ticketDB.GetTicketsByEvent(ctx, event.EventID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
