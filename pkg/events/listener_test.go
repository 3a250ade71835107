package events_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/assessment-platform/enginer/pkg/events"
)

// newTestConnString spins up a throwaway PostgreSQL instance the same way
// test/database.NewTestClient does, but skips ent's schema setup entirely:
// LISTEN/NOTIFY round-trips don't touch a single table.
func newTestConnString(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	if connStr := os.Getenv("CI_DATABASE_URL"); connStr != "" {
		return connStr
	}

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return connStr
}

func TestNotifyListenerReceivesPublishedSubmissionStatus(t *testing.T) {
	connStr := newTestConnString(t)
	ctx := context.Background()

	listener := events.NewNotifyListener(connStr)
	require.NoError(t, listener.Start(ctx))
	defer listener.Stop(ctx)

	submissionID := "sub-listen-1"
	received := make(chan []byte, 1)
	unsubscribe, err := listener.Subscribe(ctx, events.SubmissionChannel(submissionID), func(payload []byte) {
		received <- payload
	})
	require.NoError(t, err)
	defer unsubscribe()

	pubConn, err := pgx.Connect(ctx, connStr)
	require.NoError(t, err)
	defer pubConn.Close(ctx)
	publisher := events.NewPublisher(pubConn)

	require.NoError(t, publisher.PublishSubmissionStatus(ctx, submissionID, "scored", "run 1 complete"))

	select {
	case payload := <-received:
		var decoded events.SubmissionStatusPayload
		require.NoError(t, json.Unmarshal(payload, &decoded))
		require.Equal(t, events.EventTypeSubmissionStatus, decoded.Type)
		require.Equal(t, submissionID, decoded.SubmissionID)
		require.Equal(t, "scored", decoded.Status)
		require.Equal(t, "run 1 complete", decoded.Detail)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for NOTIFY to be delivered to the subscriber")
	}
}

func TestNotifyListenerIgnoresOtherSubmissionChannels(t *testing.T) {
	connStr := newTestConnString(t)
	ctx := context.Background()

	listener := events.NewNotifyListener(connStr)
	require.NoError(t, listener.Start(ctx))
	defer listener.Stop(ctx)

	received := make(chan []byte, 1)
	unsubscribe, err := listener.Subscribe(ctx, events.SubmissionChannel("sub-a"), func(payload []byte) {
		received <- payload
	})
	require.NoError(t, err)
	defer unsubscribe()

	pubConn, err := pgx.Connect(ctx, connStr)
	require.NoError(t, err)
	defer pubConn.Close(ctx)
	publisher := events.NewPublisher(pubConn)

	// Published on a different submission's channel: the subscriber on
	// sub-a must never see it.
	require.NoError(t, publisher.PublishSubmissionStatus(ctx, "sub-b", "scored", ""))

	select {
	case <-received:
		t.Fatal("subscriber for sub-a received a notification meant for sub-b")
	case <-time.After(500 * time.Millisecond):
		// expected: nothing arrives
	}
}

func TestNotifyListenerUnsubscribeStopsDelivery(t *testing.T) {
	connStr := newTestConnString(t)
	ctx := context.Background()

	listener := events.NewNotifyListener(connStr)
	require.NoError(t, listener.Start(ctx))
	defer listener.Stop(ctx)

	submissionID := "sub-unsub-1"
	received := make(chan []byte, 1)
	unsubscribe, err := listener.Subscribe(ctx, events.SubmissionChannel(submissionID), func(payload []byte) {
		received <- payload
	})
	require.NoError(t, err)
	unsubscribe()

	pubConn, err := pgx.Connect(ctx, connStr)
	require.NoError(t, err)
	defer pubConn.Close(ctx)
	publisher := events.NewPublisher(pubConn)

	require.NoError(t, publisher.PublishSubmissionStatus(ctx, submissionID, "scored", ""))

	select {
	case <-received:
		t.Fatal("unsubscribed handler must not be invoked")
	case <-time.After(500 * time.Millisecond):
		// expected: nothing arrives
	}
}
