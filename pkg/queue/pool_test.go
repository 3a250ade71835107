package queue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/assessment-platform/enginer/ent/job"
	"github.com/assessment-platform/enginer/pkg/clock"
	"github.com/assessment-platform/enginer/pkg/config"
	"github.com/assessment-platform/enginer/pkg/queue"
	"github.com/assessment-platform/enginer/pkg/store"
	testdb "github.com/assessment-platform/enginer/test/database"
)

func testQueueConfig() *config.QueueConfig {
	cfg := config.DefaultQueueConfig()
	cfg.WorkerCount = 1
	cfg.PollInterval = 20 * time.Millisecond
	cfg.PollIntervalJitter = 0
	cfg.JobTimeout = 5 * time.Second
	cfg.OrphanDetectionInterval = time.Hour
	cfg.OrphanThreshold = time.Hour
	return cfg
}

type recordingHandler struct {
	mu   sync.Mutex
	seen []string
	fail bool
}

func (h *recordingHandler) handle(_ context.Context, submissionID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, submissionID)
	if h.fail {
		return context.DeadlineExceeded
	}
	return nil
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}

func TestWorkerPoolClaimsAndCompletesEnqueuedJob(t *testing.T) {
	client := testdb.NewTestClient(t)
	st := store.New(client.Client)
	ctx := context.Background()

	notifier := queue.NewInProcessNotifier()
	q := queue.New(st, notifier)

	submissionID := clock.NewID()
	require.NoError(t, q.EnqueueScoreJob(ctx, submissionID))

	h := &recordingHandler{}
	handlers := map[job.Kind]queue.Handler{job.KindScore: h.handle}
	pool := queue.NewWorkerPool("test-pod", st, notifier, testQueueConfig(), handlers)
	require.NoError(t, pool.Start(ctx))
	defer pool.Stop()

	require.Eventually(t, func() bool { return h.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, submissionID, h.seen[0])

	health := pool.Health()
	require.Equal(t, 1, health.TotalWorkers)
}

func TestWorkerPoolDeadLettersJobAfterMaxAttempts(t *testing.T) {
	client := testdb.NewTestClient(t)
	st := store.New(client.Client)
	ctx := context.Background()

	notifier := queue.NewInProcessNotifier()

	submissionID := clock.NewID()
	created, err := st.EnqueueJob(ctx, store.NewJob{
		ID: clock.NewID(), Kind: job.KindScore, SubmissionID: submissionID, MaxAttempts: 1,
	})
	require.NoError(t, err)

	h := &recordingHandler{fail: true}
	handlers := map[job.Kind]queue.Handler{job.KindScore: h.handle}
	pool := queue.NewWorkerPool("test-pod", st, notifier, testQueueConfig(), handlers)
	require.NoError(t, pool.Start(ctx))
	defer pool.Stop()

	// A single-attempt job moves straight to dead_letter on its first
	// failure instead of being retried indefinitely.
	require.Eventually(t, func() bool { return h.count() >= 1 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		row, err := client.Job.Get(ctx, created.ID)
		return err == nil && row.Status == job.StatusDeadLetter
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorkerPoolStartIsIdempotent(t *testing.T) {
	client := testdb.NewTestClient(t)
	st := store.New(client.Client)
	ctx := context.Background()

	notifier := queue.NewInProcessNotifier()
	h := &recordingHandler{}
	handlers := map[job.Kind]queue.Handler{job.KindScore: h.handle}
	pool := queue.NewWorkerPool("test-pod", st, notifier, testQueueConfig(), handlers)

	require.NoError(t, pool.Start(ctx))
	require.NoError(t, pool.Start(ctx))
	defer pool.Stop()

	require.Equal(t, 1, pool.Health().TotalWorkers, "a second Start must not spawn duplicate workers")
}
