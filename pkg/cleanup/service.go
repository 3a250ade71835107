// Package cleanup provides data retention and cleanup services.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/assessment-platform/enginer/pkg/config"
	"github.com/assessment-platform/enginer/pkg/store"
)

// sweepBatchLimit bounds how many rows a single sweep transaction deletes,
// so a long-overdue backlog doesn't hold a table lock for minutes.
const sweepBatchLimit = 500

// Service periodically enforces retention policies:
//   - Deletes expired code_execution_logs rows (deleted_after elapsed)
//   - Deletes expired rag_queries rows (deleted_after elapsed)
//   - Purges questions that were soft-deleted long enough ago that no
//     in-flight snapshot could still reference them
//
// All operations are idempotent and safe to run from multiple pods.
type Service struct {
	config *config.RetentionConfig
	store  *store.Store

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service.
func NewService(cfg *config.RetentionConfig, st *store.Store) *Service {
	return &Service{config: cfg, store: st}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Cleanup service started",
		"question_retention_days", s.config.QuestionSoftDeleteRetentionDays,
		"code_execution_log_ttl", s.config.CodeExecutionLogTTL,
		"rag_query_ttl", s.config.RagQueryTTL,
		"interval", s.config.CleanupInterval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runAll(ctx)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *Service) runAll(ctx context.Context) {
	s.sweepCodeExecutionLogs(ctx)
	s.sweepRagQueries(ctx)
	s.purgeSoftDeletedQuestions(ctx)
}

func (s *Service) sweepCodeExecutionLogs(ctx context.Context) {
	count, err := s.store.SweepExpiredCodeExecutionLogs(ctx, time.Now(), sweepBatchLimit)
	if err != nil {
		slog.Error("Retention: code execution log sweep failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: swept code execution logs", "count", count)
	}
}

func (s *Service) sweepRagQueries(ctx context.Context) {
	count, err := s.store.SweepExpiredRagQueries(ctx, time.Now(), sweepBatchLimit)
	if err != nil {
		slog.Error("Retention: rag query sweep failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: swept rag queries", "count", count)
	}
}

func (s *Service) purgeSoftDeletedQuestions(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -s.config.QuestionSoftDeleteRetentionDays)
	count, err := s.store.PurgeSoftDeletedQuestions(ctx, cutoff, sweepBatchLimit)
	if err != nil {
		slog.Error("Retention: question purge failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: purged soft-deleted questions", "count", count)
	}
}
