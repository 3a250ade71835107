package store

import (
	"context"
	"time"

	"github.com/assessment-platform/enginer/ent"
	"github.com/assessment-platform/enginer/ent/codeexecutionlog"
)

// NewCodeExecutionLog is the input to CreateCodeExecutionLog.
type NewCodeExecutionLog struct {
	ID           string
	SubmissionID string
	QuestionID   string
	SourceCode   string
	Language     string
	Stdout       string
	Stderr       string
	ExitCode     *int
	TimedOut     bool
	DurationMs   *int
	DeletedAfter time.Time
}

// CreateCodeExecutionLog records one sandbox run of a code question.
func (s *Store) CreateCodeExecutionLog(ctx context.Context, in NewCodeExecutionLog) (*ent.CodeExecutionLog, error) {
	var out *ent.CodeExecutionLog
	err := s.withRetry(ctx, func(ctx context.Context) error {
		b := s.db.CodeExecutionLog.Create().
			SetID(in.ID).
			SetSubmissionID(in.SubmissionID).
			SetQuestionID(in.QuestionID).
			SetSourceCode(in.SourceCode).
			SetLanguage(in.Language).
			SetStdout(in.Stdout).
			SetStderr(in.Stderr).
			SetTimedOut(in.TimedOut).
			SetDeletedAfter(in.DeletedAfter)
		if in.ExitCode != nil {
			b.SetExitCode(*in.ExitCode)
		}
		if in.DurationMs != nil {
			b.SetDurationMs(*in.DurationMs)
		}
		row, err := b.Save(ctx)
		if err != nil {
			return err
		}
		out = row
		return nil
	})
	return out, mapErr(err)
}

// GetLatestCodeExecutionLog returns the most recent sandbox run recorded
// for a (submission, question) pair, used by Scoring Triage to augment a
// rubric prompt with execution outcomes. Returns ErrNotFound if the
// candidate never ran their code before submitting.
func (s *Store) GetLatestCodeExecutionLog(ctx context.Context, submissionID, questionID string) (*ent.CodeExecutionLog, error) {
	var out *ent.CodeExecutionLog
	err := s.withRetry(ctx, func(ctx context.Context) error {
		row, err := s.db.CodeExecutionLog.Query().
			Where(
				codeexecutionlog.SubmissionID(submissionID),
				codeexecutionlog.QuestionID(questionID),
			).
			Order(ent.Desc(codeexecutionlog.FieldCreatedAt)).
			First(ctx)
		if err != nil {
			return err
		}
		out = row
		return nil
	})
	return out, mapErr(err)
}

// SweepExpiredCodeExecutionLogs deletes rows whose deleted_after has
// passed, in batches of at most limit to bound transaction size.
func (s *Store) SweepExpiredCodeExecutionLogs(ctx context.Context, asOf time.Time, limit int) (int, error) {
	var n int
	err := s.withRetry(ctx, func(ctx context.Context) error {
		ids, err := s.db.CodeExecutionLog.Query().
			Where(codeexecutionlog.DeletedAfterLT(asOf)).
			Limit(limit).
			IDs(ctx)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		deleted, err := s.db.CodeExecutionLog.Delete().
			Where(codeexecutionlog.IDIn(ids...)).
			Exec(ctx)
		if err != nil {
			return err
		}
		n = deleted
		return nil
	})
	return n, mapErr(err)
}
