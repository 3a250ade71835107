package store

import (
	"context"
	"time"

	"github.com/assessment-platform/enginer/ent"
	"github.com/assessment-platform/enginer/ent/submission"
)

// NewSubmission is the input to CreateSubmission.
type NewSubmission struct {
	ID          string
	CandidateID string
	SnapshotID  string
	AccessCode  string
}

// CreateSubmission reserves a new attempt in status=reserved.
func (s *Store) CreateSubmission(ctx context.Context, in NewSubmission) (*ent.Submission, error) {
	var out *ent.Submission
	err := s.withRetry(ctx, func(ctx context.Context) error {
		row, err := s.db.Submission.Create().
			SetID(in.ID).
			SetCandidateID(in.CandidateID).
			SetSnapshotID(in.SnapshotID).
			SetAccessCode(in.AccessCode).
			Save(ctx)
		if err != nil {
			return err
		}
		out = row
		return nil
	})
	return out, mapErr(err)
}

// GetSubmission fetches an attempt by ID.
func (s *Store) GetSubmission(ctx context.Context, id string) (*ent.Submission, error) {
	var out *ent.Submission
	err := s.withRetry(ctx, func(ctx context.Context) error {
		row, err := s.db.Submission.Get(ctx, id)
		if err != nil {
			return err
		}
		out = row
		return nil
	})
	return out, mapErr(err)
}

// GetSubmissionByAccessCode resolves the access code a candidate presents
// at start time.
func (s *Store) GetSubmissionByAccessCode(ctx context.Context, code string) (*ent.Submission, error) {
	var out *ent.Submission
	err := s.withRetry(ctx, func(ctx context.Context) error {
		row, err := s.db.Submission.Query().Where(submission.AccessCode(code)).Only(ctx)
		if err != nil {
			return err
		}
		out = row
		return nil
	})
	return out, mapErr(err)
}

// SubmissionMutation describes an update_if_match call against a
// Submission: every populated field is applied, nothing else.
type SubmissionMutation struct {
	Status             *submission.Status
	StartedAt          *time.Time
	ExpirationInstant  *time.Time
	GraceDeadline      *time.Time
	SubmittedAt        *time.Time
	ViolationCount     *int
	Answers            map[string]interface{}
	ScoringStatus      *submission.ScoringStatus
	LatestEvaluationID *string
	LatestRunSequence  *int
	TotalAwarded       *float64
	TotalMax           *float64
	Percentage         *float64
	DetailedReport     map[string]interface{}
	DeadLetter         *bool
	AutoSubmitted      *bool
	AutoSubmitReason   *string
	AutoSubmitInstant  *time.Time
}

// UpdateSubmissionIfMatch applies mut to the submission at id only if its
// current version equals expectedVersion, atomically bumping version by 1.
// Returns ErrConflict if another writer updated the row first — the Session
// Manager's state machine relies on this to make reserve/start/submit/expire
// transitions safe under concurrent requests.
func (s *Store) UpdateSubmissionIfMatch(ctx context.Context, id string, expectedVersion int, mut SubmissionMutation) (*ent.Submission, error) {
	var out *ent.Submission
	err := s.withRetry(ctx, func(ctx context.Context) error {
		b := s.db.Submission.Update().
			Where(submission.ID(id), submission.Version(expectedVersion)).
			AddVersion(1)

		if mut.Status != nil {
			b.SetStatus(*mut.Status)
		}
		if mut.StartedAt != nil {
			b.SetStartedAt(*mut.StartedAt)
		}
		if mut.ExpirationInstant != nil {
			b.SetExpirationInstant(*mut.ExpirationInstant)
		}
		if mut.GraceDeadline != nil {
			b.SetGraceDeadline(*mut.GraceDeadline)
		}
		if mut.SubmittedAt != nil {
			b.SetSubmittedAt(*mut.SubmittedAt)
		}
		if mut.ViolationCount != nil {
			b.SetViolationCount(*mut.ViolationCount)
		}
		if mut.Answers != nil {
			b.SetAnswers(mut.Answers)
		}
		if mut.ScoringStatus != nil {
			b.SetScoringStatus(*mut.ScoringStatus)
		}
		if mut.LatestEvaluationID != nil {
			b.SetLatestEvaluationID(*mut.LatestEvaluationID)
		}
		if mut.LatestRunSequence != nil {
			b.SetLatestRunSequence(*mut.LatestRunSequence)
		}
		if mut.TotalAwarded != nil {
			b.SetTotalAwarded(*mut.TotalAwarded)
		}
		if mut.TotalMax != nil {
			b.SetTotalMax(*mut.TotalMax)
		}
		if mut.Percentage != nil {
			b.SetPercentage(*mut.Percentage)
		}
		if mut.DetailedReport != nil {
			b.SetDetailedReport(mut.DetailedReport)
		}
		if mut.DeadLetter != nil {
			b.SetDeadLetter(*mut.DeadLetter)
		}
		if mut.AutoSubmitted != nil {
			b.SetAutoSubmitted(*mut.AutoSubmitted)
		}
		if mut.AutoSubmitReason != nil {
			b.SetAutoSubmitReason(*mut.AutoSubmitReason)
		}
		if mut.AutoSubmitInstant != nil {
			b.SetAutoSubmitInstant(*mut.AutoSubmitInstant)
		}

		n, err := b.Save(ctx)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrConflict
		}

		row, err := s.db.Submission.Get(ctx, id)
		if err != nil {
			return err
		}
		out = row
		return nil
	})
	return out, mapErr(err)
}

// SetScoringStatus directly updates a submission's scoring_status and
// dead_letter flag, bypassing the version CAS: the Job Queue owns this
// column independently of the Session Manager's state-machine transitions,
// so there is no concurrent writer to race against.
func (s *Store) SetScoringStatus(ctx context.Context, submissionID string, status submission.ScoringStatus, deadLetter bool) error {
	return mapErr(s.withRetry(ctx, func(ctx context.Context) error {
		return s.db.Submission.UpdateOneID(submissionID).
			SetScoringStatus(status).
			SetDeadLetter(deadLetter).
			Exec(ctx)
	}))
}

// ListGraceExpired returns in-progress submissions whose grace_deadline has
// passed, for the expire_sweep operation to auto-submit.
func (s *Store) ListGraceExpired(ctx context.Context, asOf time.Time) ([]*ent.Submission, error) {
	var out []*ent.Submission
	err := s.withRetry(ctx, func(ctx context.Context) error {
		rows, err := s.db.Submission.Query().
			Where(
				submission.StatusEQ(submission.StatusInProgress),
				submission.GraceDeadlineNotNil(),
				submission.GraceDeadlineLT(asOf),
			).
			All(ctx)
		if err != nil {
			return err
		}
		out = rows
		return nil
	})
	return out, mapErr(err)
}
