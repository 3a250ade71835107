package api

import (
	"github.com/assessment-platform/enginer/pkg/queue"
	"github.com/assessment-platform/enginer/pkg/version"
)

// LoginResponse is returned by POST /candidate/login.
type LoginResponse struct {
	SubmissionToken string `json:"submission_token"`
	SubmissionID    string `json:"submission_id"`
	InterviewEnabled bool  `json:"interview_enabled"`
}

// ReadinessResponse is returned by GET /candidate/assessment/{id}/readiness.
type ReadinessResponse struct {
	Status           string `json:"status"`
	ReadyCount       int    `json:"ready_count"`
	TotalCount       int    `json:"total_count"`
	RetryRecommended *bool  `json:"retry_recommended,omitempty"`
}

// StartResponse is returned by POST /candidate/assessment/{id}/start.
type StartResponse struct {
	StartInstant      string `json:"start_instant"`
	ExpirationInstant string `json:"expiration_instant"`
	DurationMs        int64  `json:"duration_ms"`
	GracePeriodMs     int64  `json:"grace_period_ms"`
	QuestionCount     int    `json:"question_count"`
}

// TimerResponse is returned by GET /candidate/assessment/{id}/timer.
type TimerResponse struct {
	ServerNow      string `json:"server_now"`
	Expiration     string `json:"expiration"`
	RemainingMs    int64  `json:"remaining_ms"`
	GracePeriodMs  int64  `json:"grace_period_ms"`
	InGrace        bool   `json:"in_grace"`
	SyncIntervalMs int64  `json:"sync_interval_ms"`
}

// SubmitResponse is returned by POST /candidate/assessment/{id}/submit.
type SubmitResponse struct {
	State             string `json:"state"`
	Late              bool   `json:"late"`
	EvaluationPending bool   `json:"evaluation_pending"`
}

// InitiateResponse is returned by POST /admin/tests/initiate.
type InitiateResponse struct {
	SubmissionID string `json:"submission_id"`
	AccessCode   string `json:"access_code"`
	SnapshotID   string `json:"assessment_id"`
}

// DuplicateCheckResponse is returned by POST /admin/questions/check-duplicate.
type DuplicateCheckResponse struct {
	ExactFingerprint string           `json:"exact_fingerprint,omitempty"`
	ExactText        string           `json:"exact_text,omitempty"`
	SemanticMatches  []SemanticMatch  `json:"semantic_matches"`
}

// SemanticMatch is one entry of DuplicateCheckResponse.SemanticMatches.
type SemanticMatch struct {
	ID         string  `json:"id"`
	Similarity float64 `json:"similarity"`
}

// ReportResponse is returned by GET /admin/submissions/{id}/report.
type ReportResponse struct {
	SubmissionID   string                   `json:"submission_id"`
	RunSequence    int                      `json:"run_sequence"`
	TotalAwarded   float64                  `json:"total_awarded"`
	TotalMax       float64                  `json:"total_max"`
	Percentage     float64                  `json:"percentage"`
	DetailedReport map[string]interface{}   `json:"detailed_report,omitempty"`
	Results        []map[string]interface{} `json:"results"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	WorkerPool *queue.PoolHealth `json:"worker_pool,omitempty"`
}

func newHealthResponse(status string, pool *queue.PoolHealth) HealthResponse {
	return HealthResponse{Status: status, Version: version.Full(), WorkerPool: pool}
}
