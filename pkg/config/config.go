package config

import "time"

// Config is the umbrella configuration object that encapsulates all
// component defaults and configuration state. This is the primary object
// returned by Initialize() and threaded through every component at wiring
// time.
type Config struct {
	configDir string // Configuration directory path (for reference)

	Session   *SessionConfig
	Queue     *QueueConfig
	Scoring   *ScoringConfig
	Generator *GeneratorConfig
	Evaluator *EvaluatorConfig
	RAG       *RAGConfig
	Retention *RetentionConfig
}

// Initialize is defined in loader.go

// ConfigStats contains statistics about loaded configuration, surfaced at
// startup for operator visibility.
type ConfigStats struct {
	QueueMode          QueueMode
	QueueWorkerCount   int
	SessionTimeLimit   int
	ScoringConcurrency int
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() ConfigStats {
	return ConfigStats{
		QueueMode:          c.Queue.Mode,
		QueueWorkerCount:   c.Queue.WorkerCount,
		SessionTimeLimit:   c.Session.DefaultTimeLimitSeconds,
		ScoringConcurrency: c.Scoring.MaxConcurrentPerSubmission,
	}
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// SessionConfig holds the Session Manager's default timing policy. A
// composition request may override the grace period and violation limit per
// assessment; the effective values are snapshotted onto the
// AssessmentSnapshot when the assessment is composed, so later config edits
// never affect an already-reserved session.
type SessionConfig struct {
	DefaultTimeLimitSeconds   int `yaml:"default_time_limit_seconds"`
	DefaultGracePeriodSeconds int `yaml:"default_grace_period_seconds"`
	DefaultViolationLimit     int `yaml:"default_violation_limit"`
	AccessCodeLength          int `yaml:"access_code_length"`

	// MinQuestionsRequired is the floor on a composition's total question
	// count; Compose refuses to freeze a snapshot short of it.
	MinQuestionsRequired int `yaml:"min_questions_required"`

	// StrictMode disallows the composer's live-generation fallback tier for
	// hybrid-preference entries: a short curated+cache pool fails the
	// composition instead of silently calling out to the generator. Entries
	// that explicitly ask for ai_only are unaffected.
	StrictMode bool `yaml:"strict_mode"`

	// AutoSubmitEnabled gates RecordEvent's violation-triggered auto-submit.
	// Violations still accumulate when false; the submission simply never
	// auto-finalizes on their account.
	AutoSubmitEnabled bool `yaml:"auto_submit_enabled"`

	// TimerSyncInterval is the cadence advertised to clients for polling
	// GET .../timer.
	TimerSyncInterval time.Duration `yaml:"timer_sync_interval"`

	// ExpireSweepInterval is how often the background sweeper scans for
	// grace-expired submissions to auto-submit.
	ExpireSweepInterval time.Duration `yaml:"expire_sweep_interval"`

	// TokenSigningKey signs the submission_token candidates present on
	// every request after login. Expected via ${SESSION_TOKEN_SIGNING_KEY}
	// env-var expansion in production; the built-in default is dev-only.
	TokenSigningKey string `yaml:"token_signing_key"`
}

// DefaultSessionConfig returns the built-in session defaults.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		DefaultTimeLimitSeconds:   60 * 60,
		DefaultGracePeriodSeconds: 30,
		DefaultViolationLimit:     3,
		AccessCodeLength:          10,
		MinQuestionsRequired:      1,
		StrictMode:                false,
		AutoSubmitEnabled:         true,
		TimerSyncInterval:         60 * time.Second,
		ExpireSweepInterval:       5 * time.Minute,
		TokenSigningKey:           "dev-insecure-signing-key",
	}
}

// ScoringConfig controls the Scoring Triage's concurrency bound. Scoring
// Triage reads only MaxConcurrentPerSubmission: a submission's total is the
// plain sum of per-question points, and MCQWeight, RubricWeight and
// MaxExtractionRetries are not read by any scoring code.
type ScoringConfig struct {
	MaxConcurrentPerSubmission int     `yaml:"max_concurrent_per_submission"`
	MCQWeight                  float64 `yaml:"mcq_weight"`
	RubricWeight               float64 `yaml:"rubric_weight"`
	MaxExtractionRetries       int     `yaml:"max_extraction_retries"`
}

// DefaultScoringConfig returns the built-in scoring defaults.
func DefaultScoringConfig() *ScoringConfig {
	return &ScoringConfig{
		MaxConcurrentPerSubmission: 4,
		MCQWeight:                  1.0,
		RubricWeight:               1.0,
		MaxExtractionRetries:       5,
	}
}

// GeneratorConfig addresses the Question Generator Adapter and the
// composer's generator-health precondition.
type GeneratorConfig struct {
	ServiceAddr         string `yaml:"service_addr"`
	Model               string `yaml:"model"`
	HealthCheckTimeoutSeconds int `yaml:"health_check_timeout_seconds"`
}

// DefaultGeneratorConfig returns the built-in generator defaults.
func DefaultGeneratorConfig() *GeneratorConfig {
	return &GeneratorConfig{
		ServiceAddr:               "localhost:50051",
		Model:                     "question-generator-v1",
		HealthCheckTimeoutSeconds: 5,
	}
}

// EvaluatorConfig addresses pkg/evaluator's three gRPC adapters: the LLM
// Rubric Adapter's per-call/per-submission time budget and retry policy, and
// the Code Execution Proxy's input limits and sandbox polling cadence.
type EvaluatorConfig struct {
	ServiceAddr                string   `yaml:"service_addr"`
	CallTimeoutSeconds         int      `yaml:"call_timeout_seconds"`
	SubmissionBudgetSeconds    int      `yaml:"submission_budget_seconds"`
	MaxRetries                 int      `yaml:"max_retries"`
	RetryBaseDelaySeconds      int      `yaml:"retry_base_delay_seconds"`
	RetryMaxDelaySeconds       int      `yaml:"retry_max_delay_seconds"`
	MaxSourceBytes             int      `yaml:"max_source_bytes"`
	MaxOutputBytes             int      `yaml:"max_output_bytes"`
	AllowedLanguages           []string `yaml:"allowed_languages"`
	SandboxPollIntervalSeconds int      `yaml:"sandbox_poll_interval_seconds"`
	SandboxPollCapSeconds      int      `yaml:"sandbox_poll_cap_seconds"`
}

// DefaultEvaluatorConfig returns the built-in evaluator defaults.
func DefaultEvaluatorConfig() *EvaluatorConfig {
	return &EvaluatorConfig{
		ServiceAddr:                "localhost:50052",
		CallTimeoutSeconds:         30,
		SubmissionBudgetSeconds:    60,
		MaxRetries:                 3,
		RetryBaseDelaySeconds:      2,
		RetryMaxDelaySeconds:       8,
		MaxSourceBytes:             10 * 1024,
		MaxOutputBytes:             64 * 1024,
		AllowedLanguages:           []string{"python", "javascript", "go", "java"},
		SandboxPollIntervalSeconds: 1,
		SandboxPollCapSeconds:      30,
	}
}

// RAGConfig controls the embedding/vector-search contract used for
// duplicate detection. Question generation does not retrieve knowledge
// documents through it.
type RAGConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	TopK                int     `yaml:"top_k"`

	// EmbeddingDimension is the vector width produced by the configured
	// Embedder; mismatches here are a wiring bug, not a runtime error.
	EmbeddingDimension int `yaml:"embedding_dimension"`

	// RAGEnabled gates whether an Embedder is constructed at all. When
	// false, duplicate detection falls back to exact-match only.
	RAGEnabled bool `yaml:"rag_enabled"`
}

// DefaultRAGConfig returns the built-in RAG defaults.
func DefaultRAGConfig() *RAGConfig {
	return &RAGConfig{
		SimilarityThreshold: 0.92,
		TopK:                5,
		EmbeddingDimension:  32,
		RAGEnabled:          true,
	}
}
