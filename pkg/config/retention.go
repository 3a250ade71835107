package config

import "time"

// RetentionConfig controls TTL sweeping behavior for the containers that
// carry a deleted_after marker instead of a DB-native TTL: code execution
// logs and RAG query logs.
type RetentionConfig struct {
	// QuestionSoftDeleteRetentionDays is how many days a soft-deleted
	// question (deleted_at set) is kept before the sweeper purges it.
	QuestionSoftDeleteRetentionDays int `yaml:"question_soft_delete_retention_days"`

	// CodeExecutionLogTTL is how long a code_execution_logs row lives past
	// its created_at before deleted_after is eligible for sweeping.
	CodeExecutionLogTTL time.Duration `yaml:"code_execution_log_ttl"`

	// RagQueryTTL is how long a rag_queries row lives past its created_at
	// before deleted_after is eligible for sweeping.
	RagQueryTTL time.Duration `yaml:"rag_query_ttl"`

	// CleanupInterval is how often the sweeper loop runs.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		QuestionSoftDeleteRetentionDays: 90,
		CodeExecutionLogTTL:             30 * 24 * time.Hour,
		RagQueryTTL:                     30 * 24 * time.Hour,
		CleanupInterval:                 12 * time.Hour,
	}
}
