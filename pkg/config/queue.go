package config

import "time"

// QueueConfig contains job queue and worker pool configuration. These
// values control how score/report jobs are polled, claimed, and processed,
// regardless of whether Mode selects the broker or in-process transport.
type QueueConfig struct {
	// Mode selects the broker-backed or in-process transport.
	Mode QueueMode `yaml:"mode"`

	// NATSURL is the broker connection string, used only when Mode is broker.
	NATSURL string `yaml:"nats_url"`

	// WorkerCount is the number of worker goroutines per replica/pod.
	// Each worker independently claims and processes jobs.
	WorkerCount int `yaml:"worker_count"`

	// MaxConcurrentJobs is the global limit of concurrent jobs being
	// processed across ALL replicas/pods. Enforced by a database COUNT(*)
	// check when running in-process, and by consumer MaxAckPending when
	// running against the broker.
	MaxConcurrentJobs int `yaml:"max_concurrent_jobs"`

	// PollInterval is the base interval for checking pending jobs in the
	// in-process transport.
	PollInterval time.Duration `yaml:"poll_interval"`

	// PollIntervalJitter is the random jitter added to PollInterval.
	// Actual interval: PollInterval ± PollIntervalJitter.
	PollIntervalJitter time.Duration `yaml:"poll_interval_jitter"`

	// JobTimeout is the maximum time a job can be processed before its
	// claim is considered stale.
	JobTimeout time.Duration `yaml:"job_timeout"`

	// GracefulShutdownTimeout is the max time to wait for active jobs to
	// complete during shutdown. Should match JobTimeout.
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`

	// OrphanDetectionInterval is how often to scan for orphaned jobs.
	OrphanDetectionInterval time.Duration `yaml:"orphan_detection_interval"`

	// OrphanThreshold is how long a job can go without a heartbeat before
	// it is considered orphaned and requeued.
	OrphanThreshold time.Duration `yaml:"orphan_threshold"`
}

// DefaultQueueConfig returns the built-in queue defaults.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		Mode:                    QueueModeInProcess,
		NATSURL:                 "nats://localhost:4222",
		WorkerCount:             5,
		MaxConcurrentJobs:       5,
		PollInterval:            1 * time.Second,
		PollIntervalJitter:      500 * time.Millisecond,
		JobTimeout:              5 * time.Minute,
		GracefulShutdownTimeout: 5 * time.Minute,
		OrphanDetectionInterval: 2 * time.Minute,
		OrphanThreshold:         2 * time.Minute,
	}
}
