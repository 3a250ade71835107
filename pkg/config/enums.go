package config

// QueueMode selects the Job Queue's transport: a durable broker-backed
// queue for multi-instance deployments, or an in-process channel queue for
// single-instance/dev deployments.
type QueueMode string

const (
	// QueueModeBroker routes jobs through a NATS JetStream stream.
	QueueModeBroker QueueMode = "broker"
	// QueueModeInProcess routes jobs through an in-memory buffered channel.
	QueueModeInProcess QueueMode = "in_process"
)

// IsValid checks if the queue mode is valid (empty string is NOT valid —
// must be explicit).
func (m QueueMode) IsValid() bool {
	return m == QueueModeBroker || m == QueueModeInProcess
}
