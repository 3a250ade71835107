// Package events delivers submission lifecycle notifications over
// PostgreSQL NOTIFY/LISTEN, so that multiple API pods stay in sync without a
// shared in-memory broker: whichever pod's worker completes a score or
// report job publishes a NOTIFY, and every pod's listener (including the one
// a waiting HTTP client happens to be talking to) receives it.
//
// This is a narrowing, not a duplication, of pkg/queue's Notifier: the queue
// notifier wakes a worker to look for a claimable job, while this package
// wakes an HTTP handler blocked in a long-poll waiting on one submission's
// status to change. Both ride the same "best-effort wake-up, Postgres is
// the source of truth" principle.
package events

// Event types published on the submission channel.
const (
	EventTypeSubmissionStatus = "submission.status"
)

// SubmissionChannel returns the NOTIFY channel name for one submission's
// lifecycle events. Scoped per-submission (rather than one global channel)
// so a long-polling guard handler only wakes for the row it's waiting on.
func SubmissionChannel(submissionID string) string {
	return "submission:" + submissionID
}
