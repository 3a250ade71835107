package events

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// Publisher sends submission status NOTIFYs over its own dedicated
// connection, kept separate from whatever connection a NotifyListener uses
// for LISTEN — pgx does not support mixing the two roles on one connection
// from different goroutines.
type Publisher struct {
	conn *pgx.Conn
}

// NewPublisher wraps an already-connected *pgx.Conn for publishing.
func NewPublisher(conn *pgx.Conn) *Publisher {
	return &Publisher{conn: conn}
}

// PublishSubmissionStatus notifies every listener on submissionID's channel
// that its status changed. detail carries extra context for a failure
// (e.g. the error that caused a scoring job to dead-letter); omit it for
// ordinary transitions.
func (p *Publisher) PublishSubmissionStatus(ctx context.Context, submissionID, status, detail string) error {
	payload := SubmissionStatusPayload{
		Type:         EventTypeSubmissionStatus,
		SubmissionID: submissionID,
		Status:       status,
		Detail:       detail,
		Timestamp:    time.Now().UTC().Format(time.RFC3339Nano),
	}
	return Publish(ctx, p.conn, SubmissionChannel(submissionID), payload)
}

// Close releases the underlying connection.
func (p *Publisher) Close(ctx context.Context) error {
	return p.conn.Close(ctx)
}
