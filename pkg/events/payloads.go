package events

// SubmissionStatusPayload is the payload published to a submission's
// channel when a job pipeline stage completes: the score handler publishes
// "scored" and the report handler publishes "reported". Session lifecycle
// transitions and job failures publish nothing. The guard endpoints decode
// this to decide whether a long-polling client can stop waiting.
type SubmissionStatusPayload struct {
	Type         string `json:"type"` // always EventTypeSubmissionStatus
	SubmissionID string `json:"submission_id"`
	Status       string `json:"status"`
	Detail       string `json:"detail,omitempty"`
	Timestamp    string `json:"timestamp"` // RFC3339Nano
}
