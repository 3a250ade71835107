package api

// loginRequest is the body of POST /candidate/login.
type loginRequest struct {
	AccessCode string `json:"access_code" binding:"required"`
}

// submitRequest is the body of POST /candidate/assessment/{id}/submit.
type submitRequest struct {
	Answers          map[string]interface{} `json:"answers"`
	ProctoringEvents []string                `json:"proctoring_events"`
	AutoSubmitted    bool                    `json:"auto_submitted"`
	AutoSubmitReason string                  `json:"auto_submit_reason"`
	ViolationCount   int                     `json:"violation_count"`
}

// recordEventRequest is the body of POST /candidate/assessment/{id}/events.
type recordEventRequest struct {
	Event string `json:"event" binding:"required"`
}

// initiateEntry is one line item of initiateRequest.CompositionSpec.
type initiateEntry struct {
	Topic            string `json:"topic" binding:"required"`
	Kind             string `json:"kind" binding:"required"`
	Difficulty       string `json:"difficulty" binding:"required"`
	Count            int    `json:"count" binding:"required"`
	SourcePreference string `json:"source_preference"`
}

// initiateRequest is the body of POST /admin/tests/initiate.
type initiateRequest struct {
	CandidateID        string          `json:"candidate_id" binding:"required"`
	CompositionSpec    []initiateEntry `json:"composition_spec" binding:"required"`
	DurationMinutes    int             `json:"duration_minutes"`
	GracePeriodSeconds int             `json:"grace_period_seconds"`
	ViolationLimit     int             `json:"violation_limit"`
}

// checkDuplicateRequest is the body of POST /admin/questions/check-duplicate.
type checkDuplicateRequest struct {
	Text       string `json:"text" binding:"required"`
	Skill      string `json:"skill"`
	Type       string `json:"type" binding:"required"`
	Difficulty string `json:"difficulty" binding:"required"`
}
