package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/assessment-platform/enginer/ent/question"
	"github.com/assessment-platform/enginer/pkg/composer"
	"github.com/assessment-platform/enginer/pkg/events"
	"github.com/assessment-platform/enginer/pkg/session"
	"github.com/assessment-platform/enginer/pkg/store"
)

const timeLayout = "2006-01-02T15:04:05.999999999Z07:00"

func (s *Server) loginHandler(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorEnvelope{Error: "bad_request", Message: err.Error()})
		return
	}

	sub, err := s.store.GetSubmissionByAccessCode(c.Request.Context(), req.AccessCode)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, errorEnvelope{Error: "unauthorized", Message: "invalid access code"})
			return
		}
		abortWithError(c, err)
		return
	}

	token := mintSubmissionToken(s.cfg.Session.TokenSigningKey, sub.ID)
	c.JSON(http.StatusOK, LoginResponse{
		SubmissionToken:  token,
		SubmissionID:     sub.ID,
		InterviewEnabled: false,
	})
}

func (s *Server) readinessHandler(c *gin.Context) {
	submissionID := c.Param("id")
	state, err := s.session.Readiness(c.Request.Context(), submissionID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if state == session.ReadinessNotFound {
		c.JSON(http.StatusNotFound, errorEnvelope{Error: "not_found", Message: "submission not found"})
		return
	}

	resp := ReadinessResponse{Status: string(state)}
	if state == session.ReadinessReady || state == session.ReadinessPartiallyGenerated {
		sub, err := s.store.GetSubmission(c.Request.Context(), submissionID)
		if err == nil {
			if snap, err := s.store.GetSnapshot(c.Request.Context(), sub.SnapshotID); err == nil {
				resp.ReadyCount = len(snap.QuestionIDs)
				resp.TotalCount = len(snap.QuestionIDs)
			}
		}
	}
	if state == session.ReadinessGenerationFailed {
		retry := true
		resp.RetryRecommended = &retry
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) startHandler(c *gin.Context) {
	submissionID := c.Param("id")
	sub, err := s.session.Start(c.Request.Context(), submissionID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	snap, err := s.store.GetSnapshot(c.Request.Context(), sub.SnapshotID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	var durationMs, graceMs int64
	if sub.StartedAt != nil && sub.ExpirationInstant != nil {
		durationMs = sub.ExpirationInstant.Sub(*sub.StartedAt).Milliseconds()
	}
	if sub.ExpirationInstant != nil && sub.GraceDeadline != nil {
		graceMs = sub.GraceDeadline.Sub(*sub.ExpirationInstant).Milliseconds()
	}

	c.JSON(http.StatusOK, StartResponse{
		StartInstant:      formatTime(sub.StartedAt),
		ExpirationInstant: formatTime(sub.ExpirationInstant),
		DurationMs:        durationMs,
		GracePeriodMs:     graceMs,
		QuestionCount:     len(snap.QuestionIDs),
	})
}

// questionsPageHandler returns one page of the snapshot's questions with
// answer keys and rubrics stripped — candidates never see grading material.
func (s *Server) questionsPageHandler(c *gin.Context) {
	const pageSize = 10
	submissionID := c.Param("id")

	sub, err := s.store.GetSubmission(c.Request.Context(), submissionID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if sub.Status == "reserved" {
		c.JSON(http.StatusConflict, errorEnvelope{Error: "conflict", Message: "assessment has not been started"})
		return
	}

	snap, err := s.store.GetSnapshot(c.Request.Context(), sub.SnapshotID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	page := 0
	if p, ok := c.GetQuery("page"); ok {
		if n, err := parsePositiveInt(p); err == nil {
			page = n
		}
	}
	start := page * pageSize
	if start >= len(snap.Questions) {
		c.JSON(http.StatusOK, gin.H{"questions": []interface{}{}, "page": page})
		return
	}
	end := min(start+pageSize, len(snap.Questions))

	out := make([]map[string]interface{}, 0, end-start)
	for _, q := range snap.Questions[start:end] {
		out = append(out, candidateSafeQuestion(q))
	}
	c.JSON(http.StatusOK, gin.H{"questions": out, "page": page})
}

func candidateSafeQuestion(q map[string]interface{}) map[string]interface{} {
	safe := make(map[string]interface{}, 4)
	for _, key := range []string{"id", "topic", "kind", "difficulty", "stem", "choices"} {
		if v, ok := q[key]; ok {
			safe[key] = v
		}
	}
	return safe
}

func (s *Server) timerHandler(c *gin.Context) {
	result, err := s.session.TimerSync(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, TimerResponse{
		ServerNow:      result.ServerNow.Format(timeLayout),
		Expiration:     result.Expiration.Format(timeLayout),
		RemainingMs:    result.RemainingMs,
		GracePeriodMs:  result.GracePeriodMs,
		InGrace:        result.InGrace,
		SyncIntervalMs: s.cfg.Session.TimerSyncInterval.Milliseconds(),
	})
}

func (s *Server) submitHandler(c *gin.Context) {
	submissionID := c.Param("id")

	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorEnvelope{Error: "bad_request", Message: err.Error()})
		return
	}

	sub, err := s.session.Submit(c.Request.Context(), submissionID, req.Answers, req.AutoSubmitted, req.AutoSubmitReason)
	if err != nil {
		abortWithError(c, err)
		return
	}

	late := sub.GraceDeadline != nil && sub.SubmittedAt != nil && sub.SubmittedAt.After(*sub.GraceDeadline)
	c.JSON(http.StatusOK, SubmitResponse{
		State:             string(sub.Status),
		Late:              late,
		EvaluationPending: true,
	})
}

func (s *Server) recordEventHandler(c *gin.Context) {
	var req recordEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorEnvelope{Error: "bad_request", Message: err.Error()})
		return
	}
	if err := s.session.RecordEvent(c.Request.Context(), c.Param("id"), session.ViolationEvent(req.Event)); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) initiateHandler(c *gin.Context) {
	var req initiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorEnvelope{Error: "bad_request", Message: err.Error()})
		return
	}

	entries := make([]composer.Entry, 0, len(req.CompositionSpec))
	for _, e := range req.CompositionSpec {
		entries = append(entries, composer.Entry{
			Topic:            e.Topic,
			Kind:             question.Kind(e.Kind),
			Difficulty:       question.Difficulty(e.Difficulty),
			Count:            e.Count,
			SourcePreference: composer.SourcePreference(defaultString(e.SourcePreference, string(composer.PreferenceHybrid))),
		})
	}

	durationSeconds := req.DurationMinutes * 60
	snapshotID, err := s.composer.Compose(c.Request.Context(), composer.Spec{
		Entries:            entries,
		TimeLimitSeconds:   durationSeconds,
		GracePeriodSeconds: req.GracePeriodSeconds,
		ViolationLimit:     req.ViolationLimit,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	sub, code, err := s.session.Reserve(c.Request.Context(), snapshotID, req.CandidateID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, InitiateResponse{
		SubmissionID: sub.ID,
		AccessCode:   code,
		SnapshotID:   snapshotID,
	})
}

func (s *Server) checkDuplicateHandler(c *gin.Context) {
	var req checkDuplicateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorEnvelope{Error: "bad_request", Message: err.Error()})
		return
	}

	result, err := s.catalog.CheckDuplicate(c.Request.Context(), req.Skill, question.Kind(req.Type), question.Difficulty(req.Difficulty), req.Text)
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := DuplicateCheckResponse{
		ExactFingerprint: result.ExactFingerprintID,
		ExactText:        result.ExactTextID,
		SemanticMatches:  []SemanticMatch{},
	}
	if result.SemanticMatchID != "" {
		resp.SemanticMatches = append(resp.SemanticMatches, SemanticMatch{ID: result.SemanticMatchID, Similarity: result.Similarity})
	}
	c.JSON(http.StatusOK, resp)
}

// reportGuardWait bounds how long reportHandler waits on a "reported"
// NOTIFY before falling back to the ordinary 202-and-poll-again response.
const reportGuardWait = 3 * time.Second

func (s *Server) reportHandler(c *gin.Context) {
	submissionID := c.Param("id")
	sub, err := s.store.GetSubmission(c.Request.Context(), submissionID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if sub.LatestEvaluationID == nil {
		if s.waitForReport(c.Request.Context(), submissionID) {
			sub, err = s.store.GetSubmission(c.Request.Context(), submissionID)
			if err != nil {
				abortWithError(c, err)
				return
			}
		}
	}
	if sub.LatestEvaluationID == nil {
		c.JSON(http.StatusAccepted, gin.H{"status": "scoring_in_progress"})
		return
	}

	record, err := s.store.GetEvaluationRecordByRun(c.Request.Context(), submissionID, sub.LatestRunSequence)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, ReportResponse{
		SubmissionID:   submissionID,
		RunSequence:    record.RunSequence,
		TotalAwarded:   record.TotalAwarded,
		TotalMax:       record.TotalMax,
		Percentage:     record.Percentage,
		DetailedReport: sub.DetailedReport,
		Results:        record.Results,
	})
}

// waitForReport blocks up to reportGuardWait for a "scored" or "reported"
// NOTIFY on submissionID's channel. Returns false immediately if no
// listener is configured, on timeout, or on context cancellation — callers
// always re-check the Submission row themselves rather than trusting the
// event alone.
func (s *Server) waitForReport(ctx context.Context, submissionID string) bool {
	if s.listener == nil {
		return false
	}

	done := make(chan struct{}, 1)
	unsubscribe, err := s.listener.Subscribe(ctx, events.SubmissionChannel(submissionID), func([]byte) {
		select {
		case done <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return false
	}
	defer unsubscribe()

	waitCtx, cancel := context.WithTimeout(ctx, reportGuardWait)
	defer cancel()

	select {
	case <-done:
		return true
	case <-waitCtx.Done():
		return false
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timeLayout)
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func parsePositiveInt(s string) (int, error) {
	return strconv.Atoi(s)
}
