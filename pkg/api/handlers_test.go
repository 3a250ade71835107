package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/assessment-platform/enginer/ent/question"
	"github.com/assessment-platform/enginer/pkg/catalog"
	"github.com/assessment-platform/enginer/pkg/clock"
	"github.com/assessment-platform/enginer/pkg/composer"
	"github.com/assessment-platform/enginer/pkg/config"
	"github.com/assessment-platform/enginer/pkg/scoring"
	"github.com/assessment-platform/enginer/pkg/session"
	"github.com/assessment-platform/enginer/pkg/store"
	testdb "github.com/assessment-platform/enginer/test/database"
)

type noopEnqueuer struct{}

func (noopEnqueuer) EnqueueScoreJob(context.Context, string) error { return nil }

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	client := testdb.NewTestClient(t)
	st := store.New(client.Client)

	cfg := &config.Config{
		Session:   config.DefaultSessionConfig(),
		Queue:     config.DefaultQueueConfig(),
		Scoring:   config.DefaultScoringConfig(),
		RAG:       config.DefaultRAGConfig(),
		Retention: config.DefaultRetentionConfig(),
	}

	cat := catalog.New(st, nil, cfg.RAG)
	comp := composer.New(st, cat, nil, clock.SystemClock{}, cfg.Session)
	sess := session.New(st, clock.SystemClock{}, cfg.Session, noopEnqueuer{})
	scorer := scoring.New(st, nil, cfg.Scoring)

	srv := NewServer(cfg, client.DB(), st, cat, comp, sess, scorer, nil, nil)
	return srv, st
}

func doJSON(srv *Server, method, path string, body interface{}, bearer string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	srv.engine.ServeHTTP(w, req)
	return w
}

func mustSnapshotFixture(t *testing.T, st *store.Store, cat *catalog.Catalog) string {
	t.Helper()
	ctx := context.Background()
	qID, err := cat.Create(ctx, catalog.NewQuestionInput{
		Topic:      "algorithms",
		Kind:       question.KindMultipleChoice,
		Difficulty: question.DifficultyMedium,
		Stem:       "Which data structure is LIFO?",
		Choices:    []string{"stack", "queue"},
		AnswerKey:  map[string]interface{}{"correct_option_id": "stack"},
	})
	require.NoError(t, err)

	snap, err := st.CreateSnapshot(ctx, store.NewSnapshot{
		ID:                 clock.NewID(),
		CompositionSpec:    map[string]interface{}{},
		QuestionIDs:        []string{qID},
		PointsByQuestion:   map[string]interface{}{qID: 10.0},
		Questions: []map[string]interface{}{{
			"id": qID, "topic": "algorithms", "kind": "mcq", "difficulty": "medium",
			"stem": "Which data structure is LIFO?", "choices": []interface{}{"stack", "queue"},
			"answer_key": map[string]interface{}{"correct_option_id": "stack"},
		}},
		TotalPoints:        10,
		TimeLimitSeconds:   3600,
		GracePeriodSeconds: 120,
		ViolationLimit:     3,
	})
	require.NoError(t, err)
	return snap.ID
}

func TestLoginReadinessStartQuestionsTimerSubmitFlow(t *testing.T) {
	srv, st := newTestServer(t)
	ctx := context.Background()

	snapshotID := mustSnapshotFixture(t, st, srv.catalog)
	sub, code, err := srv.session.Reserve(ctx, snapshotID, "candidate-http")
	require.NoError(t, err)

	w := doJSON(srv, http.MethodPost, "/candidate/login", loginRequest{AccessCode: code}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var loginResp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loginResp))
	require.Equal(t, sub.ID, loginResp.SubmissionID)
	token := loginResp.SubmissionToken

	w = doJSON(srv, http.MethodGet, "/candidate/assessment/"+sub.ID+"/readiness", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var readiness ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &readiness))
	require.Equal(t, "ready", readiness.Status)

	w = doJSON(srv, http.MethodPost, "/candidate/assessment/"+sub.ID+"/start", nil, "")
	require.Equal(t, http.StatusUnauthorized, w.Code, "start requires the bearer token")

	w = doJSON(srv, http.MethodPost, "/candidate/assessment/"+sub.ID+"/start", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var startResp StartResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &startResp))
	require.Equal(t, 1, startResp.QuestionCount)

	w = doJSON(srv, http.MethodGet, "/candidate/assessment/"+sub.ID+"/questions/page", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotContains(t, w.Body.String(), "answer_key", "candidate-facing page must never leak grading material")

	w = doJSON(srv, http.MethodGet, "/candidate/assessment/"+sub.ID+"/timer", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var timerResp TimerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &timerResp))
	require.False(t, timerResp.InGrace)

	w = doJSON(srv, http.MethodPost, "/candidate/assessment/"+sub.ID+"/submit",
		submitRequest{Answers: map[string]interface{}{}}, token)
	require.Equal(t, http.StatusOK, w.Code)
	var submitResp SubmitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &submitResp))
	require.Equal(t, "completed", submitResp.State)
}

func TestLoginRejectsUnknownAccessCode(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doJSON(srv, http.MethodPost, "/candidate/login", loginRequest{AccessCode: "DOESNOTEXIST"}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRecordEventWrongTokenRejected(t *testing.T) {
	srv, st := newTestServer(t)
	ctx := context.Background()

	snapshotID := mustSnapshotFixture(t, st, srv.catalog)
	sub, _, err := srv.session.Reserve(ctx, snapshotID, "candidate-a")
	require.NoError(t, err)
	other, _, err := srv.session.Reserve(ctx, snapshotID, "candidate-b")
	require.NoError(t, err)

	otherToken := mintSubmissionToken(srv.cfg.Session.TokenSigningKey, other.ID)

	w := doJSON(srv, http.MethodPost, "/candidate/assessment/"+sub.ID+"/events",
		recordEventRequest{Event: "tab_switch"}, otherToken)
	require.Equal(t, http.StatusUnauthorized, w.Code, "a token minted for a different submission must never authorize")
}

func TestInitiateAndCheckDuplicate(t *testing.T) {
	srv, _ := newTestServer(t)
	_, err := srv.catalog.Create(context.Background(), catalog.NewQuestionInput{
		Topic:      "networking",
		Kind:       question.KindMultipleChoice,
		Difficulty: question.DifficultyEasy,
		Stem:       "What layer does TCP operate at?",
		Choices:    []string{"transport", "network"},
		AnswerKey:  map[string]interface{}{"correct_option_id": "transport"},
	})
	require.NoError(t, err)

	w := doJSON(srv, http.MethodPost, "/admin/tests/initiate", initiateRequest{
		CandidateID: "candidate-init",
		CompositionSpec: []initiateEntry{{
			Topic: "networking", Kind: "mcq", Difficulty: "easy", Count: 1, SourcePreference: "curated_only",
		}},
		DurationMinutes: 30,
	}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var initResp InitiateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &initResp))
	require.NotEmpty(t, initResp.SubmissionID)
	require.NotEmpty(t, initResp.AccessCode)

	w = doJSON(srv, http.MethodPost, "/admin/questions/check-duplicate",
		checkDuplicateRequest{Skill: "networking", Type: "mcq", Difficulty: "easy", Text: "What layer does TCP operate at?"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var dupResp DuplicateCheckResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dupResp))
	require.NotEmpty(t, dupResp.ExactText)
}

func TestHealthHandlerReportsHealthy(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doJSON(srv, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestReportHandlerPendingBeforeScoring(t *testing.T) {
	srv, st := newTestServer(t)
	ctx := context.Background()

	snapshotID := mustSnapshotFixture(t, st, srv.catalog)
	sub, _, err := srv.session.Reserve(ctx, snapshotID, "candidate-report")
	require.NoError(t, err)

	w := doJSON(srv, http.MethodGet, "/admin/submissions/"+sub.ID+"/report", nil, "")
	require.Equal(t, http.StatusAccepted, w.Code)
}
