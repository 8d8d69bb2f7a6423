package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/progress-engine/internal/application/engine"
	"github.com/alem-hub/progress-engine/internal/infrastructure/persistence/sqlite"
	"github.com/alem-hub/progress-engine/internal/interface/http/handlers"
	"github.com/alem-hub/progress-engine/pkg/random"
)

func newTestRouter(t *testing.T, health *handlers.HealthChecker) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	eng := engine.New(engine.Deps{
		Progress:    sqlite.NewProgressRepository(db),
		Validations: sqlite.NewValidationRepository(db),
		Quizzes:     sqlite.NewQuizRepository(db),
		Markers:     sqlite.NewMarkerStore(db),
		Random:      random.Fixed(0),
	}, engine.DefaultConfig())

	cfg := DefaultConfig()
	cfg.AllowedOrigins = []string{"http://localhost:5173"}
	return NewRouter(cfg, Dependencies{Service: eng, Health: health})
}

func do(t *testing.T, r http.Handler, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(handlers.HeaderUserID, user)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	return decode[handlers.ErrorEnvelope](t, rec).Error.Code
}

func TestAPI_RequiresUser(t *testing.T) {
	r := newTestRouter(t, nil)

	rec := do(t, r, http.MethodGet, "/v1/progress", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, handlers.CodeUnauthenticated, errorCode(t, rec))
	assert.NotEmpty(t, rec.Header().Get(handlers.HeaderRequestID))
}

func TestAPI_AddXPAndProgress(t *testing.T) {
	r := newTestRouter(t, nil)
	body := map[string]any{"amount": 10, "action_type": "task_completed", "source_id": "ev1"}

	rec := do(t, r, http.MethodPost, "/v1/xp", "u1", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decode[map[string]any](t, rec)["applied"])

	rec = do(t, r, http.MethodPost, "/v1/xp", "u1", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode[map[string]any](t, rec)["applied"])

	rec = do(t, r, http.MethodGet, "/v1/progress", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[map[string]any](t, rec)
	assert.Equal(t, float64(10), snap["xp"])
	assert.Equal(t, "Novice Grounds", snap["level_name"])

	rec = do(t, r, http.MethodPost, "/v1/xp", "u1", map[string]any{"amount": -1, "action_type": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, handlers.CodeInvalidAccrual, errorCode(t, rec))
}

func TestAPI_AwardActivity(t *testing.T) {
	r := newTestRouter(t, nil)

	rec := do(t, r, http.MethodPost, "/v1/activities", "u1", map[string]any{
		"event_id":         "lecture-1",
		"category":         "studies",
		"confidence":       0.9,
		"duration_minutes": 90,
		"is_recurring":     true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[map[string]map[string]any](t, rec)
	assert.Equal(t, float64(18), res["calculation"]["total_points"])
	assert.Equal(t, float64(18), res["outcome"]["xp_after"])
}

func TestAPI_TaskValidationFlow(t *testing.T) {
	r := newTestRouter(t, nil)

	rec := do(t, r, http.MethodPost, "/v1/tasks", "u1", map[string]any{
		"event_id": "ev1", "event_title": "Gym", "event_date": time.Now().Add(-time.Hour),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[map[string]any](t, rec)["id"].(string)

	rec = do(t, r, http.MethodGet, "/v1/tasks/pending/count", "u1", nil)
	assert.Equal(t, float64(1), decode[map[string]any](t, rec)["count"])

	rec = do(t, r, http.MethodPost, "/v1/tasks/"+id+"/validate", "u2", map[string]any{"completed": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, r, http.MethodPost, "/v1/tasks/"+id+"/validate", "u1", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/v1/tasks/"+id+"/validate", "u1", map[string]any{"completed": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, r, http.MethodPost, "/v1/tasks/"+id+"/validate", "u1", map[string]any{"completed": true})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, handlers.CodeAlreadyResolved, errorCode(t, rec))

	rec = do(t, r, http.MethodGet, "/v1/tasks/pending", "u1", nil)
	assert.Empty(t, decode[map[string][]any](t, rec)["tasks"])
}

func TestAPI_QuizFlow(t *testing.T) {
	r := newTestRouter(t, nil)

	questions := make([]map[string]any, 3)
	for i := range questions {
		questions[i] = map[string]any{
			"id": []string{"a", "b", "c"}[i], "prompt": "?", "choices": []string{"1", "2", "3", "4"}, "correct_index": 1,
		}
	}
	rec := do(t, r, http.MethodPost, "/v1/quizzes", "u1", map[string]any{"event_id": "exam", "questions": questions})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[map[string]any](t, rec)["id"].(string)

	rec = do(t, r, http.MethodPost, "/v1/quizzes", "u1", map[string]any{"event_id": "exam", "questions": questions})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, handlers.CodeDuplicateQuiz, errorCode(t, rec))

	rec = do(t, r, http.MethodPost, "/v1/quizzes/"+id+"/answers", "u1", map[string]any{"question_id": "a", "answer_index": 4})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, handlers.CodeInvalidAnswerIndex, errorCode(t, rec))

	rec = do(t, r, http.MethodPost, "/v1/quizzes/"+id+"/answers", "u1", map[string]any{"question_id": "a", "answer_index": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, rec)["correct"])

	rec = do(t, r, http.MethodGet, "/v1/quizzes/"+id, "u2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, r, http.MethodPost, "/v1/quizzes/"+id+"/complete", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(1), decode[map[string]any](t, rec)["score"])

	rec = do(t, r, http.MethodGet, "/v1/quizzes", "u1", nil)
	assert.Empty(t, decode[map[string][]any](t, rec)["quizzes"])
}

func TestAPI_QuizProposalAndOptOut(t *testing.T) {
	r := newTestRouter(t, nil)

	rec := do(t, r, http.MethodPost, "/v1/quiz-preferences/exam/do-not-ask", "u1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, r, http.MethodPost, "/v1/quiz-proposals", "u1", map[string]any{"event_id": "exam", "is_goal_event": true})
	require.Equal(t, http.StatusOK, rec.Code)
	d := decode[map[string]any](t, rec)
	assert.Equal(t, false, d["should_propose"])
	assert.Equal(t, "user opted out for this event", d["reason"])
}

func TestAPI_Healthz(t *testing.T) {
	health := handlers.NewHealthChecker("test")
	health.AddCheck("storage", func(context.Context) error { return nil })
	r := newTestRouter(t, health)

	rec := do(t, r, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	health.AddCheck("redis", func(context.Context) error { return errors.New("connection refused") })
	rec = do(t, r, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	status := decode[handlers.HealthStatus](t, rec)
	assert.False(t, status.Checks["redis"].Healthy)
	assert.True(t, status.Checks["storage"].Healthy)
}

func TestAPI_CORSPreflight(t *testing.T) {
	r := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/v1/progress", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
