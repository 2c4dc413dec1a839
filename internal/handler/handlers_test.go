package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LinguaTutor/internal/identity"
	"LinguaTutor/internal/models"
	"LinguaTutor/internal/session"
	"LinguaTutor/pkg/sse"
	"LinguaTutor/pkg/transport"
)

func newTestEngine(t *testing.T, category string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	profile := &identity.Profile{UserID: "u1", DisplayName: "Amina", SchoolCategory: category}
	controller, err := session.NewController(session.Options{
		TopicID:   "t1",
		Mode:      models.ModeChat,
		Profile:   profile,
		Transport: transport.NewClient("ws://127.0.0.1:1/ws", nil),
	})
	require.NoError(t, err)

	engine := gin.New()
	NewHandlers(controller, profile, sse.NewHub(time.Second)).Register(engine)
	return engine
}

func TestHealthCheck(t *testing.T) {
	engine := newTestEngine(t, "private")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestModesFilteredForGovernmentSchool(t *testing.T) {
	engine := newTestEngine(t, "government")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/modes", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Modes []models.LearningMode `json:"modes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Modes, 4)
	for _, m := range resp.Modes {
		assert.NotEqual(t, models.ModeChat, m.ID)
		assert.NotEqual(t, models.ModePhoto, m.ID)
	}
}

func TestModesFullCatalog(t *testing.T) {
	engine := newTestEngine(t, "private")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/modes", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Modes []models.LearningMode `json:"modes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Modes, 6)
}

func TestStateSnapshot(t *testing.T) {
	engine := newTestEngine(t, "private")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/session/state", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var state models.SessionState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, models.SessionIdle, state.Status)
	assert.Equal(t, models.ModeChat, state.Mode)
}

func TestSendTextRequiresBody(t *testing.T) {
	engine := newTestEngine(t, "private")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/session/text", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendTextWhileDisconnected(t *testing.T) {
	engine := newTestEngine(t, "private")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/session/text",
		strings.NewReader(`{"text":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestProfileEndpoint(t *testing.T) {
	engine := newTestEngine(t, "private")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/profile", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Amina")
}
