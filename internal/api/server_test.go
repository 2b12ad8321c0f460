package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/deepthink/internal/gateway"
	"github.com/example/deepthink/internal/orchestrator"
	"github.com/example/deepthink/internal/session"
	"github.com/example/deepthink/internal/tools"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := session.NewStore(t.TempDir(), nil)
	require.NoError(t, err)
	reg := tools.NewRegistry()
	reg.Register(&tools.DocExtractTool{})
	orch := orchestrator.New(&gateway.MockClient{})
	return NewServer(orch, store, reg, orchestrator.Options{}, nil)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestThinkRunsPipeline(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"question": "Compare two data structures"}`)

	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/think", body))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Result struct {
			FinalAnswer   string `json:"final_answer"`
			TotalLLMCalls int    `json:"total_llm_calls"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Result.FinalAnswer)
	assert.Greater(t, resp.Result.TotalLLMCalls, 0)
}

func TestThinkRequiresQuestion(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/think", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestThinkRecordsSessionHistory(t *testing.T) {
	srv := newTestServer(t)
	created, err := srv.Sessions.Create()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"question": "q", "session_id": "` + created.ID + `"}`)
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/think", body))
	require.Equal(t, http.StatusOK, rec.Code)

	st, err := srv.Sessions.Load(created.ID)
	require.NoError(t, err)
	require.Len(t, st.History, 2)
	assert.Equal(t, "user", st.History[0].Role)
	assert.Equal(t, "assistant", st.History[1].Role)
}

func TestSessionCRUD(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sessions", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created session.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/"+created.ID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/sessions/"+created.ID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/"+created.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExtractRejectsBadInput(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/extract", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/think", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
