package credserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicefront/internal/domain"
	"voicefront/internal/prompts"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type upstreamCall struct {
	apiKey  string
	agentID string
	path    string
}

type upstreamLog struct {
	mu    sync.Mutex
	calls []upstreamCall
}

func (l *upstreamLog) snapshot() []upstreamCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]upstreamCall(nil), l.calls...)
}

func newUpstream(t *testing.T, status int, log *upstreamLog) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.mu.Lock()
		log.calls = append(log.calls, upstreamCall{
			apiKey:  r.Header.Get("xi-api-key"),
			agentID: r.URL.Query().Get("agent_id"),
			path:    r.URL.Path,
		})
		log.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte(`{"signed_url":"wss://agent.example/convai?token=abc"}`))
			return
		}
		_, _ = w.Write([]byte(`{"detail":"unauthorized"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, upstream string, mutate func(*Config)) *Server {
	t.Helper()
	dir := t.TempDir()
	promptPath := filepath.Join(dir, "system_prompt.txt")
	require.NoError(t, os.WriteFile(promptPath, []byte("It is {{day}} in {{location}}."), 0o600))

	cfg := Config{
		AgentID:     "agent-123",
		APIKey:      "secret",
		UpstreamURL: upstream,
		PromptPath:  promptPath,
		Location:    prompts.Location{City: "Berlin", Country: "Germany"},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := New(cfg, nil)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2026, time.October, 17, 9, 0, 0, 0, time.UTC) }
	s.intn = func(int) int { return 0 }
	return s
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	h.ServeHTTP(w, req)
	return w
}

func TestSignedURLForPhase(t *testing.T) {
	t.Parallel()

	log := &upstreamLog{}
	upstream := newUpstream(t, http.StatusOK, log)
	s := newTestServer(t, upstream.URL, nil)

	w := get(t, s.Router(), "/api/signed-url/evening")
	require.Equal(t, http.StatusOK, w.Code)

	var creds domain.Credentials
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &creds))
	assert.Equal(t, "wss://agent.example/convai?token=abc", creds.SignedURL)
	assert.Equal(t, "It is Saturday in Berlin, Germany.", creds.System)
	assert.Equal(t, "Good evening! How can I assist you tonight?", creds.FirstMessage)

	calls := log.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "secret", calls[0].apiKey)
	assert.Equal(t, "agent-123", calls[0].agentID)
	assert.Equal(t, "/v1/convai/conversation/get_signed_url", calls[0].path)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSignedURLDefaultsToDay(t *testing.T) {
	t.Parallel()

	log := &upstreamLog{}
	upstream := newUpstream(t, http.StatusOK, log)
	s := newTestServer(t, upstream.URL, nil)

	for _, path := range []string{"/api/signed-url", "/api/signed-url/teatime"} {
		w := get(t, s.Router(), path)
		require.Equal(t, http.StatusOK, w.Code, path)
		var creds domain.Credentials
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &creds))
		assert.Equal(t, "Hello! How can I assist you today?", creds.FirstMessage, path)
	}
}

func TestSignedURLUpstreamFailure(t *testing.T) {
	t.Parallel()

	upstream := newUpstream(t, http.StatusUnauthorized, &upstreamLog{})
	s := newTestServer(t, upstream.URL, nil)

	w := get(t, s.Router(), "/api/signed-url/day")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to get signed URL"}`, w.Body.String())
}

func TestAgentID(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, "http://127.0.0.1:1", nil)
	w := get(t, s.Router(), "/api/getAgentId")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"agentId":"agent-123"}`, w.Body.String())
}

func TestStaticAssetsAndFallback(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "join.ogg"), []byte("OggS"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o600))

	s := newTestServer(t, "http://127.0.0.1:1", func(cfg *Config) { cfg.StaticDir = dir })
	router := s.Router()

	w := get(t, router, "/static/join.ogg")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OggS", w.Body.String())

	w = get(t, router, "/somewhere/else")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "app")
}
