package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/tasksync/internal/auth"
	"github.com/BuzzLyutic/tasksync/internal/config"
	"github.com/BuzzLyutic/tasksync/internal/hub"
	"github.com/BuzzLyutic/tasksync/internal/metrics"
	"github.com/BuzzLyutic/tasksync/internal/repo"
	"github.com/BuzzLyutic/tasksync/internal/service"
)

type testEnv struct {
	server   *httptest.Server
	tokens   *auth.TokenManager
	registry *hub.Registry
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	logger := zap.NewNop()
	store := repo.NewMemoryStore()

	registry := hub.NewRegistry(logger, metrics.Nop{})
	router := hub.NewRouter(registry, logger, metrics.Nop{}, 2, 64)
	router.Start(context.Background())

	tokens := auth.NewTokenManager("test-secret", time.Hour)
	tasks := service.NewTaskService(store, router, logger, metrics.Nop{})

	ws := NewWSHandler(tokens, registry, config.WSConfig{
		SendBuffer:     16,
		PingInterval:   time.Second,
		PongWait:       2 * time.Second,
		WriteWait:      time.Second,
		MaxMessageSize: 4096,
	}, []string{"*"}, logger)

	server := httptest.NewServer(Routes(Deps{
		Tasks:       NewTaskHandler(tasks, logger),
		Auth:        NewAuthHandler(auth.NewService(store.Users(), tokens, logger), logger),
		WS:          ws,
		Verifier:    tokens,
		CORSOrigins: []string{"*"},
		Logger:      logger,
	}))

	t.Cleanup(func() {
		registry.CloseAll()
		server.Close()
		router.Stop()
	})

	return testEnv{server: server, tokens: tokens, registry: registry}
}

func (e testEnv) token(t *testing.T, ownerID string) string {
	t.Helper()
	token, err := e.tokens.Issue(ownerID, ownerID+"@example.com")
	require.NoError(t, err)
	return token
}

func (e testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}
