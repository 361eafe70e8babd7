package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cuemby/warren-scheduler/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandlerFunc(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	HealthHandlerFunc(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestReadyHandler(t *testing.T) {
	dir := t.TempDir()
	repo, err := storage.NewBoltStore(dir)
	require.NoError(t, err)
	defer repo.Close()

	s := NewServer(repo)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	s.readyHandler(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouterMountsAmbientEndpoints(t *testing.T) {
	dir := t.TempDir()
	repo, err := storage.NewBoltStore(dir)
	require.NoError(t, err)
	defer repo.Close()

	s := NewServer(repo)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		s.Router().ServeHTTP(w, req)
		assert.NotEqual(t, http.StatusNotFound, w.Code, "path: %s", path)
	}
}
