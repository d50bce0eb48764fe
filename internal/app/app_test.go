package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motoforge/storefront/internal/config"
	"github.com/motoforge/storefront/internal/domain"
	"github.com/motoforge/storefront/internal/repository"
	"github.com/motoforge/storefront/pkg/logger"
)

func testConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(env)
	require.NoError(t, err)
	return cfg
}

func request(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-ID", "rider-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestOpenBackend_WrapsDurableBackends(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"WISHLIST_BACKEND":  config.BackendFile,
		"WISHLIST_FILE_DIR": t.TempDir(),
	})

	be, err := openBackend(context.Background(), cfg, prometheus.NewRegistry(), logger.Discard())

	require.NoError(t, err)
	assert.IsType(t, &repository.Guarded{}, be.repo)
	require.NotNil(t, be.check)
	assert.NoError(t, be.check(context.Background()))
	be.close()
}

func TestOpenBackend_MemoryHasNoHealthCheck(t *testing.T) {
	cfg := testConfig(t, map[string]string{"WISHLIST_BACKEND": config.BackendMemory})

	be, err := openBackend(context.Background(), cfg, prometheus.NewRegistry(), logger.Discard())

	require.NoError(t, err)
	assert.Nil(t, be.check)
}

func TestOpenBackend_UnknownBackend(t *testing.T) {
	cfg := testConfig(t, nil)
	cfg.WishlistBackend = "sqlite"

	_, err := openBackend(context.Background(), cfg, prometheus.NewRegistry(), logger.Discard())

	assert.ErrorContains(t, err, "unknown wishlist backend")
}

func TestApp_ShutdownFlushesWishlistsToDisk(t *testing.T) {
	dir := t.TempDir()
	env := map[string]string{
		"WISHLIST_BACKEND":     config.BackendFile,
		"WISHLIST_FILE_DIR":    dir,
		"WISHLIST_DEBOUNCE_MS": "60000",
		"WISHLIST_MAX_WAIT_MS": "60000",
	}

	first, err := NewApp(testConfig(t, env), logger.Discard())
	require.NoError(t, err)

	rec := request(t, first.httpServer.Handler, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = request(t, first.httpServer.Handler, http.MethodPost, "/api/v1/wishlist/items", map[string]any{"id": "3"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// The debounce window is far away, so only the shutdown flush can
	// have written the snapshot.
	require.NoError(t, first.Shutdown())

	second, err := NewApp(testConfig(t, env), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Shutdown() })

	rec = request(t, second.httpServer.Handler, http.MethodGet, "/api/v1/wishlist", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data domain.State `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data.Items, 1)
	assert.Equal(t, "3", body.Data.Items[0].ID)
	assert.Equal(t, "Titanium Slip-On Exhaust", body.Data.Items[0].Name)
}

func TestApp_RunStopsOnContextCancel(t *testing.T) {
	cfg := testConfig(t, map[string]string{"WISHLIST_BACKEND": config.BackendMemory})
	cfg.HTTPPort = 0

	a, err := NewApp(cfg, logger.Discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
