package server_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.pilab.hu/ghlink/api"
	"go.pilab.hu/ghlink/config"
	"go.pilab.hu/ghlink/internal/browse"
	"go.pilab.hu/ghlink/internal/directory"
	"go.pilab.hu/ghlink/internal/linking"
	"go.pilab.hu/ghlink/internal/metrics"
	"go.pilab.hu/ghlink/internal/server"
	"go.pilab.hu/ghlink/internal/statetoken"
	"go.pilab.hu/ghlink/log"
)

func TestNewHTTPServer(t *testing.T) {
	codec, err := statetoken.NewCodec("server-test-secret-value")
	require.NoError(t, err)

	dir := directory.NewMemory()
	linker := linking.NewService(codec, nil, nil, dir, "my-app", log.Nop())
	browser := browse.NewService(nil, dir)

	reg := prometheus.NewRegistry()
	metrics.Register(reg)

	cfg := &config.ServerConfig{HTTPAddr: ":0", UpstreamTimeout: 10 * time.Second}
	srv, err := server.NewHTTPServer(cfg, log.Nop(), api.NewLinkAPI(linker, browser, "acct-1", log.Nop()), reg)
	require.NoError(t, err)
	assert.Equal(t, ":0", srv.Addr)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ghlink_state_tokens_issued_total")

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
