package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/kui/internal/api/middleware"
	"github.com/GriffinCanCode/kui/internal/host"
	"github.com/GriffinCanCode/kui/internal/infrastructure/config"
	"github.com/GriffinCanCode/kui/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/kui/internal/shared/types"
	"github.com/GriffinCanCode/kui/internal/shell"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, cfg config.ServerConfig) (*Server, *observer.ObservedLogs) {
	t.Helper()
	hst, err := host.New(host.Config{}, nil)
	require.NoError(t, err)

	metrics := monitoring.NewMetrics()
	sh := shell.New(hst, shell.DefaultOptions(), nil, metrics)
	require.NoError(t, sh.Init(context.Background(), types.WindowArgs{}))
	t.Cleanup(func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_ = sh.Run(ctx)
	})

	core, logs := observer.New(zapcore.InfoLevel)
	return NewServer(cfg, sh, zap.New(core), metrics), logs
}

func get(s *Server, target, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestServerRoutes(t *testing.T) {
	s, _ := newTestServer(t, config.Default().Server)

	w := get(s, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w = get(s, "/page", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<h1>KUI</h1>")

	w = get(s, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "kui_http_requests_total")
	assert.Contains(t, w.Body.String(), `path="/health"`)
}

func TestServerCORS(t *testing.T) {
	cfg := config.Default().Server
	cfg.Origins = []string{"kui://demo"}
	s, _ := newTestServer(t, cfg)

	tests := []struct {
		origin string
		want   int
	}{
		{origin: "http://localhost:5173", want: http.StatusOK},
		{origin: "kui://demo", want: http.StatusOK},
		{origin: "https://evil.example", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			w := get(s, "/", tt.origin)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestServerRateLimit(t *testing.T) {
	cfg := config.Default().Server
	cfg.RateLimit = 1
	cfg.Burst = 1
	s, logs := newTestServer(t, cfg)

	assert.Equal(t, 1, logs.FilterMessage("Rate limiting enabled").Len())
	assert.Equal(t, http.StatusOK, get(s, "/", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(s, "/", "").Code)
}

func TestServerAddrAndClose(t *testing.T) {
	cfg := config.Default().Server
	cfg.Port = "0"
	s, _ := newTestServer(t, cfg)

	assert.Equal(t, "127.0.0.1:0", s.Addr())
	assert.NoError(t, s.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()
	assert.NoError(t, <-done)
}
