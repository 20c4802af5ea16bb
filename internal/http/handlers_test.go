package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/kui/internal/host"
	"github.com/GriffinCanCode/kui/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/kui/internal/shared/types"
	"github.com/GriffinCanCode/kui/internal/shell"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var logo = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newRouter(t *testing.T, sh *shell.Shell) *gin.Engine {
	t.Helper()
	h := NewHandlers(sh, monitoring.NewMetrics(), nil)

	router := gin.New()
	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	router.GET("/page", h.Page)
	router.GET("/blob/:id", h.Blob)
	router.DELETE("/blob/:id", h.ReleaseBlob)
	router.POST("/native/:name", h.Native)
	router.POST("/eval", h.Eval)
	router.POST("/settle", h.Settle)
	return router
}

func newShell(t *testing.T, initialize bool) *shell.Shell {
	t.Helper()
	hst, err := host.New(host.Config{}, nil)
	require.NoError(t, err)
	hst.Assets().Add("img/logo.png", logo)

	sh := shell.New(hst, shell.DefaultOptions(), nil, nil)
	if !initialize {
		return sh
	}
	require.NoError(t, sh.Init(context.Background(), types.WindowArgs{}))
	t.Cleanup(func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_ = sh.Run(ctx)
	})
	return sh
}

func do(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), v))
}

func TestRootAndHealth(t *testing.T) {
	router := newRouter(t, newShell(t, true))

	w := do(router, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	var root map[string]string
	decode(t, w, &root)
	assert.Equal(t, "online", root["status"])
	assert.Equal(t, host.Version, root["version"])

	w = do(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	var health struct {
		Status string      `json:"status"`
		Shell  types.Stats `json:"shell"`
	}
	decode(t, w, &health)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "initialized", health.Shell.State)
}

func TestPageAndBlob(t *testing.T) {
	sh := newShell(t, true)
	router := newRouter(t, sh)

	require.NoError(t, sh.SetPage(context.Background(), `<img id="logo" kui_src="img/logo.png">`))
	w := do(router, http.MethodPost, "/settle", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(router, http.MethodGet, "/page", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), `src="blob:kui://app/`)
	assert.NotContains(t, w.Body.String(), "kui_src")

	img, err := sh.Document().QuerySelector("#logo")
	require.NoError(t, err)
	src, ok := img.GetAttribute("src")
	require.True(t, ok)
	id := strings.TrimPrefix(src, "blob:kui://app/")

	w = do(router, http.MethodGet, "/blob/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, logo, w.Body.Bytes())

	w = do(router, http.MethodGet, "/blob/00000000-0000-0000-0000-000000000000", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(router, http.MethodGet, "/blob/not.an.id", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReleaseBlob(t *testing.T) {
	sh := newShell(t, true)
	router := newRouter(t, sh)

	require.NoError(t, sh.SetPage(context.Background(), `<img id="logo" kui_src="img/logo.png">`))
	w := do(router, http.MethodPost, "/settle", "")
	require.Equal(t, http.StatusOK, w.Code)

	img, err := sh.Document().QuerySelector("#logo")
	require.NoError(t, err)
	src, ok := img.GetAttribute("src")
	require.True(t, ok)
	id := strings.TrimPrefix(src, "blob:kui://app/")

	w = do(router, http.MethodDelete, "/blob/"+id, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(router, http.MethodDelete, "/blob/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(router, http.MethodGet, "/blob/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(router, http.MethodDelete, "/blob/not.an.id", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNative(t *testing.T) {
	router := newRouter(t, newShell(t, true))

	tests := []struct {
		name     string
		binding  string
		body     string
		wantCode int
		wantKind string
	}{
		{name: "version", binding: "__kui_version", wantCode: http.StatusOK},
		{name: "version with body", binding: "__kui_version", body: `{}`, wantCode: http.StatusOK},
		{name: "unknown binding", binding: "__nope", wantCode: http.StatusNotFound, wantKind: "binding_not_found"},
		{name: "missing url", binding: "__kui_resolve", body: `{}`, wantCode: http.StatusBadGateway, wantKind: "call_failed"},
		{name: "invalid name", binding: "bad-name", wantCode: http.StatusBadRequest},
		{name: "non object body", binding: "__kui_version", body: `[1]`, wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, http.MethodPost, "/native/"+tt.binding, tt.body)
			require.Equal(t, tt.wantCode, w.Code, w.Body.String())
			if tt.wantCode == http.StatusBadRequest {
				return
			}

			var resp types.NativeResponse
			decode(t, w, &resp)
			assert.Equal(t, tt.binding, resp.Binding)
			assert.Equal(t, tt.wantKind, resp.Kind)
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, host.Version, resp.Result["version"])
				assert.Empty(t, resp.Error)
			} else {
				assert.NotEmpty(t, resp.Error)
			}
		})
	}
}

func TestEval(t *testing.T) {
	router := newRouter(t, newShell(t, true))

	w := do(router, http.MethodPost, "/eval", `{"script":"console.log('hi'); 6 * 7"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp types.EvalResponse
	decode(t, w, &resp)
	assert.EqualValues(t, 42, resp.Value)
	assert.Equal(t, []string{"log: hi"}, resp.Console)

	w = do(router, http.MethodPost, "/eval", `{"script":"throw new Error('boom')"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp = types.EvalResponse{}
	decode(t, w, &resp)
	assert.Contains(t, resp.Error, "boom")

	w = do(router, http.MethodPost, "/eval", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestShellNotReady(t *testing.T) {
	router := newRouter(t, newShell(t, false))

	tests := []struct {
		method string
		target string
		body   string
	}{
		{method: http.MethodGet, target: "/page"},
		{method: http.MethodPost, target: "/settle"},
		{method: http.MethodPost, target: "/native/__kui_version"},
		{method: http.MethodPost, target: "/eval", body: `{"script":"1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			w := do(router, tt.method, tt.target, tt.body)
			assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		})
	}

	w := do(router, http.MethodGet, "/blob/00000000-0000-0000-0000-000000000000", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
