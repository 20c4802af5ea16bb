package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/kui/internal/api/middleware"
	"github.com/GriffinCanCode/kui/internal/bridge"
	"github.com/GriffinCanCode/kui/internal/host"
	"github.com/GriffinCanCode/kui/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/kui/internal/shared/types"
	"github.com/GriffinCanCode/kui/internal/shell"
)

// settleTimeout bounds POST /settle
const settleTimeout = 10 * time.Second

// Handlers contains all debug HTTP handlers
type Handlers struct {
	shell   *shell.Shell
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(sh *shell.Shell, metrics *monitoring.Metrics, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		shell:   sh,
		metrics: metrics,
		logger:  logger.Named("http"),
	}
}

// Root reports the service
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "kui",
		"version": host.Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"shell":   h.shell.Stats(),
		"metrics": h.metrics.Snapshot(),
	})
}

// Page renders the current document
func (h *Handlers) Page(c *gin.Context) {
	markup, err := h.shell.HTML()
	if err != nil {
		c.JSON(shellStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(markup))
}

// Blob serves a derived resource with its media type
func (h *Handlers) Blob(c *gin.Context) {
	name := c.Param("id")
	if err := validateBlobID(name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	blob, ok := h.shell.Blob(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "blob not found", "id": name})
		return
	}
	c.Data(http.StatusOK, blob.MIME, blob.Data)
}

// ReleaseBlob frees a derived resource
func (h *Handlers) ReleaseBlob(c *gin.Context) {
	name := c.Param("id")
	if err := validateBlobID(name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.shell.Release(name) {
		c.JSON(http.StatusNotFound, gin.H{"error": "blob not found", "id": name})
		return
	}
	c.Status(http.StatusNoContent)
}

// Native calls a host binding through the bridge surface
func (h *Handlers) Native(c *gin.Context) {
	name := c.Param("name")
	if err := validateBindingName(name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payload, err := readPayload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	surface := h.shell.Surface()
	if surface == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": shell.ErrNotInitialized.Error()})
		return
	}

	result, err := surface.Native(c.Request.Context(), name, payload)
	if err != nil {
		h.logger.Debug("Native call failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("binding", name),
			zap.Error(err))
		c.JSON(bridgeStatus(err), types.NativeResponse{
			Binding: name,
			Error:   err.Error(),
			Kind:    string(bridge.KindOf(err)),
		})
		return
	}

	c.JSON(http.StatusOK, types.NativeResponse{Binding: name, Result: result})
}

// Eval runs a script in the current page
func (h *Handlers) Eval(c *gin.Context) {
	var req types.EvalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.shell.Eval(c.Request.Context(), req.Script)
	resp := types.EvalResponse{}
	if res != nil {
		resp.Value = res.Value
		for _, entry := range res.Console {
			resp.Console = append(resp.Console, entry.Level+": "+entry.Message)
		}
	}
	if err != nil {
		if isShellError(err) {
			c.JSON(shellStatus(err), gin.H{"error": err.Error()})
			return
		}
		resp.Error = err.Error()
		c.JSON(http.StatusUnprocessableEntity, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Settle waits for pending upgrades of the current page
func (h *Handlers) Settle(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), settleTimeout)
	defer cancel()

	start := time.Now()
	if err := h.shell.Settle(ctx); err != nil {
		status := http.StatusGatewayTimeout
		if isShellError(err) {
			status = shellStatus(err)
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"settled":  true,
		"duration": time.Since(start).String(),
		"stats":    h.shell.Stats(),
	})
}

func isShellError(err error) bool {
	return errors.Is(err, shell.ErrNoPage) ||
		errors.Is(err, shell.ErrNotInitialized) ||
		errors.Is(err, shell.ErrDisposed)
}

func shellStatus(err error) int {
	switch {
	case errors.Is(err, shell.ErrNoPage):
		return http.StatusNotFound
	case errors.Is(err, shell.ErrNotInitialized), errors.Is(err, shell.ErrDisposed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func bridgeStatus(err error) int {
	switch bridge.KindOf(err) {
	case bridge.KindBindingNotFound:
		return http.StatusNotFound
	case bridge.KindCallFailed, bridge.KindMalformedReply:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
