package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/kui/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/kui/internal/shared/id"
	"github.com/GriffinCanCode/kui/internal/shared/types"
)

// Adapter invokes host bindings and normalizes their replies
type Adapter struct {
	globals *Globals
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewAdapter creates a call adapter over globals
func NewAdapter(globals *Globals, logger *zap.Logger, metrics *monitoring.Metrics) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		globals: globals,
		logger:  logger.Named("bridge"),
		metrics: metrics,
	}
}

// Globals returns the global context the adapter reads bindings from
func (a *Adapter) Globals() *Globals {
	return a.globals
}

// Call invokes the binding registered under name and blocks until it
// replies. The reply is always normalized to a mapping.
func (a *Adapter) Call(ctx context.Context, name string, payload types.Payload) (types.Result, error) {
	timer := monitoring.NewTimer(a.metrics, name)
	reqID := id.NewRequestID()

	fn, ok := a.globals.Lookup(name)
	if !ok {
		timer.Stop(string(KindBindingNotFound))
		a.logger.Debug("Binding not found", zap.String("request_id", reqID.String()), zap.String("binding", name))
		return nil, bindingNotFound(name)
	}

	if payload == nil {
		payload = types.Payload{}
	}

	a.logger.Debug("Calling binding",
		zap.String("request_id", reqID.String()),
		zap.String("binding", name),
		zap.Int("payload_keys", len(payload)))

	reply, err := fn(ctx, payload)
	if err != nil {
		timer.Stop(string(KindCallFailed))
		return nil, callFailed(name, err)
	}

	result, err := a.normalize(name, reply)
	if err != nil {
		timer.Stop(string(KindOf(err)))
		return nil, err
	}

	timer.Stop(monitoring.StatusOK)
	return result, nil
}

func (a *Adapter) normalize(name string, reply interface{}) (types.Result, error) {
	switch v := reply.(type) {
	case nil:
		return types.Result{}, nil
	case types.Result:
		if v == nil {
			return types.Result{}, nil
		}
		return v, nil
	case types.Payload:
		return types.Result(v), nil
	case map[string]interface{}:
		if v == nil {
			return types.Result{}, nil
		}
		return types.Result(v), nil
	case string:
		return a.parseText(name, []byte(v))
	case []byte:
		return a.parseText(name, v)
	case json.RawMessage:
		return a.parseText(name, v)
	}

	// Other structured values go through JSON to become a plain mapping
	data, err := sonic.Marshal(reply)
	if err != nil {
		return nil, malformedReply(name, fmt.Sprintf("unserializable reply of type %T", reply), err)
	}
	return a.decodeObject(name, data)
}

func (a *Adapter) parseText(name string, text []byte) (types.Result, error) {
	if len(bytes.TrimSpace(text)) == 0 {
		return types.Result{}, nil
	}
	result, err := a.decodeObject(name, text)
	if err != nil {
		a.logger.Error("Malformed reply",
			zap.String("binding", name),
			zap.ByteString("raw", text),
			zap.Error(err))
		return nil, err
	}
	return result, nil
}

func (a *Adapter) decodeObject(name string, data []byte) (types.Result, error) {
	var parsed interface{}
	if err := sonic.Unmarshal(data, &parsed); err != nil {
		return nil, malformedReply(name, "reply is not valid JSON", err)
	}
	switch v := parsed.(type) {
	case nil:
		return types.Result{}, nil
	case map[string]interface{}:
		return types.Result(v), nil
	default:
		return nil, malformedReply(name, fmt.Sprintf("reply is a JSON %T, not an object", v), nil)
	}
}
