// Package testutil provides testing utilities and helpers for kui tests.
package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/kui/internal/bridge"
	"github.com/GriffinCanCode/kui/internal/shared/types"
)

// MockHost is a testify mock standing in for the native host. Each bound
// name forwards to Reply(name, payload).
type MockHost struct {
	mock.Mock
}

// Reply mocks a binding invocation.
func (m *MockHost) Reply(ctx context.Context, name string, payload types.Payload) (interface{}, error) {
	args := m.Called(ctx, name, payload)
	return args.Get(0), args.Error(1)
}

// Binding returns a bridge binding forwarding to the mock under name.
func (m *MockHost) Binding(name string) bridge.Binding {
	return func(ctx context.Context, payload types.Payload) (interface{}, error) {
		return m.Reply(ctx, name, payload)
	}
}

// Bind registers each name in globals.
func (m *MockHost) Bind(globals *bridge.Globals, names ...string) {
	for _, name := range names {
		globals.Bind(name, m.Binding(name))
	}
}

// OnResolve stubs the resolution binding for one locator.
func (m *MockHost) OnResolve(locator string, reply interface{}) *mock.Call {
	return m.On("Reply", mock.Anything, bridge.ResolveBinding, types.Payload{"url": locator}).Return(reply, nil)
}

// NewMockHost creates a mock host answering the version binding with a
// text reply and any unknown locator with a not found error reply.
func NewMockHost(t *testing.T) *MockHost {
	t.Helper()
	m := new(MockHost)

	m.On("Reply", mock.Anything, bridge.VersionBinding, mock.Anything).
		Return(`{"version":"test"}`, nil).
		Maybe()

	return m
}

// ResolveReply builds a resolution record reply.
func ResolveReply(b64, mime string) types.Result {
	return types.Result{"b64": b64, "mime": mime}
}

// Gate is a binding that blocks until released, counting its callers.
type Gate struct {
	release chan struct{}
	once    sync.Once

	mu    sync.Mutex
	calls []types.Payload
}

// NewGate creates a closed gate
func NewGate() *Gate {
	return &Gate{release: make(chan struct{})}
}

// Binding blocks until Open, then replies with reply. A cancelled context
// ends the wait with the context error.
func (g *Gate) Binding(reply interface{}) bridge.Binding {
	return func(ctx context.Context, payload types.Payload) (interface{}, error) {
		g.mu.Lock()
		g.calls = append(g.calls, payload)
		g.mu.Unlock()

		select {
		case <-g.release:
			return reply, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Open releases every waiting and future caller
func (g *Gate) Open() {
	g.once.Do(func() { close(g.release) })
}

// Calls returns the payloads seen so far
func (g *Gate) Calls() []types.Payload {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]types.Payload(nil), g.calls...)
}

// RequireKind asserts err is a bridge error of kind.
func RequireKind(t *testing.T, err error, kind bridge.Kind) {
	t.Helper()
	require.Error(t, err)
	var be *bridge.Error
	require.True(t, errors.As(err, &be), "expected *bridge.Error, got %T: %v", err, err)
	require.Equal(t, kind, be.Kind, "error: %v", err)
}
