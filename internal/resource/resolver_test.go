package resource

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/kui/internal/bridge"
	"github.com/GriffinCanCode/kui/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/kui/internal/shared/types"
	"github.com/GriffinCanCode/kui/internal/testutil"
)

func newTestResolver(t *testing.T) (*Resolver, *testutil.MockHost, *Table) {
	t.Helper()
	host := testutil.NewMockHost(t)
	globals := bridge.NewGlobals()
	host.Bind(globals, bridge.ResolveBinding)

	metrics := monitoring.NewMetrics()
	adapter := bridge.NewAdapter(globals, nil, metrics)
	table := NewTable("kui://app", metrics)
	return NewResolver(adapter, table, metrics), host, table
}

func TestResolveDecodesIntoTable(t *testing.T) {
	resolver, host, table := newTestResolver(t)
	host.OnResolve("asset://logo.png", testutil.ResolveReply("aGVsbG8=", "image/png"))

	ref, err := resolver.Resolve(context.Background(), "asset://logo.png")
	require.NoError(t, err)

	blob, ok := table.Lookup(ref)
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), blob.Data)
	assert.Len(t, blob.Data, 5)
	assert.Equal(t, "image/png", blob.MIME)
	host.AssertExpectations(t)
}

func TestResolveAcceptsTextReply(t *testing.T) {
	resolver, host, table := newTestResolver(t)
	host.OnResolve("doc://readme", `{"b64":"aGk=","mime":"text/markdown"}`)

	ref, err := resolver.Resolve(context.Background(), "doc://readme")
	require.NoError(t, err)

	blob, ok := table.Lookup(ref)
	require.True(t, ok)
	assert.Equal(t, "hi", string(blob.Data))
}

func TestResolveFailures(t *testing.T) {
	tests := []struct {
		name  string
		reply interface{}
		kind  bridge.Kind
	}{
		{name: "malformed base64", reply: testutil.ResolveReply("!!!", "image/png"), kind: bridge.KindDecodeFailure},
		{name: "missing mime", reply: types.Result{"b64": "aGVsbG8="}, kind: bridge.KindResolutionFailure},
		{name: "empty mime", reply: testutil.ResolveReply("aGVsbG8=", ""), kind: bridge.KindResolutionFailure},
		{name: "missing b64", reply: types.Result{"mime": "image/png"}, kind: bridge.KindResolutionFailure},
		{name: "host error", reply: types.Result{"error": "not found"}, kind: bridge.KindResolutionFailure},
		{name: "malformed text", reply: `{"b64":`, kind: bridge.KindResolutionFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver, host, table := newTestResolver(t)
			host.OnResolve("asset://x", tt.reply)

			ref, err := resolver.Resolve(context.Background(), "asset://x")
			testutil.RequireKind(t, err, tt.kind)
			assert.Empty(t, ref)
			assert.Equal(t, 0, table.Len())

			var be *bridge.Error
			require.True(t, errors.As(err, &be))
			assert.Equal(t, "asset://x", be.Locator)
		})
	}
}

func TestResolveMissingBinding(t *testing.T) {
	adapter := bridge.NewAdapter(bridge.NewGlobals(), nil, nil)
	resolver := NewResolver(adapter, NewTable("kui://app", nil), nil)

	_, err := resolver.Resolve(context.Background(), "asset://x")
	assert.True(t, errors.Is(err, bridge.ErrResolutionFailure))
	assert.True(t, errors.Is(err, bridge.ErrBindingNotFound))
}

func TestResolveCallFailure(t *testing.T) {
	resolver, host, _ := newTestResolver(t)
	host.On("Reply", mock.Anything, bridge.ResolveBinding, mock.Anything).
		Return(nil, errors.New("disk on fire"))

	_, err := resolver.Resolve(context.Background(), "asset://x")
	testutil.RequireKind(t, err, bridge.KindResolutionFailure)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestResolverRelease(t *testing.T) {
	resolver, host, table := newTestResolver(t)
	host.OnResolve("asset://a", testutil.ResolveReply("YQ==", "text/plain"))

	ref, err := resolver.Resolve(context.Background(), "asset://a")
	require.NoError(t, err)
	assert.Same(t, table, resolver.Table())

	assert.True(t, resolver.Release(ref))
	assert.Equal(t, 0, table.Len())
}
