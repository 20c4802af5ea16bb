package bridge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/kui/internal/shared/types"
)

func TestInstallIsIdempotent(t *testing.T) {
	adapter, globals, _ := newTestAdapter(t)

	first, installed, err := Install(adapter)
	require.NoError(t, err)
	assert.True(t, installed)

	second, installed, err := Install(adapter)
	require.NoError(t, err)
	assert.False(t, installed)
	assert.Same(t, first, second)

	v, ok := globals.Get(GlobalName)
	require.True(t, ok)
	assert.Same(t, first, v)
}

func TestInstallRejectsForeignValue(t *testing.T) {
	adapter, globals, _ := newTestAdapter(t)
	globals.Set(GlobalName, "something else")

	s, installed, err := Install(adapter)
	assert.Error(t, err)
	assert.Nil(t, s)
	assert.False(t, installed)

	v, _ := globals.Get(GlobalName)
	assert.Equal(t, "something else", v)
}

func TestSurfaceVersion(t *testing.T) {
	tests := []struct {
		name    string
		reply   interface{}
		want    string
		wantErr error
	}{
		{name: "text reply", reply: `{"version":"dev-1.1.1"}`, want: "dev-1.1.1"},
		{name: "object reply", reply: map[string]interface{}{"version": "2.0"}, want: "2.0"},
		{name: "missing field", reply: `{}`, wantErr: ErrMalformedReply},
		{name: "wrong type", reply: `{"version":3}`, wantErr: ErrMalformedReply},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter, globals, _ := newTestAdapter(t)
			globals.Bind(VersionBinding, replying(tt.reply))
			surface, _, err := Install(adapter)
			require.NoError(t, err)

			got, err := surface.Version(context.Background())
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSurfaceNativeMissingBinding(t *testing.T) {
	adapter, _, _ := newTestAdapter(t)
	surface, _, err := Install(adapter)
	require.NoError(t, err)

	_, err = surface.Native(context.Background(), "version", types.Payload{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBindingNotFound))
	assert.Contains(t, err.Error(), `version`)
}

func TestSurfaceNativeVerbatim(t *testing.T) {
	adapter, globals, _ := newTestAdapter(t)
	globals.Bind("sum", func(ctx context.Context, p types.Payload) (interface{}, error) {
		a, _ := p.Int("a")
		b, _ := p.Int("b")
		return types.Result{"sum": a + b}, nil
	})
	surface, _, err := Install(adapter)
	require.NoError(t, err)

	res, err := surface.Native(context.Background(), "sum", types.Payload{"a": 2, "b": 3})
	require.NoError(t, err)
	assert.Equal(t, int64(5), res["sum"])
}
