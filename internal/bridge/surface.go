package bridge

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/kui/internal/shared/types"
)

// Surface is the public namespace exposed to application code as the
// global kui object. It has no exported fields and no setters.
type Surface struct {
	adapter *Adapter
}

// Install places a surface into the adapter's globals under GlobalName.
// If a surface is already installed it is returned unchanged with
// installed=false. A foreign value under the name is left in place and
// reported as an error.
func Install(adapter *Adapter) (*Surface, bool, error) {
	candidate := &Surface{adapter: adapter}

	actual, loaded := adapter.Globals().LoadOrStore(GlobalName, candidate)
	if !loaded {
		return candidate, true, nil
	}

	existing, ok := actual.(*Surface)
	if !ok {
		return nil, false, fmt.Errorf("global %q is already bound to %T", GlobalName, actual)
	}
	return existing, false, nil
}

// Version asks the host for its version string
func (s *Surface) Version(ctx context.Context) (string, error) {
	res, err := s.adapter.Call(ctx, VersionBinding, types.Payload{})
	if err != nil {
		return "", err
	}
	v, ok := res.String("version")
	if !ok {
		return "", malformedReply(VersionBinding, "reply has no string version field", nil)
	}
	return v, nil
}

// Native invokes a host binding by name
func (s *Surface) Native(ctx context.Context, name string, payload types.Payload) (types.Result, error) {
	return s.adapter.Call(ctx, name, payload)
}
