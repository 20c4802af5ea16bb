package host

import (
	"context"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/kui/internal/bridge"
	"github.com/GriffinCanCode/kui/internal/shared/types"
)

// Version is reported by the version binding
const Version = "dev-1.1.1"

// VersionBinding replies with the JSON text {"version": Version}
func VersionBinding() bridge.Binding {
	reply, _ := sonic.MarshalString(map[string]string{"version": Version})
	return func(ctx context.Context, payload types.Payload) (interface{}, error) {
		return reply, nil
	}
}
