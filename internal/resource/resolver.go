package resource

import (
	"context"
	"encoding/base64"

	"github.com/GriffinCanCode/kui/internal/bridge"
	"github.com/GriffinCanCode/kui/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/kui/internal/shared/types"
)

// Caller invokes a host binding; *bridge.Adapter satisfies it.
type Caller interface {
	Call(ctx context.Context, name string, payload types.Payload) (types.Result, error)
}

// Resolver turns opaque locators into derived resource references.
// It does not log; failures are returned to the caller.
type Resolver struct {
	caller  Caller
	table   *Table
	metrics *monitoring.Metrics
}

// NewResolver creates a resolver minting into table
func NewResolver(caller Caller, table *Table, metrics *monitoring.Metrics) *Resolver {
	return &Resolver{caller: caller, table: table, metrics: metrics}
}

// Table returns the table references are minted into
func (r *Resolver) Table() *Table {
	return r.table
}

// Resolve asks the host for the content behind locator and stores it
func (r *Resolver) Resolve(ctx context.Context, locator string) (Reference, error) {
	res, err := r.caller.Call(ctx, bridge.ResolveBinding, types.Payload{"url": locator})
	if err != nil {
		return "", bridge.ResolutionFailure(locator, "host call failed", err)
	}

	if msg, ok := res.String("error"); ok {
		return "", bridge.ResolutionFailure(locator, msg, nil)
	}

	encoded, ok := res.String("b64")
	if !ok {
		return "", bridge.ResolutionFailure(locator, "reply has no b64 payload", nil)
	}

	mime, _ := res.String("mime")
	if mime == "" {
		return "", bridge.ResolutionFailure(locator, "reply has no media type", nil)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", bridge.DecodeFailure(locator, err)
	}

	ref, err := r.table.Create(data, mime)
	if err != nil {
		return "", bridge.ResolutionFailure(locator, "cannot store resource", err)
	}

	r.metrics.RecordResolved(len(data))
	return ref, nil
}

// Release frees a reference minted by Resolve
func (r *Resolver) Release(ref Reference) bool {
	return r.table.Release(ref)
}
