// Package types provides shared data structures for the kui bridge.
//
// Core Types:
//   - Payload: argument mapping passed to a host binding
//   - Result: normalized binding reply, always a mapping
//   - WindowArgs: shell window options
//   - Stats: shell state snapshot
//
// Request Types:
//   - NativeResponse, EvalRequest, EvalResponse: debug server bodies
//
// Example Usage:
//
//	res, err := adapter.Call(ctx, "__kui_version", types.Payload{})
//	version, ok := res.String("version")
package types
