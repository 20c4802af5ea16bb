package types

// NativeResponse wraps a binding reply for the debug server
type NativeResponse struct {
	Binding string `json:"binding"`
	Result  Result `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

// EvalRequest runs a script in the page runtime
type EvalRequest struct {
	Script string `json:"script" binding:"required"`
}

// EvalResponse carries the script result and captured console output
type EvalResponse struct {
	Value   interface{} `json:"value,omitempty"`
	Console []string    `json:"console,omitempty"`
	Error   string      `json:"error,omitempty"`
}
