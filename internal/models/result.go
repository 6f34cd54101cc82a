package models

// DeployResult is the outcome of a single deploy call. NoOp is set when the
// change set contained no changes; Outputs and StackARN reflect the stack's
// state after the terminal status was observed (or its current state for a
// no-op).
type DeployResult struct {
	NoOp     bool              `json:"noOp"`
	Outputs  map[string]string `json:"outputs,omitempty"`
	StackARN string            `json:"stackArn,omitempty"`
}
