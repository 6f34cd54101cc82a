// Package cfn wraps the CloudFormation control-plane calls the deployment
// orchestrator builds on: stack lookups, status classification, polling
// until terminal states, and stack event retrieval.
package cfn

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
)

// StackStatus is the observed lifecycle state of a stack, paired with the
// control plane's reason when one was reported. It is only ever derived
// from a describe call, never synthesized locally.
type StackStatus struct {
	Name   string
	Reason string
}

// StatusFromStack extracts the status of a described stack.
func StatusFromStack(stack cfntypes.Stack) StackStatus {
	return StackStatus{
		Name:   string(stack.StackStatus),
		Reason: aws.ToString(stack.StackStatusReason),
	}
}

// IsCreationFailure reports a stack whose initial creation failed. Such a
// stack cannot be updated; it must be deleted before a fresh create.
func (s StackStatus) IsCreationFailure() bool {
	return s.Name == string(cfntypes.StackStatusCreateFailed) ||
		s.Name == string(cfntypes.StackStatusRollbackComplete) ||
		s.Name == string(cfntypes.StackStatusRollbackFailed)
}

// IsRollbackSuccess reports the rollback-complete variants, which end in
// _COMPLETE yet mean the requested operation did not apply.
func (s StackStatus) IsRollbackSuccess() bool {
	return s.Name == string(cfntypes.StackStatusRollbackComplete) ||
		s.Name == string(cfntypes.StackStatusUpdateRollbackComplete)
}

// IsDeleted reports the fully-deleted terminal state.
func (s StackStatus) IsDeleted() bool {
	return s.Name == string(cfntypes.StackStatusDeleteComplete)
}

// IsFailure reports the *_FAILED terminal states.
func (s StackStatus) IsFailure() bool {
	return strings.HasSuffix(s.Name, "_FAILED")
}

// IsInProgress reports any transitional state.
func (s StackStatus) IsInProgress() bool {
	return strings.HasSuffix(s.Name, "_IN_PROGRESS")
}

// IsSuccess reports a terminal state in which the requested operation
// applied: a *_COMPLETE state that is not a rollback variant.
func (s StackStatus) IsSuccess() bool {
	return strings.HasSuffix(s.Name, "_COMPLETE") && !s.IsRollbackSuccess()
}

func (s StackStatus) String() string {
	if s.Reason != "" {
		return fmt.Sprintf("%s (%s)", s.Name, s.Reason)
	}
	return s.Name
}
