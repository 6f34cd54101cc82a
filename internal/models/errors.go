package models

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// ConfigurationError reports invalid or incomplete deployment input. It is
// raised before any control-plane call is attempted.
type ConfigurationError struct {
	StackName string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("stack '%s' is not deployable: %s", e.StackName, e.Reason)
}

// TemplateTooLargeError reports a serialized template that exceeds the
// inline-body limit while no toolkit bucket is available to upload it to.
type TemplateTooLargeError struct {
	StackName        string
	Size             int
	Limit            int
	ToolkitStackName string
}

func (e *TemplateTooLargeError) Error() string {
	return fmt.Sprintf(
		"the template for stack '%s' is %s; templates larger than %s must be uploaded to the toolkit bucket. "+
			"Run 'cdk bootstrap' to provision the toolkit stack (%s) in this environment, then re-deploy",
		e.StackName, humanize.IBytes(uint64(e.Size)), humanize.IBytes(uint64(e.Limit)), e.ToolkitStackName)
}

// StackCleanupError reports that a stack which previously failed creation
// could not be deleted to make room for a fresh create.
type StackCleanupError struct {
	StackName string
	Status    string
}

func (e *StackCleanupError) Error() string {
	return fmt.Sprintf("failed to delete stack '%s' that had previously failed creation (current state: %s)",
		e.StackName, e.Status)
}

// DestroyError reports a destroy that ended in a state other than fully
// deleted.
type DestroyError struct {
	DeployName string
	Status     string
}

func (e *DestroyError) Error() string {
	return fmt.Sprintf("failed to destroy '%s': stack ended in state %s", e.DeployName, e.Status)
}

// StackNotFoundError reports a stack that disappeared while a non-delete
// operation was waiting on it.
type StackNotFoundError struct {
	StackName string
}

func (e *StackNotFoundError) Error() string {
	return fmt.Sprintf("the stack named '%s' does not exist", e.StackName)
}

// ChangeSetError reports a change set that the control plane failed to
// create.
type ChangeSetError struct {
	StackName     string
	ChangeSetName string
	Status        string
	Reason        string
}

func (e *ChangeSetError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "no reason provided"
	}
	return fmt.Sprintf("failed to create change set %s on stack '%s': %s (%s)",
		e.ChangeSetName, e.StackName, e.Status, reason)
}

// AssetError reports a failure while staging one of a stack's assets.
type AssetError struct {
	StackName string
	AssetPath string
	Cause     error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("failed to stage asset '%s' for stack '%s': %v", e.AssetPath, e.StackName, e.Cause)
}

func (e *AssetError) Unwrap() error {
	return e.Cause
}
