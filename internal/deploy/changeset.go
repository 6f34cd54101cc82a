package deploy

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"

	"github.com/pose/aws-cdk/internal/api"
	"github.com/pose/aws-cdk/internal/cfn"
	"github.com/pose/aws-cdk/internal/models"
)

// ChangeSetRequest is one deploy attempt against a stack: a fully explicit
// description of the change set to create. It lives for a single attempt
// and is discarded after execution or deletion.
type ChangeSetRequest struct {
	StackName     string
	ChangeSetName string
	Type          cfntypes.ChangeSetType
	TemplateBody  string
	TemplateURL   string
	Parameters    []cfntypes.Parameter
	RoleARN       string
	Capabilities  []cfntypes.Capability
}

// defaultCapabilities are requested on every change set. Templates may
// carry IAM resources, including named roles and managed policies, and the
// control plane rejects such change sets without these flags.
func defaultCapabilities() []cfntypes.Capability {
	return []cfntypes.Capability{
		cfntypes.CapabilityCapabilityIam,
		cfntypes.CapabilityCapabilityNamedIam,
	}
}

// createChangeSet submits the request and blocks until the control plane
// reports the change set ready or failed, returning the final description.
// A FAILED description is not an error here: it may be the no-op sentinel,
// which the caller classifies.
func createChangeSet(ctx context.Context, client api.CloudFormation, req *ChangeSetRequest, interval time.Duration) (*cloudformation.DescribeChangeSetOutput, error) {
	input := &cloudformation.CreateChangeSetInput{
		StackName:     aws.String(req.StackName),
		ChangeSetName: aws.String(req.ChangeSetName),
		ChangeSetType: req.Type,
		Parameters:    req.Parameters,
		Capabilities:  req.Capabilities,
		Description:   aws.String("changeset created by the cdk toolkit"),
	}
	if req.TemplateURL != "" {
		input.TemplateURL = aws.String(req.TemplateURL)
	} else {
		input.TemplateBody = aws.String(req.TemplateBody)
	}
	if req.RoleARN != "" {
		input.RoleARN = aws.String(req.RoleARN)
	}
	if _, err := client.CreateChangeSet(ctx, input); err != nil {
		return nil, err
	}
	return cfn.WaitForChangeSet(ctx, client, req.StackName, req.ChangeSetName, interval)
}

// isNoOpChangeSet reports whether a finished change set describes zero
// changes. The control plane signals this two ways: a CREATE_COMPLETE set
// with an empty change list, or a FAILED set whose status reason says the
// submitted template didn't contain changes.
func isNoOpChangeSet(desc *cloudformation.DescribeChangeSetOutput) bool {
	switch desc.Status {
	case cfntypes.ChangeSetStatusCreateComplete:
		return len(desc.Changes) == 0
	case cfntypes.ChangeSetStatusFailed:
		reason := aws.ToString(desc.StatusReason)
		return strings.Contains(reason, "didn't contain changes") ||
			strings.Contains(reason, "No updates are to be performed")
	}
	return false
}

// changeSetFailure converts a FAILED change set description into the error
// reported to the caller.
func changeSetFailure(req *ChangeSetRequest, desc *cloudformation.DescribeChangeSetOutput) error {
	return &models.ChangeSetError{
		StackName:     req.StackName,
		ChangeSetName: req.ChangeSetName,
		Status:        string(desc.Status),
		Reason:        aws.ToString(desc.StatusReason),
	}
}

// deleteChangeSet removes an unexecuted change set so no-op and failed
// attempts never leave one orphaned on the stack.
func deleteChangeSet(ctx context.Context, client api.CloudFormation, stackName, changeSetName string) error {
	_, err := client.DeleteChangeSet(ctx, &cloudformation.DeleteChangeSetInput{
		StackName:     aws.String(stackName),
		ChangeSetName: aws.String(changeSetName),
	})
	return err
}
