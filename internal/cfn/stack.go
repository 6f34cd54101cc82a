package cfn

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/smithy-go"

	"github.com/pose/aws-cdk/internal/api"
)

// DescribeStack fetches the named stack's current description. A stack that
// does not exist yields (nil, nil) rather than an error, since callers treat
// absence as a regular branch (create-vs-update, idempotent destroy).
func DescribeStack(ctx context.Context, client api.CloudFormation, stackName string) (*cfntypes.Stack, error) {
	out, err := client.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(stackName),
	})
	if err != nil {
		if IsStackNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(out.Stacks) == 0 {
		return nil, nil
	}
	return &out.Stacks[0], nil
}

// StackExists reports whether a stack with the given name currently exists.
// A stack in DELETE_COMPLETE counts as absent: the control plane keeps such
// stacks visible for a while, but a new stack can be created over them.
func StackExists(ctx context.Context, client api.CloudFormation, stackName string) (bool, error) {
	stack, err := DescribeStack(ctx, client, stackName)
	if err != nil {
		return false, err
	}
	if stack == nil {
		return false, nil
	}
	return !StatusFromStack(*stack).IsDeleted(), nil
}

// IsStackNotFound reports whether an error is CloudFormation's way of saying
// the named stack does not exist. DescribeStacks signals this as a
// ValidationError rather than a dedicated not-found code.
func IsStackNotFound(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.ErrorCode() == "ValidationError" &&
		strings.Contains(apiErr.ErrorMessage(), "does not exist")
}

// Outputs flattens a described stack's output list into a key/value map.
func Outputs(stack *cfntypes.Stack) map[string]string {
	if stack == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(stack.Outputs))
	for _, o := range stack.Outputs {
		out[aws.ToString(o.OutputKey)] = aws.ToString(o.OutputValue)
	}
	return out
}

// StackARN returns the stack's unique identifier.
func StackARN(stack *cfntypes.Stack) string {
	if stack == nil {
		return ""
	}
	return aws.ToString(stack.StackId)
}
