package cfn

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"

	"github.com/pose/aws-cdk/internal/api"
	"github.com/pose/aws-cdk/internal/models"
)

// DefaultPollInterval separates consecutive describe calls while waiting on
// a stack or change set.
const DefaultPollInterval = 5 * time.Second

// WaitForStack polls the stack until it reaches a terminal status and
// returns its final description. When expectDeletion is set, a stack that
// disappears entirely is a normal outcome and yields (nil, nil); otherwise
// disappearance is reported as a StackNotFoundError. The wait is unbounded
// in total but each iteration honors ctx cancellation.
func WaitForStack(ctx context.Context, client api.CloudFormation, stackName string, interval time.Duration, expectDeletion bool) (*cfntypes.Stack, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	for {
		stack, err := DescribeStack(ctx, client, stackName)
		if err != nil {
			return nil, err
		}
		if stack == nil {
			if expectDeletion {
				return nil, nil
			}
			return nil, &models.StackNotFoundError{StackName: stackName}
		}
		if !StatusFromStack(*stack).IsInProgress() {
			return stack, nil
		}
		if err := sleep(ctx, interval); err != nil {
			return nil, err
		}
	}
}

// WaitForChangeSet polls a change set until the control plane reports it
// ready or failed, returning the final description either way: a FAILED
// change set may still be the no-op sentinel, which the caller decides.
func WaitForChangeSet(ctx context.Context, client api.CloudFormation, stackName, changeSetName string, interval time.Duration) (*cloudformation.DescribeChangeSetOutput, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	for {
		out, err := client.DescribeChangeSet(ctx, &cloudformation.DescribeChangeSetInput{
			StackName:     aws.String(stackName),
			ChangeSetName: aws.String(changeSetName),
		})
		if err != nil {
			return nil, err
		}
		switch out.Status {
		case cfntypes.ChangeSetStatusCreateComplete, cfntypes.ChangeSetStatusFailed, cfntypes.ChangeSetStatusDeleteComplete:
			return out, nil
		}
		if err := sleep(ctx, interval); err != nil {
			return nil, err
		}
	}
}

// sleep blocks for d or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
