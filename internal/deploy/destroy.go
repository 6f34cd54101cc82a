package deploy

import (
	"context"
	"fmt"

	"github.com/pose/aws-cdk/internal/api"
	"github.com/pose/aws-cdk/internal/cfn"
	"github.com/pose/aws-cdk/internal/models"
)

// DestroyStack deletes the described stack and waits until it is fully
// gone. Destroying a stack that does not exist is a successful no-op. A
// stack that ends in any state other than fully deleted is an error naming
// that state.
func DestroyStack(ctx context.Context, stack *models.Stack, factory api.ClientFactory, options ...Option) error {
	opts := applyOptions(options)

	if !stack.Environment.Resolved() {
		return &models.ConfigurationError{
			StackName: stack.Name,
			Reason:    "it is not bound to a concrete account/region; pass --region or configure the stack's environment",
		}
	}

	deployName := opts.deployName
	if deployName == "" {
		deployName = stack.Name
	}

	client, err := factory.CloudFormation(stack.Environment, api.ForWriting)
	if err != nil {
		return err
	}

	existing, err := cfn.DescribeStack(ctx, client, deployName)
	if err != nil {
		return err
	}
	if existing == nil || cfn.StatusFromStack(*existing).IsDeleted() {
		if !opts.quiet {
			fmt.Fprintf(opts.progress, "✅ Stack %s does not exist, nothing to destroy\n", deployName)
		}
		return nil
	}

	// The expected change count is unknown for a destroy; the monitor
	// renders a plain counter.
	var monitor *Monitor
	if !opts.quiet {
		fmt.Fprintf(opts.progress, "🗑️  Destroying %s\n", deployName)
		monitor = NewMonitor(client, stack, deployName, opts.progress, opts.monitorInterval, 0)
	}
	monitor.Start(ctx)
	defer monitor.Stop()

	if _, err := client.DeleteStack(ctx, deleteStackInput(deployName, opts.roleARN)); err != nil {
		return err
	}

	final, err := cfn.WaitForStack(ctx, client, deployName, opts.stackInterval, true)
	if err != nil {
		return err
	}
	monitor.Stop()

	if final != nil && !cfn.StatusFromStack(*final).IsDeleted() {
		return &models.DestroyError{
			DeployName: deployName,
			Status:     cfn.StatusFromStack(*final).Name,
		}
	}
	if !opts.quiet {
		fmt.Fprintf(opts.progress, "✅ Stack %s destroyed\n", deployName)
	}
	return nil
}
