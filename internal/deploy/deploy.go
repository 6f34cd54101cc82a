package deploy

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/google/uuid"

	"github.com/pose/aws-cdk/internal/api"
	"github.com/pose/aws-cdk/internal/assets"
	"github.com/pose/aws-cdk/internal/cfn"
	"github.com/pose/aws-cdk/internal/models"
	"github.com/pose/aws-cdk/internal/toolkit"
)

// TemplateBodySizeLimit is the largest serialized template the control
// plane accepts inline. Anything bigger must be staged in the toolkit
// bucket and referenced by URL.
const TemplateBodySizeLimit = 50 * 1024

// DeployStack brings the described stack to the state of its template by
// creating and executing a CloudFormation change set, creating the stack if
// it does not exist yet. A template identical to what is already deployed
// yields a no-op result with the stack's current outputs and leaves no
// change set behind.
func DeployStack(ctx context.Context, stack *models.Stack, factory api.ClientFactory, options ...Option) (*models.DeployResult, error) {
	opts := applyOptions(options)

	if !stack.Environment.Resolved() {
		return nil, &models.ConfigurationError{
			StackName: stack.Name,
			Reason:    "it is not bound to a concrete account/region; pass --region or configure the stack's environment",
		}
	}

	deployName := opts.deployName
	if deployName == "" {
		deployName = stack.Name
	}
	executionID := uuid.NewString()

	client, err := factory.CloudFormation(stack.Environment, api.ForWriting)
	if err != nil {
		return nil, err
	}

	// Step 1: stage assets and collect the full parameter set.
	var s3Client api.S3
	if opts.toolkit != nil {
		if s3Client, err = factory.S3(stack.Environment, api.ForWriting); err != nil {
			return nil, err
		}
	}
	assetParams, err := assets.Prepare(ctx, s3Client, opts.toolkit, stack)
	if err != nil {
		return nil, err
	}
	parameters := buildParameters(stack.Parameters, assetParams)

	// Step 2: serialize the template and decide between inline body and
	// toolkit-bucket URL. With a toolkit the URL form is used regardless of
	// size; without one, oversized templates fail before any mutation.
	body, err := stack.Template.ToYAML()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize template for stack '%s': %w", stack.Name, err)
	}
	var templateBody, templateURL string
	if opts.toolkit != nil {
		key, err := toolkit.UploadIfChanged(ctx, s3Client, opts.toolkit, []byte(body), toolkit.UploadOptions{
			KeyPrefix:   fmt.Sprintf("templates/%s/", deployName),
			KeySuffix:   ".yml",
			ContentType: "application/x-yaml",
		})
		if err != nil {
			return nil, err
		}
		templateURL = opts.toolkit.URL(key)
	} else if len(body) > TemplateBodySizeLimit {
		return nil, &models.TemplateTooLargeError{
			StackName:        stack.Name,
			Size:             len(body),
			Limit:            TemplateBodySizeLimit,
			ToolkitStackName: opts.toolkitStackName,
		}
	} else {
		templateBody = body
	}

	// Step 3: a stack that failed its initial creation cannot be updated;
	// delete it and wait out the deletion before creating fresh.
	existing, err := cfn.DescribeStack(ctx, client, deployName)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		status := cfn.StatusFromStack(*existing)
		switch {
		case status.IsDeleted():
			existing = nil
		case status.IsCreationFailure():
			if !opts.quiet {
				fmt.Fprintf(opts.progress, "⚠️  Stack %s is in %s; deleting it before redeploying\n", deployName, status.Name)
			}
			if _, err := client.DeleteStack(ctx, deleteStackInput(deployName, opts.roleARN)); err != nil {
				return nil, err
			}
			final, err := cfn.WaitForStack(ctx, client, deployName, opts.stackInterval, true)
			if err != nil {
				return nil, err
			}
			if final != nil && !cfn.StatusFromStack(*final).IsDeleted() {
				return nil, &models.StackCleanupError{
					StackName: deployName,
					Status:    cfn.StatusFromStack(*final).Name,
				}
			}
			existing = nil
		}
	}

	// Step 4: create the change set and wait for the control plane's
	// verdict. CREATE when the stack is absent, UPDATE otherwise.
	req := &ChangeSetRequest{
		StackName:     deployName,
		ChangeSetName: fmt.Sprintf("cdk-deploy-%s", executionID),
		Type:          cfntypes.ChangeSetTypeUpdate,
		TemplateBody:  templateBody,
		TemplateURL:   templateURL,
		Parameters:    parameters,
		RoleARN:       opts.roleARN,
		Capabilities:  defaultCapabilities(),
	}
	if existing == nil {
		req.Type = cfntypes.ChangeSetTypeCreate
	}
	if !opts.quiet {
		fmt.Fprintf(opts.progress, "🚀 Deploying %s (%s change set %s)\n", deployName, req.Type, req.ChangeSetName)
	}
	desc, err := createChangeSet(ctx, client, req, opts.changeSetInterval)
	if err != nil {
		return nil, err
	}

	// Step 5: an empty change set means the deployed state already matches.
	// Delete the change set so nothing unexecuted lingers and report the
	// stack's current outputs.
	if isNoOpChangeSet(desc) {
		if err := deleteChangeSet(ctx, client, deployName, req.ChangeSetName); err != nil {
			return nil, err
		}
		if !opts.quiet {
			fmt.Fprintf(opts.progress, "✅ Stack %s is already up to date (no changes)\n", deployName)
		}
		return &models.DeployResult{
			NoOp:     true,
			Outputs:  cfn.Outputs(existing),
			StackARN: cfn.StackARN(existing),
		}, nil
	}
	if desc.Status == cfntypes.ChangeSetStatusFailed {
		ferr := changeSetFailure(req, desc)
		if err := deleteChangeSet(ctx, client, deployName, req.ChangeSetName); err != nil {
			return nil, err
		}
		return nil, ferr
	}

	// Step 6: execute. The monitor starts before the execute call so no
	// early events are missed, and stops on every exit path.
	var monitor *Monitor
	if !opts.quiet {
		monitor = NewMonitor(client, stack, deployName, opts.progress, opts.monitorInterval, len(desc.Changes))
	}
	monitor.Start(ctx)
	defer monitor.Stop()

	if _, err := client.ExecuteChangeSet(ctx, &cloudformation.ExecuteChangeSetInput{
		StackName:     aws.String(deployName),
		ChangeSetName: aws.String(req.ChangeSetName),
	}); err != nil {
		return nil, err
	}

	final, err := cfn.WaitForStack(ctx, client, deployName, opts.stackInterval, false)
	if err != nil {
		return nil, err
	}
	monitor.Stop()

	status := cfn.StatusFromStack(*final)
	if !status.IsSuccess() {
		return nil, fmt.Errorf("stack '%s' failed to deploy: %s", deployName, status)
	}
	if !opts.quiet {
		fmt.Fprintf(opts.progress, "✅ Stack %s deployed (%s)\n", deployName, status.Name)
	}
	return &models.DeployResult{
		Outputs:  cfn.Outputs(final),
		StackARN: cfn.StackARN(final),
	}, nil
}

// buildParameters merges the caller's parameters with the staged-asset
// locations into the control plane's parameter list, in stable order.
func buildParameters(userParams, assetParams map[string]string) []cfntypes.Parameter {
	merged := make(map[string]string, len(userParams)+len(assetParams))
	for k, v := range userParams {
		merged[k] = v
	}
	for k, v := range assetParams {
		merged[k] = v
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	params := make([]cfntypes.Parameter, 0, len(keys))
	for _, k := range keys {
		params = append(params, cfntypes.Parameter{
			ParameterKey:   aws.String(k),
			ParameterValue: aws.String(merged[k]),
		})
	}
	return params
}

func deleteStackInput(stackName, roleARN string) *cloudformation.DeleteStackInput {
	input := &cloudformation.DeleteStackInput{StackName: aws.String(stackName)}
	if roleARN != "" {
		input.RoleARN = aws.String(roleARN)
	}
	return input
}
