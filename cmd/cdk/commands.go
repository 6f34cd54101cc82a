package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/AlecAivazis/survey/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"
	"github.com/urfave/cli/v2"

	"github.com/pose/aws-cdk/internal/api"
	"github.com/pose/aws-cdk/internal/cfn"
	"github.com/pose/aws-cdk/internal/config"
	"github.com/pose/aws-cdk/internal/deploy"
	"github.com/pose/aws-cdk/internal/diff"
	"github.com/pose/aws-cdk/internal/models"
	"github.com/pose/aws-cdk/internal/template"
	"github.com/pose/aws-cdk/internal/toolkit"
)

// toolchain bundles what every command needs: the parsed assembly, an
// authenticated client factory and the effective settings.
type toolchain struct {
	assembly *models.Assembly
	factory  *api.Factory
	settings *config.Settings
}

func setup(c *cli.Context) (*toolchain, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, err
	}
	if name := c.String("toolkit-stack-name"); name != "" {
		settings.ToolkitStackName = name
	}
	if c.Bool("quiet") {
		settings.Quiet = true
	}

	factoryOpts := []api.Option{}
	if profile := c.String("profile"); profile != "" {
		factoryOpts = append(factoryOpts, api.WithProfile(profile))
	}
	if region := c.String("region"); region != "" {
		factoryOpts = append(factoryOpts, api.WithRegion(region))
	}
	factory, err := api.NewFactory(c.Context, factoryOpts...)
	if err != nil {
		return nil, err
	}

	assembly, err := models.LoadAssembly(c.String("app"))
	if err != nil {
		return nil, err
	}
	return &toolchain{assembly: assembly, factory: factory, settings: settings}, nil
}

// selectStacks maps command arguments to assembly stacks; no arguments
// selects every stack in declaration order.
func (t *toolchain) selectStacks(c *cli.Context) ([]*models.Stack, error) {
	if c.Args().Len() == 0 {
		stacks := make([]*models.Stack, len(t.assembly.Stacks))
		for i := range t.assembly.Stacks {
			stacks[i] = &t.assembly.Stacks[i]
		}
		return stacks, nil
	}
	var stacks []*models.Stack
	for _, name := range c.Args().Slice() {
		stack, err := t.assembly.Stack(name)
		if err != nil {
			return nil, err
		}
		stacks = append(stacks, stack)
	}
	return stacks, nil
}

// resolveEnvironment substitutes the synthesizer's account/region
// placeholders with the caller's defaults. The orchestrator itself still
// refuses unresolved environments; this is the CLI-side convenience the
// core deliberately does not carry.
func (t *toolchain) resolveEnvironment(ctx context.Context, stack *models.Stack) (*models.Stack, error) {
	if stack.Environment.Resolved() {
		return stack, nil
	}
	def, err := t.factory.DefaultEnvironment(ctx)
	if err != nil {
		return nil, err
	}
	resolved := *stack
	env := models.Environment{Account: def.Account, Region: def.Region}
	if stack.Environment != nil {
		if stack.Environment.Account != "" && stack.Environment.Account != models.UnknownAccount {
			env.Account = stack.Environment.Account
		}
		if stack.Environment.Region != "" && stack.Environment.Region != models.UnknownRegion {
			env.Region = stack.Environment.Region
		}
	}
	resolved.Environment = &env
	return &resolved, nil
}

func (t *toolchain) deployOptions(tk *toolkit.Info, roleARN string) []deploy.Option {
	opts := []deploy.Option{
		deploy.WithToolkitStackName(t.settings.ToolkitStackName),
		deploy.WithQuiet(t.settings.Quiet),
		deploy.WithPollIntervals(t.settings.StackPollInterval, t.settings.ChangeSetPollInterval, t.settings.MonitorInterval),
	}
	if tk != nil {
		opts = append(opts, deploy.WithToolkit(tk))
	}
	if roleARN != "" {
		opts = append(opts, deploy.WithRoleARN(roleARN))
	}
	return opts
}

func deployStacks(c *cli.Context) error {
	t, err := setup(c)
	if err != nil {
		return err
	}
	stacks, err := t.selectStacks(c)
	if err != nil {
		return err
	}
	if c.String("deploy-name") != "" && len(stacks) != 1 {
		return fmt.Errorf("--deploy-name applies to exactly one stack, got %d", len(stacks))
	}
	roleARN, err := t.factory.ResolveRoleARN(c.Context, c.String("role-name"))
	if err != nil {
		return err
	}

	// One stack failing stops the run: later stacks routinely depend on
	// outputs of earlier ones.
	for _, stack := range stacks {
		stack, err := t.resolveEnvironment(c.Context, stack)
		if err != nil {
			return err
		}
		tk, err := toolkit.Load(c.Context, t.factory, stack.Environment, t.settings.ToolkitStackName)
		if err != nil {
			return err
		}
		opts := t.deployOptions(tk, roleARN)
		if name := c.String("deploy-name"); name != "" {
			opts = append(opts, deploy.WithDeployName(name))
		}
		result, err := deploy.DeployStack(c.Context, stack, t.factory, opts...)
		if err != nil {
			return fmt.Errorf("failed to deploy stack '%s': %w", stack.Name, err)
		}
		printResult(stack.Name, result)
	}
	return nil
}

func printResult(name string, result *models.DeployResult) {
	if result.NoOp {
		fmt.Printf("%s: no changes\n", name)
	} else {
		fmt.Printf("%s: deployed\n", name)
	}
	if result.StackARN != "" {
		fmt.Printf("  arn: %s\n", result.StackARN)
	}
	keys := make([]string, 0, len(result.Outputs))
	for k := range result.Outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s = %s\n", k, result.Outputs[k])
	}
}

func destroyStacks(c *cli.Context) error {
	t, err := setup(c)
	if err != nil {
		return err
	}
	stacks, err := t.selectStacks(c)
	if err != nil {
		return err
	}
	roleARN, err := t.factory.ResolveRoleARN(c.Context, c.String("role-name"))
	if err != nil {
		return err
	}

	if !c.Bool("force") {
		names := make([]string, len(stacks))
		for i, s := range stacks {
			names[i] = s.Name
		}
		confirmed := false
		prompt := &survey.Confirm{
			Message: fmt.Sprintf("Destroy %d stack(s) %v? This cannot be undone", len(stacks), names),
		}
		if err := survey.AskOne(prompt, &confirmed); err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Aborted")
			return nil
		}
	}

	// Unlike deploy, destroy keeps going: remaining stacks should still be
	// removed when one refuses to die. Failures are reported together.
	var result *multierror.Error
	for _, stack := range stacks {
		stack, err := t.resolveEnvironment(c.Context, stack)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		opts := t.deployOptions(nil, roleARN)
		if err := deploy.DestroyStack(c.Context, stack, t.factory, opts...); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to destroy stack '%s': %w", stack.Name, err))
		}
	}
	return result.ErrorOrNil()
}

func diffStacks(c *cli.Context) error {
	t, err := setup(c)
	if err != nil {
		return err
	}
	stacks, err := t.selectStacks(c)
	if err != nil {
		return err
	}
	for _, stack := range stacks {
		stack, err := t.resolveEnvironment(c.Context, stack)
		if err != nil {
			return err
		}
		deployed, err := deployedTemplate(c.Context, t.factory, stack)
		if err != nil {
			return err
		}
		fmt.Printf("Stack %s\n", stack.Name)
		diff.Templates(deployed, stack.Template).Render(os.Stdout)
	}
	return nil
}

// deployedTemplate fetches the template the stack currently runs; a stack
// that is not deployed yet diffs against an empty template.
func deployedTemplate(ctx context.Context, factory *api.Factory, stack *models.Stack) (template.Document, error) {
	client, err := factory.CloudFormation(stack.Environment, api.ForReading)
	if err != nil {
		return nil, err
	}
	out, err := client.GetTemplate(ctx, &cloudformation.GetTemplateInput{
		StackName: aws.String(stack.Name),
	})
	if err != nil {
		if cfn.IsStackNotFound(err) {
			return template.Document{}, nil
		}
		return nil, err
	}
	return template.Parse(aws.ToString(out.TemplateBody))
}

func bootstrapEnvironment(c *cli.Context) error {
	t, err := setup(c)
	if err != nil {
		return err
	}
	env, err := t.factory.DefaultEnvironment(c.Context)
	if err != nil {
		return err
	}
	opts := []deploy.Option{
		deploy.WithQuiet(t.settings.Quiet),
		deploy.WithPollIntervals(t.settings.StackPollInterval, t.settings.ChangeSetPollInterval, t.settings.MonitorInterval),
	}
	result, err := deploy.Bootstrap(c.Context, env, t.factory, t.settings.ToolkitStackName, opts...)
	if err != nil {
		return fmt.Errorf("failed to bootstrap %s: %w", env, err)
	}
	printResult(t.settings.ToolkitStackName, result)
	return nil
}

func listStacks(c *cli.Context) error {
	t, err := setup(c)
	if err != nil {
		return err
	}
	for i := range t.assembly.Stacks {
		stack := &t.assembly.Stacks[i]
		body, err := stack.Template.ToYAML()
		if err != nil {
			return fmt.Errorf("failed to serialize template for stack '%s': %w", stack.Name, err)
		}
		fmt.Printf("%-30s %-28s %s\n", stack.Name, stack.Environment, humanize.IBytes(uint64(len(body))))
	}
	return nil
}
