// Package deploy orchestrates stack deployment: it turns a synthesized
// stack descriptor into a CloudFormation change set, executes it, and
// reconciles the stack's terminal state, streaming resource activity while
// it waits.
package deploy

import (
	"io"
	"os"
	"time"

	"github.com/pose/aws-cdk/internal/cfn"
	"github.com/pose/aws-cdk/internal/toolkit"
)

// monitorInterval is the default delay between activity monitor event
// fetches. Shorter than the stack poll interval so progress feels live.
const monitorInterval = 2 * time.Second

type options struct {
	deployName        string
	roleARN           string
	toolkit           *toolkit.Info
	toolkitStackName  string
	quiet             bool
	progress          io.Writer
	stackInterval     time.Duration
	changeSetInterval time.Duration
	monitorInterval   time.Duration
}

// Option is a functional option for DeployStack, DestroyStack and Bootstrap.
type Option func(*options)

// WithDeployName overrides the stack descriptor's own name as the name the
// stack deploys under.
func WithDeployName(name string) Option {
	return func(o *options) { o.deployName = name }
}

// WithRoleARN sets the execution role CloudFormation assumes for the
// operation. Empty means the caller's own credentials.
func WithRoleARN(arn string) Option {
	return func(o *options) { o.roleARN = arn }
}

// WithToolkit provides the environment's toolkit stack info. When set,
// templates are always uploaded to the toolkit bucket and referenced by URL
// regardless of size, and asset staging becomes possible.
func WithToolkit(info *toolkit.Info) Option {
	return func(o *options) { o.toolkit = info }
}

// WithToolkitStackName names the toolkit stack mentioned in remediation
// guidance. Defaults to the standard toolkit stack name.
func WithToolkitStackName(name string) Option {
	return func(o *options) { o.toolkitStackName = name }
}

// WithQuiet disables the activity monitor and progress output. Functional
// behavior is unchanged.
func WithQuiet(quiet bool) Option {
	return func(o *options) { o.quiet = quiet }
}

// WithProgressWriter redirects progress and activity output, which defaults
// to stderr. Results still go to the caller via the returned DeployResult.
func WithProgressWriter(w io.Writer) Option {
	return func(o *options) { o.progress = w }
}

// WithPollIntervals overrides the stack, change set and monitor poll
// intervals. Tests drive them to near zero.
func WithPollIntervals(stack, changeSet, monitor time.Duration) Option {
	return func(o *options) {
		o.stackInterval = stack
		o.changeSetInterval = changeSet
		o.monitorInterval = monitor
	}
}

func applyOptions(opts []Option) *options {
	o := &options{
		toolkitStackName:  toolkit.DefaultStackName,
		progress:          os.Stderr,
		stackInterval:     cfn.DefaultPollInterval,
		changeSetInterval: cfn.DefaultPollInterval,
		monitorInterval:   monitorInterval,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
