package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/pose/aws-cdk/internal/models"
)

// Mode scopes a client to the kind of operations a phase performs. Reading
// covers describe/list calls (toolkit discovery, diff); writing covers
// anything that mutates stacks. Both currently share the factory's
// credentials; the parameter preserves the seam for split-role setups.
type Mode int

const (
	ForReading Mode = iota
	ForWriting
)

// Factory hands out control-plane clients bound to a target environment.
// Orchestrator calls receive one explicitly; there are no package-level
// client singletons.
type Factory struct {
	cfg aws.Config
}

// Option is a functional option for factory construction.
type Option func(*factoryOptions)

type factoryOptions struct {
	profile string
	region  string
}

// WithProfile selects a shared-config credential profile.
func WithProfile(profile string) Option {
	return func(o *factoryOptions) { o.profile = profile }
}

// WithRegion overrides the region resolved from the environment/config.
func WithRegion(region string) Option {
	return func(o *factoryOptions) { o.region = region }
}

// NewFactory loads the caller's AWS configuration and returns a factory
// bound to it.
func NewFactory(ctx context.Context, options ...Option) (*Factory, error) {
	opts := &factoryOptions{}
	for _, opt := range options {
		opt(opts)
	}

	optFns := []func(*config.LoadOptions) error{}
	if opts.profile != "" {
		optFns = append(optFns, config.WithSharedConfigProfile(opts.profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if opts.region != "" {
		cfg.Region = opts.region
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	return &Factory{cfg: cfg}, nil
}

var _ ClientFactory = (*Factory)(nil)

// Region returns the factory's default region.
func (f *Factory) Region() string {
	return f.cfg.Region
}

// CloudFormation returns a CloudFormation client scoped to the environment.
func (f *Factory) CloudFormation(env *models.Environment, mode Mode) (CloudFormation, error) {
	cfg, err := f.configFor(env, mode)
	if err != nil {
		return nil, err
	}
	return cloudformation.NewFromConfig(cfg), nil
}

// S3 returns an S3 client scoped to the environment.
func (f *Factory) S3(env *models.Environment, mode Mode) (S3, error) {
	cfg, err := f.configFor(env, mode)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg), nil
}

func (f *Factory) configFor(env *models.Environment, _ Mode) (aws.Config, error) {
	if !env.Resolved() {
		return aws.Config{}, fmt.Errorf("cannot create a client for unresolved environment %s", env)
	}
	cfg := f.cfg
	cfg.Region = env.Region
	return cfg, nil
}

// DefaultEnvironment resolves the account the factory's credentials belong
// to, paired with its default region. The CLI uses it to substitute the
// synthesizer's environment placeholders.
func (f *Factory) DefaultEnvironment(ctx context.Context) (*models.Environment, error) {
	client := sts.NewFromConfig(f.cfg)
	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve caller identity: %w", err)
	}
	return &models.Environment{
		Account: aws.ToString(out.Account),
		Region:  f.cfg.Region,
	}, nil
}

// ValidateCredentials checks that the factory's credentials are usable.
func (f *Factory) ValidateCredentials(ctx context.Context) error {
	client := sts.NewFromConfig(f.cfg)
	if _, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{}); err != nil {
		return fmt.Errorf("AWS credentials are not usable: %w", err)
	}
	return nil
}

// ResolveRoleARN turns an execution role given as a bare name into its full
// ARN via IAM. Values that already look like ARNs pass through untouched;
// an empty value stays empty (no role).
func (f *Factory) ResolveRoleARN(ctx context.Context, nameOrARN string) (string, error) {
	if nameOrARN == "" || strings.HasPrefix(nameOrARN, "arn:") {
		return nameOrARN, nil
	}
	client := iam.NewFromConfig(f.cfg)
	out, err := client.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(nameOrARN)})
	if err != nil {
		return "", fmt.Errorf("failed to resolve execution role '%s': %w", nameOrARN, err)
	}
	return aws.ToString(out.Role.Arn), nil
}
