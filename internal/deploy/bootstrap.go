package deploy

import (
	"context"

	"github.com/pose/aws-cdk/internal/api"
	"github.com/pose/aws-cdk/internal/models"
	"github.com/pose/aws-cdk/internal/toolkit"
)

// Bootstrap provisions the toolkit stack in the given environment through
// the regular deploy path, so bootstrapping exercises the same change-set
// lifecycle as any other stack. The toolkit template is small enough to
// always deploy inline, which is what makes the chicken-and-egg work.
func Bootstrap(ctx context.Context, env *models.Environment, factory api.ClientFactory, toolkitStackName string, options ...Option) (*models.DeployResult, error) {
	if toolkitStackName == "" {
		toolkitStackName = toolkit.DefaultStackName
	}
	stack := &models.Stack{
		Name:        toolkitStackName,
		Environment: env,
		Template:    toolkit.BootstrapTemplate(),
	}
	return DeployStack(ctx, stack, factory, options...)
}
