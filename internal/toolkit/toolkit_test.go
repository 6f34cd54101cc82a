package toolkit

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pose/aws-cdk/internal/api"
	"github.com/pose/aws-cdk/internal/models"
)

type fakeS3 struct {
	objects map[string][]byte
	puts    int
	heads   int
}

func (f *fakeS3) HeadObject(ctx context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.heads++
	if _, ok := f.objects[aws.ToString(params.Key)]; !ok {
		return nil, &smithy.GenericAPIError{Code: "NotFound", Message: "Not Found"}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts++
	content, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(params.Key)] = content
	return &s3.PutObjectOutput{}, nil
}

func TestUploadIfChangedIsIdempotent(t *testing.T) {
	store := &fakeS3{objects: map[string][]byte{}}
	info := &Info{BucketName: "staging", BucketDomainName: "staging.s3.amazonaws.com"}
	content := []byte("Resources: {}\n")
	opts := UploadOptions{KeyPrefix: "templates/demo/", KeySuffix: ".yml", ContentType: "application/x-yaml"}

	first, err := UploadIfChanged(context.Background(), store, info, content, opts)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first, "templates/demo/"))
	assert.True(t, strings.HasSuffix(first, ".yml"))
	assert.Equal(t, 1, store.puts)

	second, err := UploadIfChanged(context.Background(), store, info, content, opts)
	require.NoError(t, err)
	assert.Equal(t, first, second, "identical content must map to the same key")
	assert.Equal(t, 1, store.puts, "unchanged content must not be re-uploaded")

	third, err := UploadIfChanged(context.Background(), store, info, []byte("Resources:\n  Other: {}\n"), opts)
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
	assert.Equal(t, 2, store.puts)
}

func TestInfoURL(t *testing.T) {
	info := &Info{BucketName: "staging", BucketDomainName: "staging.s3.amazonaws.com"}
	assert.Equal(t, "https://staging.s3.amazonaws.com/templates/demo/abc.yml", info.URL("templates/demo/abc.yml"))
}

// fakeDescribeFactory serves a canned DescribeStacks response through the
// factory seam Load expects.
type fakeDescribeFactory struct {
	stack *cfntypes.Stack
}

type describeOnly struct {
	api.CloudFormation
	stack *cfntypes.Stack
}

func (d *describeOnly) DescribeStacks(ctx context.Context, params *cloudformation.DescribeStacksInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
	if d.stack == nil {
		return nil, &smithy.GenericAPIError{
			Code:    "ValidationError",
			Message: "Stack with id " + aws.ToString(params.StackName) + " does not exist",
		}
	}
	return &cloudformation.DescribeStacksOutput{Stacks: []cfntypes.Stack{*d.stack}}, nil
}

func (f *fakeDescribeFactory) CloudFormation(env *models.Environment, mode api.Mode) (api.CloudFormation, error) {
	return &describeOnly{stack: f.stack}, nil
}

func (f *fakeDescribeFactory) S3(env *models.Environment, mode api.Mode) (api.S3, error) {
	return nil, nil
}

func testEnv() *models.Environment {
	return &models.Environment{Account: "123456789012", Region: "us-east-1"}
}

func TestLoadAbsentToolkitIsNil(t *testing.T) {
	info, err := Load(context.Background(), &fakeDescribeFactory{}, testEnv(), "")
	require.NoError(t, err)
	assert.Nil(t, info, "an absent toolkit stack is not an error")
}

func TestLoadReadsBucketOutputs(t *testing.T) {
	factory := &fakeDescribeFactory{stack: &cfntypes.Stack{
		StackName:   aws.String(DefaultStackName),
		StackStatus: cfntypes.StackStatusCreateComplete,
		Outputs: []cfntypes.Output{
			{OutputKey: aws.String(BucketNameOutput), OutputValue: aws.String("staging")},
			{OutputKey: aws.String(BucketDomainOutput), OutputValue: aws.String("staging.s3.amazonaws.com")},
		},
	}}
	info, err := Load(context.Background(), factory, testEnv(), "")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "staging", info.BucketName)
	assert.Equal(t, "staging.s3.amazonaws.com", info.BucketDomainName)
}

func TestLoadRejectsToolkitWithoutOutputs(t *testing.T) {
	factory := &fakeDescribeFactory{stack: &cfntypes.Stack{
		StackName:   aws.String(DefaultStackName),
		StackStatus: cfntypes.StackStatusCreateComplete,
	}}
	_, err := Load(context.Background(), factory, testEnv(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cdk bootstrap")
}

func TestBootstrapTemplatePublishesOutputs(t *testing.T) {
	doc := BootstrapTemplate()
	outputs := doc.Outputs()
	require.Contains(t, outputs, BucketNameOutput)
	require.Contains(t, outputs, BucketDomainOutput)
	require.Contains(t, doc.Resources(), "StagingBucket")
}
