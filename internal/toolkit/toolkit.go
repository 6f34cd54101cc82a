// Package toolkit locates the per-environment toolkit stack and stages
// template/asset content in its bucket. The toolkit stack is provisioned
// once per environment by `cdk bootstrap` and consists of a single staging
// bucket whose name and domain are published as stack outputs.
package toolkit

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/pose/aws-cdk/internal/api"
	"github.com/pose/aws-cdk/internal/cfn"
	"github.com/pose/aws-cdk/internal/models"
)

// DefaultStackName is the toolkit stack name used when none is configured.
const DefaultStackName = "CDKToolkit"

// Output keys published by the bootstrap template.
const (
	BucketNameOutput   = "BucketName"
	BucketDomainOutput = "BucketDomainName"
)

// Info describes a provisioned toolkit: where staged content lives and how
// to address it over HTTPS.
type Info struct {
	BucketName       string
	BucketDomainName string
}

// URL returns the HTTPS address of a staged object, the form CloudFormation
// accepts as a template URL.
func (i *Info) URL(key string) string {
	return fmt.Sprintf("https://%s/%s", i.BucketDomainName, key)
}

// Load discovers the toolkit stack in the given environment and materializes
// its Info from the stack outputs. An absent toolkit stack yields (nil, nil):
// small-template deploys work without one, so discovery failure is only fatal
// once something actually needs the bucket.
func Load(ctx context.Context, factory api.ClientFactory, env *models.Environment, stackName string) (*Info, error) {
	if stackName == "" {
		stackName = DefaultStackName
	}
	client, err := factory.CloudFormation(env, api.ForReading)
	if err != nil {
		return nil, err
	}
	stack, err := cfn.DescribeStack(ctx, client, stackName)
	if err != nil {
		return nil, fmt.Errorf("failed to look up toolkit stack %s: %w", stackName, err)
	}
	if stack == nil || cfn.StatusFromStack(*stack).IsDeleted() {
		return nil, nil
	}
	outputs := cfn.Outputs(stack)
	info := &Info{
		BucketName:       outputs[BucketNameOutput],
		BucketDomainName: outputs[BucketDomainOutput],
	}
	if info.BucketName == "" || info.BucketDomainName == "" {
		return nil, fmt.Errorf("toolkit stack %s exists but does not expose %s/%s outputs; re-run 'cdk bootstrap'",
			stackName, BucketNameOutput, BucketDomainOutput)
	}
	return info, nil
}

// UploadOptions shape the object key and metadata of a staged upload.
type UploadOptions struct {
	KeyPrefix   string
	KeySuffix   string
	ContentType string
}

// UploadIfChanged stages content in the toolkit bucket under a
// content-addressed key and returns that key. Identical content maps to the
// same key, and an object already present under it is left untouched, so
// repeated deploys of an unchanged template do not create duplicate objects.
func UploadIfChanged(ctx context.Context, client api.S3, info *Info, content []byte, opts UploadOptions) (string, error) {
	hash := sha256.Sum256(content)
	key := opts.KeyPrefix + hex.EncodeToString(hash[:]) + opts.KeySuffix

	_, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(info.BucketName),
		Key:    aws.String(key),
	})
	if err == nil {
		return key, nil
	}
	if !isObjectNotFound(err) {
		return "", fmt.Errorf("failed to probe s3://%s/%s: %w", info.BucketName, key, err)
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(info.BucketName),
		Key:    aws.String(key),
		Body:   bytes.NewReader(content),
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if _, err := client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload s3://%s/%s: %w", info.BucketName, key, err)
	}
	return key, nil
}

func isObjectNotFound(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "NotFound", "NoSuchKey":
		return true
	}
	return false
}
