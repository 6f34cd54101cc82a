package assets

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pose/aws-cdk/internal/models"
	"github.com/pose/aws-cdk/internal/toolkit"
)

type fakeS3 struct {
	objects map[string][]byte
	puts    int
}

func (f *fakeS3) HeadObject(ctx context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
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

func assetStack(t *testing.T, entries ...models.AssetEntry) *models.Stack {
	t.Helper()
	metadata := models.Metadata{}
	for _, entry := range entries {
		data, err := json.Marshal(entry)
		require.NoError(t, err)
		metadata[filepath.Join("demo", entry.ID)] = []models.MetadataEntry{{
			Type: models.AssetMetadataType,
			Data: data,
		}}
	}
	return &models.Stack{
		Name:        "demo",
		Environment: &models.Environment{Account: "123456789012", Region: "us-east-1"},
		Metadata:    metadata,
	}
}

func TestPrepareNoAssetsNoCalls(t *testing.T) {
	store := &fakeS3{objects: map[string][]byte{}}
	params, err := Prepare(context.Background(), store, nil, assetStack(t))
	require.NoError(t, err)
	assert.Empty(t, params)
	assert.Zero(t, store.puts)
}

func TestPrepareFileAsset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "handler.js")
	require.NoError(t, os.WriteFile(path, []byte("exports.handler = () => {};"), 0o644))

	stack := assetStack(t, models.AssetEntry{
		Path:              path,
		ID:                "handler",
		Packaging:         models.FilePackaging,
		S3BucketParameter: "HandlerBucket",
		S3KeyParameter:    "HandlerKey",
	})
	store := &fakeS3{objects: map[string][]byte{}}
	info := &toolkit.Info{BucketName: "staging", BucketDomainName: "staging.s3.amazonaws.com"}

	params, err := Prepare(context.Background(), store, info, stack)
	require.NoError(t, err)
	assert.Equal(t, "staging", params["HandlerBucket"])
	assert.True(t, strings.HasPrefix(params["HandlerKey"], "assets/handler/"))
	assert.True(t, strings.HasSuffix(params["HandlerKey"], ".js"))
	assert.Equal(t, 1, store.puts)
}

func TestPrepareZipAssetIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "lib"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.js"), []byte("main"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib", "util.js"), []byte("util"), 0o644))

	stack := assetStack(t, models.AssetEntry{
		Path:              dir,
		ID:                "bundle",
		Packaging:         models.ZipPackaging,
		S3BucketParameter: "BundleBucket",
		S3KeyParameter:    "BundleKey",
	})
	store := &fakeS3{objects: map[string][]byte{}}
	info := &toolkit.Info{BucketName: "staging", BucketDomainName: "staging.s3.amazonaws.com"}

	first, err := Prepare(context.Background(), store, info, stack)
	require.NoError(t, err)
	second, err := Prepare(context.Background(), store, info, stack)
	require.NoError(t, err)
	assert.Equal(t, first["BundleKey"], second["BundleKey"], "identical trees must produce the same key")
	assert.Equal(t, 1, store.puts, "the second staging run must hit the existing object")
	assert.True(t, strings.HasSuffix(first["BundleKey"], ".zip"))
}

func TestPrepareAssetsWithoutToolkitFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "handler.js")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	stack := assetStack(t, models.AssetEntry{
		Path:              path,
		ID:                "handler",
		Packaging:         models.FilePackaging,
		S3BucketParameter: "B",
		S3KeyParameter:    "K",
	})
	_, err := Prepare(context.Background(), nil, nil, stack)
	var cfgErr *models.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "cdk bootstrap")
}

func TestPrepareMissingFile(t *testing.T) {
	stack := assetStack(t, models.AssetEntry{
		Path:              filepath.Join(t.TempDir(), "gone.js"),
		ID:                "gone",
		Packaging:         models.FilePackaging,
		S3BucketParameter: "B",
		S3KeyParameter:    "K",
	})
	store := &fakeS3{objects: map[string][]byte{}}
	info := &toolkit.Info{BucketName: "staging", BucketDomainName: "staging.s3.amazonaws.com"}

	_, err := Prepare(context.Background(), store, info, stack)
	var assetErr *models.AssetError
	require.ErrorAs(t, err, &assetErr)
	assert.Equal(t, "demo", assetErr.StackName)
}
