// Package assets stages a stack's local file assets in the toolkit bucket
// and produces the template parameters that tell the template where each
// asset landed.
package assets

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pose/aws-cdk/internal/api"
	"github.com/pose/aws-cdk/internal/models"
	"github.com/pose/aws-cdk/internal/toolkit"
)

// Prepare uploads every asset declared in the stack's metadata and returns
// the bucket/key parameter pairs the template expects. Stacks without assets
// return an empty map and make no remote calls. Stacks with assets but no
// toolkit configured fail with remediation guidance, since there is nowhere
// to stage the content.
func Prepare(ctx context.Context, client api.S3, info *toolkit.Info, stack *models.Stack) (map[string]string, error) {
	entries, err := stack.Assets()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return map[string]string{}, nil
	}
	if info == nil {
		return nil, &models.ConfigurationError{
			StackName: stack.Name,
			Reason: fmt.Sprintf("it declares %d asset(s) but the environment has no toolkit stack; run 'cdk bootstrap' first",
				len(entries)),
		}
	}

	params := make(map[string]string, 2*len(entries))
	for _, asset := range entries {
		content, suffix, err := packageAsset(asset)
		if err != nil {
			return nil, &models.AssetError{StackName: stack.Name, AssetPath: asset.Path, Cause: err}
		}
		key, err := toolkit.UploadIfChanged(ctx, client, info, content, toolkit.UploadOptions{
			KeyPrefix: fmt.Sprintf("assets/%s/", asset.ID),
			KeySuffix: suffix,
		})
		if err != nil {
			return nil, &models.AssetError{StackName: stack.Name, AssetPath: asset.Path, Cause: err}
		}
		params[asset.S3BucketParameter] = info.BucketName
		params[asset.S3KeyParameter] = key
	}
	return params, nil
}

// packageAsset reads an asset into its uploadable form: file assets verbatim,
// zip assets as a deterministic archive of the directory tree.
func packageAsset(asset models.AssetEntry) ([]byte, string, error) {
	switch asset.Packaging {
	case models.FilePackaging:
		content, err := os.ReadFile(asset.Path)
		if err != nil {
			return nil, "", err
		}
		return content, filepath.Ext(asset.Path), nil
	case models.ZipPackaging:
		content, err := zipDirectory(asset.Path)
		if err != nil {
			return nil, "", err
		}
		return content, ".zip", nil
	default:
		return nil, "", fmt.Errorf("unsupported packaging %q", asset.Packaging)
	}
}

// zipDirectory archives a directory tree with sorted entries and zeroed
// timestamps so identical trees produce byte-identical archives, keeping the
// content-addressed upload key stable across machines and runs.
func zipDirectory(root string) ([]byte, error) {
	var files []string
	err := filepath.Walk(root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.Mode().IsRegular() {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, path := range files {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil, err
		}
		header := &zip.FileHeader{
			Name:   strings.ReplaceAll(rel, string(filepath.Separator), "/"),
			Method: zip.Deflate,
		}
		dst, err := w.CreateHeader(header)
		if err != nil {
			return nil, err
		}
		src, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		_, err = io.Copy(dst, src)
		src.Close()
		if err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
