package crosside

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// uploadClient wraps an S3-compatible client for distribution uploads.
type uploadClient struct {
	client *s3.Client
	bucket string
	prefix string
}

// newUploadClient builds a client from the workspace upload settings.
// Any S3-compatible endpoint works (R2, MinIO, plain S3).
func newUploadClient(ctx context.Context, u UploadConfig) (*uploadClient, error) {
	u = u.withEnv()
	if u.Bucket == "" || u.AccessKey == "" || u.SecretKey == "" {
		return nil, fmt.Errorf("upload credentials missing (set Upload in config.json or CROSSIDE_UPLOAD_* env)")
	}
	region := u.Region
	if region == "" {
		region = "auto"
	}

	options := []func(*config.LoadOptions) error{
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(u.AccessKey, u.SecretKey, "")),
		config.WithRegion(region),
	}
	if u.Endpoint != "" {
		endpoint := u.Endpoint
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, opts ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{URL: endpoint}, nil
		})
		options = append(options, config.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("load upload config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return &uploadClient{client: client, bucket: u.Bucket, prefix: u.Prefix}, nil
}

func uploadContentType(key string) string {
	switch {
	case strings.HasSuffix(key, ".zst"):
		return "application/zstd"
	case strings.HasSuffix(key, ".gz"):
		return "application/gzip"
	case strings.HasSuffix(key, ".xz"):
		return "application/x-xz"
	case strings.HasSuffix(key, ".zip"):
		return "application/zip"
	case strings.HasSuffix(key, ".b3"):
		return "text/plain"
	}
	return "application/octet-stream"
}

// uploadLocalFile streams a file from disk to the bucket.
func (u *uploadClient) uploadLocalFile(ctx context.Context, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()
	stat, err := file.Stat()
	if err != nil {
		return err
	}

	key := filepath.Base(filePath)
	if u.prefix != "" {
		key = path.Join(u.prefix, key)
	}
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(stat.Size()),
		ContentType:   aws.String(uploadContentType(key)),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	logf("Uploaded: %s/%s", u.bucket, key)
	return nil
}

// uploadDistFiles pushes a distribution archive and its checksum
// sidecar to the configured bucket.
func uploadDistFiles(ctx context.Context, files ...string) error {
	repoRoot := DetectRepoRoot()
	cfg := LoadWorkspaceConfig(repoRoot)
	client, err := newUploadClient(ctx, cfg.Upload)
	if err != nil {
		return err
	}
	for _, file := range files {
		if err := client.uploadLocalFile(ctx, file); err != nil {
			return err
		}
	}
	return nil
}
