package depforge

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// gcsInteropEndpoint is the S3-compatible XML API of Google Cloud Storage.
const gcsInteropEndpoint = "https://storage.googleapis.com"

// ObjectStoreConfig holds credentials for authenticated object storage.
type ObjectStoreConfig struct {
	// GCS HMAC keys, used for gs:// URLs.
	GCSAccessKeyID     string
	GCSSecretAccessKey string
	// Optional static credentials and endpoint for s3:// URLs. Without keys
	// the default AWS credential chain applies.
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Endpoint        string
	S3Region          string
}

// objectGetter is the part of *s3.Client the fetcher needs.
type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ObjectStoreFetcher downloads gs://bucket/key and s3://bucket/key objects
// through the S3 API. Clients are created on first use per scheme.
type ObjectStoreFetcher struct {
	Config  ObjectStoreConfig
	clients map[string]objectGetter
}

var _ Fetcher = (*ObjectStoreFetcher)(nil)

// parseObjectURL splits scheme://bucket/key.
func parseObjectURL(raw string) (scheme, bucket, key string, err error) {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return "", "", "", fmt.Errorf("not an object storage url: %s", raw)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", "", fmt.Errorf("object storage url %s must be %s://bucket/key", raw, scheme)
	}
	return scheme, bucket, key, nil
}

func (o *ObjectStoreFetcher) client(ctx context.Context, scheme string) (objectGetter, error) {
	if c, ok := o.clients[scheme]; ok {
		return c, nil
	}

	var (
		options  []func(*config.LoadOptions) error
		endpoint string
	)
	switch scheme {
	case "gs":
		if o.Config.GCSAccessKeyID == "" || o.Config.GCSSecretAccessKey == "" {
			return nil, configErrorf("gs:// download needs DEPFORGE_GCS_ACCESS_KEY_ID and DEPFORGE_GCS_SECRET_ACCESS_KEY (GCS HMAC keys)")
		}
		options = append(options,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(o.Config.GCSAccessKeyID, o.Config.GCSSecretAccessKey, "")),
			config.WithRegion("auto"),
		)
		endpoint = gcsInteropEndpoint
	case "s3":
		if o.Config.S3AccessKeyID != "" {
			options = append(options, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(o.Config.S3AccessKeyID, o.Config.S3SecretAccessKey, "")))
		}
		if o.Config.S3Region != "" {
			options = append(options, config.WithRegion(o.Config.S3Region))
		}
		endpoint = o.Config.S3Endpoint
	default:
		return nil, fmt.Errorf("unsupported object storage scheme %q", scheme)
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load object storage config: %w", err)
	}
	c := s3.NewFromConfig(awsCfg, func(opts *s3.Options) {
		if endpoint != "" {
			opts.BaseEndpoint = aws.String(endpoint)
			opts.UsePathStyle = true
		}
	})

	if o.clients == nil {
		o.clients = make(map[string]objectGetter)
	}
	o.clients[scheme] = c
	return c, nil
}

func (o *ObjectStoreFetcher) Fetch(ctx context.Context, url, dest string) error {
	scheme, bucket, key, err := parseObjectURL(url)
	if err != nil {
		return err
	}
	c, err := o.client(ctx, scheme)
	if err != nil {
		return err
	}

	output, err := c.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", url, err)
	}
	defer output.Body.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", dest, err)
	}
	part := partPath(dest)
	out, err := os.Create(part)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", part, err)
	}
	if _, err := io.Copy(out, output.Body); err != nil {
		out.Close()
		os.Remove(part)
		return fmt.Errorf("failed to write %s: %w", part, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(part)
		return err
	}
	return commitDownload(dest)
}
