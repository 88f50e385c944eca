package backend

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds configuration for the S3 mirror backend.
type S3Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string
	// Prefix is the key prefix within the bucket (optional).
	Prefix string
	// Region is the AWS region (optional, uses default chain if empty).
	Region string
	// Endpoint is a custom S3 endpoint URL for S3-compatible providers
	// (e.g. Cloudflare R2, MinIO). Empty uses the default AWS endpoint.
	Endpoint string
	// UsePathStyle forces path-style addressing (bucket in path, not
	// subdomain). Required by most S3-compatible providers.
	UsePathStyle bool
}

// Validate checks that required S3 configuration is present.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("S3 bucket is required")
	}
	return nil
}

// s3PutAPI is the slice of the S3 client the mirror uses.
type s3PutAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 mirrors processed content into a bucket, keyed by content hash.
// Identifiers are s3:// URLs; the mirror serves teams that keep a
// durable content-addressed archive of everything the cloud holds.
type S3 struct {
	api s3PutAPI
	cfg S3Config
}

// NewS3 creates the mirror backend using the AWS SDK default credential
// chain (env vars, shared config, IAM role).
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &S3{api: s3.NewFromConfig(awsCfg, s3Opts...), cfg: cfg}, nil
}

// NewS3WithClient creates the mirror with an explicit client (tests).
func NewS3WithClient(api s3PutAPI, cfg S3Config) *S3 {
	return &S3{api: api, cfg: cfg}
}

func (m *S3) UploadImage(ctx context.Context, a Asset) (string, error) { return m.put(ctx, a) }
func (m *S3) UploadAudio(ctx context.Context, a Asset) (string, error) { return m.put(ctx, a) }
func (m *S3) UploadVideo(ctx context.Context, a Asset, _ uint32) (string, error) {
	return m.put(ctx, a)
}
func (m *S3) UploadModel(ctx context.Context, a Asset) (string, error)     { return m.put(ctx, a) }
func (m *S3) UploadAnimation(ctx context.Context, a Asset) (string, error) { return m.put(ctx, a) }

func (m *S3) put(ctx context.Context, a Asset) (string, error) {
	key := path.Join(m.cfg.Prefix, a.Hash.String()+"."+a.Ext)

	_, err := m.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(a.Data),
		ContentType: aws.String(MIMEForExt(a.Ext)),
	})
	if err != nil {
		return "", NewUploadError(classifyNetErr(err), "put", a.Key, err)
	}

	return "s3://" + m.cfg.Bucket + "/" + key, nil
}

var _ Backend = (*S3)(nil)
