package artifact

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config represents the settings required to talk to S3 or an S3-compatible API.
type S3Config struct {
	Bucket         string
	Region         string
	Endpoint       string
	PublicURL      string
	KeyPrefix      string
	ForcePathStyle bool
}

// NewS3Store wires an S3-backed artifact store if the configuration is
// complete, otherwise a disabled store.
func NewS3Store(ctx context.Context, cfg S3Config) (Store, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return Disabled(), nil
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}

	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		loadOpts = append(loadOpts, config.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
				if service == s3.ServiceID {
					return aws.Endpoint{
						URL:           endpoint,
						PartitionID:   "aws",
						SigningRegion: cfg.Region,
					}, nil
				}
				return aws.Endpoint{}, &aws.EndpointNotFoundError{}
			}),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws sdk config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.UsePathStyle = cfg.ForcePathStyle
		}
	})

	// Fallback so S3-compatible storage without PublicURL still works for reads.
	publicURL := strings.TrimSuffix(cfg.PublicURL, "/")
	if publicURL == "" && cfg.Endpoint != "" && cfg.ForcePathStyle {
		publicURL = fmt.Sprintf("%s/%s", strings.TrimSuffix(cfg.Endpoint, "/"), cfg.Bucket)
	}

	return &s3Store{
		client:  client,
		bucket:  cfg.Bucket,
		region:  cfg.Region,
		baseURL: publicURL,
		prefix:  strings.Trim(cfg.KeyPrefix, "/"),
	}, nil
}

type s3Store struct {
	client  *s3.Client
	bucket  string
	region  string
	baseURL string
	prefix  string
}

// Save stores the image in the configured bucket under the same key shape the
// local store uses and returns its public URL.
func (u *s3Store) Save(ctx context.Context, userID string, data []byte) (Ref, error) {
	if userID == "" {
		return Ref{}, fmt.Errorf("user id is required")
	}

	key := u.buildKey(userID)
	if _, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String("image/png"),
		ContentLength: aws.Int64(int64(len(data))),
	}); err != nil {
		return Ref{}, fmt.Errorf("put object: %w", err)
	}

	return Ref{Key: key, URL: u.objectURL(key)}, nil
}

func (u *s3Store) buildKey(userID string) string {
	name := fmt.Sprintf("generated_image_%d.png", time.Now().UnixMilli())
	if u.prefix != "" {
		return path.Join(u.prefix, userID, name)
	}
	return path.Join(userID, name)
}

func (u *s3Store) objectURL(key string) string {
	if u.baseURL != "" {
		return fmt.Sprintf("%s/%s", u.baseURL, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.bucket, u.region, key)
}
