package doctors

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ImageURLResolver maps an opaque image key to a fetchable URL, or nil when
// the doctor has no image.
type ImageURLResolver interface {
	ResolveImageURL(ctx context.Context, key string) (*string, error)
}

type objectPresigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3ImageResolver returns presigned GET URLs for objects in bucket.
type S3ImageResolver struct {
	presigner objectPresigner
	bucket    string
	ttl       time.Duration
}

// NewS3ImageResolver builds a resolver from an S3 client.
func NewS3ImageResolver(client *s3.Client, bucket string, ttl time.Duration) *S3ImageResolver {
	return newS3ImageResolver(s3.NewPresignClient(client), bucket, ttl)
}

func newS3ImageResolver(presigner objectPresigner, bucket string, ttl time.Duration) *S3ImageResolver {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &S3ImageResolver{presigner: presigner, bucket: bucket, ttl: ttl}
}

// ResolveImageURL presigns a GET for key.
func (r *S3ImageResolver) ResolveImageURL(ctx context.Context, key string) (*string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	if isAbsoluteURL(key) {
		return &key, nil
	}
	req, err := r.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &r.bucket,
		Key:    &key,
	}, s3.WithPresignExpires(r.ttl))
	if err != nil {
		return nil, fmt.Errorf("doctors: presign image: %w", err)
	}
	return &req.URL, nil
}

// StaticImageResolver joins keys onto a public base URL such as a CDN.
type StaticImageResolver struct {
	BaseURL string
}

// ResolveImageURL joins key onto the base URL.
func (r StaticImageResolver) ResolveImageURL(ctx context.Context, key string) (*string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	if isAbsoluteURL(key) {
		return &key, nil
	}
	joined, err := url.JoinPath(r.BaseURL, key)
	if err != nil {
		return nil, fmt.Errorf("doctors: join image url: %w", err)
	}
	return &joined, nil
}

func isAbsoluteURL(key string) bool {
	return strings.HasPrefix(key, "https://") || strings.HasPrefix(key, "http://")
}
