// Package s3 opens S3 objects as streams for checksum computation.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/MyCarrier-DevOps/repo-sync/internal/domain"
)

const uriScheme = "s3://"

// GetObjectAPI is the subset of the S3 client used by ObjectOpener.
type GetObjectAPI interface {
	GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
}

// Object is an open S3 object body. Size is -1 when S3 did not report it.
type Object struct {
	io.ReadCloser
	Size int64
}

// ObjectOpener streams objects addressed by s3://bucket/key.
type ObjectOpener struct {
	client GetObjectAPI
}

// NewObjectOpener creates an ObjectOpener over client.
func NewObjectOpener(client GetObjectAPI) *ObjectOpener {
	return &ObjectOpener{client: client}
}

// LoadObjectOpener builds an ObjectOpener from the default AWS credential
// chain. Empty profile or region leave the SDK defaults in place.
func LoadObjectOpener(ctx context.Context, profile, region string) (*ObjectOpener, error) {
	var configOpts []func(*awsconfig.LoadOptions) error
	if profile != "" {
		configOpts = append(configOpts, awsconfig.WithSharedConfigProfile(profile))
	}
	if region != "" {
		configOpts = append(configOpts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewObjectOpener(awss3.NewFromConfig(cfg)), nil
}

// IsObjectURI reports whether s names an S3 object.
func IsObjectURI(s string) bool {
	return strings.HasPrefix(s, uriScheme)
}

// ParseObjectURI splits s3://bucket/key.
func ParseObjectURI(uri string) (bucket, key string, err error) {
	if !IsObjectURI(uri) {
		return "", "", fmt.Errorf("invalid S3 URI %q: must start with %s", uri, uriScheme)
	}

	bucket, key, _ = strings.Cut(strings.TrimPrefix(uri, uriScheme), "/")
	if bucket == "" {
		return "", "", fmt.Errorf("invalid S3 URI %q: missing bucket name", uri)
	}
	if key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("invalid S3 URI %q: missing object key", uri)
	}
	return bucket, key, nil
}

// Open starts a GetObject request and returns the body. The body is not
// seekable, so checksum progress reports an unknown length.
func (o *ObjectOpener) Open(ctx context.Context, uri string) (*Object, error) {
	bucket, key, err := ParseObjectURI(uri)
	if err != nil {
		return nil, err
	}

	resp, err := o.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, uri)
		}
		return nil, fmt.Errorf("failed to get object %s: %w", uri, err)
	}

	size := int64(-1)
	if resp.ContentLength != nil {
		size = aws.ToInt64(resp.ContentLength)
	}
	return &Object{ReadCloser: resp.Body, Size: size}, nil
}
