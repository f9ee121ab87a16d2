package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// Scheme is the URL scheme of object storage locations.
const Scheme = "s3://"

// ErrNotFound is returned when a bucket or object does not exist.
var ErrNotFound = errors.New("object not found")

// Location is a parsed s3://bucket/key URL.
type Location struct {
	Bucket string
	Key    string
}

func (l Location) String() string {
	return Scheme + l.Bucket + "/" + l.Key
}

// IsLocation reports whether s refers to object storage.
func IsLocation(s string) bool {
	return strings.HasPrefix(s, Scheme)
}

// ParseLocation splits an s3://bucket/key URL.
// The key may be empty, which addresses the whole bucket.
func ParseLocation(s string) (Location, error) {
	if !IsLocation(s) {
		return Location{}, fmt.Errorf("invalid object storage location %q: missing %s prefix", s, Scheme)
	}
	bucket, key, _ := strings.Cut(strings.TrimPrefix(s, Scheme), "/")
	if bucket == "" {
		return Location{}, fmt.Errorf("invalid object storage location %q: missing bucket", s)
	}
	return Location{Bucket: bucket, Key: key}, nil
}

// Client wraps the S3 client used to fetch secrets.
type Client struct {
	s3     *s3.Client
	region string
}

// NewClient creates a new S3 client. An empty endpoint selects AWS itself;
// any other endpoint is addressed path-style, as most S3-compatible
// servers expect.
func NewClient(ctx context.Context, endpoint, region, accessKey, secretKey string) (*Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if accessKey != "" || secretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &Client{s3: client, region: region}, nil
}

// Get downloads the object at loc.
func (c *Client) Get(ctx context.Context, loc Location) ([]byte, error) {
	result, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, fmt.Errorf("failed to get %s: %w", loc, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get %s: %w", loc, err)
	}
	defer func() { _ = result.Body.Close() }()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(result.Body); err != nil {
		return nil, fmt.Errorf("failed to read object body of %s: %w", loc, err)
	}

	return buf.Bytes(), nil
}

// List returns the keys below loc, following continuation tokens.
// Keys are returned relative to loc.Key.
func (c *Client) List(ctx context.Context, loc Location) ([]string, error) {
	prefix := loc.Key
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(loc.Bucket),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(c.s3, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			if isNotFoundError(err) {
				return nil, fmt.Errorf("failed to list %s: %w", loc, ErrNotFound)
			}
			return nil, fmt.Errorf("failed to list %s: %w", loc, err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			name := strings.TrimPrefix(*obj.Key, prefix)
			if name == "" {
				continue
			}
			keys = append(keys, name)
		}
	}
	return keys, nil
}

// isNotFoundError checks if the error is a not found error.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}

	// Check for typed S3 errors first
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}

	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}

	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}

	// Fall back to API error code checking for S3-compatible services
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchBucket" || code == "NoSuchKey" || code == "404"
	}

	return false
}
