package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/kaito/photomirror/internal/destination"
)

// deleteObjects accepts at most 1000 keys per call
const deleteBatchSize = 1000

// Client mirrors photos into an S3-compatible bucket. It implements
// destination.Destination: a container is a key prefix inside the
// bucket, an upload token is a staging key, and finalization moves the
// staged object under the container prefix.
type Client struct {
	s3        *awss3.Client
	bucket    string
	prefix    string
	publicURL string
}

// Config holds S3-compatible storage settings.
type Config struct {
	Endpoint  string // empty for AWS S3 proper
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string
	Prefix    string // root prefix inside the bucket
	PublicURL string // public URL prefix for a CDN or website endpoint
}

// New creates a new S3 destination client.
func New(cfg *Config) (*Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			scheme := "http"
			if cfg.UseSSL {
				scheme = "https"
			}
			o.BaseEndpoint = aws.String(fmt.Sprintf("%s://%s", scheme, normalizeEndpoint(cfg.Endpoint)))
			// Path-style addressing for MinIO and friends
			o.UsePathStyle = true
		}
	})

	return &Client{
		s3:        client,
		bucket:    cfg.Bucket,
		prefix:    strings.Trim(cfg.Prefix, "/"),
		publicURL: strings.TrimSuffix(cfg.PublicURL, "/"),
	}, nil
}

// normalizeEndpoint removes protocol prefix, path, and trailing slashes
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	if idx := strings.Index(endpoint, "/"); idx != -1 {
		endpoint = endpoint[:idx]
	}
	return strings.TrimSuffix(endpoint, "/")
}

// EnsureContainer makes sure the bucket exists and returns the key
// prefix serving as the container id.
func (c *Client) EnsureContainer(ctx context.Context, name string) (string, error) {
	_, err := c.s3.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	if err != nil {
		var nf *types.NotFound
		if !errors.As(err, &nf) {
			return "", fmt.Errorf("head bucket %q: %w", c.bucket, err)
		}
		if _, err := c.s3.CreateBucket(ctx, &awss3.CreateBucketInput{Bucket: aws.String(c.bucket)}); err != nil {
			return "", fmt.Errorf("create bucket %q: %w", c.bucket, err)
		}
	}

	container := slugify(name)
	if c.prefix != "" {
		container = c.prefix + "/" + container
	}
	return container, nil
}

// Upload stages the bytes under a unique key and returns that key as
// the upload token.
func (c *Client) Upload(ctx context.Context, data []byte, filename string) (string, error) {
	stagingKey := path.Join("staging", uuid.New().String()+"_"+path.Base(filename))
	if c.prefix != "" {
		stagingKey = c.prefix + "/" + stagingKey
	}

	_, err := c.s3.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(stagingKey),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("upload %q: %w", filename, err)
	}
	return stagingKey, nil
}

// FinalizeItems copies each staged object under the container prefix
// and removes the staging copy. The final key is the item id.
func (c *Client) FinalizeItems(ctx context.Context, items []destination.NewItem, containerID string) ([]destination.ItemResult, error) {
	results := make([]destination.ItemResult, len(items))
	for i, it := range items {
		finalKey := containerID + "/" + path.Base(it.Filename)

		_, err := c.s3.CopyObject(ctx, &awss3.CopyObjectInput{
			Bucket:     aws.String(c.bucket),
			Key:        aws.String(finalKey),
			CopySource: aws.String(c.bucket + "/" + url.PathEscape(it.UploadToken)),
		})
		if err != nil {
			results[i] = destination.ItemResult{Err: fmt.Errorf("finalize %q: %w", it.Filename, err)}
			continue
		}

		// Staging object is garbage once copied; a failed cleanup is
		// not worth failing the item over.
		_, _ = c.s3.DeleteObject(ctx, &awss3.DeleteObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(it.UploadToken),
		})

		results[i] = destination.ItemResult{ItemID: finalKey, URL: c.urlFor(finalKey)}
	}
	return results, nil
}

// ListContainerItems lists all object keys under the container prefix.
func (c *Client) ListContainerItems(ctx context.Context, containerID string) ([]string, error) {
	var keys []string
	var continuation *string
	for {
		out, err := c.s3.ListObjectsV2(ctx, &awss3.ListObjectsV2Input{
			Bucket:            aws.String(c.bucket),
			Prefix:            aws.String(containerID + "/"),
			ContinuationToken: continuation,
		})
		if err != nil {
			return nil, fmt.Errorf("list objects under %q: %w", containerID, err)
		}
		for _, obj := range out.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		continuation = out.NextContinuationToken
	}
	return keys, nil
}

// DeleteItems bulk-deletes objects and reports per-key outcomes.
func (c *Client) DeleteItems(ctx context.Context, itemIDs []string, containerID string) (destination.DeleteResult, error) {
	result := destination.DeleteResult{Failed: make(map[string]string)}
	if len(itemIDs) == 0 {
		return result, nil
	}

	for start := 0; start < len(itemIDs); start += deleteBatchSize {
		end := start + deleteBatchSize
		if end > len(itemIDs) {
			end = len(itemIDs)
		}
		batch := itemIDs[start:end]

		objects := make([]types.ObjectIdentifier, 0, len(batch))
		for _, id := range batch {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(id)})
		}

		out, err := c.s3.DeleteObjects(ctx, &awss3.DeleteObjectsInput{
			Bucket: aws.String(c.bucket),
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(false)},
		})
		if err != nil {
			for _, id := range batch {
				result.Failed[id] = err.Error()
			}
			continue
		}

		failed := make(map[string]string, len(out.Errors))
		for _, e := range out.Errors {
			failed[aws.ToString(e.Key)] = aws.ToString(e.Message)
		}
		for _, id := range batch {
			if msg, ok := failed[id]; ok {
				result.Failed[id] = msg
			} else {
				result.Deleted = append(result.Deleted, id)
			}
		}
	}
	return result, nil
}

func (c *Client) urlFor(key string) string {
	if c.publicURL != "" {
		return c.publicURL + "/" + key
	}
	return fmt.Sprintf("s3://%s/%s", c.bucket, key)
}

// slugify lowercases a name and collapses anything outside [a-z0-9._-]
// into single dashes, keeping keys portable across S3 implementations.
func slugify(name string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_':
			b.WriteRune(r)
			lastDash = false
		default:
			// Dashes and any non-slug rune collapse into one separator.
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
