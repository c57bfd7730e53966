package iocache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/huangsam/vitals/internal/contract"
	"github.com/huangsam/vitals/schema"
)

// S3API is the subset of the S3 client used by the artifact store.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3ArtifactStore keeps one JSON object per client in an S3 bucket.
type S3ArtifactStore struct {
	client S3API
	bucket string
	prefix string
}

var _ contract.ArtifactStore = &S3ArtifactStore{} // Compile-time check

// NewS3ArtifactStore builds an S3 client from the default AWS credential chain.
// A non-empty endpoint targets an S3-compatible server with path-style addressing.
func NewS3ArtifactStore(ctx context.Context, bucket, prefix, region, endpoint string) (*S3ArtifactStore, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for S3 artifact store: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3ArtifactStoreWithClient(client, bucket, prefix), nil
}

// NewS3ArtifactStoreWithClient wraps an existing client.
func NewS3ArtifactStoreWithClient(client S3API, bucket, prefix string) *S3ArtifactStore {
	return &S3ArtifactStore{client: client, bucket: bucket, prefix: prefix}
}

func (ss *S3ArtifactStore) key(clientID string) string {
	return path.Join(ss.prefix, clientID+".json")
}

// Put uploads the artifact. S3 replaces an object atomically.
func (ss *S3ArtifactStore) Put(ctx context.Context, artifact schema.CachedArtifact) error {
	body, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("failed to encode artifact for client %s: %w", artifact.ClientID, err)
	}
	key := ss.key(artifact.ClientID)
	_, err = ss.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(ss.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("S3 PutObject %s/%s: %w", ss.bucket, key, err)
	}
	return nil
}

// Get downloads the client's artifact.
func (ss *S3ArtifactStore) Get(ctx context.Context, clientID string) (schema.CachedArtifact, error) {
	key := ss.key(clientID)
	resp, err := ss.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(ss.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return schema.CachedArtifact{}, contract.ErrArtifactNotFound
		}
		return schema.CachedArtifact{}, fmt.Errorf("S3 GetObject %s/%s: %w", ss.bucket, key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return schema.CachedArtifact{}, fmt.Errorf("failed to read S3 object body: %w", err)
	}
	var artifact schema.CachedArtifact
	if err := json.Unmarshal(body, &artifact); err != nil {
		return schema.CachedArtifact{}, fmt.Errorf("failed to decode artifact %s: %w", key, err)
	}
	return artifact, nil
}

// Delete removes the client's object. S3 treats a missing key as success.
func (ss *S3ArtifactStore) Delete(ctx context.Context, clientID string) error {
	key := ss.key(clientID)
	_, err := ss.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(ss.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("S3 DeleteObject %s/%s: %w", ss.bucket, key, err)
	}
	return nil
}

// GetStatus lists the prefix and reports object count, age range and total size.
func (ss *S3ArtifactStore) GetStatus() (schema.CacheStatus, error) {
	status := schema.CacheStatus{
		Backend:   string(schema.S3Backend),
		Connected: ss.client != nil,
	}
	if ss.client == nil {
		return status, nil
	}

	paginator := s3.NewListObjectsV2Paginator(ss.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(ss.bucket),
		Prefix: aws.String(ss.prefix + "/"),
	})
	ctx := context.Background()
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return status, fmt.Errorf("S3 ListObjectsV2 %s/%s: %w", ss.bucket, ss.prefix, err)
		}
		for _, obj := range page.Contents {
			modified := aws.ToTime(obj.LastModified)
			status.TotalEntries++
			status.TableSizeBytes += aws.ToInt64(obj.Size)
			if modified.After(status.LastEntryTime) {
				status.LastEntryTime = modified
			}
			if status.OldestEntryTime.IsZero() || modified.Before(status.OldestEntryTime) {
				status.OldestEntryTime = modified
			}
		}
	}
	return status, nil
}

// Clear deletes every artifact object under the prefix.
func (ss *S3ArtifactStore) Clear(ctx context.Context) error {
	paginator := s3.NewListObjectsV2Paginator(ss.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(ss.bucket),
		Prefix: aws.String(ss.prefix + "/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("S3 ListObjectsV2 %s/%s: %w", ss.bucket, ss.prefix, err)
		}
		for _, obj := range page.Contents {
			if _, err := ss.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(ss.bucket),
				Key:    obj.Key,
			}); err != nil && !isNotFound(err) {
				return fmt.Errorf("S3 DeleteObject %s/%s: %w", ss.bucket, aws.ToString(obj.Key), err)
			}
		}
	}
	return nil
}

// Close is a no-op; the S3 client holds no connection of its own.
func (ss *S3ArtifactStore) Close() error {
	return nil
}

// isNotFound reports whether err means the object does not exist.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
