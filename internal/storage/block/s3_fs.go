package block

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"property-manager/internal/config"
)

// objectAPI is the subset of the S3 client used here
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3FS implements the Storage interface for Amazon S3 and compatible stores
type S3FS struct {
	client objectAPI
	bucket string
	prefix string
}

// NewS3FS creates an S3 storage using the default AWS credential chain
func NewS3FS(ctx context.Context, cfg config.S3Config) (*S3FS, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required for S3 storage")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3FS(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3FS(client objectAPI, bucket, prefix string) *S3FS {
	return &S3FS{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// Put uploads the blob in a single request
func (s3fs *S3FS) Put(ctx context.Context, key string, r io.Reader, contentType string) (*Metadata, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	// PutObject needs a seekable body to sign the payload
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, &StorageError{Op: "read", Key: key, Err: err}
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s3fs.bucket),
		Key:           aws.String(s3fs.objectKey(key)),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	output, err := s3fs.client.PutObject(ctx, input)
	if err != nil {
		return nil, &StorageError{Op: "put", Key: key, Err: err}
	}

	return &Metadata{
		Key:         key,
		Size:        int64(len(body)),
		ETag:        strings.Trim(aws.ToString(output.ETag), `"`),
		ContentType: contentType,
	}, nil
}

// Reader returns the object body
func (s3fs *S3FS) Reader(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	output, err := s3fs.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s3fs.bucket),
		Key:    aws.String(s3fs.objectKey(key)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, &StorageError{Op: "get", Key: key, Err: ErrNotFound}
		}
		return nil, &StorageError{Op: "get", Key: key, Err: err}
	}
	return output.Body, nil
}

// Stat returns metadata for the specified key
func (s3fs *S3FS) Stat(ctx context.Context, key string) (*Metadata, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	output, err := s3fs.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s3fs.bucket),
		Key:    aws.String(s3fs.objectKey(key)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, &StorageError{Op: "head", Key: key, Err: ErrNotFound}
		}
		return nil, &StorageError{Op: "head", Key: key, Err: err}
	}

	meta := &Metadata{
		Key:         key,
		Size:        aws.ToInt64(output.ContentLength),
		ETag:        strings.Trim(aws.ToString(output.ETag), `"`),
		ContentType: aws.ToString(output.ContentType),
	}
	if output.LastModified != nil {
		meta.ModTime = output.LastModified.Unix()
	}
	return meta, nil
}

// List returns metadata for all objects under prefix, sorted by key
func (s3fs *S3FS) List(ctx context.Context, prefix string) ([]*Metadata, error) {
	results := []*Metadata{}
	paginator := s3.NewListObjectsV2Paginator(s3fs.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s3fs.bucket),
		Prefix: aws.String(s3fs.objectKey(prefix)),
	})

	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, &StorageError{Op: "list", Key: prefix, Err: err}
		}

		for _, object := range output.Contents {
			meta := &Metadata{
				Key:  s3fs.relativeKey(aws.ToString(object.Key)),
				Size: aws.ToInt64(object.Size),
				ETag: strings.Trim(aws.ToString(object.ETag), `"`),
			}
			if object.LastModified != nil {
				meta.ModTime = object.LastModified.Unix()
			}
			results = append(results, meta)
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Key < results[j].Key })
	return results, nil
}

// Delete removes the object. S3 does not report missing keys on delete, so
// a HeadObject runs first to keep the local backend's semantics.
func (s3fs *S3FS) Delete(ctx context.Context, key string) error {
	if _, err := s3fs.Stat(ctx, key); err != nil {
		return err
	}

	_, err := s3fs.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s3fs.bucket),
		Key:    aws.String(s3fs.objectKey(key)),
	})
	if err != nil {
		return &StorageError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

// Health lists at most one object to test connectivity and credentials
func (s3fs *S3FS) Health(ctx context.Context) error {
	_, err := s3fs.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s3fs.bucket),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return fmt.Errorf("S3 health check failed: %w", err)
	}
	return nil
}

func (s3fs *S3FS) objectKey(key string) string {
	if s3fs.prefix == "" {
		return key
	}
	return s3fs.prefix + "/" + key
}

func (s3fs *S3FS) relativeKey(objectKey string) string {
	if s3fs.prefix == "" {
		return objectKey
	}
	return strings.TrimPrefix(objectKey, s3fs.prefix+"/")
}

func isS3NotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return true
	}
	return strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "NotFound")
}
