// Package block stores opaque blobs (uploaded documents, dataset CSV files)
// on the local filesystem or in S3.
package block

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"property-manager/internal/config"
)

// Storage defines the blob operations used by documents and datasets
type Storage interface {
	// Put stores the content read from r under key, replacing any existing blob
	Put(ctx context.Context, key string, r io.Reader, contentType string) (*Metadata, error)

	// Reader opens the blob for reading
	Reader(ctx context.Context, key string) (io.ReadCloser, error)

	Stat(ctx context.Context, key string) (*Metadata, error)
	List(ctx context.Context, prefix string) ([]*Metadata, error)
	Delete(ctx context.Context, key string) error

	// Health checks that the backend is reachable and writable
	Health(ctx context.Context) error
}

// Metadata describes a stored blob
type Metadata struct {
	Key         string
	Size        int64
	ModTime     int64
	ETag        string
	ContentType string
}

// New creates the storage backend selected in the configuration
func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Backend {
	case "local", "":
		return NewLocalFS(cfg.BlobDir)
	case "s3":
		return NewS3FS(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}

// StorageError represents storage-specific errors
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

var (
	// ErrNotFound is wrapped by every backend when a key does not exist
	ErrNotFound = errors.New("blob not found")
	// ErrInvalidKey rejects empty keys and keys escaping the namespace
	ErrInvalidKey = errors.New("invalid key")
)

// IsNotFound checks if an error indicates a missing blob
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ValidateKey accepts slash-separated relative keys without dot segments
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return &StorageError{Op: "validate", Key: key, Err: ErrInvalidKey}
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return &StorageError{Op: "validate", Key: key, Err: ErrInvalidKey}
		}
	}
	return nil
}

// DocumentKey is the blob key of an uploaded document
func DocumentKey(subjectType, subjectID, documentID string) string {
	return fmt.Sprintf("documents/%s/%s/%s", subjectType, subjectID, documentID)
}

// DatasetKey is the blob key of a dataset CSV file
func DatasetKey(datasetID string) string {
	return fmt.Sprintf("datasets/%s.csv", datasetID)
}
