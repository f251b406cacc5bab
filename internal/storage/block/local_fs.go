package block

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// LocalFS implements the Storage interface for local filesystem
type LocalFS struct {
	baseDir string
}

// NewLocalFS creates a new local filesystem storage rooted at baseDir
func NewLocalFS(baseDir string) (*LocalFS, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("blob directory is required for local storage")
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}

	return &LocalFS{baseDir: baseDir}, nil
}

// Put writes the blob through a temp file so readers never see partial content
func (lfs *LocalFS) Put(ctx context.Context, key string, r io.Reader, contentType string) (*Metadata, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	fullPath := lfs.fullPath(key)

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &StorageError{Op: "mkdir", Key: key, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return nil, &StorageError{Op: "create", Key: key, Err: err}
	}
	defer os.Remove(tmp.Name())

	hash := md5.New()
	size, err := io.Copy(io.MultiWriter(tmp, hash), contextReader{ctx: ctx, r: r})
	if err != nil {
		tmp.Close()
		return nil, &StorageError{Op: "write", Key: key, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return nil, &StorageError{Op: "write", Key: key, Err: err}
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return nil, &StorageError{Op: "rename", Key: key, Err: err}
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, &StorageError{Op: "stat", Key: key, Err: err}
	}
	return &Metadata{
		Key:         key,
		Size:        size,
		ModTime:     info.ModTime().Unix(),
		ETag:        hex.EncodeToString(hash.Sum(nil)),
		ContentType: contentType,
	}, nil
}

// Reader returns a reader for the specified key
func (lfs *LocalFS) Reader(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	file, err := os.Open(lfs.fullPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &StorageError{Op: "open", Key: key, Err: ErrNotFound}
		}
		return nil, &StorageError{Op: "open", Key: key, Err: err}
	}
	return file, nil
}

// Stat returns metadata for the specified key
func (lfs *LocalFS) Stat(ctx context.Context, key string) (*Metadata, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	info, err := os.Stat(lfs.fullPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &StorageError{Op: "stat", Key: key, Err: ErrNotFound}
		}
		return nil, &StorageError{Op: "stat", Key: key, Err: err}
	}

	return &Metadata{
		Key:     key,
		Size:    info.Size(),
		ModTime: info.ModTime().Unix(),
	}, nil
}

// List returns metadata for all blobs under prefix, sorted by key
func (lfs *LocalFS) List(ctx context.Context, prefix string) ([]*Metadata, error) {
	root := lfs.baseDir
	if prefix != "" {
		root = lfs.fullPath(prefix)
	}

	results := []*Metadata{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Base(path)[0] == '.' {
			return nil
		}

		rel, err := filepath.Rel(lfs.baseDir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		results = append(results, &Metadata{
			Key:     filepath.ToSlash(rel),
			Size:    info.Size(),
			ModTime: info.ModTime().Unix(),
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []*Metadata{}, nil
		}
		return nil, &StorageError{Op: "list", Key: prefix, Err: err}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Key < results[j].Key })
	return results, nil
}

// Delete removes the blob at the specified key
func (lfs *LocalFS) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	if err := os.Remove(lfs.fullPath(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &StorageError{Op: "delete", Key: key, Err: ErrNotFound}
		}
		return &StorageError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

// Health checks that the base directory exists and is writable
func (lfs *LocalFS) Health(ctx context.Context) error {
	info, err := os.Stat(lfs.baseDir)
	if err != nil {
		return fmt.Errorf("blob directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("blob path is not a directory")
	}

	probe, err := os.CreateTemp(lfs.baseDir, ".health-*")
	if err != nil {
		return fmt.Errorf("cannot write to blob directory: %w", err)
	}
	probe.Close()
	return os.Remove(probe.Name())
}

func (lfs *LocalFS) fullPath(key string) string {
	return filepath.Join(lfs.baseDir, filepath.FromSlash(key))
}

// contextReader stops a copy once the request is cancelled
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
