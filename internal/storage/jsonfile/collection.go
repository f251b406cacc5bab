// Package jsonfile keeps each collection of records as a JSON array in its
// own file. Every operation reads the whole file; writes replace it.
//
// Writes from one process are serialized per collection. Two processes
// writing the same file can still lose an update; the application accepts
// that for its low write volume.
package jsonfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when no record has the requested id
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned by Insert when the id is taken
	ErrAlreadyExists = errors.New("record already exists")
)

// Record is implemented by pointer types of the stored structs
type Record[T any] interface {
	*T
	Identity() string
	Touch(time.Time)
}

// Collection is a set of records of type T stored in one JSON file
type Collection[T any, P Record[T]] struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewCollection binds a collection to a file. The file is created on first write.
func NewCollection[T any, P Record[T]](path string) *Collection[T, P] {
	return &Collection[T, P]{
		path: path,
		now:  func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
}

// Path returns the backing file path
func (c *Collection[T, P]) Path() string {
	return c.path
}

// List returns every record in file order
func (c *Collection[T, P]) List() ([]T, error) {
	var items []T
	if err := ReadJSONFile(c.path, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Find returns the records accepted by keep
func (c *Collection[T, P]) Find(keep func(*T) bool) ([]T, error) {
	items, err := c.List()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(items))
	for i := range items {
		if keep(&items[i]) {
			out = append(out, items[i])
		}
	}
	return out, nil
}

// Get returns the record with the given id
func (c *Collection[T, P]) Get(id string) (T, error) {
	var zero T
	items, err := c.List()
	if err != nil {
		return zero, err
	}
	for i := range items {
		if P(&items[i]).Identity() == id {
			return items[i], nil
		}
	}
	return zero, fmt.Errorf("%s %q: %w", c.name(), id, ErrNotFound)
}

// Insert appends a new record. The id must not already be present.
func (c *Collection[T, P]) Insert(item T) (T, error) {
	err := c.Mutate(func(items []T) ([]T, error) {
		id := P(&item).Identity()
		for i := range items {
			if P(&items[i]).Identity() == id {
				return nil, fmt.Errorf("%s %q: %w", c.name(), id, ErrAlreadyExists)
			}
		}
		P(&item).Touch(c.now())
		return append(items, item), nil
	})
	return item, err
}

// Upsert replaces the record with the same id, or appends it
func (c *Collection[T, P]) Upsert(item T) (T, error) {
	err := c.Mutate(func(items []T) ([]T, error) {
		P(&item).Touch(c.now())
		id := P(&item).Identity()
		for i := range items {
			if P(&items[i]).Identity() == id {
				items[i] = item
				return items, nil
			}
		}
		return append(items, item), nil
	})
	return item, err
}

// Update applies fn to the record with the given id and stores the result.
// An error from fn aborts the write.
func (c *Collection[T, P]) Update(id string, fn func(*T) error) (T, error) {
	var updated T
	err := c.Mutate(func(items []T) ([]T, error) {
		for i := range items {
			if P(&items[i]).Identity() != id {
				continue
			}
			if err := fn(&items[i]); err != nil {
				return nil, err
			}
			if P(&items[i]).Identity() != id {
				return nil, fmt.Errorf("%s %q: id cannot change", c.name(), id)
			}
			P(&items[i]).Touch(c.now())
			updated = items[i]
			return items, nil
		}
		return nil, fmt.Errorf("%s %q: %w", c.name(), id, ErrNotFound)
	})
	return updated, err
}

// Delete removes the record with the given id
func (c *Collection[T, P]) Delete(id string) error {
	return c.Mutate(func(items []T) ([]T, error) {
		for i := range items {
			if P(&items[i]).Identity() == id {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, fmt.Errorf("%s %q: %w", c.name(), id, ErrNotFound)
	})
}

// ReplaceAll overwrites the file with the given records
func (c *Collection[T, P]) ReplaceAll(items []T) error {
	return c.Mutate(func([]T) ([]T, error) {
		return items, nil
	})
}

// Mutate runs a read-modify-write cycle over the whole array. Returning an
// error from fn leaves the file untouched.
func (c *Collection[T, P]) Mutate(fn func([]T) ([]T, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.List()
	if err != nil {
		return err
	}
	next, err := fn(items)
	if err != nil {
		return err
	}
	if next == nil {
		next = []T{}
	}
	return WriteJSONFile(c.path, next)
}

func (c *Collection[T, P]) name() string {
	base := filepath.Base(c.path)
	return base[:len(base)-len(filepath.Ext(base))]
}

// ReadJSONFile decodes the file into v. A missing file leaves v untouched.
func ReadJSONFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// WriteJSONFile encodes v as indented JSON into a temp file next to path and
// renames it over path.
func WriteJSONFile(path string, v interface{}) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
