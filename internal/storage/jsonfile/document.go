package jsonfile

import (
	"sync"
	"time"
)

// Toucher is implemented by singleton records that carry an update timestamp
type Toucher interface {
	Touch(time.Time)
}

// Document is a single JSON object stored in its own file, such as settings
type Document[T any] struct {
	path     string
	defaults func() T
	mu       sync.Mutex
}

// NewDocument binds a document to a file. defaults supplies the value
// returned while the file does not exist.
func NewDocument[T any](path string, defaults func() T) *Document[T] {
	return &Document[T]{path: path, defaults: defaults}
}

// Load reads the document
func (d *Document[T]) Load() (T, error) {
	v := d.defaults()
	if err := ReadJSONFile(d.path, &v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// Save writes the document, stamping it when it implements Toucher
func (d *Document[T]) Save(v T) (T, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := any(&v).(Toucher); ok {
		t.Touch(time.Now().UTC().Truncate(time.Second))
	}
	if err := WriteJSONFile(d.path, v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}
