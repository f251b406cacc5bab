// Package audit records who changed what as an append-only trail.
package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Actions
const (
	ActionCreate       = "create"
	ActionUpdate       = "update"
	ActionDelete       = "delete"
	ActionLogin        = "login"
	ActionLoginFailed  = "login_failed"
	ActionStatusChange = "onboarding.status"
	ActionNoticeSent   = "notice.sent"
	ActionImport       = "ledger.import"
	ActionMatch        = "ledger.match"
)

// Event is one audit entry
type Event struct {
	Timestamp time.Time              `json:"timestamp"`
	Action    string                 `json:"action"`
	Actor     string                 `json:"actor"`
	Subject   string                 `json:"subject"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Publisher records audit events
type Publisher interface {
	Publish(ctx context.Context, event Event) error

	// Recent returns up to limit events, newest first
	Recent(ctx context.Context, limit int) ([]Event, error)

	Close() error
}

// FilePublisher appends events as JSON lines to a file
type FilePublisher struct {
	path string
	mu   sync.Mutex
	file *os.File
}

// NewFilePublisher opens path for appending, creating it if needed
func NewFilePublisher(path string) (*FilePublisher, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	return &FilePublisher{path: path, file: f}, nil
}

// Publish writes one line per event
func (p *FilePublisher) Publish(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return fmt.Errorf("audit publisher is closed")
	}
	if _, err := p.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write audit event: %w", err)
	}
	return nil
}

// Recent reads the file and returns the newest limit events
func (p *FilePublisher) Recent(ctx context.Context, limit int) ([]Event, error) {
	return Read(p.path, limit)
}

func (p *FilePublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return nil
	}
	err := p.file.Close()
	p.file = nil
	return err
}

// Read returns up to limit events from a JSONL file, newest first. Lines that
// do not decode are skipped. A missing file has no events.
func Read(path string, limit int) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Event{}, nil
		}
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil || e.Action == "" {
			continue
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	return newest(events, limit), nil
}

func newest(events []Event, limit int) []Event {
	if limit <= 0 || limit > len(events) {
		limit = len(events)
	}
	out := make([]Event, 0, limit)
	for i := len(events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, events[i])
	}
	return out
}

// MemoryPublisher keeps events in memory
type MemoryPublisher struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (m *MemoryPublisher) Publish(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MemoryPublisher) Recent(ctx context.Context, limit int) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newest(m.events, limit), nil
}

// Events returns a copy of every event in publish order
func (m *MemoryPublisher) Events() []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

func (m *MemoryPublisher) Close() error { return nil }

// Recorder publishes events and logs failures instead of returning them.
// Handlers call it after a write has already succeeded.
type Recorder struct {
	publisher Publisher
	logger    *zap.Logger
}

func NewRecorder(p Publisher, logger *zap.Logger) *Recorder {
	return &Recorder{publisher: p, logger: logger}
}

// Record publishes one event. A nil Recorder records nothing.
func (r *Recorder) Record(ctx context.Context, action, actor, subject string, details map[string]interface{}) {
	if r == nil {
		return
	}
	err := r.publisher.Publish(ctx, Event{
		Timestamp: time.Now().UTC(),
		Action:    action,
		Actor:     actor,
		Subject:   subject,
		Details:   details,
	})
	if err != nil {
		r.logger.Error("Failed to record audit event",
			zap.String("action", action),
			zap.String("subject", subject),
			zap.Error(err))
	}
}

// Recent returns the newest events
func (r *Recorder) Recent(ctx context.Context, limit int) ([]Event, error) {
	if r == nil {
		return []Event{}, nil
	}
	return r.publisher.Recent(ctx, limit)
}
