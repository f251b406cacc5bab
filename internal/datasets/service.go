package datasets

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"property-manager/internal/common"
	"property-manager/internal/models"
	"property-manager/internal/reports"
	"property-manager/internal/storage/block"
	"property-manager/internal/storage/jsonfile"
	"property-manager/internal/store"
)

const (
	DefaultPreviewRows = 20
	MaxPreviewRows     = 500
	MaxColumns         = 256
)

// ReportSource renders a named report for a month
type ReportSource interface {
	Build(ctx context.Context, name, month string) (reports.Table, error)
}

// Service manages the dataset catalogue
type Service struct {
	store   *store.Store
	blobs   block.Storage
	engine  *Engine
	reports ReportSource
	logger  *zap.Logger
}

// NewService creates a dataset service
func NewService(s *store.Store, blobs block.Storage, engine *Engine, reports ReportSource, logger *zap.Logger) *Service {
	return &Service{store: s, blobs: blobs, engine: engine, reports: reports, logger: logger}
}

// List returns every dataset
func (s *Service) List() ([]models.Dataset, error) {
	return s.store.Datasets.List()
}

// Get returns one dataset
func (s *Service) Get(id string) (models.Dataset, error) {
	return s.store.Datasets.Get(id)
}

// Upload validates r as CSV with a header row and stores it as a new dataset
func (s *Service) Upload(ctx context.Context, name, description string, r io.Reader) (models.Dataset, error) {
	if strings.TrimSpace(name) == "" {
		return models.Dataset{}, common.ErrInvalidInputError("name is required")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return models.Dataset{}, fmt.Errorf("failed to read upload: %w", err)
	}
	return s.create(ctx, name, description, "upload", data)
}

// Snapshot renders a report to CSV and stores it as a new dataset. An empty
// name is derived from the report and month.
func (s *Service) Snapshot(ctx context.Context, report, month, name string) (models.Dataset, error) {
	table, err := s.reports.Build(ctx, report, month)
	if err != nil {
		return models.Dataset{}, err
	}
	if len(table.Rows) == 0 {
		return models.Dataset{}, common.ErrInvalidInputf("report %s has no rows", report)
	}

	var buf bytes.Buffer
	if err := reports.WriteCSV(&buf, table); err != nil {
		return models.Dataset{}, err
	}
	if name == "" {
		name = report
		if month != "" {
			name += " " + month
		}
	}
	return s.create(ctx, name, "", "snapshot:"+report, buf.Bytes())
}

func (s *Service) create(ctx context.Context, name, description, source string, data []byte) (models.Dataset, error) {
	columns, rows, err := Inspect(bytes.NewReader(data))
	if err != nil {
		return models.Dataset{}, err
	}

	id := common.GenerateID()
	key := block.DatasetKey(id)
	meta, err := s.blobs.Put(ctx, key, bytes.NewReader(data), "text/csv")
	if err != nil {
		return models.Dataset{}, fmt.Errorf("failed to store dataset: %w", err)
	}

	now := common.Now()
	ds, err := s.store.Datasets.Insert(models.Dataset{
		ID:          id,
		Name:        strings.TrimSpace(name),
		Description: description,
		Source:      source,
		StorageKey:  key,
		Columns:     columns,
		RowCount:    rows,
		Size:        meta.Size,
		CreatedAt:   now,
	})
	if err != nil {
		if derr := s.blobs.Delete(ctx, key); derr != nil {
			s.logger.Warn("Failed to remove orphaned dataset blob", zap.String("key", key), zap.Error(derr))
		}
		return models.Dataset{}, err
	}
	return ds, nil
}

// Inspect checks that r is CSV with a non-empty, unique header row and
// returns the columns and the number of data rows
func Inspect(r io.Reader) ([]string, int, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, common.ErrInvalidInputError("csv is empty")
	}
	if err != nil {
		return nil, 0, common.NewErrorWithCause(common.ErrInvalidInput, "invalid csv header", err)
	}
	if len(header) > MaxColumns {
		return nil, 0, common.ErrInvalidInputf("csv has %d columns, limit is %d", len(header), MaxColumns)
	}

	seen := make(map[string]bool, len(header))
	for i, col := range header {
		col = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		if col == "" {
			return nil, 0, common.ErrInvalidInputf("column %d has an empty name", i+1)
		}
		if seen[col] {
			return nil, 0, common.ErrInvalidInputf("duplicate column %q", col)
		}
		seen[col] = true
		header[i] = col
	}

	rows := 0
	for {
		_, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, common.NewErrorWithCause(common.ErrInvalidInput, "invalid csv", err)
		}
		rows++
	}
	return header, rows, nil
}

// Preview returns up to limit rows of the dataset as typed by DuckDB
func (s *Service) Preview(ctx context.Context, id string, limit int) (*Preview, error) {
	if limit <= 0 {
		limit = DefaultPreviewRows
	}
	if limit > MaxPreviewRows {
		limit = MaxPreviewRows
	}

	var out *Preview
	err := s.withLocalCopy(ctx, id, func(path string) error {
		p, err := s.engine.Preview(ctx, path, limit)
		out = p
		return err
	})
	return out, err
}

// Count returns the number of data rows as counted by DuckDB
func (s *Service) Count(ctx context.Context, id string) (int64, error) {
	var n int64
	err := s.withLocalCopy(ctx, id, func(path string) error {
		c, err := s.engine.Count(ctx, path)
		n = c
		return err
	})
	return n, err
}

// Open returns the dataset record and a reader over its CSV content
func (s *Service) Open(ctx context.Context, id string) (models.Dataset, io.ReadCloser, error) {
	ds, err := s.store.Datasets.Get(id)
	if err != nil {
		return models.Dataset{}, nil, err
	}
	rc, err := s.blobs.Reader(ctx, ds.StorageKey)
	if err != nil {
		return models.Dataset{}, nil, err
	}
	return ds, rc, nil
}

// Delete removes the dataset record and its blob. A blob that is already
// gone does not fail the delete.
func (s *Service) Delete(ctx context.Context, id string) error {
	ds, err := s.store.Datasets.Get(id)
	if err != nil {
		return err
	}
	if err := s.store.Datasets.Delete(id); err != nil && !errors.Is(err, jsonfile.ErrNotFound) {
		return err
	}
	if err := s.blobs.Delete(ctx, ds.StorageKey); err != nil && !block.IsNotFound(err) {
		return fmt.Errorf("failed to delete dataset blob: %w", err)
	}
	return nil
}

// withLocalCopy copies the dataset blob into a temp file for DuckDB
func (s *Service) withLocalCopy(ctx context.Context, id string, fn func(path string) error) error {
	_, rc, err := s.Open(ctx, id)
	if err != nil {
		return err
	}
	defer rc.Close()

	tmp, err := os.CreateTemp("", "dataset-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to copy dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to copy dataset: %w", err)
	}
	return fn(tmp.Name())
}
