// Package store opens every JSON collection of the application inside one
// data directory.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"property-manager/internal/common"
	"property-manager/internal/models"
	"property-manager/internal/storage/jsonfile"
)

// File names inside the data directory
const (
	PropertiesFile  = "properties.json"
	TenantsFile     = "tenants.json"
	OrgsFile        = "tenant_orgs.json"
	LeasesFile      = "leases.json"
	CheckpointsFile = "checkpoints.json"
	DocumentsFile   = "documents.json"
	NoticesFile     = "notices.json"
	DatasetsFile    = "datasets.json"
	UsersFile       = "users.json"
	SettingsFile    = "settings.json"
)

// Store groups the JSON collections
type Store struct {
	dir string

	Properties  *jsonfile.Collection[models.Property, *models.Property]
	Tenants     *jsonfile.Collection[models.Tenant, *models.Tenant]
	Orgs        *jsonfile.Collection[models.TenantOrg, *models.TenantOrg]
	Leases      *jsonfile.Collection[models.Lease, *models.Lease]
	Checkpoints *jsonfile.Collection[models.OnboardingCheckpoint, *models.OnboardingCheckpoint]
	Documents   *jsonfile.Collection[models.Document, *models.Document]
	Notices     *jsonfile.Collection[models.Notice, *models.Notice]
	Datasets    *jsonfile.Collection[models.Dataset, *models.Dataset]
	Users       *jsonfile.Collection[models.User, *models.User]
	Settings    *jsonfile.Document[models.Settings]
}

// Open binds every collection to its file under dir, creating dir if needed
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	path := func(name string) string { return filepath.Join(dir, name) }
	return &Store{
		dir:         dir,
		Properties:  jsonfile.NewCollection[models.Property](path(PropertiesFile)),
		Tenants:     jsonfile.NewCollection[models.Tenant](path(TenantsFile)),
		Orgs:        jsonfile.NewCollection[models.TenantOrg](path(OrgsFile)),
		Leases:      jsonfile.NewCollection[models.Lease](path(LeasesFile)),
		Checkpoints: jsonfile.NewCollection[models.OnboardingCheckpoint](path(CheckpointsFile)),
		Documents:   jsonfile.NewCollection[models.Document](path(DocumentsFile)),
		Notices:     jsonfile.NewCollection[models.Notice](path(NoticesFile)),
		Datasets:    jsonfile.NewCollection[models.Dataset](path(DatasetsFile)),
		Users:       jsonfile.NewCollection[models.User](path(UsersFile)),
		Settings:    jsonfile.NewDocument(path(SettingsFile), models.DefaultSettings),
	}, nil
}

// Dir returns the data directory
func (s *Store) Dir() string {
	return s.dir
}

// Health checks that the data directory is readable and every collection decodes
func (s *Store) Health(ctx context.Context) error {
	if _, err := os.Stat(s.dir); err != nil {
		return fmt.Errorf("data directory not accessible: %w", err)
	}
	if _, err := s.Users.List(); err != nil {
		return err
	}
	_, err := s.Settings.Load()
	return err
}

// Counts returns the number of records per collection
func (s *Store) Counts() (map[string]int, error) {
	counts := map[string]int{}
	add := func(name string, n int, err error) error {
		if err != nil {
			return err
		}
		counts[name] = n
		return nil
	}

	properties, err := s.Properties.List()
	if err := add("properties", len(properties), err); err != nil {
		return nil, err
	}
	tenants, err := s.Tenants.List()
	if err := add("tenants", len(tenants), err); err != nil {
		return nil, err
	}
	orgs, err := s.Orgs.List()
	if err := add("orgs", len(orgs), err); err != nil {
		return nil, err
	}
	leases, err := s.Leases.List()
	if err := add("leases", len(leases), err); err != nil {
		return nil, err
	}
	documents, err := s.Documents.List()
	if err := add("documents", len(documents), err); err != nil {
		return nil, err
	}
	notices, err := s.Notices.List()
	if err := add("notices", len(notices), err); err != nil {
		return nil, err
	}
	datasets, err := s.Datasets.List()
	if err := add("datasets", len(datasets), err); err != nil {
		return nil, err
	}
	users, err := s.Users.List()
	if err := add("users", len(users), err); err != nil {
		return nil, err
	}
	return counts, nil
}

// SubjectExists reports whether the record a document or notice points at exists
func (s *Store) SubjectExists(subjectType, id string) (bool, error) {
	var err error
	switch subjectType {
	case "tenant":
		_, err = s.Tenants.Get(id)
	case "org":
		_, err = s.Orgs.Get(id)
	case "lease":
		_, err = s.Leases.Get(id)
	case "property":
		_, err = s.Properties.Get(id)
	default:
		return false, common.ErrInvalidInputf("unknown subject type %q", subjectType)
	}
	if err != nil {
		if errors.Is(err, jsonfile.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// PartyName resolves a tenant or org id to a display name
func (s *Store) PartyName(tenantID, orgID string) string {
	if tenantID != "" {
		if t, err := s.Tenants.Get(tenantID); err == nil {
			return t.FullName()
		}
		return tenantID
	}
	if orgID != "" {
		if o, err := s.Orgs.Get(orgID); err == nil {
			return o.Name
		}
		return orgID
	}
	return ""
}

// SearchTenants filters tenants by property, onboarding status and a
// case-insensitive query over name, email, phone and unit.
func (s *Store) SearchTenants(propertyID, status, query string) ([]models.Tenant, error) {
	q := common.NormalizeKey(query)
	return s.Tenants.Find(func(t *models.Tenant) bool {
		if propertyID != "" && t.PropertyID != propertyID {
			return false
		}
		if status != "" && string(t.OnboardingStatus) != status {
			return false
		}
		if q == "" {
			return true
		}
		for _, field := range []string{t.FullName(), t.Email, t.Phone, t.Unit, t.PaymentRef} {
			if strings.Contains(strings.ToLower(field), q) {
				return true
			}
		}
		return false
	})
}
