package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-manager/internal/common"
	"property-manager/internal/models"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	return s
}

func TestOpen_EmptyDirectory(t *testing.T) {
	s := openTemp(t)

	require.NoError(t, s.Health(context.Background()))

	counts, err := s.Counts()
	require.NoError(t, err)
	assert.Equal(t, 0, counts["tenants"])

	settings, err := s.Settings.Load()
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSettings().Currency, settings.Currency)
}

func TestSubjectExists(t *testing.T) {
	s := openTemp(t)
	_, err := s.Tenants.Insert(models.Tenant{ID: "t1", FirstName: "Ada", LastName: "Lovelace"})
	require.NoError(t, err)

	ok, err := s.SubjectExists("tenant", "t1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.SubjectExists("org", "t1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.SubjectExists("planet", "t1")
	assert.True(t, common.IsErrorCode(err, common.ErrInvalidInput))
}

func TestSearchTenants(t *testing.T) {
	s := openTemp(t)
	for _, tenant := range []models.Tenant{
		{ID: "t1", FirstName: "Ada", LastName: "Lovelace", PropertyID: "p1", Unit: "1A", OnboardingStatus: models.StatusCompleted},
		{ID: "t2", FirstName: "Alan", LastName: "Turing", PropertyID: "p1", Unit: "2B", OnboardingStatus: models.StatusInProgress},
		{ID: "t3", FirstName: "Grace", LastName: "Hopper", PropertyID: "p2", Unit: "1A", Email: "grace@example.com"},
	} {
		_, err := s.Tenants.Insert(tenant)
		require.NoError(t, err)
	}

	found, err := s.SearchTenants("p1", "", "")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = s.SearchTenants("", "in_progress", "")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "t2", found[0].ID)

	found, err = s.SearchTenants("", "", "EXAMPLE.com")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "t3", found[0].ID)

	assert.Equal(t, "Alan Turing", s.PartyName("t2", ""))
	assert.Equal(t, "missing", s.PartyName("missing", ""))
}
