package auth

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"property-manager/internal/common"
	"property-manager/internal/models"
	"property-manager/internal/storage/jsonfile"
)

func newAuthenticator(t *testing.T) (*Authenticator, *jsonfile.Collection[models.User, *models.User]) {
	t.Helper()
	users := jsonfile.NewCollection[models.User](filepath.Join(t.TempDir(), "users.json"))
	tm := NewTokenManager(testKey, "property-manager", time.Hour)
	return NewAuthenticator(users, tm, bcrypt.MinCost), users
}

func TestAuthenticator_LoginAndAuthenticate(t *testing.T) {
	a, users := newAuthenticator(t)

	user, err := a.CreateUser("alice", "correct horse", models.RoleManager)
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", user.PasswordHash)

	_, token, err := a.Login("alice", "correct horse")
	require.NoError(t, err)

	claims, err := a.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username())
	assert.Equal(t, models.RoleManager, claims.Role)

	// Role changes on the stored user apply to existing sessions
	err = users.Mutate(func(items []models.User) ([]models.User, error) {
		items[0].Role = models.RoleViewer
		return items, nil
	})
	require.NoError(t, err)
	claims, err = a.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleViewer, claims.Role)
}

func TestAuthenticator_LoginFailures(t *testing.T) {
	a, _ := newAuthenticator(t)
	_, err := a.CreateUser("alice", "correct horse", models.RoleViewer)
	require.NoError(t, err)

	_, _, err = a.Login("alice", "wrong password")
	assert.True(t, common.IsErrorCode(err, common.ErrUnauthorized))

	_, _, err = a.Login("bob", "correct horse")
	assert.True(t, common.IsErrorCode(err, common.ErrUnauthorized))

	_, _, err = a.Login("", "x")
	assert.True(t, common.IsErrorCode(err, common.ErrInvalidInput))

	_, err = a.Authenticate("")
	assert.True(t, common.IsErrorCode(err, common.ErrUnauthorized))
}

func TestAuthenticator_CreateUserValidation(t *testing.T) {
	a, _ := newAuthenticator(t)

	_, err := a.CreateUser("alice", "short", models.RoleViewer)
	assert.True(t, common.IsErrorCode(err, common.ErrInvalidInput))

	_, err = a.CreateUser("alice", "long enough", "owner")
	assert.True(t, common.IsErrorCode(err, common.ErrInvalidInput))

	_, err = a.CreateUser("alice", "long enough", models.RoleViewer)
	require.NoError(t, err)
	_, err = a.CreateUser("alice", "long enough", models.RoleViewer)
	assert.True(t, common.IsErrorCode(err, common.ErrAlreadyExists))
}

func TestAuthenticator_DeleteUserKeepsLastAdmin(t *testing.T) {
	a, _ := newAuthenticator(t)
	_, err := a.CreateUser("root", "long enough", models.RoleAdmin)
	require.NoError(t, err)
	_, err = a.CreateUser("bob", "long enough", models.RoleViewer)
	require.NoError(t, err)

	err = a.DeleteUser("root")
	assert.True(t, common.IsErrorCode(err, common.ErrInvalidInput))

	assert.NoError(t, a.DeleteUser("bob"))
	assert.True(t, common.IsErrorCode(a.DeleteUser("bob"), common.ErrNotFound))
}

func TestBearerTokenAndRoles(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer abc"))
	assert.Equal(t, "", BearerToken("Basic abc"))
	assert.Equal(t, "", BearerToken("Bearer "))

	assert.True(t, HasRole(models.RoleAdmin, models.RoleManager))
	assert.True(t, HasRole(models.RoleManager, models.RoleManager))
	assert.False(t, HasRole(models.RoleViewer, models.RoleManager))
	assert.False(t, HasRole("", models.RoleViewer))
}
