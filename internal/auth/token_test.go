package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-manager/internal/models"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager(testKey, "property-manager", time.Hour)

	token, expires, err := tm.Issue(models.User{Username: "alice", Role: models.RoleManager})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)
	assert.Len(t, strings.Split(token, "."), 3)

	claims, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username())
	assert.Equal(t, models.RoleManager, claims.Role)
	assert.Equal(t, "property-manager", claims.Issuer)
}

func TestTokenManager_Rejects(t *testing.T) {
	tm := NewTokenManager(testKey, "property-manager", time.Hour)
	token, _, err := tm.Issue(models.User{Username: "alice", Role: models.RoleAdmin})
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	tamperedSig := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	otherIssuer, _, err := NewTokenManager(testKey, "someone-else", time.Hour).Issue(models.User{Username: "alice"})
	require.NoError(t, err)

	otherKey, _, err := NewTokenManager([]byte("another-secret-another-secret-xx"), "property-manager", time.Hour).Issue(models.User{Username: "alice"})
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		Role: models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			Issuer:    "property-manager",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"garbage", "not-a-token", ErrMalformed},
		{"empty", "", ErrMalformed},
		{"tampered signature", tamperedSig, ErrBadSignature},
		{"other key", otherKey, ErrBadSignature},
		{"alg none", none, ErrBadSignature},
		{"other issuer", otherIssuer, ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tm.Verify(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTokenManager_Expiry(t *testing.T) {
	tm := NewTokenManager(testKey, "property-manager", time.Minute)
	issuedAt := time.Now().Add(-2 * time.Hour)
	tm.now = func() time.Time { return issuedAt }

	token, _, err := tm.Issue(models.User{Username: "alice", Role: models.RoleViewer})
	require.NoError(t, err)

	tm.now = time.Now
	_, err = tm.Verify(token)
	assert.ErrorIs(t, err, ErrExpired)
}
