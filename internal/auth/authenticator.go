package auth

import (
	"errors"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"property-manager/internal/common"
	"property-manager/internal/models"
	"property-manager/internal/storage/jsonfile"
)

// UserStore is the user collection used for logins and user management
type UserStore interface {
	List() ([]models.User, error)
	Get(username string) (models.User, error)
	Insert(user models.User) (models.User, error)
	Delete(username string) error
}

// Authenticator checks credentials and manages users
type Authenticator struct {
	users      UserStore
	tokens     *TokenManager
	bcryptCost int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewAuthenticator creates an authenticator over the user store
func NewAuthenticator(users UserStore, tokens *TokenManager, bcryptCost int) *Authenticator {
	return &Authenticator{users: users, tokens: tokens, bcryptCost: bcryptCost}
}

// Tokens returns the token manager
func (a *Authenticator) Tokens() *TokenManager {
	return a.tokens
}

// Login checks the credentials and issues a session token
func (a *Authenticator) Login(username, password string) (models.User, string, error) {
	if err := common.RequireFields("username", username, "password", password); err != nil {
		return models.User{}, "", err
	}

	user, err := a.users.Get(strings.TrimSpace(username))
	if err != nil {
		if !errors.Is(err, jsonfile.ErrNotFound) {
			return models.User{}, "", err
		}
		// Spend the same time on unknown users as on a wrong password
		bcrypt.CompareHashAndPassword(a.dummy(), []byte(password))
		return models.User{}, "", common.ErrUnauthorizedError("invalid credentials")
	}
	if !CheckPasswordHash(password, user.PasswordHash) {
		return models.User{}, "", common.ErrUnauthorizedError("invalid credentials")
	}

	token, _, err := a.tokens.Issue(user)
	if err != nil {
		return models.User{}, "", err
	}
	return user, token, nil
}

// Authenticate verifies a token and confirms its user still exists with the same role
func (a *Authenticator) Authenticate(token string) (*Claims, error) {
	if token == "" {
		return nil, common.ErrUnauthorizedError("missing session")
	}
	claims, err := a.tokens.Verify(token)
	if err != nil {
		return nil, common.NewErrorWithCause(common.ErrUnauthorized, "invalid session", err)
	}
	user, err := a.users.Get(claims.Username())
	if err != nil {
		if errors.Is(err, jsonfile.ErrNotFound) {
			return nil, common.ErrUnauthorizedError("invalid session")
		}
		return nil, err
	}
	claims.Role = user.Role
	return claims, nil
}

// CreateUser validates and stores a new user
func (a *Authenticator) CreateUser(username, password, role string) (models.User, error) {
	username = strings.TrimSpace(username)
	if err := common.RequireFields("username", username, "role", role); err != nil {
		return models.User{}, err
	}
	if _, ok := models.RoleRank[role]; !ok {
		return models.User{}, common.ErrInvalidInputf("unknown role %q", role)
	}
	hash, err := HashPassword(password, a.bcryptCost)
	if err != nil {
		return models.User{}, err
	}

	user, err := a.users.Insert(models.User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    common.Now(),
	})
	if errors.Is(err, jsonfile.ErrAlreadyExists) {
		return models.User{}, common.ErrAlreadyExistsError("user already exists")
	}
	return user, err
}

// DeleteUser removes a user. The last admin cannot be removed.
func (a *Authenticator) DeleteUser(username string) error {
	users, err := a.users.List()
	if err != nil {
		return err
	}
	admins := 0
	var target *models.User
	for i := range users {
		if users[i].Role == models.RoleAdmin {
			admins++
		}
		if users[i].Username == username {
			target = &users[i]
		}
	}
	if target == nil {
		return common.ErrNotFoundError("user not found")
	}
	if target.Role == models.RoleAdmin && admins == 1 {
		return common.ErrInvalidInputError("cannot delete the last admin")
	}
	return a.users.Delete(username)
}

// BearerToken extracts the token from an Authorization header value
func BearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// HasRole reports whether role meets the required minimum
func HasRole(role, required string) bool {
	have, ok := models.RoleRank[role]
	return ok && have >= models.RoleRank[required]
}

func (a *Authenticator) dummy() []byte {
	a.dummyOnce.Do(func() {
		a.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), a.bcryptCost)
	})
	return a.dummyHash
}
