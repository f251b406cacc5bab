package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"property-manager/internal/common"
)

// MinPasswordLength is the shortest password accepted for new users
const MinPasswordLength = 8

// HashPassword hashes the plain-text password
func HashPassword(password string, cost int) (string, error) {
	if len(password) < MinPasswordLength {
		return "", common.ErrInvalidInputf("password must be at least %d characters", MinPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", common.ErrInvalidInputError("password is too long")
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPasswordHash compares hashed password with input
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
