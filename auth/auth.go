// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/danielhkuo/rango-polls/models"
)

var (
	ErrInvalidAdminKey    = errors.New("invalid admin key")
	ErrInvalidCredentials = errors.New("invalid login details")
	ErrInactiveUser       = errors.New("account is disabled")
)

// adminScope is the message signed to derive the site admin key
const adminScope = "admin"

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateAdminKey derives the admin API key from the configured salt.
// Deterministic, so nothing needs to be stored.
func GenerateAdminKey(salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(adminScope))
	sum := h.Sum(nil)
	// Use URL-safe base64 and trim padding for cleaner keys
	return strings.TrimRight(base64.URLEncoding.EncodeToString(sum), "=")
}

// ValidateAdminKey checks the provided key in constant time
func ValidateAdminKey(adminKey, salt string) error {
	expected := GenerateAdminKey(salt)
	if adminKey == "" || !hmac.Equal([]byte(adminKey), []byte(expected)) {
		return ErrInvalidAdminKey
	}
	return nil
}

// DeriveKey returns a 32-byte key for the given purpose, e.g. the CSRF
// authentication key.
func DeriveKey(secret, purpose string) []byte {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(purpose))
	return h.Sum(nil)
}

// HashPassword returns the bcrypt hash of a plaintext password
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Authenticate looks up username and verifies password.
//
// Unknown usernames and wrong passwords both yield ErrInvalidCredentials.
// A correct password on a disabled account returns the user together with
// ErrInactiveUser so callers can tell the two apart.
func Authenticate(ctx context.Context, db *sql.DB, username, password string) (*models.User, error) {
	var user models.User
	err := db.QueryRowContext(ctx, `
		SELECT id, username, email, password, is_active, date_joined
		FROM auth_user
		WHERE username = $1
	`, username).Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.IsActive, &user.DateJoined)

	if err == sql.ErrNoRows {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if !CheckPassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return &user, ErrInactiveUser
	}

	return &user, nil
}

// GetUser loads a user by ID; sql.ErrNoRows is returned unwrapped
func GetUser(ctx context.Context, db *sql.DB, userID string) (*models.User, error) {
	var user models.User
	err := db.QueryRowContext(ctx, `
		SELECT id, username, email, password, is_active, date_joined
		FROM auth_user
		WHERE id = $1
	`, userID).Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.IsActive, &user.DateJoined)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
