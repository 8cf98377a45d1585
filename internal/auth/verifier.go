// ABOUTME: Credential verifiers deciding whether a username/password pair may log in
// ABOUTME: Static single identity, bcrypt-backed admin_users table, and a chain of both

package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/freegoat/manga-admin/internal/store"
)

// Credential errors
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthorized       = errors.New("authentication required")
)

// dummyHash keeps bcrypt timing identical when a username does not exist.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Identity is the result of a successful verification.
type Identity struct {
	Username string
}

// Verifier checks a username/password pair.
// Implementations return ErrInvalidCredentials on mismatch and other errors
// only when they could not decide.
type Verifier interface {
	Verify(ctx context.Context, username, password string) (*Identity, error)
}

// StaticVerifier accepts exactly one configured identity.
type StaticVerifier struct {
	username []byte
	password []byte
}

// NewStaticVerifier creates a verifier for a single fixed identity.
func NewStaticVerifier(username, password string) *StaticVerifier {
	return &StaticVerifier{username: []byte(username), password: []byte(password)}
}

// Verify compares both fields in constant time.
func (v *StaticVerifier) Verify(_ context.Context, username, password string) (*Identity, error) {
	if len(v.username) == 0 || len(v.password) == 0 {
		return nil, ErrInvalidCredentials
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), v.username)
	passOK := subtle.ConstantTimeCompare([]byte(password), v.password)
	if userOK&passOK != 1 {
		return nil, ErrInvalidCredentials
	}
	return &Identity{Username: username}, nil
}

// AdminUserLookup is the slice of store.AdminStore the bcrypt verifier needs.
type AdminUserLookup interface {
	GetAdminUserByUsername(ctx context.Context, username string) (*store.AdminUser, error)
}

// StoreVerifier checks passwords against bcrypt hashes in admin_users.
type StoreVerifier struct {
	users AdminUserLookup
}

// NewStoreVerifier creates a verifier backed by the admin user table.
func NewStoreVerifier(users AdminUserLookup) *StoreVerifier {
	return &StoreVerifier{users: users}
}

// Verify looks the user up and compares the bcrypt hash.
func (v *StoreVerifier) Verify(ctx context.Context, username, password string) (*Identity, error) {
	user, err := v.users.GetAdminUserByUsername(ctx, username)
	if err != nil {
		// Still pay for a bcrypt comparison so unknown usernames take as long as known ones.
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		if errors.Is(err, store.ErrAdminUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up admin user: %w", err)
	}

	if user.PasswordHash == "" {
		// passkey-only account
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &Identity{Username: user.Username}, nil
}

// ChainVerifier tries each verifier in order and accepts the first success.
type ChainVerifier []Verifier

// Verify returns the first successful identity. If every verifier rejects the
// pair it returns ErrInvalidCredentials, unless one of them failed outright.
func (c ChainVerifier) Verify(ctx context.Context, username, password string) (*Identity, error) {
	var lastErr error
	for _, v := range c {
		id, err := v.Verify(ctx, username, password)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, ErrInvalidCredentials) {
			lastErr = err
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrInvalidCredentials
}

// HashPassword returns a bcrypt hash suitable for admin_users.password_hash.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}
