// Package apikeys issues and verifies API keys for the public endpoints.
// Keys are shown once at creation; only a bcrypt hash and a short lookup
// prefix are stored.
package apikeys

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	// Prefix starts every key and key id.
	Prefix = "syn_"

	keyBytes = 32
	idBytes  = 16

	// lookupLen is how much of a key is stored in clear to narrow the hash
	// comparisons to one or two rows.
	lookupLen = len(Prefix) + 12

	// DefaultCost is the bcrypt cost for new keys.
	DefaultCost = 12
)

var (
	// ErrInvalidKey is returned for unknown, malformed or deactivated keys.
	ErrInvalidKey = errors.New("apikeys: invalid api key")
	// ErrNotFound is returned when a key id does not exist.
	ErrNotFound = errors.New("apikeys: key not found")
	// ErrNotConfigured is returned by a nil store or service.
	ErrNotConfigured = errors.New("apikeys: store not configured")
)

// Key is a stored API key without its secret.
type Key struct {
	KeyID       string     `json:"keyId"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	IsActive    bool       `json:"isActive"`
	UsageCount  int64      `json:"usageCount"`
	LastUsedAt  *time.Time `json:"lastUsedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Credential is what verification needs from storage.
type Credential struct {
	KeyID string
	Hash  string
}

// Generated is a freshly minted key. Secret is never persisted.
type Generated struct {
	KeyID     string
	Secret    string
	LookupKey string
	Hash      string
}

// Generate mints a key id and secret and hashes the secret at cost.
func Generate(cost int) (Generated, error) {
	id, err := randomHex(idBytes)
	if err != nil {
		return Generated{}, err
	}
	secret, err := randomHex(keyBytes)
	if err != nil {
		return Generated{}, err
	}
	key := Prefix + secret
	hash, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return Generated{}, fmt.Errorf("apikeys: hash key: %w", err)
	}
	return Generated{
		KeyID:     Prefix + id,
		Secret:    key,
		LookupKey: key[:lookupLen],
		Hash:      string(hash),
	}, nil
}

// LookupKey returns the stored prefix for key, or false if key cannot be one
// of ours.
func LookupKey(key string) (string, bool) {
	if !strings.HasPrefix(key, Prefix) || len(key) <= lookupLen {
		return "", false
	}
	return key[:lookupLen], true
}

// Verify reports whether key matches hash.
func Verify(key, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("apikeys: generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
