// Package auth provides bearer API key authentication for the kiosk API.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

const apiKeyBytes = 32 // 256-bit keys

// ErrKeyNotFound is returned when revoking an unknown key.
var ErrKeyNotFound = errors.New("api key not found")

// APIKey is the stored representation of an API key (no raw key).
type APIKey struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	KeyPrefix  string     `json:"key_prefix"` // first 8 chars for identification
	Revoked    bool       `json:"revoked"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// APIKeyStore manages API keys in SQLite.
type APIKeyStore struct {
	db *sql.DB
}

// NewAPIKeyStore creates an API key store.
func NewAPIKeyStore(db *sql.DB) *APIKeyStore {
	return &APIKeyStore{db: db}
}

// Create generates a new API key for a kiosk device or operator.
// Returns the raw key (shown once) and the stored record.
func (s *APIKeyStore) Create(name string) (string, *APIKey, error) {
	raw, err := generateAPIKey()
	if err != nil {
		return "", nil, fmt.Errorf("generating key: %w", err)
	}

	prefix := raw[:8]
	now := time.Now().UTC()

	result, err := s.db.Exec(
		"INSERT INTO api_keys (name, key_prefix, key_hash, created_at) VALUES (?, ?, ?, ?)",
		name, prefix, hashAPIKey(raw), now,
	)
	if err != nil {
		return "", nil, fmt.Errorf("storing key: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return "", nil, fmt.Errorf("getting key id: %w", err)
	}

	return raw, &APIKey{ID: id, Name: name, KeyPrefix: prefix, CreatedAt: now}, nil
}

// List returns all API keys, newest first.
func (s *APIKeyStore) List() (keys []APIKey, err error) {
	rows, err := s.db.Query(
		"SELECT id, name, key_prefix, revoked, created_at, last_used_at FROM api_keys ORDER BY id DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("querying keys: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	for rows.Next() {
		var k APIKey
		var lastUsed sql.NullTime
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyPrefix, &k.Revoked, &k.CreatedAt, &lastUsed); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		if lastUsed.Valid {
			t := lastUsed.Time
			k.LastUsedAt = &t
		}
		keys = append(keys, k)
	}

	return keys, rows.Err()
}

// Revoke disables an API key. The record is kept for auditing.
func (s *APIKeyStore) Revoke(id int64) error {
	result, err := s.db.Exec("UPDATE api_keys SET revoked = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("revoking key: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %d", ErrKeyNotFound, id)
	}
	return nil
}

// Validate checks a raw API key against stored hashes of unrevoked keys.
// Returns true if valid, and updates last_used_at.
func (s *APIKeyStore) Validate(rawKey string) (bool, error) {
	result, err := s.db.Exec(
		"UPDATE api_keys SET last_used_at = ? WHERE key_hash = ? AND revoked = 0",
		time.Now().UTC(), hashAPIKey(rawKey),
	)
	if err != nil {
		return false, fmt.Errorf("validating key: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking affected rows: %w", err)
	}

	return rows > 0, nil
}

func generateAPIKey() (string, error) {
	b := make([]byte, apiKeyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "vk_" + hex.EncodeToString(b), nil
}

func hashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}
