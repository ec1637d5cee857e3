package sqlite

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrInvalidAPIKey is returned when a bearer token matches no stored key.
var ErrInvalidAPIKey = errors.New("unauthorized: invalid token")

// APIKeyRepository resolves bearer tokens to apps. Only SHA-256 hashes of
// keys are stored.
type APIKeyRepository struct {
	db *DB
}

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// ResolveApp returns the app a token belongs to and records its use.
func (r *APIKeyRepository) ResolveApp(ctx context.Context, token string) (string, error) {
	hash := HashToken(token)
	var appID string
	err := r.db.QueryRowContext(ctx, `SELECT app_id FROM api_keys WHERE key_hash = ?`, hash).Scan(&appID)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && appID == "") {
		return "", ErrInvalidAPIKey
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve api key: %w", err)
	}

	_, _ = r.db.ExecContext(ctx, `UPDATE api_keys SET last_used = CURRENT_TIMESTAMP WHERE key_hash = ?`, hash)
	return appID, nil
}

// Store registers an existing token for an app.
func (r *APIKeyRepository) Store(ctx context.Context, appID, token, description string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO api_keys (key_hash, app_id, description) VALUES (?, ?, ?)
	`, HashToken(token), appID, description)
	if err != nil {
		return fmt.Errorf("failed to store api key: %w", err)
	}
	return nil
}

// Create generates a random token for an app, stores its hash and returns
// the token. The token cannot be recovered later.
func (r *APIKeyRepository) Create(ctx context.Context, appID, description string) (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate api key: %w", err)
	}
	token := "sk_" + hex.EncodeToString(buf)
	if err := r.Store(ctx, appID, token, description); err != nil {
		return "", err
	}
	return token, nil
}

// HashToken returns the hex SHA-256 of a token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
