// Package credentials remembers the last-used Cloudflare account ID and API
// token between client sessions. It is a convenience cache, not a secret
// manager: values are stored unencrypted on the local machine.
package credentials

import (
	"context"
	"fmt"

	"github.com/use-agent/cfmarkdown/config"
	"github.com/use-agent/cfmarkdown/models"
)

// Fixed storage keys. There is a single local identity, so these are process-wide.
const (
	KeyAccountID = "cf_account_id"
	KeyAPIToken  = "cf_api_token"
)

// Backend is the key-value medium behind a Store.
type Backend interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set writes all pairs, replacing existing values.
	Set(ctx context.Context, values map[string]string) error

	Close() error
}

// Store loads and saves StoredCredentials on top of a Backend.
type Store struct {
	backend Backend
}

// New wraps a backend.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Load returns the remembered credentials. ok is false when neither key is set.
// A partially populated store returns whichever value exists.
func (s *Store) Load(ctx context.Context) (creds models.StoredCredentials, ok bool, err error) {
	accountID, _, err := s.backend.Get(ctx, KeyAccountID)
	if err != nil {
		return creds, false, fmt.Errorf("credentials: load account id: %w", err)
	}
	apiToken, _, err := s.backend.Get(ctx, KeyAPIToken)
	if err != nil {
		return creds, false, fmt.Errorf("credentials: load api token: %w", err)
	}

	creds = models.StoredCredentials{AccountID: accountID, APIToken: apiToken}
	return creds, !creds.IsZero(), nil
}

// Save overwrites both stored values.
func (s *Store) Save(ctx context.Context, creds models.StoredCredentials) error {
	err := s.backend.Set(ctx, map[string]string{
		KeyAccountID: creds.AccountID,
		KeyAPIToken:  creds.APIToken,
	})
	if err != nil {
		return fmt.Errorf("credentials: save: %w", err)
	}
	return nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// Open builds a Store for the named backend ("file", "sqlite" or "memory").
// An empty path selects the backend's default per-user location.
func Open(kind, path string) (*Store, error) {
	if path == "" {
		path = config.DefaultCredentialsPath(kind)
	}
	switch kind {
	case "file", "":
		return New(NewFileBackend(path)), nil
	case "sqlite":
		b, err := OpenSQLiteBackend(path)
		if err != nil {
			return nil, err
		}
		return New(b), nil
	case "memory":
		return New(NewMemoryBackend()), nil
	default:
		return nil, fmt.Errorf("credentials: unknown backend %q", kind)
	}
}
