package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements TokenStore using the ADMIN_TOKEN environment
// variable. Last resort in the ladder; read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based token store.
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables.
func (e *EnvironmentStore) Store(token *AdminToken) error {
	return ErrStoreUnavailable
}

// Retrieve gets the admin token from ADMIN_TOKEN.
func (e *EnvironmentStore) Retrieve() (*AdminToken, error) {
	v := os.Getenv("ADMIN_TOKEN")
	if v == "" {
		return nil, ErrCredentialsNotFound
	}

	return &AdminToken{Token: v, LastModified: time.Now()}, nil
}

// Delete is not supported for environment variables.
func (e *EnvironmentStore) Delete() error {
	return ErrStoreUnavailable
}

// Exists checks if ADMIN_TOKEN is set.
func (e *EnvironmentStore) Exists() bool {
	return os.Getenv("ADMIN_TOKEN") != ""
}
