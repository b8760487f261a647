package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// AdminToken is the single operator bearer token that protects the gateway's
// admin endpoint (/stats). There is exactly one of these per deployment,
// stored under a fixed name ("admin_token" in the keychain, admin_token.enc
// for the encrypted file).
type AdminToken struct {
	Token        string    `json:"token"`
	LastModified time.Time `json:"last_modified"`
}

const adminTokenKey = "admin"

// TokenStore is the interface for storing and retrieving the admin token.
type TokenStore interface {
	Store(token *AdminToken) error
	Retrieve() (*AdminToken, error)
	Delete() error
	Exists() bool
}

// Manager resolves the admin token through a ladder of storage backends:
// system keychain, then an AES/PBKDF2-encrypted file, then an environment
// variable. Store() always writes through the most secure backend available;
// Retrieve() walks the ladder and returns the first hit.
type Manager struct {
	stores []TokenStore
}

// NewManager creates a credential manager with the available storage backends.
func NewManager() (*Manager, error) {
	var stores []TokenStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "admin_token.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// Store saves the admin token using the first available backend.
func (m *Manager) Store(token string) error {
	if token == "" {
		return errors.New("token is required")
	}

	rec := &AdminToken{Token: token, LastModified: time.Now()}

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(rec); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store admin token: %w", lastErr)
	}
	return errors.New("no available token stores")
}

// Retrieve returns the admin token from the first backend that has it.
func (m *Manager) Retrieve() (*AdminToken, error) {
	for _, store := range m.stores {
		if rec, err := store.Retrieve(); err == nil && rec != nil {
			return rec, nil
		}
	}
	return nil, ErrCredentialsNotFound
}

// Delete removes the admin token from every backend.
func (m *Manager) Delete() error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete admin token: %w", lastErr)
	}
	if !deleted {
		return ErrCredentialsNotFound
	}
	return nil
}

// getConfigDir returns the configuration directory path, creating it if absent.
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "scrapegate")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "scrapegate")
	default: // Linux and others
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "scrapegate")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "scrapegate")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// MaskToken returns a copy of s with all but its first and last 4 characters hidden.
func MaskToken(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("admin token not found")
	ErrInvalidCredentials  = errors.New("invalid admin token")
	ErrStoreUnavailable    = errors.New("token store unavailable")
)
