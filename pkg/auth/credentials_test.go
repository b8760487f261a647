package auth

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialManager(t *testing.T) {
	manager, mockStore := NewMockManager()

	require.NoError(t, manager.Store("test_token_12345"))

	retrieved, err := manager.Retrieve()
	require.NoError(t, err)
	assert.Equal(t, "test_token_12345", retrieved.Token)

	assert.NotEqual(t, retrieved.Token, MaskToken(retrieved.Token))

	require.NoError(t, manager.Delete())

	_, err = manager.Retrieve()
	assert.Error(t, err)

	assert.False(t, mockStore.Exists())
}

func TestEncryptedFileStore(t *testing.T) {
	tempFile := filepath.Join(os.TempDir(), "test_admin_token.enc")
	defer os.Remove(tempFile)

	os.Setenv("SCRAPEGATE_PASSPHRASE", "test_passphrase_123")
	defer os.Unsetenv("SCRAPEGATE_PASSPHRASE")

	store, err := NewEncryptedFileStore(tempFile)
	require.NoError(t, err)

	token := &AdminToken{Token: "encrypted_admin_token"}
	require.NoError(t, store.Store(token))

	retrieved, err := store.Retrieve()
	require.NoError(t, err)
	assert.Equal(t, token.Token, retrieved.Token)

	fileContent, err := os.ReadFile(tempFile)
	require.NoError(t, err)
	assert.NotContains(t, string(fileContent), "encrypted_admin_token")
}

func TestEnvironmentStore(t *testing.T) {
	os.Setenv("ADMIN_TOKEN", "env_admin_token")
	defer os.Unsetenv("ADMIN_TOKEN")

	store := NewEnvironmentStore()

	token, err := store.Retrieve()
	require.NoError(t, err)
	assert.Equal(t, "env_admin_token", token.Token)

	err = store.Store(&AdminToken{Token: "x"})
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestRealManagerWithEncryptedStore(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "scrapegate-test-real")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	os.Setenv("SCRAPEGATE_PASSPHRASE", "test_passphrase_real_manager")
	defer os.Unsetenv("SCRAPEGATE_PASSPHRASE")

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(tempDir, "admin_token.enc"))
	require.NoError(t, err)

	manager := NewMockManagerWithStores(encryptedStore)

	require.NoError(t, manager.Store("real_admin_token"))

	retrieved, err := manager.Retrieve()
	require.NoError(t, err)
	assert.Equal(t, "real_admin_token", retrieved.Token)
}

func TestMockStore(t *testing.T) {
	store := NewMockStore()

	assert.False(t, store.Exists())

	require.NoError(t, store.Store(&AdminToken{Token: "mock_token"}))

	assert.True(t, store.Exists())

	store.RetrieveError = fmt.Errorf("injected error")
	_, err := store.Retrieve()
	assert.EqualError(t, err, "injected error")
}
