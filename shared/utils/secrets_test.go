package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSecret(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jwt_secret"), []byte("  s3cret\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blank"), []byte("\n"), 0o600))

	secret, err := ReadSecret(dir, "jwt_secret")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", secret)

	_, err = ReadSecret(dir, "blank")
	assert.Error(t, err)

	_, err = ReadSecret(dir, "absent")
	assert.ErrorIs(t, err, ErrSecretMissing)
}

func TestReadOptionalSecret(t *testing.T) {
	secret, err := ReadOptionalSecret(t.TempDir(), "judge_api_key")
	require.NoError(t, err)
	assert.Empty(t, secret)
}
