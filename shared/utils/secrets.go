package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultSecretsDir - стандартный путь Docker Secrets.
const DefaultSecretsDir = "/run/secrets"

// ErrSecretMissing возвращается, когда файла секрета нет.
var ErrSecretMissing = errors.New("secret is missing")

// ReadSecret читает секрет из файла dir/name. Пустой dir означает DefaultSecretsDir.
// Fallback на переменные окружения не делаем, секреты приходят только файлами.
func ReadSecret(dir, name string) (string, error) {
	if dir == "" {
		dir = DefaultSecretsDir
	}
	filePath := filepath.Join(dir, name)
	secretBytes, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrSecretMissing, filePath)
		}
		return "", fmt.Errorf("failed to read secret file %s: %w", filePath, err)
	}
	secret := strings.TrimSpace(string(secretBytes))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", filePath)
	}
	return secret, nil
}

// ReadOptionalSecret как ReadSecret, но отсутствие файла не ошибка.
func ReadOptionalSecret(dir, name string) (string, error) {
	secret, err := ReadSecret(dir, name)
	if errors.Is(err, ErrSecretMissing) {
		return "", nil
	}
	return secret, err
}
