package admin

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_FileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	secrets := filepath.Join(dir, "secrets")
	require.NoError(t, os.Mkdir(secrets, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(secrets, "judge_api_key"), []byte("sk-test\n"), 0o600))

	path := filepath.Join(dir, "admin.yaml")
	yml := "port: \"7000\"\nstory_path: custom.yaml\nsecrets_dir: " + secrets + "\n" +
		"allowed_origins: \"https://a.example, https://b.example\"\n" +
		"judge:\n  backend: ollama\n  model: llama3\n  timeout: 5s\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv("JUDGE_MODEL", "qwen2")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, "custom.yaml", cfg.StoryPath)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.GetAllowedOrigins())

	backend := cfg.JudgeBackendConfig()
	assert.Equal(t, "ollama", backend.Type)
	assert.Equal(t, "qwen2", backend.Model, "environment wins over the file")
	assert.Equal(t, 5*time.Second, backend.HTTPTimeout)
	assert.Equal(t, "sk-test", backend.APIKey)
}

func TestLoadConfig_EnvOnly(t *testing.T) {
	t.Setenv("SECRETS_DIR", t.TempDir())
	t.Setenv("ADMIN_PORT", "9100")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, "stories/three_goods.yaml", cfg.StoryPath)
	assert.Equal(t, "none", cfg.Judge.Backend)
	assert.Empty(t, cfg.Judge.APIKey)
	assert.Empty(t, cfg.GetAllowedOrigins())
}
