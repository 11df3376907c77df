package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/chaos-io/cleanlens/clean/editor"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CLEANLENS_CONFIG", "")
	for _, name := range []string{"GEMINI_API_KEY", "OPENAI_API_KEY", "API_KEY", "CLEANLENS_EDITOR_PROVIDER", "CLEANLENS_SERVER_ADDR"} {
		t.Setenv(name, "")
	}
	keyring.MockInit()
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "gemini", c.Editor.Provider)
	assert.Equal(t, editor.DefaultPrompt, c.Editor.Prompt)
	assert.Equal(t, 2*time.Minute, c.Editor.Timeout)
	assert.Equal(t, 2048, c.Process.MaxEdge)
	assert.Equal(t, 2*time.Second, c.Process.VideoDelay)
	assert.Equal(t, "127.0.0.1:8080", c.Server.Addr)
	assert.Equal(t, int64(20), c.Server.MaxUploadMB)
	assert.Equal(t, 30*time.Minute, c.Server.IdleTTL)
	assert.Equal(t, "@every 1m", c.Server.IdleCheck)
	assert.Equal(t, "info", c.Log.Level)
}

func TestLoad_FileAndEnv(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[editor]
provider = "openai"
api_key_env = "MY_KEY"
model = "dall-e-2"

[process]
max_edge = 1024
video_delay = "500ms"

[server]
idle_ttl = "5m"
`), 0o644))
	t.Setenv("CLEANLENS_CONFIG", path)
	t.Setenv("CLEANLENS_SERVER_ADDR", ":9090")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "openai", c.Editor.Provider)
	assert.Equal(t, "MY_KEY", c.Editor.APIKeyEnv)
	assert.Equal(t, "dall-e-2", c.Editor.Model)
	assert.Equal(t, 1024, c.Process.MaxEdge)
	assert.Equal(t, 500*time.Millisecond, c.Process.VideoDelay)
	assert.Equal(t, 5*time.Minute, c.Server.IdleTTL)
	assert.Equal(t, ":9090", c.Server.Addr)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)
	t.Setenv("CLEANLENS_CONFIG", filepath.Join(t.TempDir(), "nope.toml"))

	_, err := Load()
	assert.ErrorContains(t, err, "read config")
}

func TestEditorConfig_ResolveAPIKey(t *testing.T) {
	isolate(t)

	c := EditorConfig{Provider: "gemini", APIKey: "from-config"}
	assert.Equal(t, "from-config", c.ResolveAPIKey())

	require.NoError(t, StoreAPIKey("gemini", "from-keyring"))
	assert.Equal(t, "from-keyring", c.ResolveAPIKey())

	t.Setenv("API_KEY", "from-api-key")
	assert.Equal(t, "from-api-key", c.ResolveAPIKey())

	t.Setenv("GEMINI_API_KEY", "from-env")
	assert.Equal(t, "from-env", c.ResolveAPIKey())

	c.APIKeyEnv = "CUSTOM_KEY"
	t.Setenv("CUSTOM_KEY", "custom")
	assert.Equal(t, "custom", c.ResolveAPIKey())
}

func TestEditorConfig_APIKeyEnvNames(t *testing.T) {
	assert.Equal(t, []string{"GEMINI_API_KEY", "API_KEY"}, EditorConfig{}.APIKeyEnvNames())
	assert.Equal(t, []string{"OPENAI_API_KEY", "API_KEY"}, EditorConfig{Provider: "OpenAI"}.APIKeyEnvNames())
	assert.Equal(t, []string{"API_KEY"}, EditorConfig{Provider: "passthrough"}.APIKeyEnvNames())
	assert.Equal(t, []string{"X", "API_KEY"}, EditorConfig{Provider: "openai", APIKeyEnv: "X"}.APIKeyEnvNames())
}

func TestConfig_EditorConfig(t *testing.T) {
	isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	c := Config{Editor: EditorConfig{Provider: "OpenAI", Model: "gpt-image-1", Timeout: time.Minute}}
	got := c.EditorConfig()
	assert.Equal(t, editor.Config{
		Provider: "openai",
		APIKey:   "sk-test",
		Model:    "gpt-image-1",
		Timeout:  time.Minute,
	}, got)
}

func TestKeyring(t *testing.T) {
	keyring.MockInit()

	_, err := LoadAPIKey("openai")
	assert.ErrorIs(t, err, keyring.ErrNotFound)

	require.NoError(t, StoreAPIKey("openai", "sk"))
	got, err := LoadAPIKey("openai")
	require.NoError(t, err)
	assert.Equal(t, "sk", got)

	require.NoError(t, DeleteAPIKey("openai"))
	_, err = LoadAPIKey("openai")
	assert.ErrorIs(t, err, keyring.ErrNotFound)

	assert.Error(t, StoreAPIKey("", "sk"))
	assert.Error(t, StoreAPIKey("openai", ""))
	assert.Error(t, DeleteAPIKey(""))
}
