package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/myrjola/casefile/internal/ai"
	"github.com/myrjola/casefile/internal/config"
	"github.com/myrjola/casefile/internal/envstruct"
	"github.com/stretchr/testify/require"
)

func lookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestLoad(t *testing.T) {
	cfg, err := config.Load(lookup(map[string]string{}))
	require.NoError(t, err)
	require.Equal(t, config.Config{
		OpenAIAPIKey: "",
		GroqAPIKey:   "",
		SqliteURL:    "./casefile.sqlite",
		Addr:         "localhost:4000",
		PprofPort:    ":6060",
		ModelsFile:   "",
		StageTimeout: 2 * time.Minute,
	}, cfg)

	cfg, err = config.Load(lookup(map[string]string{
		"OPENAI_API_KEY":         "sk-test",
		"GROQ_API_KEY":           "gsk-test",
		"CASEFILE_SQLITE_URL":    ":memory:",
		"CASEFILE_STAGE_TIMEOUT": "30s",
	}))
	require.NoError(t, err)
	require.Equal(t, ai.Keys{OpenAI: "sk-test", Groq: "gsk-test"}, cfg.Keys())
	require.Equal(t, ":memory:", cfg.SqliteURL)
	require.Equal(t, 30*time.Second, cfg.StageTimeout)

	_, err = config.Load(lookup(map[string]string{"CASEFILE_STAGE_TIMEOUT": "soon"}))
	require.ErrorIs(t, err, envstruct.ErrInvalidValue)
}

func TestConfig_Registry(t *testing.T) {
	registry, err := config.Config{}.Registry()
	require.NoError(t, err)
	require.Equal(t, ai.DefaultRegistry(), registry)

	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte("creative:\n  provider: openai\n  model: gpt-4o-mini\n"), 0o600))
	registry, err = config.Config{ModelsFile: path}.Registry()
	require.NoError(t, err)
	require.Equal(t, ai.ProviderOpenAI, registry.Creative.Provider)
	require.Equal(t, "gpt-4o-mini", registry.Creative.Model)

	_, err = config.Config{ModelsFile: filepath.Join(t.TempDir(), "missing.yaml")}.Registry()
	require.ErrorIs(t, err, os.ErrNotExist)

	clients, err := config.Config{ModelsFile: path, OpenAIAPIKey: "sk-test"}.Clients()
	require.NoError(t, err, "no Groq key needed once creative runs on OpenAI")
	require.Equal(t, "gpt-4o-mini", clients.Creative.Model().Model)

	_, err = config.Config{OpenAIAPIKey: "sk-test"}.Clients()
	require.ErrorIs(t, err, ai.ErrMissingAPIKey)
}

func TestLoadDotEnv(t *testing.T) {
	require.NoError(t, config.LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CASEFILE_DOTENV_TEST=loaded\n"), 0o600))
	t.Setenv("CASEFILE_DOTENV_TEST", "")
	require.NoError(t, os.Unsetenv("CASEFILE_DOTENV_TEST"))
	require.NoError(t, config.LoadDotEnv(path))
	require.Equal(t, "loaded", os.Getenv("CASEFILE_DOTENV_TEST"))
}
