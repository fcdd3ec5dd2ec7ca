package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/myrjola/casefile/internal/ai"
	"github.com/myrjola/casefile/internal/envstruct"
	"github.com/myrjola/casefile/internal/errors"
)

// Config is read from the environment with [envstruct.Populate].
type Config struct {
	OpenAIAPIKey string `env:"OPENAI_API_KEY" envDefault:""`
	GroqAPIKey   string `env:"GROQ_API_KEY" envDefault:""`
	// SqliteURL is a database file path or ":memory:".
	SqliteURL string `env:"CASEFILE_SQLITE_URL" envDefault:"./casefile.sqlite"`
	Addr      string `env:"CASEFILE_ADDR" envDefault:"localhost:4000"`
	PprofPort string `env:"CASEFILE_PPROF_PORT" envDefault:":6060"`
	// ModelsFile optionally points to a YAML document overriding the default model registry.
	ModelsFile   string        `env:"CASEFILE_MODELS_FILE" envDefault:""`
	StageTimeout time.Duration `env:"CASEFILE_STAGE_TIMEOUT" envDefault:"2m"`
}

// LoadDotEnv reads variables from .env files into the process environment. A missing file is not an error.
func LoadDotEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}
	var existing []string
	for _, f := range filenames {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return errors.Wrap(err, "load .env", slog.Any("files", existing))
	}
	return nil
}

// Load populates the configuration using lookupEnv, which has the signature of [os.LookupEnv].
func Load(lookupEnv func(string) (string, bool)) (Config, error) {
	var cfg Config
	if err := envstruct.Populate(&cfg, lookupEnv); err != nil {
		return Config{}, errors.Wrap(err, "populate config")
	}
	return cfg, nil
}

// Keys returns the provider API keys.
func (c Config) Keys() ai.Keys {
	return ai.Keys{OpenAI: c.OpenAIAPIKey, Groq: c.GroqAPIKey}
}

// Registry returns the default model registry, with the overrides from ModelsFile applied when set.
func (c Config) Registry() (ai.Registry, error) {
	if c.ModelsFile == "" {
		return ai.DefaultRegistry(), nil
	}
	f, err := os.Open(c.ModelsFile)
	if err != nil {
		return ai.Registry{}, errors.Wrap(err, "open models file", slog.String("path", c.ModelsFile))
	}
	defer f.Close()
	registry, err := ai.LoadRegistry(f)
	if err != nil {
		return ai.Registry{}, errors.Wrap(err, "load registry", slog.String("path", c.ModelsFile))
	}
	return registry, nil
}

// Clients builds the completion clients of the configured registry.
func (c Config) Clients() (ai.Clients, error) {
	registry, err := c.Registry()
	if err != nil {
		return ai.Clients{}, err
	}
	clients, err := registry.Clients(c.Keys())
	if err != nil {
		return ai.Clients{}, errors.Wrap(err, "construct model clients")
	}
	return clients, nil
}
