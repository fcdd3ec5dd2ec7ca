package ai

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/myrjola/casefile/internal/errors"
	"gopkg.in/yaml.v3"
)

// Provider names a hosted chat completion API.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	// ProviderGroq is reached through Groq's OpenAI-compatible endpoint.
	ProviderGroq Provider = "groq"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

var (
	ErrInvalidRegistry = errors.NewSentinel("invalid model registry")
	ErrMissingAPIKey   = errors.NewSentinel("missing API key")
)

// ModelConfig is an immutable description of one tuned language model client.
type ModelConfig struct {
	Name        string   `yaml:"name"`
	Provider    Provider `yaml:"provider"`
	Model       string   `yaml:"model"`
	Temperature float32  `yaml:"temperature"`
	// BaseURL overrides the provider's API endpoint, e.g. for a proxy.
	BaseURL string `yaml:"base_url,omitempty"`
}

func (m ModelConfig) String() string {
	return fmt.Sprintf("%s (%s/%s, temperature %.2f)", m.Name, m.Provider, m.Model, m.Temperature)
}

// LogValue groups the model configuration in log output.
func (m ModelConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("name", m.Name),
		slog.String("provider", string(m.Provider)),
		slog.String("model", m.Model),
		slog.Float64("temperature", float64(m.Temperature)),
	)
}

// Registry holds the three differently tuned models used for case generation and interrogation.
type Registry struct {
	// Creative is fast and has high temperature for drafting cases and role-playing NPCs.
	Creative ModelConfig `yaml:"creative"`
	// Cheap is precise and inexpensive for repairs and summaries.
	Cheap ModelConfig `yaml:"cheap"`
	// Full is the most capable precise model for reviewing solutions.
	Full ModelConfig `yaml:"full"`
}

// DefaultRegistry returns the stock model configuration.
func DefaultRegistry() Registry {
	return Registry{
		Creative: ModelConfig{
			Name:        "creative",
			Provider:    ProviderGroq,
			Model:       "llama-3.1-70b-versatile",
			Temperature: 0.8, //nolint:mnd // tuned for variety
		},
		Cheap: ModelConfig{
			Name:        "cheap",
			Provider:    ProviderOpenAI,
			Model:       "gpt-4.1-mini",
			Temperature: 0.2, //nolint:mnd // tuned for precision
		},
		Full: ModelConfig{
			Name:        "full",
			Provider:    ProviderOpenAI,
			Model:       "gpt-4.1",
			Temperature: 0.1, //nolint:mnd // tuned for precision
		},
	}
}

// Models lists the configurations in role order.
func (r Registry) Models() []ModelConfig {
	return []ModelConfig{r.Creative, r.Cheap, r.Full}
}

// Validate checks that every model has a name, a model identifier, a known provider, and a non-negative temperature.
func (r Registry) Validate() error {
	var errorList []error
	for _, m := range r.Models() {
		attrs := []slog.Attr{slog.String("name", m.Name)}
		switch {
		case m.Name == "":
			errorList = append(errorList, errors.Wrap(ErrInvalidRegistry, "missing name"))
		case m.Model == "":
			errorList = append(errorList, errors.Wrap(ErrInvalidRegistry, "missing model", attrs...))
		case m.Provider != ProviderOpenAI && m.Provider != ProviderGroq:
			errorList = append(errorList, errors.Wrap(ErrInvalidRegistry,
				fmt.Sprintf("unknown provider %q", m.Provider), attrs...))
		case m.Temperature < 0:
			errorList = append(errorList, errors.Wrap(ErrInvalidRegistry, "negative temperature", attrs...))
		}
	}
	return errors.Join(errorList...)
}

// LoadRegistry reads a YAML document overriding the fields of [DefaultRegistry] it mentions.
//
//	creative:
//	  provider: openai
//	  model: gpt-4o-mini
//	full:
//	  temperature: 0
func LoadRegistry(r io.Reader) (Registry, error) {
	registry := DefaultRegistry()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&registry); err != nil && !errors.Is(err, io.EOF) {
		return Registry{}, errors.Wrap(ErrInvalidRegistry, "decode registry: "+err.Error())
	}
	if err := registry.Validate(); err != nil {
		return Registry{}, err
	}
	return registry, nil
}

// Keys holds the API keys per provider.
type Keys struct {
	OpenAI string
	Groq   string
}

func (k Keys) forProvider(p Provider) string {
	switch p {
	case ProviderOpenAI:
		return k.OpenAI
	case ProviderGroq:
		return k.Groq
	}
	return ""
}

// Clients are the completion clients constructed from a [Registry].
type Clients struct {
	Creative Completer
	Cheap    Completer
	Full     Completer
}

// Clients constructs a client for every model. No network I/O happens until the clients are used.
func (r Registry) Clients(keys Keys) (Clients, error) {
	if err := r.Validate(); err != nil {
		return Clients{}, err
	}
	var (
		clients = make([]*Client, 0, 3) //nolint:mnd // one per role
		err     error
	)
	for _, m := range r.Models() {
		var client *Client
		if client, err = NewClient(m, keys.forProvider(m.Provider)); err != nil {
			return Clients{}, err
		}
		clients = append(clients, client)
	}
	return Clients{Creative: clients[0], Cheap: clients[1], Full: clients[2]}, nil
}
