package ai

import (
	"context"
	"io"
	"log/slog"
	"math"
	"strings"

	"github.com/myrjola/casefile/internal/errors"
	"github.com/sashabaranov/go-openai"
)

var (
	// ErrModelFailed wraps every failed model invocation (network, auth, quota, malformed response).
	ErrModelFailed = errors.NewSentinel("model invocation failed")
	// ErrEmptyCompletion is returned when the model responds without any content.
	ErrEmptyCompletion = errors.NewSentinel("empty completion")
)

// Format selects the response format requested from the model.
type Format int

const (
	FormatText Format = iota
	// FormatJSON asks the model to respond with a single JSON object.
	FormatJSON
)

// Completer generates chat completions with a fixed model configuration.
type Completer interface {
	// Model returns the configuration the completer was built with.
	Model() ModelConfig
	// SyncCompletion returns the whole completion at once.
	SyncCompletion(ctx context.Context, messages []openai.ChatCompletionMessage, format Format) (string, error)
	// StreamCompletion sends the completion to chunks piece by piece and returns the concatenated answer.
	// chunks is closed when the function returns.
	StreamCompletion(ctx context.Context, messages []openai.ChatCompletionMessage, chunks chan<- string) (string, error)
}

// MaxTokens caps the length of every completion.
const MaxTokens = 4096

// Client is a [Completer] backed by an OpenAI-compatible chat completion API.
type Client struct {
	client *openai.Client
	model  ModelConfig
}

// NewClient builds a client for the model. It performs no network I/O.
func NewClient(model ModelConfig, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.Wrap(ErrMissingAPIKey, "new client",
			slog.String("provider", string(model.Provider)), slog.String("model", model.Model))
	}
	config := openai.DefaultConfig(apiKey)
	switch {
	case model.BaseURL != "":
		config.BaseURL = model.BaseURL
	case model.Provider == ProviderGroq:
		config.BaseURL = groqBaseURL
	}
	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}, nil
}

func (c *Client) Model() ModelConfig {
	return c.model
}

func (c *Client) request(messages []openai.ChatCompletionMessage) openai.ChatCompletionRequest {
	temperature := c.model.Temperature
	if temperature == 0 {
		// go-openai omits a zero temperature and the API would fall back to its default of 1.
		temperature = math.SmallestNonzeroFloat32
	}
	return openai.ChatCompletionRequest{ //nolint:exhaustruct // this is better for readability
		Model:       c.model.Model,
		MaxTokens:   MaxTokens,
		Temperature: temperature,
		Messages:    messages,
	}
}

func (c *Client) SyncCompletion(
	ctx context.Context,
	messages []openai.ChatCompletionMessage,
	format Format,
) (string, error) {
	request := c.request(messages)
	if format == FormatJSON {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	completion, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", errors.Wrap(errors.Join(ErrModelFailed, err), "create chat completion", slog.Any("model", c.model))
	}
	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		return "", errors.Wrap(errors.Join(ErrModelFailed, ErrEmptyCompletion), "read chat completion",
			slog.Any("model", c.model))
	}
	return completion.Choices[0].Message.Content, nil
}

func (c *Client) StreamCompletion(
	ctx context.Context,
	messages []openai.ChatCompletionMessage,
	chunks chan<- string,
) (string, error) {
	defer close(chunks)

	request := c.request(messages)
	request.Stream = true
	stream, err := c.client.CreateChatCompletionStream(ctx, request)
	if err != nil {
		return "", errors.Wrap(errors.Join(ErrModelFailed, err), "create chat completion stream",
			slog.Any("model", c.model))
	}
	defer stream.Close()

	var answer strings.Builder
	for {
		var response openai.ChatCompletionStreamResponse
		response, err = stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return answer.String(), errors.Wrap(errors.Join(ErrModelFailed, err), "receive chat completion stream",
				slog.Any("model", c.model))
		}
		if len(response.Choices) == 0 || response.Choices[0].Delta.Content == "" {
			continue
		}
		chunk := response.Choices[0].Delta.Content
		answer.WriteString(chunk)
		select {
		case chunks <- chunk:
		case <-ctx.Done():
			return answer.String(), errors.Wrap(ctx.Err(), "send chunk")
		}
	}
	if strings.TrimSpace(answer.String()) == "" {
		return "", errors.Wrap(errors.Join(ErrModelFailed, ErrEmptyCompletion), "read chat completion stream",
			slog.Any("model", c.model))
	}
	return answer.String(), nil
}
