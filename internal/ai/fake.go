package ai

import (
	"context"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"
)

// Fake is a deterministic [Completer] for tests. It is safe for concurrent use.
type Fake struct {
	// Config is returned by Model.
	Config ModelConfig
	// Responses are returned in order, one per call. The last response is repeated once exhausted.
	Responses []string
	// Err, if set, is returned instead of a response.
	Err error

	mu    sync.Mutex
	calls [][]openai.ChatCompletionMessage
}

// NewFake creates a fake completer answering with the given responses.
func NewFake(name string, responses ...string) *Fake {
	return &Fake{
		Config:    ModelConfig{Name: name, Provider: ProviderOpenAI, Model: "fake-" + name, Temperature: 0},
		Responses: responses,
	}
}

func (f *Fake) Model() ModelConfig {
	return f.Config
}

// Calls returns the messages of every call so far.
func (f *Fake) Calls() [][]openai.ChatCompletionMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]openai.ChatCompletionMessage(nil), f.calls...)
}

func (f *Fake) next(messages []openai.ChatCompletionMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := len(f.calls)
	f.calls = append(f.calls, messages)
	if f.Err != nil {
		return "", f.Err
	}
	if len(f.Responses) == 0 {
		return "", ErrEmptyCompletion
	}
	return f.Responses[min(idx, len(f.Responses)-1)], nil
}

func (f *Fake) SyncCompletion(
	_ context.Context,
	messages []openai.ChatCompletionMessage,
	_ Format,
) (string, error) {
	return f.next(messages)
}

// StreamCompletion sends the response word by word.
func (f *Fake) StreamCompletion(
	ctx context.Context,
	messages []openai.ChatCompletionMessage,
	chunks chan<- string,
) (string, error) {
	defer close(chunks)
	response, err := f.next(messages)
	if err != nil {
		return "", err
	}
	for _, word := range strings.SplitAfter(response, " ") {
		select {
		case chunks <- word:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return response, nil
}
