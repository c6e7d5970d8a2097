package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"github.com/teemow/todoagent/internal/logging"
)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = "gpt-4o-mini"

// CompletionRequest is a single prompt/response exchange with a language model.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	// JSON asks the model to answer with a JSON object.
	JSON bool
}

// Completer produces a completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// OpenAIConfig configures an OpenAICompleter.
type OpenAIConfig struct {
	APIKey string
	Model  string
	// BaseURL points at an OpenAI-compatible endpoint. Empty uses api.openai.com.
	BaseURL string
	Timeout time.Duration
}

// OpenAICompleter is a Completer backed by the OpenAI chat completions API.
// Calls go through a circuit breaker so that a failing endpoint is not
// hammered once per email.
type OpenAICompleter struct {
	client *openai.Client
	model  string
	cb     *gobreaker.CircuitBreaker
}

// NewOpenAICompleter creates a completer from cfg.
func NewOpenAICompleter(cfg OpenAIConfig, logger *slog.Logger) (*OpenAICompleter, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	logger = logging.WithComponent(logging.OrDefault(logger), "openai")

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &OpenAICompleter{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "openai",
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed",
					slog.String("breaker", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()))
			},
		}),
	}, nil
}

// Model returns the configured chat model.
func (c *OpenAICompleter) Model() string {
	return c.model
}

// Healthy reports false while the circuit breaker is open.
func (c *OpenAICompleter) Healthy() bool {
	return c.cb.State() != gobreaker.StateOpen
}

// Complete implements Completer.
func (c *OpenAICompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: req.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	out, err := c.cb.Execute(func() (interface{}, error) {
		resp, err := c.client.CreateChatCompletion(ctx, chatReq)
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return nil, errors.New("completion returned no choices")
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	return out.(string), nil
}
