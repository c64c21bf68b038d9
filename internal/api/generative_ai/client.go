package generativeAI

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/FACorreiaa/go-travelmate/app/observability/metrics"
	"github.com/FACorreiaa/go-travelmate/config"
)

// ErrEmptyCompletion is returned when a provider answers with no text.
var ErrEmptyCompletion = errors.New("completion returned empty text")

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged entry of a completion request.
type Message struct {
	Role    Role
	Content string
}

func SystemMessage(content string) Message    { return Message{Role: RoleSystem, Content: content} }
func UserMessage(content string) Message      { return Message{Role: RoleUser, Content: content} }
func AssistantMessage(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// Client turns role-tagged messages and a temperature into completion text.
// Implementations do not retry; failures are returned to the caller as is.
type Client interface {
	Complete(ctx context.Context, messages []Message, temperature float32) (string, error)
}

// ProviderInfo identifies the backend behind a Client.
type ProviderInfo struct {
	Provider string
	Model    string
}

// NormalizeMessages trims content, drops empty messages and maps unknown
// roles to user.
func NormalizeMessages(messages []Message) []Message {
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		role := m.Role
		switch role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			role = RoleUser
		}
		out = append(out, Message{Role: role, Content: content})
	}
	return out
}

// splitSystem separates system messages, joined in order, from the
// conversation turns for providers that take the system prompt on its own.
func splitSystem(messages []Message) (string, []Message) {
	var system []string
	turns := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, m)
	}
	return strings.Join(system, "\n\n"), turns
}

// NewClientFromConfig selects the provider named by cfg.Provider and wraps
// it with tracing, metrics and the per-call timeout.
func NewClientFromConfig(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (*InstrumentedClient, error) {
	httpClient := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}

	var (
		inner Client
		info  ProviderInfo
		err   error
	)
	switch strings.ToLower(cfg.Provider) {
	case "gemini", "google":
		info = ProviderInfo{Provider: "gemini", Model: cfg.Gemini.Model}
		inner, err = NewGeminiClient(ctx, cfg.Gemini, httpClient)
	case "anthropic", "claude":
		info = ProviderInfo{Provider: "anthropic", Model: cfg.Anthropic.Model}
		inner, err = NewAnthropicClient(cfg.Anthropic, cfg.MaxTokens, httpClient)
	case "openai":
		info = ProviderInfo{Provider: "openai", Model: cfg.OpenAI.Model}
		inner, err = NewOpenAIClient(cfg.OpenAI, cfg.MaxTokens, httpClient)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", info.Provider, err)
	}

	logger.Info("Completion client ready", slog.String("provider", info.Provider), slog.String("model", info.Model))
	return NewInstrumentedClient(inner, info, cfg.Timeout, metrics.Get(), logger), nil
}
