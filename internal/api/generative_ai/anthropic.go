package generativeAI

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/FACorreiaa/go-travelmate/config"
)

const defaultMaxTokens = 1024

type AnthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

var _ Client = (*AnthropicClient)(nil)

func NewAnthropicClient(cfg config.ProviderConfig, maxTokens int, httpClient *http.Client) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY environment variable is not set")
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(httpClient),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	return &AnthropicClient{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: int64(maxTokens),
	}, nil
}

// Complete extracts system messages into the System parameter; the
// remaining turns are sent as user and assistant messages.
func (a *AnthropicClient) Complete(ctx context.Context, messages []Message, temperature float32) (string, error) {
	system, turns := splitSystem(NormalizeMessages(messages))
	if len(turns) == 0 {
		return "", errors.New("anthropic: at least one user message is required")
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   a.maxTokens,
		Temperature: anthropic.Float(float64(temperature)),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	for _, m := range turns {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == RoleAssistant {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(block))
			continue
		}
		params.Messages = append(params.Messages, anthropic.NewUserMessage(block))
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}
