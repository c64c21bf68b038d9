package generativeAI

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/genai"

	"github.com/FACorreiaa/go-travelmate/config"
)

// contentGenerator is the part of *genai.Models the Gemini client uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiClient struct {
	models contentGenerator
	model  string
}

var _ Client = (*GeminiClient)(nil)

func NewGeminiClient(ctx context.Context, cfg config.ProviderConfig, httpClient *http.Client) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("GOOGLE_GEMINI_API_KEY environment variable is not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, err
	}
	return newGeminiClient(client.Models, cfg.Model), nil
}

func newGeminiClient(models contentGenerator, model string) *GeminiClient {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiClient{models: models, model: model}
}

// Complete sends system messages as the system instruction and maps the
// assistant role to Gemini's model role.
func (g *GeminiClient) Complete(ctx context.Context, messages []Message, temperature float32) (string, error) {
	system, turns := splitSystem(NormalizeMessages(messages))

	contents := make([]*genai.Content, 0, len(turns))
	for _, m := range turns {
		role := genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, genai.Role(role)))
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](temperature),
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	result, err := g.models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", err
	}
	return result.Text(), nil
}
