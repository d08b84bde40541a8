package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// PlanningAdvisorInterface is the LLM-backed capability the planner consults.
// Every method is best-effort: callers have a deterministic fallback and must
// never fail a job because the advisor is down.
type PlanningAdvisorInterface interface {
	MapInterestsToCategories(ctx context.Context, interests []string, language, city string, available []PoiCategory) ([]string, error)
	EstimateDwellMinutes(ctx context.Context, poi PointOfInterest, language string, defaults map[string]int, floor, ceiling int) (int, error)
	RankPois(ctx context.Context, candidates []PointOfInterest, interests []string, language string, mode TravelMode, maxPois, budgetMinutes int) ([]string, error)
	GenerateDescriptions(ctx context.Context, stops []PointOfInterest, language, city string) (map[string]string, error)
}

// NewPlanningAdvisor selects the advisor implementation from config.
func NewPlanningAdvisor(provider, apiKey, model string) (PlanningAdvisorInterface, error) {
	switch strings.ToLower(provider) {
	case "openai":
		return NewOpenAIAdvisor(apiKey, model), nil
	case "gemini":
		return NewGeminiAdvisor(apiKey, model)
	default:
		return nil, fmt.Errorf("unsupported advisor provider: %s", provider)
	}
}

// OpenAIAdvisor implements the advisor over chat completions with JSON-only
// responses.
type OpenAIAdvisor struct {
	client *openai.Client
	model  string
}

func NewOpenAIAdvisor(apiKey, model string) *OpenAIAdvisor {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIAdvisor{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (a *OpenAIAdvisor) completeJSON(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: 0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a travel planning assistant. Always answer with a single JSON object, no prose, no markdown.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices returned")
	}
	content := resp.Choices[0].Message.Content
	if !json.Valid([]byte(content)) {
		return "", fmt.Errorf("openai: response is not valid json")
	}
	return content, nil
}

func (a *OpenAIAdvisor) MapInterestsToCategories(ctx context.Context, interests []string, language, city string, available []PoiCategory) ([]string, error) {
	content, err := a.completeJSON(ctx, buildCategoryPrompt(interests, language, city, available))
	if err != nil {
		return nil, err
	}
	return parseCategoryResponse(content)
}

func (a *OpenAIAdvisor) EstimateDwellMinutes(ctx context.Context, poi PointOfInterest, language string, defaults map[string]int, floor, ceiling int) (int, error) {
	content, err := a.completeJSON(ctx, buildDwellPrompt(poi, language, defaults, floor, ceiling))
	if err != nil {
		return 0, err
	}
	return parseDwellResponse(content)
}

func (a *OpenAIAdvisor) RankPois(ctx context.Context, candidates []PointOfInterest, interests []string, language string, mode TravelMode, maxPois, budgetMinutes int) ([]string, error) {
	content, err := a.completeJSON(ctx, buildRankPrompt(candidates, interests, language, mode, maxPois, budgetMinutes))
	if err != nil {
		return nil, err
	}
	return parseRankResponse(content)
}

func (a *OpenAIAdvisor) GenerateDescriptions(ctx context.Context, stops []PointOfInterest, language, city string) (map[string]string, error) {
	content, err := a.completeJSON(ctx, buildDescriptionPrompt(stops, language, city))
	if err != nil {
		return nil, err
	}
	return parseDescriptionResponse(content)
}

var _ PlanningAdvisorInterface = (*OpenAIAdvisor)(nil)
