package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiAdvisor implements the advisor on Gemini with JSON-mode responses.
type GeminiAdvisor struct {
	client *genai.Client
	model  string
}

func NewGeminiAdvisor(apiKey, model string) (*GeminiAdvisor, error) {
	if model == "" {
		model = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiAdvisor{client: client, model: model}, nil
}

func (a *GeminiAdvisor) completeJSON(ctx context.Context, prompt string) (string, error) {
	m := a.client.GenerativeModel(a.model)
	m.ResponseMIMEType = "application/json"
	m.SetTemperature(0.1)
	m.SetTopP(0.5)
	m.SetTopK(20)

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: no content")
	}

	content := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	if !json.Valid([]byte(content)) {
		return "", fmt.Errorf("gemini: response is not valid json")
	}
	return content, nil
}

func (a *GeminiAdvisor) MapInterestsToCategories(ctx context.Context, interests []string, language, city string, available []PoiCategory) ([]string, error) {
	content, err := a.completeJSON(ctx, buildCategoryPrompt(interests, language, city, available))
	if err != nil {
		return nil, err
	}
	return parseCategoryResponse(content)
}

func (a *GeminiAdvisor) EstimateDwellMinutes(ctx context.Context, poi PointOfInterest, language string, defaults map[string]int, floor, ceiling int) (int, error) {
	content, err := a.completeJSON(ctx, buildDwellPrompt(poi, language, defaults, floor, ceiling))
	if err != nil {
		return 0, err
	}
	return parseDwellResponse(content)
}

func (a *GeminiAdvisor) RankPois(ctx context.Context, candidates []PointOfInterest, interests []string, language string, mode TravelMode, maxPois, budgetMinutes int) ([]string, error) {
	content, err := a.completeJSON(ctx, buildRankPrompt(candidates, interests, language, mode, maxPois, budgetMinutes))
	if err != nil {
		return nil, err
	}
	return parseRankResponse(content)
}

func (a *GeminiAdvisor) GenerateDescriptions(ctx context.Context, stops []PointOfInterest, language, city string) (map[string]string, error) {
	content, err := a.completeJSON(ctx, buildDescriptionPrompt(stops, language, city))
	if err != nil {
		return nil, err
	}
	return parseDescriptionResponse(content)
}

func (a *GeminiAdvisor) Close() error {
	return a.client.Close()
}

var _ PlanningAdvisorInterface = (*GeminiAdvisor)(nil)
