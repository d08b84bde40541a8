package providers

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Prompt builders and response parsers shared by the OpenAI and Gemini
// advisors. Responses are strict JSON; parsers reject anything else so the
// planner falls back deterministically.

func buildCategoryPrompt(interests []string, language, city string, available []PoiCategory) string {
	var b strings.Builder
	b.WriteString("Map the traveler interests below onto POI category ids.\n")
	b.WriteString(`Return JSON only: {"category_ids": ["id1", "id2"]}` + "\n")
	b.WriteString("Use only ids from the available list. Pick at most 8.\n\n")
	fmt.Fprintf(&b, "Interests: %s\n", strings.Join(interests, ", "))
	if city != "" {
		fmt.Fprintf(&b, "City: %s\n", city)
	}
	fmt.Fprintf(&b, "Language: %s\n\nAvailable categories:\n", language)
	for _, c := range available {
		fmt.Fprintf(&b, "- ID:%s | Name:%s\n", c.ID, c.Name)
	}
	return b.String()
}

func parseCategoryResponse(content string) ([]string, error) {
	var payload struct {
		CategoryIDs []string `json:"category_ids"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("parse category response: %w", err)
	}
	return payload.CategoryIDs, nil
}

func buildDwellPrompt(poi PointOfInterest, language string, defaults map[string]int, floor, ceiling int) string {
	var b strings.Builder
	b.WriteString("Estimate how many minutes a traveler spends at this place.\n")
	b.WriteString(`Return JSON only: {"minutes": 60}` + "\n\n")
	fmt.Fprintf(&b, "Name: %s\nCategory: %s\nAddress: %s\nLanguage: %s\n", poi.Name, poi.Category, poi.Address, language)
	fmt.Fprintf(&b, "Answer between %d and %d minutes.\n", floor, ceiling)
	if len(defaults) > 0 {
		b.WriteString("Typical defaults by category:\n")
		for cat, minutes := range defaults {
			fmt.Fprintf(&b, "- %s: %d\n", cat, minutes)
		}
	}
	return b.String()
}

func parseDwellResponse(content string) (int, error) {
	var payload struct {
		Minutes int `json:"minutes"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return 0, fmt.Errorf("parse dwell response: %w", err)
	}
	if payload.Minutes <= 0 {
		return 0, fmt.Errorf("dwell estimate must be positive, got %d", payload.Minutes)
	}
	return payload.Minutes, nil
}

func buildRankPrompt(candidates []PointOfInterest, interests []string, language string, mode TravelMode, maxPois, budgetMinutes int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Select and order the best up to %d places for this traveler.\n", maxPois)
	b.WriteString(`Return JSON only: {"poi_ids": ["id1", "id2"]}` + "\n")
	b.WriteString("Use only ids from the candidate list. Balance the interests; avoid near-duplicates.\n\n")
	fmt.Fprintf(&b, "Interests: %s\nTravel mode: %s\nTime available: %d minutes\nLanguage: %s\n\nCandidates:\n",
		strings.Join(interests, ", "), mode, budgetMinutes, language)
	for _, c := range candidates {
		fmt.Fprintf(&b, "- ID:%s | Name:%s | Category:%s | Visit:%dmin | Rating:%.1f\n",
			c.ID, c.Name, c.Category, c.VisitMinutes, c.Rating)
	}
	return b.String()
}

func parseRankResponse(content string) ([]string, error) {
	var payload struct {
		PoiIDs []string `json:"poi_ids"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("parse rank response: %w", err)
	}
	return payload.PoiIDs, nil
}

func buildDescriptionPrompt(stops []PointOfInterest, language, city string) string {
	var b strings.Builder
	b.WriteString("Write a short spoken-style description (2-3 sentences) for each stop, as a friendly local guide would narrate it.\n")
	b.WriteString(`Return JSON only: {"descriptions": {"<poi id>": "text"}}` + "\n\n")
	fmt.Fprintf(&b, "Language: %s\n", language)
	if city != "" {
		fmt.Fprintf(&b, "City: %s\n", city)
	}
	b.WriteString("\nStops:\n")
	for _, s := range stops {
		fmt.Fprintf(&b, "- ID:%s | Name:%s | Category:%s | Address:%s\n", s.ID, s.Name, s.Category, s.Address)
	}
	return b.String()
}

func parseDescriptionResponse(content string) (map[string]string, error) {
	var payload struct {
		Descriptions map[string]string `json:"descriptions"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("parse description response: %w", err)
	}
	return payload.Descriptions, nil
}
