package request_models

import "strings"

type ItineraryRequest struct {
	StartLat float64 `json:"start_lat" binding:"min=-90,max=90"`
	StartLon float64 `json:"start_lon" binding:"min=-180,max=180"`
	EndLat   float64 `json:"end_lat" binding:"min=-90,max=90"`
	EndLon   float64 `json:"end_lon" binding:"min=-180,max=180"`

	Mode               string `json:"mode" binding:"required,oneof=walking transit driving"`
	MaxDurationMinutes int    `json:"max_duration_minutes" binding:"required,gt=0"`

	// Free-text, comma-separated, e.g. "museum, street food"
	Interests string `json:"interests" binding:"required"`
	Language  string `json:"language"`
}

// InterestTerms splits the free-text interests into trimmed non-empty terms.
func (r *ItineraryRequest) InterestTerms() []string {
	parts := strings.Split(r.Interests, ",")
	terms := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}
