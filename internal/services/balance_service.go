package services

import (
	"strings"

	"go.uber.org/zap"

	"wayfare/internal/providers"
)

const maxInjectedPerTheme = 2
const maxFoodStops = 2

var foodKeywords = []string{"food", "restaurant", "cafe", "dining", "cuisine"}
var culturalKeywords = []string{"museum", "historic", "monument", "cultural"}

// InterestBalancerInterface corrects an advisor ranking so every theme the
// user asked for is represented, regardless of ranking quality.
type InterestBalancerInterface interface {
	Rebalance(rankedIDs []string, pool []providers.PointOfInterest, interests []string) []string
}

type InterestBalancer struct {
	logger *zap.Logger
}

func NewInterestBalancer(logger *zap.Logger) InterestBalancerInterface {
	return &InterestBalancer{logger: logger}
}

func matchesAny(s string, keywords []string) bool {
	lower := strings.ToLower(s)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func wantsTheme(interests []string, keywords []string) bool {
	for _, interest := range interests {
		if matchesAny(interest, keywords) {
			return true
		}
	}
	return false
}

func (b *InterestBalancer) Rebalance(rankedIDs []string, pool []providers.PointOfInterest, interests []string) []string {
	// Nothing to balance when the user named a single interest.
	if len(interests) < 2 {
		return rankedIDs
	}

	byID := make(map[string]providers.PointOfInterest, len(pool))
	for _, poi := range pool {
		byID[poi.ID] = poi
	}

	out := rankedIDs
	if wantsTheme(interests, foodKeywords) {
		out = b.ensureTheme(out, pool, byID, foodKeywords, "food")
	}
	if wantsTheme(interests, culturalKeywords) {
		out = b.ensureTheme(out, pool, byID, culturalKeywords, "cultural")
	}
	out = b.trimFood(out, byID)

	return out
}

// ensureTheme injects up to two matching candidates from the full pool when
// the ranked selection has none for a requested theme.
func (b *InterestBalancer) ensureTheme(
	rankedIDs []string,
	pool []providers.PointOfInterest,
	byID map[string]providers.PointOfInterest,
	keywords []string,
	theme string,
) []string {
	for _, id := range rankedIDs {
		if matchesAny(byID[id].Category, keywords) {
			return rankedIDs
		}
	}

	selected := make(map[string]bool, len(rankedIDs))
	for _, id := range rankedIDs {
		selected[id] = true
	}

	out := rankedIDs
	injected := 0
	for _, poi := range pool {
		if injected == maxInjectedPerTheme {
			break
		}
		if selected[poi.ID] || !matchesAny(poi.Category, keywords) {
			continue
		}
		out = append(out, poi.ID)
		injected++
	}

	if injected > 0 {
		b.logger.Info("Injected candidates for underrepresented theme",
			zap.String("theme", theme),
			zap.Int("count", injected))
	}
	return out
}

func (b *InterestBalancer) trimFood(rankedIDs []string, byID map[string]providers.PointOfInterest) []string {
	foodCount := 0
	for _, id := range rankedIDs {
		if matchesAny(byID[id].Category, foodKeywords) {
			foodCount++
		}
	}
	if foodCount <= maxFoodStops {
		return rankedIDs
	}

	out := make([]string, 0, len(rankedIDs))
	kept := 0
	for _, id := range rankedIDs {
		if matchesAny(byID[id].Category, foodKeywords) {
			if kept == maxFoodStops {
				continue
			}
			kept++
		}
		out = append(out, id)
	}

	b.logger.Info("Trimmed food stops", zap.Int("dropped", foodCount-maxFoodStops))
	return out
}
