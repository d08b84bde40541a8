package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"wayfare/internal/config"
	"wayfare/internal/models/request_models"
	"wayfare/internal/models/response_models"
	"wayfare/internal/providers"
	"wayfare/pkg/utils"
)

const rawInterestFallbackTerms = 3

// Categories searched when the advisor cannot map the user's interests.
var genericCategoryNames = []string{"restaurant", "landmark", "park", "museum", "attraction"}

type ItineraryPlannerInterface interface {
	PlanItinerary(ctx context.Context, req request_models.ItineraryRequest) (*response_models.ItineraryResult, error)
}

// PlannerService runs the planning pipeline for one job: feasibility,
// reachability, candidate search, ranking, balancing, greedy selection and
// assembly. Stages run strictly in order; advisor stages degrade to
// deterministic fallbacks, they never fail the job on their own.
type PlannerService struct {
	maps     providers.MapProviderInterface
	advisor  providers.PlanningAdvisorInterface
	ranker   providers.EmbeddingRankerInterface
	balancer InterestBalancerInterface
	cfg      config.PlannerConfig
	logger   *zap.Logger
}

func NewPlannerService(
	maps providers.MapProviderInterface,
	advisor providers.PlanningAdvisorInterface,
	ranker providers.EmbeddingRankerInterface,
	balancer InterestBalancerInterface,
	cfg config.PlannerConfig,
	logger *zap.Logger,
) ItineraryPlannerInterface {
	return &PlannerService{
		maps:     maps,
		advisor:  advisor,
		ranker:   ranker,
		balancer: balancer,
		cfg:      cfg,
		logger:   logger,
	}
}

func (p *PlannerService) PlanItinerary(ctx context.Context, req request_models.ItineraryRequest) (*response_models.ItineraryResult, error) {
	mode, err := providers.ParseMode(req.Mode)
	if err != nil {
		return nil, utils.WrapPlanningError(utils.ReasonInternalError, "invalid travel mode on job record", err)
	}
	if req.MaxDurationMinutes <= 0 {
		return nil, utils.NewPlanningError(utils.ReasonInternalError, "duration budget must be positive")
	}

	start := utils.LocationPoint{Lat: req.StartLat, Lon: req.StartLon}
	end := utils.LocationPoint{Lat: req.EndLat, Lon: req.EndLon}
	budget := float64(req.MaxDurationMinutes)
	interests := req.InterestTerms()
	routes := providers.NewRouteCache(p.maps)

	// Local start time; timezone failures degrade to UTC.
	localStart := p.localStartTime(ctx, start)

	// Feasibility gate: the round-trip commute alone must fit the budget.
	baseRoute, err := routes.Route(ctx, start, end, mode)
	if err != nil {
		return nil, utils.WrapPlanningError(utils.ReasonRoutingFailed, "base route computation failed", err)
	}
	if 2*baseRoute.TravelTimeMinutes > budget {
		return nil, utils.NewPlanningError(utils.ReasonCommuteExceedsBudget,
			fmt.Sprintf("round-trip commute of %.0f minutes exceeds the %d minute budget",
				2*baseRoute.TravelTimeMinutes, req.MaxDurationMinutes))
	}

	// Transit probe. Unavailable transit downgrades the fallback search
	// speed to walking; the requested mode itself is unchanged.
	speedMode := mode
	if mode == providers.ModeTransit {
		available, probeErr := p.maps.IsTransitAvailable(ctx, start)
		if probeErr != nil {
			p.logger.Warn("Transit availability probe failed", zap.Error(probeErr))
		} else if !available {
			p.logger.Warn("No transit near start, using walking speed for reachability")
			speedMode = providers.ModeWalking
		}
	}

	center := utils.Midpoint(start, end)
	exploreMinutes := req.MaxDurationMinutes - int(2*baseRoute.TravelTimeMinutes)
	if exploreMinutes < p.cfg.MinExploreMinutes {
		exploreMinutes = p.cfg.MinExploreMinutes
	}

	boundary := p.reachabilityBoundary(ctx, center, mode, exploreMinutes)
	radiusKm := math.Max(p.cfg.AvgSpeedKmh(string(speedMode))*float64(exploreMinutes)/60, 1.0)

	city := p.resolveCity(ctx, center, req.Language)

	categoryIDs, categoryNames, err := p.mapCategories(ctx, interests, req.Language, city)
	if err != nil {
		return nil, err
	}

	pool, err := p.gatherCandidates(ctx, center, radiusKm, categoryIDs, categoryNames, interests)
	if err != nil {
		return nil, err
	}

	if len(boundary) > 0 {
		pool = p.filterByBoundary(pool, boundary)
		if len(pool) == 0 {
			return nil, utils.NewPlanningError(utils.ReasonNoPoisInIsochrone,
				"no candidates inside the reachable area")
		}
	}

	p.estimateDwellTimes(ctx, pool, req.Language)

	if p.cfg.OpeningHoursStrict {
		pool = p.filterByOpeningHours(pool, localStart)
		if len(pool) == 0 {
			return nil, utils.NewPlanningError(utils.ReasonNoOpenPois,
				"every candidate is closed during the visit window")
		}
	}

	ranked := p.rankCandidates(ctx, pool, interests, req.Language, mode, exploreMinutes)
	ranked = p.balancer.Rebalance(ranked, pool, interests)

	selected, totalMinutes, err := p.selectWithinBudget(ctx, routes, pool, ranked, start, end, mode, baseRoute, budget)
	if err != nil {
		return nil, err
	}

	p.redistributeSlack(selected, budget, totalMinutes)
	p.validateCoverage(selected, interests)
	p.describeStops(ctx, selected, req.Language, city)

	return p.assemble(ctx, routes, selected, start, end, mode, req, city)
}

func (p *PlannerService) localStartTime(ctx context.Context, start utils.LocationPoint) time.Time {
	tzID, err := p.maps.GetTimeZone(ctx, start)
	if err != nil {
		p.logger.Warn("Timezone lookup failed, using UTC", zap.Error(err))
		tzID = ""
	}
	return utils.LocalizeTime(time.Now().UTC(), tzID)
}

func (p *PlannerService) reachabilityBoundary(ctx context.Context, center utils.LocationPoint, mode providers.TravelMode, exploreMinutes int) []utils.LocationPoint {
	if !p.cfg.UseIsochrone {
		return nil
	}
	iso, err := p.maps.GetIsochrone(ctx, center, mode, exploreMinutes)
	if err != nil {
		p.logger.Warn("Isochrone computation failed, falling back to radius search", zap.Error(err))
		return nil
	}
	if iso == nil {
		return nil
	}
	return iso.Boundary
}

func (p *PlannerService) resolveCity(ctx context.Context, center utils.LocationPoint, language string) string {
	place, err := p.maps.ReverseGeocode(ctx, center, language)
	if err != nil {
		p.logger.Warn("Reverse geocode failed", zap.Error(err))
		return ""
	}
	return place.Locality
}

// mapCategories resolves the free-text interests into provider category ids,
// validated against the taxonomy. Returns the id list and an id->name lookup
// for fuzzy retries.
func (p *PlannerService) mapCategories(ctx context.Context, interests []string, language, city string) ([]string, map[string]string, error) {
	tree, err := p.maps.GetPoiCategoryTree(ctx, language)
	if err != nil {
		p.logger.Warn("Category tree fetch failed", zap.Error(err))
	}

	known := make(map[string]string, len(tree))
	for _, c := range tree {
		known[c.ID] = c.Name
	}

	relevant := relevantCategories(tree, interests, p.cfg.MaxRelevantCategories)

	var categoryIDs []string
	mapped, advErr := p.advisor.MapInterestsToCategories(ctx, interests, language, city, relevant)
	if advErr != nil {
		p.logger.Warn("Advisor category mapping failed, using generic categories", zap.Error(advErr))
	} else {
		for _, id := range mapped {
			if _, ok := known[id]; ok {
				categoryIDs = append(categoryIDs, id)
			} else {
				p.logger.Debug("Discarding unknown category id from advisor", zap.String("category_id", id))
			}
		}
	}

	if len(categoryIDs) == 0 {
		categoryIDs = genericCategories(tree)
	}
	if len(categoryIDs) == 0 {
		return nil, nil, utils.NewPlanningError(utils.ReasonNoPoisInIsochrone,
			"no searchable categories for the requested interests")
	}
	return categoryIDs, known, nil
}

// relevantCategories pre-filters the taxonomy to entries whose names overlap
// the interest terms, capped at the configured limit.
func relevantCategories(tree []providers.PoiCategory, interests []string, limit int) []providers.PoiCategory {
	matched := make([]providers.PoiCategory, 0, limit)
	rest := make([]providers.PoiCategory, 0, len(tree))
	for _, c := range tree {
		name := strings.ToLower(c.Name)
		hit := false
		for _, interest := range interests {
			for _, token := range strings.Fields(strings.ToLower(interest)) {
				if strings.Contains(name, token) {
					hit = true
					break
				}
			}
			if hit {
				break
			}
		}
		if hit {
			matched = append(matched, c)
		} else {
			rest = append(rest, c)
		}
	}

	for _, c := range rest {
		if len(matched) >= limit {
			break
		}
		matched = append(matched, c)
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}

func genericCategories(tree []providers.PoiCategory) []string {
	var ids []string
	for _, generic := range genericCategoryNames {
		for _, c := range tree {
			if strings.Contains(strings.ToLower(c.Name), generic) {
				ids = append(ids, c.ID)
				break
			}
		}
	}
	return ids
}

// gatherCandidates searches each category independently, retrying empty
// categories with a fuzzy search on the display name, and deduplicates by id
// in arrival order. A final fuzzy search over the raw interest terms is the
// last resort before giving up.
func (p *PlannerService) gatherCandidates(
	ctx context.Context,
	center utils.LocationPoint,
	radiusKm float64,
	categoryIDs []string,
	categoryNames map[string]string,
	interests []string,
) ([]providers.PointOfInterest, error) {
	var pool []providers.PointOfInterest
	seen := make(map[string]bool)

	appendPois := func(pois []providers.PointOfInterest) {
		for _, poi := range pois {
			if poi.ID == "" || seen[poi.ID] {
				continue
			}
			seen[poi.ID] = true
			pool = append(pool, poi)
		}
	}

	for _, categoryID := range categoryIDs {
		pois, err := p.maps.SearchPoisByCategory(ctx, center, []string{categoryID}, radiusKm, p.cfg.CategorySearchLimit)
		if err != nil {
			p.logger.Warn("Category search failed",
				zap.String("category_id", categoryID),
				zap.Error(err))
			continue
		}

		if len(pois) == 0 {
			if name := categoryNames[categoryID]; name != "" {
				pois, err = p.maps.SearchPoisFuzzy(ctx, center, []string{name}, radiusKm, p.cfg.CategorySearchLimit)
				if err != nil {
					p.logger.Warn("Fuzzy retry failed",
						zap.String("category", name),
						zap.Error(err))
					continue
				}
			}
		}
		appendPois(pois)
	}

	if len(pool) == 0 && len(interests) > 0 {
		terms := interests
		if len(terms) > rawInterestFallbackTerms {
			terms = terms[:rawInterestFallbackTerms]
		}
		pois, err := p.maps.SearchPoisFuzzy(ctx, center, terms, radiusKm, p.cfg.CategorySearchLimit)
		if err != nil {
			p.logger.Warn("Raw-interest fuzzy fallback failed", zap.Error(err))
		} else {
			appendPois(pois)
		}
	}

	if len(pool) == 0 {
		return nil, utils.NewPlanningError(utils.ReasonNoPoisInIsochrone,
			"no points of interest found in the reachable area")
	}
	return pool, nil
}

func (p *PlannerService) filterByBoundary(pool []providers.PointOfInterest, boundary []utils.LocationPoint) []providers.PointOfInterest {
	kept := pool[:0]
	for _, poi := range pool {
		if utils.PointInPolygon(poi.Point(), boundary) {
			kept = append(kept, poi)
		}
	}
	return kept
}

func (p *PlannerService) clampDwell(minutes int) int {
	if minutes < p.cfg.DwellFloorMinutes {
		return p.cfg.DwellFloorMinutes
	}
	if minutes > p.cfg.DwellCeilingMinutes {
		return p.cfg.DwellCeilingMinutes
	}
	return minutes
}

func (p *PlannerService) estimateDwellTimes(ctx context.Context, pool []providers.PointOfInterest, language string) {
	for i := range pool {
		minutes, err := p.advisor.EstimateDwellMinutes(ctx, pool[i], language,
			p.cfg.DefaultDwellByCategory, p.cfg.DwellFloorMinutes, p.cfg.DwellCeilingMinutes)
		if err != nil {
			minutes = p.cfg.DefaultDwellMinutes(pool[i].Category)
			p.logger.Debug("Dwell estimation fell back to defaults",
				zap.String("poi", pool[i].Name),
				zap.Error(err))
		}
		pool[i].VisitMinutes = p.clampDwell(minutes)
	}
}

// filterByOpeningHours drops candidates closed during their assumed visit
// window: arrival a fixed offset after journey start, departure after the
// estimated dwell. Candidates without hours data are assumed open.
func (p *PlannerService) filterByOpeningHours(pool []providers.PointOfInterest, localStart time.Time) []providers.PointOfInterest {
	arrival := localStart.Add(time.Duration(p.cfg.ArrivalOffsetMinutes) * time.Minute)
	arriveMinute := utils.MinuteOfDay(arrival)

	kept := pool[:0]
	for _, poi := range pool {
		if poi.OpeningHours == nil {
			kept = append(kept, poi)
			continue
		}
		departMinute := arriveMinute + poi.VisitMinutes
		if arriveMinute >= poi.OpeningHours.OpenMinute && departMinute <= poi.OpeningHours.CloseMinute {
			kept = append(kept, poi)
		}
	}
	return kept
}

func (p *PlannerService) rankCandidates(
	ctx context.Context,
	pool []providers.PointOfInterest,
	interests []string,
	language string,
	mode providers.TravelMode,
	budgetMinutes int,
) []string {
	valid := make(map[string]bool, len(pool))
	for _, poi := range pool {
		valid[poi.ID] = true
	}

	keepKnown := func(ids []string) []string {
		out := ids[:0]
		for _, id := range ids {
			if valid[id] {
				out = append(out, id)
			}
		}
		return out
	}

	ranked, err := p.advisor.RankPois(ctx, pool, interests, language, mode, p.cfg.MaxPois, budgetMinutes)
	if err == nil {
		if ranked = keepKnown(ranked); len(ranked) > 0 {
			return ranked
		}
	} else {
		p.logger.Warn("Advisor ranking failed, trying embedding similarity", zap.Error(err))
	}

	ranked, err = p.ranker.RankByEmbedding(ctx, pool, interests, p.cfg.MaxPois)
	if err == nil {
		if ranked = keepKnown(ranked); len(ranked) > 0 {
			return ranked
		}
	} else {
		p.logger.Warn("Embedding ranking failed, using arrival order", zap.Error(err))
	}

	limit := p.cfg.MaxPois
	if limit > len(pool) {
		limit = len(pool)
	}
	ids := make([]string, 0, limit)
	for _, poi := range pool[:limit] {
		ids = append(ids, poi.ID)
	}
	return ids
}

// selectWithinBudget walks the ranked ids in order and accepts a candidate
// whenever replacing the current direct-to-end leg with
// via-candidate-then-to-end still fits the budget. The running total starts
// at the round-trip base cost so the return commute stays reserved.
func (p *PlannerService) selectWithinBudget(
	ctx context.Context,
	routes *providers.RouteCache,
	pool []providers.PointOfInterest,
	rankedIDs []string,
	start, end utils.LocationPoint,
	mode providers.TravelMode,
	baseRoute *providers.RouteResult,
	budget float64,
) ([]providers.PointOfInterest, float64, error) {
	byID := make(map[string]providers.PointOfInterest, len(pool))
	for _, poi := range pool {
		byID[poi.ID] = poi
	}

	var selected []providers.PointOfInterest
	current := start
	currentToEnd := baseRoute.TravelTimeMinutes
	total := 2 * baseRoute.TravelTimeMinutes

	for _, id := range rankedIDs {
		// The cap applies to the final selection, not the ranked list, so
		// candidates injected by the balance enforcer stay eligible.
		if len(selected) == p.cfg.MaxPois {
			break
		}

		poi, ok := byID[id]
		if !ok {
			continue
		}

		legTo, err := routes.Route(ctx, current, poi.Point(), mode)
		if err != nil {
			return nil, 0, utils.WrapPlanningError(utils.ReasonRoutingFailed,
				fmt.Sprintf("leg route to %s failed", poi.Name), err)
		}
		legToEnd, err := routes.Route(ctx, poi.Point(), end, mode)
		if err != nil {
			return nil, 0, utils.WrapPlanningError(utils.ReasonRoutingFailed,
				fmt.Sprintf("leg route from %s failed", poi.Name), err)
		}

		projected := total - currentToEnd +
			legTo.TravelTimeMinutes + float64(poi.VisitMinutes) + legToEnd.TravelTimeMinutes
		if projected > budget {
			continue
		}

		selected = append(selected, poi)
		total = projected
		current = poi.Point()
		currentToEnd = legToEnd.TravelTimeMinutes
	}

	if len(selected) == 0 {
		return nil, 0, utils.NewPlanningError(utils.ReasonNoFeasibleStops,
			"no candidate fits the remaining time budget")
	}
	return selected, total, nil
}

// redistributeSlack spreads unused budget minutes evenly across the accepted
// stops' dwell times. Opening hours are not re-validated after extension.
func (p *PlannerService) redistributeSlack(selected []providers.PointOfInterest, budget, totalMinutes float64) {
	slack := int(budget - totalMinutes)
	if slack <= 0 || len(selected) == 0 {
		return
	}
	extra := slack / len(selected)
	remainder := slack % len(selected)
	for i := range selected {
		selected[i].VisitMinutes += extra
	}
	selected[0].VisitMinutes += remainder
	p.logger.Debug("Redistributed slack across stops",
		zap.Int("slack_minutes", slack),
		zap.Int("per_stop", extra))
}

// validateCoverage is a diagnostic pass only: requested themes missing from
// the final selection are logged, never raised.
func (p *PlannerService) validateCoverage(selected []providers.PointOfInterest, interests []string) {
	check := func(keywords []string, theme string) {
		if !wantsTheme(interests, keywords) {
			return
		}
		for _, poi := range selected {
			if matchesAny(poi.Category, keywords) {
				return
			}
		}
		p.logger.Warn("Final selection does not cover a requested theme",
			zap.String("theme", theme))
	}
	check(foodKeywords, "food")
	check(culturalKeywords, "cultural")
}

func (p *PlannerService) describeStops(ctx context.Context, selected []providers.PointOfInterest, language, city string) {
	descriptions, err := p.advisor.GenerateDescriptions(ctx, selected, language, city)
	if err != nil {
		p.logger.Warn("Description generation failed, keeping raw descriptions", zap.Error(err))
		return
	}
	for i := range selected {
		if text, ok := descriptions[selected[i].ID]; ok && text != "" {
			selected[i].Description = text
		}
	}
}

func (p *PlannerService) assemble(
	ctx context.Context,
	routes *providers.RouteCache,
	selected []providers.PointOfInterest,
	start, end utils.LocationPoint,
	mode providers.TravelMode,
	req request_models.ItineraryRequest,
	city string,
) (*response_models.ItineraryResult, error) {
	result := &response_models.ItineraryResult{
		Summary: response_models.ItinerarySummary{
			Mode:      string(mode),
			Language:  req.Language,
			City:      city,
			StopCount: len(selected),
		},
	}

	type waypoint struct {
		name  string
		point utils.LocationPoint
	}
	waypoints := make([]waypoint, 0, len(selected)+2)
	waypoints = append(waypoints, waypoint{name: "Start", point: start})
	for _, poi := range selected {
		waypoints = append(waypoints, waypoint{name: poi.Name, point: poi.Point()})
	}
	waypoints = append(waypoints, waypoint{name: "End", point: end})

	offset := 0.0
	for i := 0; i < len(waypoints)-1; i++ {
		from, to := waypoints[i], waypoints[i+1]
		route, err := routes.Route(ctx, from.point, to.point, mode)
		if err != nil {
			return nil, utils.WrapPlanningError(utils.ReasonRoutingFailed,
				fmt.Sprintf("assembly route %s -> %s failed", from.name, to.name), err)
		}

		leg := response_models.ItineraryLeg{
			FromName:            from.name,
			ToName:              to.name,
			Mode:                string(mode),
			DistanceMeters:      route.DistanceMeters,
			TravelMinutes:       route.TravelTimeMinutes,
			DepartOffsetMinutes: offset,
			ArriveOffsetMinutes: offset + route.TravelTimeMinutes,
		}
		result.Legs = append(result.Legs, leg)
		result.Summary.TotalDistanceMeters += route.DistanceMeters
		result.Summary.TotalTravelMinutes += route.TravelTimeMinutes
		offset = leg.ArriveOffsetMinutes

		if i < len(selected) {
			poi := selected[i]
			stop := response_models.ItineraryStop{
				PoiID:               poi.ID,
				Name:                poi.Name,
				Address:             poi.Address,
				Lat:                 poi.Lat,
				Lon:                 poi.Lon,
				Category:            poi.Category,
				Tags:                poi.Tags,
				Rating:              poi.Rating,
				Description:         stopDescription(poi),
				ArriveOffsetMinutes: offset,
				VisitMinutes:        float64(poi.VisitMinutes),
				DepartOffsetMinutes: offset + float64(poi.VisitMinutes),
			}
			result.Stops = append(result.Stops, stop)
			result.Summary.TotalVisitMinutes += stop.VisitMinutes
			offset = stop.DepartOffsetMinutes
		}
	}

	return result, nil
}

func stopDescription(poi providers.PointOfInterest) string {
	if poi.Description != "" {
		return poi.Description
	}
	return poi.Name
}
