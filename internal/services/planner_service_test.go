package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wayfare/internal/config"
	"wayfare/internal/models/request_models"
	"wayfare/internal/providers"
	"wayfare/pkg/utils"
)

type fakeMaps struct {
	getTimeZoneFn          func(point utils.LocationPoint) (string, error)
	getRouteFn             func(from, to utils.LocationPoint, mode providers.TravelMode) (*providers.RouteResult, error)
	isTransitAvailableFn   func(point utils.LocationPoint) (bool, error)
	getIsochroneFn         func(center utils.LocationPoint, mode providers.TravelMode, minutes int) (*providers.IsochroneResult, error)
	getPoiCategoryTreeFn   func(language string) ([]providers.PoiCategory, error)
	searchPoisByCategoryFn func(center utils.LocationPoint, categoryIDs []string, radiusKm float64, limit int) ([]providers.PointOfInterest, error)
	searchPoisFuzzyFn      func(center utils.LocationPoint, terms []string, radiusKm float64, limit int) ([]providers.PointOfInterest, error)
	reverseGeocodeFn       func(point utils.LocationPoint, language string) (*providers.PlaceInfo, error)

	categorySearchCalls int
}

func (f *fakeMaps) GetTimeZone(ctx context.Context, point utils.LocationPoint) (string, error) {
	if f.getTimeZoneFn != nil {
		return f.getTimeZoneFn(point)
	}
	return "UTC", nil
}

func (f *fakeMaps) GetRoute(ctx context.Context, from, to utils.LocationPoint, mode providers.TravelMode) (*providers.RouteResult, error) {
	if f.getRouteFn != nil {
		return f.getRouteFn(from, to, mode)
	}
	return &providers.RouteResult{DistanceMeters: 1000, TravelTimeMinutes: 10}, nil
}

func (f *fakeMaps) IsTransitAvailable(ctx context.Context, point utils.LocationPoint) (bool, error) {
	if f.isTransitAvailableFn != nil {
		return f.isTransitAvailableFn(point)
	}
	return true, nil
}

func (f *fakeMaps) GetIsochrone(ctx context.Context, center utils.LocationPoint, mode providers.TravelMode, minutes int) (*providers.IsochroneResult, error) {
	if f.getIsochroneFn != nil {
		return f.getIsochroneFn(center, mode, minutes)
	}
	return nil, nil
}

func (f *fakeMaps) GetPoiCategoryTree(ctx context.Context, language string) ([]providers.PoiCategory, error) {
	if f.getPoiCategoryTreeFn != nil {
		return f.getPoiCategoryTreeFn(language)
	}
	return []providers.PoiCategory{
		{ID: "cat.museum", Name: "Museum"},
		{ID: "cat.restaurant", Name: "Restaurant"},
	}, nil
}

func (f *fakeMaps) SearchPoisByCategory(ctx context.Context, center utils.LocationPoint, categoryIDs []string, radiusKm float64, limit int) ([]providers.PointOfInterest, error) {
	f.categorySearchCalls++
	if f.searchPoisByCategoryFn != nil {
		return f.searchPoisByCategoryFn(center, categoryIDs, radiusKm, limit)
	}
	return nil, nil
}

func (f *fakeMaps) SearchPoisFuzzy(ctx context.Context, center utils.LocationPoint, terms []string, radiusKm float64, limit int) ([]providers.PointOfInterest, error) {
	if f.searchPoisFuzzyFn != nil {
		return f.searchPoisFuzzyFn(center, terms, radiusKm, limit)
	}
	return nil, nil
}

func (f *fakeMaps) ReverseGeocode(ctx context.Context, point utils.LocationPoint, language string) (*providers.PlaceInfo, error) {
	if f.reverseGeocodeFn != nil {
		return f.reverseGeocodeFn(point, language)
	}
	return &providers.PlaceInfo{Locality: "Testville"}, nil
}

type fakeAdvisor struct {
	mapCategoriesFn func(interests []string, available []providers.PoiCategory) ([]string, error)
	estimateDwellFn func(poi providers.PointOfInterest) (int, error)
	rankFn          func(candidates []providers.PointOfInterest, interests []string) ([]string, error)
	describeFn      func(stops []providers.PointOfInterest) (map[string]string, error)
}

func (f *fakeAdvisor) MapInterestsToCategories(ctx context.Context, interests []string, language, city string, available []providers.PoiCategory) ([]string, error) {
	if f.mapCategoriesFn != nil {
		return f.mapCategoriesFn(interests, available)
	}
	return nil, assert.AnError
}

func (f *fakeAdvisor) EstimateDwellMinutes(ctx context.Context, poi providers.PointOfInterest, language string, defaults map[string]int, floor, ceiling int) (int, error) {
	if f.estimateDwellFn != nil {
		return f.estimateDwellFn(poi)
	}
	return 0, assert.AnError
}

func (f *fakeAdvisor) RankPois(ctx context.Context, candidates []providers.PointOfInterest, interests []string, language string, mode providers.TravelMode, maxPois, budgetMinutes int) ([]string, error) {
	if f.rankFn != nil {
		return f.rankFn(candidates, interests)
	}
	return nil, assert.AnError
}

func (f *fakeAdvisor) GenerateDescriptions(ctx context.Context, stops []providers.PointOfInterest, language, city string) (map[string]string, error) {
	if f.describeFn != nil {
		return f.describeFn(stops)
	}
	return nil, assert.AnError
}

type fakeRanker struct {
	rankFn func(candidates []providers.PointOfInterest, interests []string, maxPois int) ([]string, error)
}

func (f *fakeRanker) RankByEmbedding(ctx context.Context, candidates []providers.PointOfInterest, interests []string, maxPois int) ([]string, error) {
	if f.rankFn != nil {
		return f.rankFn(candidates, interests, maxPois)
	}
	return nil, assert.AnError
}

func testPlannerConfig() config.PlannerConfig {
	return config.PlannerConfig{
		MaxPois:               6,
		DwellFloorMinutes:     20,
		DwellCeilingMinutes:   180,
		MinExploreMinutes:     30,
		ArrivalOffsetMinutes:  30,
		CategorySearchLimit:   10,
		MaxRelevantCategories: 50,
		AvgSpeedWalkingKmh:    4.5,
		AvgSpeedTransitKmh:    20,
		AvgSpeedDrivingKmh:    40,
		DefaultDwellByCategory: map[string]int{
			"museum":     120,
			"restaurant": 90,
			"attraction": 60,
			"shop":       30,
		},
	}
}

func testRequest(budgetMinutes int) request_models.ItineraryRequest {
	return request_models.ItineraryRequest{
		StartLat:           48.8500,
		StartLon:           2.3500,
		EndLat:             48.8700,
		EndLon:             2.3300,
		Mode:               "walking",
		MaxDurationMinutes: budgetMinutes,
		Interests:          "museums, street food",
		Language:           "en",
	}
}

func museumPoi() providers.PointOfInterest {
	return providers.PointOfInterest{ID: "m1", Name: "City Museum", Lat: 48.8610, Lon: 2.3450, Category: "museum"}
}

func foodPoi() providers.PointOfInterest {
	return providers.PointOfInterest{ID: "f1", Name: "Night Market", Lat: 48.8620, Lon: 2.3420, Category: "restaurant"}
}

func newTestPlanner(maps *fakeMaps, advisor *fakeAdvisor, cfg config.PlannerConfig) ItineraryPlannerInterface {
	logger := zap.NewNop()
	return NewPlannerService(maps, advisor, &fakeRanker{}, NewInterestBalancer(logger), cfg, logger)
}

func TestPlanItineraryCommuteExceedsBudget(t *testing.T) {
	maps := &fakeMaps{
		getRouteFn: func(from, to utils.LocationPoint, mode providers.TravelMode) (*providers.RouteResult, error) {
			return &providers.RouteResult{DistanceMeters: 9000, TravelTimeMinutes: 100}, nil
		},
	}
	planner := newTestPlanner(maps, &fakeAdvisor{}, testPlannerConfig())

	_, err := planner.PlanItinerary(context.Background(), testRequest(120))
	require.Error(t, err)

	pe, ok := utils.AsPlanningError(err)
	require.True(t, ok)
	assert.Equal(t, utils.ReasonCommuteExceedsBudget, pe.Reason)
	// The gate fires before any candidate search is issued.
	assert.Equal(t, 0, maps.categorySearchCalls)
}

func TestPlanItineraryBaseRouteFailure(t *testing.T) {
	maps := &fakeMaps{
		getRouteFn: func(from, to utils.LocationPoint, mode providers.TravelMode) (*providers.RouteResult, error) {
			return nil, assert.AnError
		},
	}
	planner := newTestPlanner(maps, &fakeAdvisor{}, testPlannerConfig())

	_, err := planner.PlanItinerary(context.Background(), testRequest(120))
	require.Error(t, err)

	pe, ok := utils.AsPlanningError(err)
	require.True(t, ok)
	assert.Equal(t, utils.ReasonRoutingFailed, pe.Reason)
}

func TestPlanItineraryHappyPath(t *testing.T) {
	maps := &fakeMaps{
		searchPoisByCategoryFn: func(center utils.LocationPoint, categoryIDs []string, radiusKm float64, limit int) ([]providers.PointOfInterest, error) {
			switch categoryIDs[0] {
			case "cat.museum":
				return []providers.PointOfInterest{museumPoi()}, nil
			case "cat.restaurant":
				return []providers.PointOfInterest{foodPoi()}, nil
			}
			return nil, nil
		},
	}
	advisor := &fakeAdvisor{
		mapCategoriesFn: func(interests []string, available []providers.PoiCategory) ([]string, error) {
			return []string{"cat.museum", "cat.restaurant"}, nil
		},
		estimateDwellFn: func(poi providers.PointOfInterest) (int, error) {
			return 60, nil
		},
		rankFn: func(candidates []providers.PointOfInterest, interests []string) ([]string, error) {
			return []string{"m1", "f1"}, nil
		},
		describeFn: func(stops []providers.PointOfInterest) (map[string]string, error) {
			return map[string]string{"m1": "A quiet museum near the river."}, nil
		},
	}
	planner := newTestPlanner(maps, advisor, testPlannerConfig())

	// Every leg costs 10 minutes. With a 60 minute dwell, the first stop
	// lands at 90 total and the second would land at 160, over budget.
	result, err := planner.PlanItinerary(context.Background(), testRequest(120))
	require.NoError(t, err)

	require.Len(t, result.Stops, 1)
	require.Len(t, result.Legs, 2)
	assert.Equal(t, "m1", result.Stops[0].PoiID)
	assert.Equal(t, "A quiet museum near the river.", result.Stops[0].Description)
	assert.Equal(t, "Testville", result.Summary.City)
	assert.Equal(t, 1, result.Summary.StopCount)

	// 30 minutes of slack are folded into the single stop's dwell.
	assert.Equal(t, 90.0, result.Stops[0].VisitMinutes)

	// Offsets are cumulative and non-decreasing.
	assert.Equal(t, 0.0, result.Legs[0].DepartOffsetMinutes)
	assert.Equal(t, 10.0, result.Legs[0].ArriveOffsetMinutes)
	assert.Equal(t, 10.0, result.Stops[0].ArriveOffsetMinutes)
	assert.Equal(t, 100.0, result.Stops[0].DepartOffsetMinutes)
	assert.Equal(t, 100.0, result.Legs[1].DepartOffsetMinutes)
	assert.Equal(t, 110.0, result.Legs[1].ArriveOffsetMinutes)

	assert.Equal(t, 20.0, result.Summary.TotalTravelMinutes)
	assert.Equal(t, 90.0, result.Summary.TotalVisitMinutes)
}

func TestPlanItineraryAdvisorDownFallsBackEverywhere(t *testing.T) {
	maps := &fakeMaps{
		searchPoisByCategoryFn: func(center utils.LocationPoint, categoryIDs []string, radiusKm float64, limit int) ([]providers.PointOfInterest, error) {
			switch categoryIDs[0] {
			case "cat.museum":
				return []providers.PointOfInterest{museumPoi()}, nil
			case "cat.restaurant":
				return []providers.PointOfInterest{foodPoi()}, nil
			}
			return nil, nil
		},
	}
	// Advisor and embedding ranker fail on every call: generic categories,
	// static dwell defaults and arrival-order ranking take over.
	planner := newTestPlanner(maps, &fakeAdvisor{}, testPlannerConfig())

	result, err := planner.PlanItinerary(context.Background(), testRequest(200))
	require.NoError(t, err)

	// Generic categories search restaurants first, so arrival-order ranking
	// puts the food stop ahead and the 120 minute museum dwell no longer fits.
	require.Len(t, result.Stops, 1)
	assert.Equal(t, "f1", result.Stops[0].PoiID)
	// Static restaurant default of 90, plus 80 minutes of slack.
	assert.Equal(t, 170.0, result.Stops[0].VisitMinutes)
}

func TestPlanItineraryRadiusFromExploreBudget(t *testing.T) {
	var capturedRadius float64
	maps := &fakeMaps{
		searchPoisByCategoryFn: func(center utils.LocationPoint, categoryIDs []string, radiusKm float64, limit int) ([]providers.PointOfInterest, error) {
			capturedRadius = radiusKm
			return []providers.PointOfInterest{museumPoi()}, nil
		},
	}
	advisor := &fakeAdvisor{
		mapCategoriesFn: func(interests []string, available []providers.PoiCategory) ([]string, error) {
			return []string{"cat.museum"}, nil
		},
		estimateDwellFn: func(poi providers.PointOfInterest) (int, error) { return 60, nil },
		rankFn: func(candidates []providers.PointOfInterest, interests []string) ([]string, error) {
			return []string{"m1"}, nil
		},
	}
	planner := newTestPlanner(maps, advisor, testPlannerConfig())

	// Budget 140, round trip 20: 120 explore minutes at 4.5 km/h.
	_, err := planner.PlanItinerary(context.Background(), testRequest(140))
	require.NoError(t, err)
	assert.InDelta(t, 9.0, capturedRadius, 0.001)
}

func TestPlanItineraryNoPoisFound(t *testing.T) {
	maps := &fakeMaps{}
	advisor := &fakeAdvisor{
		mapCategoriesFn: func(interests []string, available []providers.PoiCategory) ([]string, error) {
			return []string{"cat.museum"}, nil
		},
	}
	planner := newTestPlanner(maps, advisor, testPlannerConfig())

	_, err := planner.PlanItinerary(context.Background(), testRequest(120))
	require.Error(t, err)

	pe, ok := utils.AsPlanningError(err)
	require.True(t, ok)
	assert.Equal(t, utils.ReasonNoPoisInIsochrone, pe.Reason)
}

func TestPlanItineraryStrictHoursAllClosed(t *testing.T) {
	closed := museumPoi()
	closed.OpeningHours = &providers.OpeningHours{OpenMinute: 0, CloseMinute: 0}

	maps := &fakeMaps{
		searchPoisByCategoryFn: func(center utils.LocationPoint, categoryIDs []string, radiusKm float64, limit int) ([]providers.PointOfInterest, error) {
			return []providers.PointOfInterest{closed}, nil
		},
	}
	advisor := &fakeAdvisor{
		mapCategoriesFn: func(interests []string, available []providers.PoiCategory) ([]string, error) {
			return []string{"cat.museum"}, nil
		},
		estimateDwellFn: func(poi providers.PointOfInterest) (int, error) { return 60, nil },
	}

	cfg := testPlannerConfig()
	cfg.OpeningHoursStrict = true
	planner := newTestPlanner(maps, advisor, cfg)

	_, err := planner.PlanItinerary(context.Background(), testRequest(120))
	require.Error(t, err)

	pe, ok := utils.AsPlanningError(err)
	require.True(t, ok)
	assert.Equal(t, utils.ReasonNoOpenPois, pe.Reason)
}

func TestPlanItineraryNothingFitsBudget(t *testing.T) {
	maps := &fakeMaps{
		searchPoisByCategoryFn: func(center utils.LocationPoint, categoryIDs []string, radiusKm float64, limit int) ([]providers.PointOfInterest, error) {
			return []providers.PointOfInterest{museumPoi()}, nil
		},
	}
	advisor := &fakeAdvisor{
		mapCategoriesFn: func(interests []string, available []providers.PoiCategory) ([]string, error) {
			return []string{"cat.museum"}, nil
		},
		estimateDwellFn: func(poi providers.PointOfInterest) (int, error) { return 60, nil },
		rankFn: func(candidates []providers.PointOfInterest, interests []string) ([]string, error) {
			return []string{"m1"}, nil
		},
	}
	planner := newTestPlanner(maps, advisor, testPlannerConfig())

	// Round trip 20 + detour 20 + dwell 60 = 90 > 85.
	_, err := planner.PlanItinerary(context.Background(), testRequest(85))
	require.Error(t, err)

	pe, ok := utils.AsPlanningError(err)
	require.True(t, ok)
	assert.Equal(t, utils.ReasonNoFeasibleStops, pe.Reason)
}

func TestPlanItineraryBoundaryFilterDropsUnreachable(t *testing.T) {
	inside := museumPoi()
	outside := providers.PointOfInterest{ID: "x1", Name: "Far Fort", Lat: 50.0, Lon: 4.0, Category: "attraction"}

	maps := &fakeMaps{
		getIsochroneFn: func(center utils.LocationPoint, mode providers.TravelMode, minutes int) (*providers.IsochroneResult, error) {
			return &providers.IsochroneResult{
				Boundary: []utils.LocationPoint{
					{Lat: 48.80, Lon: 2.30},
					{Lat: 48.80, Lon: 2.40},
					{Lat: 48.90, Lon: 2.40},
					{Lat: 48.90, Lon: 2.30},
				},
			}, nil
		},
		searchPoisByCategoryFn: func(center utils.LocationPoint, categoryIDs []string, radiusKm float64, limit int) ([]providers.PointOfInterest, error) {
			return []providers.PointOfInterest{inside, outside}, nil
		},
	}
	advisor := &fakeAdvisor{
		mapCategoriesFn: func(interests []string, available []providers.PoiCategory) ([]string, error) {
			return []string{"cat.museum"}, nil
		},
		estimateDwellFn: func(poi providers.PointOfInterest) (int, error) { return 60, nil },
		rankFn: func(candidates []providers.PointOfInterest, interests []string) ([]string, error) {
			ids := make([]string, 0, len(candidates))
			for _, c := range candidates {
				ids = append(ids, c.ID)
			}
			return ids, nil
		},
	}

	cfg := testPlannerConfig()
	cfg.UseIsochrone = true
	planner := newTestPlanner(maps, advisor, cfg)

	result, err := planner.PlanItinerary(context.Background(), testRequest(120))
	require.NoError(t, err)

	for _, stop := range result.Stops {
		assert.NotEqual(t, "x1", stop.PoiID)
	}
}

func TestPlanItineraryCapsStopsAtMaxPois(t *testing.T) {
	food2 := providers.PointOfInterest{ID: "f2", Name: "Corner Bistro", Lat: 48.8630, Lon: 2.3440, Category: "restaurant"}

	maps := &fakeMaps{
		searchPoisByCategoryFn: func(center utils.LocationPoint, categoryIDs []string, radiusKm float64, limit int) ([]providers.PointOfInterest, error) {
			switch categoryIDs[0] {
			case "cat.museum":
				return []providers.PointOfInterest{museumPoi()}, nil
			case "cat.restaurant":
				return []providers.PointOfInterest{foodPoi(), food2}, nil
			}
			return nil, nil
		},
	}
	advisor := &fakeAdvisor{
		mapCategoriesFn: func(interests []string, available []providers.PoiCategory) ([]string, error) {
			return []string{"cat.museum", "cat.restaurant"}, nil
		},
		estimateDwellFn: func(poi providers.PointOfInterest) (int, error) { return 60, nil },
		rankFn: func(candidates []providers.PointOfInterest, interests []string) ([]string, error) {
			return []string{"m1"}, nil
		},
	}

	// The balance enforcer appends both food candidates for the missing
	// theme; the selector must still honor the stop cap.
	cfg := testPlannerConfig()
	cfg.MaxPois = 1
	planner := newTestPlanner(maps, advisor, cfg)

	result, err := planner.PlanItinerary(context.Background(), testRequest(300))
	require.NoError(t, err)

	assert.LessOrEqual(t, len(result.Stops), 1)
	assert.Equal(t, "m1", result.Stops[0].PoiID)
}

func TestPlanItinerarySlackRemainderGoesToFirstStop(t *testing.T) {
	maps := &fakeMaps{
		searchPoisByCategoryFn: func(center utils.LocationPoint, categoryIDs []string, radiusKm float64, limit int) ([]providers.PointOfInterest, error) {
			switch categoryIDs[0] {
			case "cat.museum":
				return []providers.PointOfInterest{museumPoi()}, nil
			case "cat.restaurant":
				return []providers.PointOfInterest{foodPoi()}, nil
			}
			return nil, nil
		},
	}
	advisor := &fakeAdvisor{
		mapCategoriesFn: func(interests []string, available []providers.PoiCategory) ([]string, error) {
			return []string{"cat.museum", "cat.restaurant"}, nil
		},
		estimateDwellFn: func(poi providers.PointOfInterest) (int, error) { return 60, nil },
		rankFn: func(candidates []providers.PointOfInterest, interests []string) ([]string, error) {
			return []string{"m1", "f1"}, nil
		},
	}
	planner := newTestPlanner(maps, advisor, testPlannerConfig())

	// Both stops fit at a running total of 160, leaving 41 slack minutes:
	// 20 to each stop, the odd minute to the first.
	result, err := planner.PlanItinerary(context.Background(), testRequest(201))
	require.NoError(t, err)

	require.Len(t, result.Stops, 2)
	assert.Equal(t, 81.0, result.Stops[0].VisitMinutes)
	assert.Equal(t, 80.0, result.Stops[1].VisitMinutes)
}

func TestPlanItineraryDeduplicatesCandidates(t *testing.T) {
	maps := &fakeMaps{
		searchPoisByCategoryFn: func(center utils.LocationPoint, categoryIDs []string, radiusKm float64, limit int) ([]providers.PointOfInterest, error) {
			return []providers.PointOfInterest{museumPoi()}, nil
		},
	}
	advisor := &fakeAdvisor{
		mapCategoriesFn: func(interests []string, available []providers.PoiCategory) ([]string, error) {
			// Both categories surface the same POI.
			return []string{"cat.museum", "cat.restaurant"}, nil
		},
		estimateDwellFn: func(poi providers.PointOfInterest) (int, error) { return 60, nil },
	}
	planner := newTestPlanner(maps, advisor, testPlannerConfig())

	result, err := planner.PlanItinerary(context.Background(), testRequest(200))
	require.NoError(t, err)
	require.Len(t, result.Stops, 1)
	assert.Equal(t, "m1", result.Stops[0].PoiID)
}
