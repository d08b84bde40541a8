package providers

import (
	"context"

	"wayfare/pkg/utils"
)

// MapProviderInterface is the routing/search capability the planner consumes.
// Implementations must be safe for concurrent use across jobs.
type MapProviderInterface interface {
	GetTimeZone(ctx context.Context, point utils.LocationPoint) (string, error)
	GetRoute(ctx context.Context, from, to utils.LocationPoint, mode TravelMode) (*RouteResult, error)
	IsTransitAvailable(ctx context.Context, point utils.LocationPoint) (bool, error)
	// GetIsochrone may return (nil, nil) when the provider has no isochrone
	// for the mode; callers fall back to a radius search.
	GetIsochrone(ctx context.Context, center utils.LocationPoint, mode TravelMode, minutes int) (*IsochroneResult, error)
	GetPoiCategoryTree(ctx context.Context, language string) ([]PoiCategory, error)
	SearchPoisByCategory(ctx context.Context, center utils.LocationPoint, categoryIDs []string, radiusKm float64, limit int) ([]PointOfInterest, error)
	SearchPoisFuzzy(ctx context.Context, center utils.LocationPoint, terms []string, radiusKm float64, limit int) ([]PointOfInterest, error)
	ReverseGeocode(ctx context.Context, point utils.LocationPoint, language string) (*PlaceInfo, error)
}
