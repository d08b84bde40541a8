package providers

import (
	"context"
	"fmt"
	"sync"

	"wayfare/pkg/utils"
)

type routeKey struct {
	Mode TravelMode
	From string
	To   string
}

func pointKey(p utils.LocationPoint) string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lon)
}

// RouteCache memoizes provider routes per planning run so the greedy selector
// never requests the same leg twice. It also owns the degenerate-route
// short-circuit: near-identical endpoints produce a zero-cost leg without a
// provider call.
type RouteCache struct {
	maps MapProviderInterface

	mu    sync.RWMutex
	store map[routeKey]*RouteResult
}

func NewRouteCache(maps MapProviderInterface) *RouteCache {
	return &RouteCache{
		maps:  maps,
		store: make(map[routeKey]*RouteResult),
	}
}

func (c *RouteCache) Route(ctx context.Context, from, to utils.LocationPoint, mode TravelMode) (*RouteResult, error) {
	if utils.IsSamePoint(from, to) {
		return &RouteResult{DistanceMeters: 0, TravelTimeMinutes: 0}, nil
	}

	key := routeKey{Mode: mode, From: pointKey(from), To: pointKey(to)}

	c.mu.RLock()
	cached, ok := c.store[key]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	route, err := c.maps.GetRoute(ctx, from, to, mode)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.store[key] = route
	c.mu.Unlock()

	return route, nil
}
