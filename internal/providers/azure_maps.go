package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"wayfare/internal/config"
	"wayfare/pkg/utils"
)

const azureAPIVersion = "1.0"

// AzureMapsProvider talks to the Azure Maps REST surface (routing, search,
// timezone). Only the fields the planner reads are decoded.
type AzureMapsProvider struct {
	HTTP            *http.Client
	BaseURL         string
	SubscriptionKey string
}

func NewAzureMapsProvider(cfg config.MapsConfig) *AzureMapsProvider {
	return &AzureMapsProvider{
		HTTP:            &http.Client{Timeout: cfg.Timeout},
		BaseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		SubscriptionKey: cfg.SubscriptionKey,
	}
}

func (p *AzureMapsProvider) travelMode(mode TravelMode) string {
	switch mode {
	case ModeDriving:
		return "car"
	case ModeTransit:
		return "bus"
	default:
		return "pedestrian"
	}
}

func (p *AzureMapsProvider) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	query.Set("api-version", azureAPIVersion)
	query.Set("subscription-key", p.SubscriptionKey)

	u := p.BaseURL + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	resp, err := p.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("azure maps http error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("azure maps bad status on %s: %s", path, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("azure maps decode %s: %w", path, err)
	}
	return nil
}

func (p *AzureMapsProvider) GetTimeZone(ctx context.Context, point utils.LocationPoint) (string, error) {
	q := url.Values{}
	q.Set("query", fmt.Sprintf("%f,%f", point.Lat, point.Lon))

	var payload struct {
		TimeZones []struct {
			ID string `json:"Id"`
		} `json:"TimeZones"`
	}
	if err := p.get(ctx, "/timezone/byCoordinates/json", q, &payload); err != nil {
		return "", err
	}
	if len(payload.TimeZones) == 0 {
		return "", fmt.Errorf("no timezone for %f,%f", point.Lat, point.Lon)
	}
	return payload.TimeZones[0].ID, nil
}

func (p *AzureMapsProvider) GetRoute(ctx context.Context, from, to utils.LocationPoint, mode TravelMode) (*RouteResult, error) {
	q := url.Values{}
	q.Set("query", fmt.Sprintf("%f,%f:%f,%f", from.Lat, from.Lon, to.Lat, to.Lon))
	q.Set("travelMode", p.travelMode(mode))

	var payload struct {
		Routes []struct {
			Summary struct {
				LengthInMeters      float64 `json:"lengthInMeters"`
				TravelTimeInSeconds float64 `json:"travelTimeInSeconds"`
			} `json:"summary"`
			Legs []struct {
				Points []struct {
					Latitude  float64 `json:"latitude"`
					Longitude float64 `json:"longitude"`
				} `json:"points"`
			} `json:"legs"`
		} `json:"routes"`
	}
	if err := p.get(ctx, "/route/directions/json", q, &payload); err != nil {
		return nil, err
	}
	if len(payload.Routes) == 0 {
		return nil, fmt.Errorf("no route between %f,%f and %f,%f", from.Lat, from.Lon, to.Lat, to.Lon)
	}

	route := payload.Routes[0]
	result := &RouteResult{
		DistanceMeters:    route.Summary.LengthInMeters,
		TravelTimeMinutes: route.Summary.TravelTimeInSeconds / 60,
	}
	for _, leg := range route.Legs {
		for _, pt := range leg.Points {
			result.Points = append(result.Points, utils.LocationPoint{Lat: pt.Latitude, Lon: pt.Longitude})
		}
	}
	return result, nil
}

func (p *AzureMapsProvider) IsTransitAvailable(ctx context.Context, point utils.LocationPoint) (bool, error) {
	// Probe for any transit stop within a kilometer of the point.
	pois, err := p.SearchPoisFuzzy(ctx, point, []string{"public transport stop"}, 1.0, 1)
	if err != nil {
		return false, err
	}
	return len(pois) > 0, nil
}

func (p *AzureMapsProvider) GetIsochrone(ctx context.Context, center utils.LocationPoint, mode TravelMode, minutes int) (*IsochroneResult, error) {
	q := url.Values{}
	q.Set("query", fmt.Sprintf("%f,%f", center.Lat, center.Lon))
	q.Set("timeBudgetInSec", strconv.Itoa(minutes*60))
	q.Set("travelMode", p.travelMode(mode))

	var payload struct {
		ReachableRange struct {
			Center struct {
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
			} `json:"center"`
			Boundary []struct {
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
			} `json:"boundary"`
		} `json:"reachableRange"`
	}
	if err := p.get(ctx, "/route/range/json", q, &payload); err != nil {
		return nil, err
	}
	if len(payload.ReachableRange.Boundary) == 0 {
		return nil, nil
	}

	result := &IsochroneResult{
		Center:      utils.LocationPoint{Lat: payload.ReachableRange.Center.Latitude, Lon: payload.ReachableRange.Center.Longitude},
		Mode:        mode,
		TimeMinutes: minutes,
	}
	for _, b := range payload.ReachableRange.Boundary {
		result.Boundary = append(result.Boundary, utils.LocationPoint{Lat: b.Latitude, Lon: b.Longitude})
	}
	return result, nil
}

func (p *AzureMapsProvider) GetPoiCategoryTree(ctx context.Context, language string) ([]PoiCategory, error) {
	q := url.Values{}
	if language != "" {
		q.Set("language", language)
	}

	var payload struct {
		PoiCategories []struct {
			ID   json.Number `json:"id"`
			Name string      `json:"name"`
		} `json:"poiCategories"`
	}
	if err := p.get(ctx, "/search/poi/category/tree/json", q, &payload); err != nil {
		return nil, err
	}

	categories := make([]PoiCategory, 0, len(payload.PoiCategories))
	for _, c := range payload.PoiCategories {
		categories = append(categories, PoiCategory{ID: c.ID.String(), Name: c.Name})
	}
	return categories, nil
}

type searchResponse struct {
	Results []struct {
		ID  string `json:"id"`
		Poi struct {
			Name            string   `json:"name"`
			Categories      []string `json:"categories"`
			Classifications []struct {
				Code string `json:"code"`
			} `json:"classifications"`
			OpeningHours *struct {
				TimeRanges []struct {
					StartTime struct {
						Hour   int `json:"hour"`
						Minute int `json:"minute"`
					} `json:"startTime"`
					EndTime struct {
						Hour   int `json:"hour"`
						Minute int `json:"minute"`
					} `json:"endTime"`
				} `json:"timeRanges"`
			} `json:"openingHours"`
		} `json:"poi"`
		Address struct {
			FreeformAddress string `json:"freeformAddress"`
			Municipality    string `json:"municipality"`
		} `json:"address"`
		Position struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"position"`
		Score float64 `json:"score"`
	} `json:"results"`
}

func (r searchResponse) toPois() []PointOfInterest {
	pois := make([]PointOfInterest, 0, len(r.Results))
	for _, res := range r.Results {
		poi := PointOfInterest{
			ID:      res.ID,
			Name:    res.Poi.Name,
			Address: res.Address.FreeformAddress,
			Lat:     res.Position.Lat,
			Lon:     res.Position.Lon,
			Rating:  res.Score,
		}
		if len(res.Poi.Categories) > 0 {
			poi.Category = res.Poi.Categories[0]
			poi.Tags = res.Poi.Categories
		}
		// Classification codes are stable across languages; prefer them
		// as the category key when present.
		if len(res.Poi.Classifications) > 0 && res.Poi.Classifications[0].Code != "" {
			poi.Category = strings.ToLower(res.Poi.Classifications[0].Code)
		}
		if res.Poi.OpeningHours != nil && len(res.Poi.OpeningHours.TimeRanges) > 0 {
			tr := res.Poi.OpeningHours.TimeRanges[0]
			poi.OpeningHours = &OpeningHours{
				OpenMinute:  tr.StartTime.Hour*60 + tr.StartTime.Minute,
				CloseMinute: tr.EndTime.Hour*60 + tr.EndTime.Minute,
			}
		}
		pois = append(pois, poi)
	}
	return pois
}

func (p *AzureMapsProvider) SearchPoisByCategory(ctx context.Context, center utils.LocationPoint, categoryIDs []string, radiusKm float64, limit int) ([]PointOfInterest, error) {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%f", center.Lat))
	q.Set("lon", fmt.Sprintf("%f", center.Lon))
	q.Set("radius", strconv.Itoa(int(radiusKm*1000)))
	q.Set("limit", strconv.Itoa(limit))
	q.Set("categorySet", strings.Join(categoryIDs, ","))
	q.Set("openingHours", "nextSevenDays")

	var payload searchResponse
	if err := p.get(ctx, "/search/poi/json", q, &payload); err != nil {
		return nil, err
	}
	return payload.toPois(), nil
}

func (p *AzureMapsProvider) SearchPoisFuzzy(ctx context.Context, center utils.LocationPoint, terms []string, radiusKm float64, limit int) ([]PointOfInterest, error) {
	q := url.Values{}
	q.Set("query", strings.Join(terms, " "))
	q.Set("lat", fmt.Sprintf("%f", center.Lat))
	q.Set("lon", fmt.Sprintf("%f", center.Lon))
	q.Set("radius", strconv.Itoa(int(radiusKm*1000)))
	q.Set("limit", strconv.Itoa(limit))
	q.Set("idxSet", "POI")

	var payload searchResponse
	if err := p.get(ctx, "/search/fuzzy/json", q, &payload); err != nil {
		return nil, err
	}
	return payload.toPois(), nil
}

func (p *AzureMapsProvider) ReverseGeocode(ctx context.Context, point utils.LocationPoint, language string) (*PlaceInfo, error) {
	q := url.Values{}
	q.Set("query", fmt.Sprintf("%f,%f", point.Lat, point.Lon))
	if language != "" {
		q.Set("language", language)
	}

	var payload struct {
		Addresses []struct {
			Address struct {
				Municipality    string `json:"municipality"`
				FreeformAddress string `json:"freeformAddress"`
			} `json:"address"`
		} `json:"addresses"`
	}
	if err := p.get(ctx, "/search/address/reverse/json", q, &payload); err != nil {
		return nil, err
	}
	if len(payload.Addresses) == 0 {
		return &PlaceInfo{}, nil
	}
	return &PlaceInfo{
		Locality:         payload.Addresses[0].Address.Municipality,
		FormattedAddress: payload.Addresses[0].Address.FreeformAddress,
	}, nil
}

var _ MapProviderInterface = (*AzureMapsProvider)(nil)
