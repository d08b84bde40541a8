package providers

import (
	"fmt"
	"strings"

	"wayfare/pkg/utils"
)

type TravelMode string

const (
	ModeWalking TravelMode = "walking"
	ModeTransit TravelMode = "transit"
	ModeDriving TravelMode = "driving"
)

func ParseMode(s string) (TravelMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "walking":
		return ModeWalking, nil
	case "transit":
		return ModeTransit, nil
	case "driving":
		return ModeDriving, nil
	default:
		return "", fmt.Errorf("unknown travel mode %q", s)
	}
}

type RouteResult struct {
	DistanceMeters    float64
	TravelTimeMinutes float64
	Points            []utils.LocationPoint
}

// IsochroneResult is the area reachable from Center within TimeMinutes.
type IsochroneResult struct {
	Boundary    []utils.LocationPoint
	Center      utils.LocationPoint
	Mode        TravelMode
	TimeMinutes int
}

type PoiCategory struct {
	ID   string
	Name string
}

// OpeningHours is a single daily open window in minutes from local midnight.
type OpeningHours struct {
	OpenMinute  int
	CloseMinute int
}

// PointOfInterest lives only for the duration of one planning run. It is
// created by candidate search and enriched (dwell, description) as the
// pipeline progresses.
type PointOfInterest struct {
	ID           string
	Name         string
	Address      string
	Lat          float64
	Lon          float64
	Category     string
	Tags         []string
	Rating       float64
	Description  string
	VisitMinutes int
	OpeningHours *OpeningHours
}

func (p PointOfInterest) Point() utils.LocationPoint {
	return utils.LocationPoint{Lat: p.Lat, Lon: p.Lon}
}

type PlaceInfo struct {
	Locality         string
	FormattedAddress string
}
