package response_models

// ItineraryResult is the artifact persisted on a completed job.
// Invariants: len(Legs) == len(Stops)+1, offsets are non-decreasing.
type ItineraryResult struct {
	Summary ItinerarySummary `json:"summary"`
	Legs    []ItineraryLeg   `json:"legs"`
	Stops   []ItineraryStop  `json:"stops"`
}

type ItinerarySummary struct {
	Mode                string  `json:"mode"`
	Language            string  `json:"language"`
	City                string  `json:"city,omitempty"`
	TotalDistanceMeters float64 `json:"total_distance_meters"`
	TotalTravelMinutes  float64 `json:"total_travel_minutes"`
	TotalVisitMinutes   float64 `json:"total_visit_minutes"`
	StopCount           int     `json:"stop_count"`
}

type ItineraryLeg struct {
	FromName            string  `json:"from_name"`
	ToName              string  `json:"to_name"`
	Mode                string  `json:"mode"`
	DistanceMeters      float64 `json:"distance_meters"`
	TravelMinutes       float64 `json:"travel_minutes"`
	DepartOffsetMinutes float64 `json:"depart_offset_minutes"`
	ArriveOffsetMinutes float64 `json:"arrive_offset_minutes"`
}

type ItineraryStop struct {
	PoiID               string   `json:"poi_id"`
	Name                string   `json:"name"`
	Address             string   `json:"address,omitempty"`
	Lat                 float64  `json:"lat"`
	Lon                 float64  `json:"lon"`
	Category            string   `json:"category"`
	Tags                []string `json:"tags,omitempty"`
	Rating              float64  `json:"rating,omitempty"`
	Description         string   `json:"description,omitempty"`
	ArriveOffsetMinutes float64  `json:"arrive_offset_minutes"`
	DepartOffsetMinutes float64  `json:"depart_offset_minutes"`
	VisitMinutes        float64  `json:"visit_minutes"`
}
