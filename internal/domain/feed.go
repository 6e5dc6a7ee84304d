package domain

// FeatureCollection is a GeoJSON collection of map markers.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is a single GeoJSON point with report or hotspot properties.
type Feature struct {
	Type       string            `json:"type"`
	Geometry   Geometry          `json:"geometry"`
	Properties FeatureProperties `json:"properties"`
}

// Geometry holds a GeoJSON point. Coordinates are [lon, lat].
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// FeatureProperties are the marker attributes the map consumes.
type FeatureProperties struct {
	Severity    string  `json:"severity,omitempty"`
	ReportType  string  `json:"reportType,omitempty"`
	Description string  `json:"description,omitempty"`
	ImageURL    string  `json:"imageUrl,omitempty"`
	EventDate   string  `json:"eventDate,omitempty"`
	EventTime   string  `json:"eventTime,omitempty"`
	RiskScore   float64 `json:"riskScore,omitempty"`
}

// LatLon returns the feature position, or ok=false when the geometry is not
// a two-dimensional point.
func (f Feature) LatLon() (lat, lon float64, ok bool) {
	if len(f.Geometry.Coordinates) < 2 {
		return 0, 0, false
	}
	return f.Geometry.Coordinates[1], f.Geometry.Coordinates[0], true
}

// EmptyFeatureCollection returns a collection with no features.
func EmptyFeatureCollection() FeatureCollection {
	return FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}
}

// MapFeed is the three layers shown on the map screen.
type MapFeed struct {
	WaterLogs      FeatureCollection
	DrainageBlocks FeatureCollection
	Hotspots       FeatureCollection
}
