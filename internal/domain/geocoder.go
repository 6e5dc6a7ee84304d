package domain

import "context"

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat         float64
	Lon         float64
	DisplayName string
}

// ReverseGeocoder labels coordinates with a human-readable address.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodingResult, error)
}

// PlaceSearcher resolves free-text place queries to candidate locations.
type PlaceSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]GeocodingResult, error)
}

// Geocoder is both directions of a geocoding provider.
type Geocoder interface {
	ReverseGeocoder
	PlaceSearcher
}
