package domain

import (
	"context"
	"log/slog"
)

// EnrichLocation attempts to label a resolved location with an address.
// If geocoder is nil or geocoding fails, the location is returned with its
// coordinates untouched and GeoSource set accordingly (graceful degradation).
func EnrichLocation(ctx context.Context, loc ResolvedLocation, geocoder ReverseGeocoder, logger *slog.Logger) ResolvedLocation {
	if geocoder == nil {
		loc.GeoSource = GeoSourceOriginal
		return loc
	}

	result, err := geocoder.ReverseGeocode(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"lat", loc.Latitude,
			"lon", loc.Longitude,
			"error", err,
		)
		loc.DisplayAddress = ""
		loc.GeoSource = GeoSourceFailed
		return loc
	}
	if result.DisplayName != "" {
		loc.DisplayAddress = result.DisplayName
		loc.GeoSource = GeoSourceReverse
		return loc
	}
	loc.GeoSource = GeoSourceOriginal
	return loc
}
