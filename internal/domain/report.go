package domain

import (
	"encoding/json"
	"math"
)

// ReportType classifies what the reporter observed.
type ReportType int

const (
	WaterLog ReportType = iota
	DrainageBlock
)

// Severity is the reporter's estimate of how bad the situation is.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityModerate
	SeverityHigh
)

// Accuracy tier that produced a position fix.
const (
	AccuracyHigh = "high"
	AccuracyLow  = "low"
)

// Enrichment outcome recorded on a ResolvedLocation.
const (
	GeoSourceReverse  = "reverse"
	GeoSourceOriginal = "original"
	GeoSourceFailed   = "failed"
)

// ResolvedLocation is a device position, optionally labeled with a
// human-readable address. It is produced fresh by every resolution and
// replaced wholesale on refresh.
type ResolvedLocation struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	DisplayAddress string  `json:"display_address,omitempty"`
	Accuracy       string  `json:"accuracy,omitempty"`   // "high" or "low"
	GeoSource      string  `json:"geo_source,omitempty"` // "reverse", "original", "failed"
}

// Valid reports whether the coordinates are finite and within WGS-84 bounds.
func (l ResolvedLocation) Valid() bool {
	return ValidCoordinates(l.Latitude, l.Longitude)
}

// HasAddress reports whether enrichment produced an address.
func (l ResolvedLocation) HasAddress() bool {
	return l.DisplayAddress != ""
}

// ValidCoordinates checks latitude in [-90, 90] and longitude in [-180, 180].
func ValidCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// ImageRef is an opaque handle to a locally selected image.
type ImageRef struct {
	URI      string `json:"uri"`
	MimeType string `json:"mime_type,omitempty"`
	FileName string `json:"file_name,omitempty"`
}

// ReportDraft is the in-progress, not yet submitted report.
type ReportDraft struct {
	ReportType  ReportType
	Severity    Severity
	Description string
	Image       *ImageRef
	Location    *ResolvedLocation
}

// Submittable reports whether the draft carries an image and a valid location.
func (d ReportDraft) Submittable() bool {
	return d.Image != nil && d.Location != nil && d.Location.Valid()
}

// UploadResult is the response of the image upload endpoint.
type UploadResult struct {
	ImageURL string `json:"imageUrl"`
}

// ReportPayload is the JSON body of POST /map/report.
type ReportPayload struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Severity    string  `json:"severity"`
	ReportType  string  `json:"reportType"`
	EventDate   string  `json:"eventDate"`
	EventTime   string  `json:"eventTime"`
	ImageURL    string  `json:"imageUrl"`
	Description string  `json:"description"`
}

// CreateReportResponse is the decoded body of a successful report creation.
// The server is free to return more; Raw keeps the full body.
type CreateReportResponse struct {
	ID      string          `json:"_id,omitempty"`
	Message string          `json:"message,omitempty"`
	Raw     json.RawMessage `json:"-"`
}
