package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/couchcryptid/monsoon-report-client/internal/domain"
	"github.com/couchcryptid/monsoon-report-client/internal/observability"
)

// minSearchLength is the shortest query sent to /search; shorter input
// produces no suggestions.
const minSearchLength = 3

// Client implements domain.Geocoder using the Nominatim (OpenStreetMap) API.
type Client struct {
	userAgent   string
	countryCode string
	httpClient  *http.Client
	baseURL     string
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewClient creates a Nominatim geocoding client. Nominatim's usage policy
// requires an identifying User-Agent on every request.
func NewClient(baseURL, userAgent string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		userAgent:   userAgent,
		countryCode: "in",
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		metrics: metrics,
		logger:  logger,
	}
}

// ReverseGeocode converts coordinates to a display address.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.GeocodingResult, error) {
	params := url.Values{
		"format": {"json"},
		"lat":    {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":    {strconv.FormatFloat(lon, 'f', -1, 64)},
	}

	var place place
	if err := c.doRequest(ctx, c.baseURL+"/reverse?"+params.Encode(), "reverse", &place); err != nil {
		return domain.GeocodingResult{}, err
	}

	if place.DisplayName == "" {
		if place.Error != "" {
			c.logger.Debug("nominatim returned no address", "lat", lat, "lon", lon, "reason", place.Error)
		}
		c.metrics.GeocodeRequests.WithLabelValues("reverse", "empty").Inc()
		return domain.GeocodingResult{Lat: lat, Lon: lon}, nil
	}
	c.metrics.GeocodeRequests.WithLabelValues("reverse", "success").Inc()
	return domain.GeocodingResult{Lat: lat, Lon: lon, DisplayName: place.DisplayName}, nil
}

// Search returns up to limit candidate places for a free-text query.
// Queries shorter than three characters return no results without a request.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.GeocodingResult, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minSearchLength {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	params := url.Values{
		"format":         {"json"},
		"q":              {query},
		"addressdetails": {"1"},
		"limit":          {strconv.Itoa(limit)},
	}
	if c.countryCode != "" {
		params.Set("countrycodes", c.countryCode)
	}

	var places []place
	if err := c.doRequest(ctx, c.baseURL+"/search?"+params.Encode(), "search", &places); err != nil {
		return nil, err
	}

	results := make([]domain.GeocodingResult, 0, len(places))
	for _, p := range places {
		lat, errLat := strconv.ParseFloat(p.Lat, 64)
		lon, errLon := strconv.ParseFloat(p.Lon, 64)
		if errLat != nil || errLon != nil {
			c.logger.Debug("skipping search result with unparsable coordinates", "display_name", p.DisplayName)
			continue
		}
		results = append(results, domain.GeocodingResult{Lat: lat, Lon: lon, DisplayName: p.DisplayName})
	}

	outcome := "success"
	if len(results) == 0 {
		outcome = "empty"
	}
	c.metrics.GeocodeRequests.WithLabelValues("search", outcome).Inc()
	return results, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL, method string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.GeocodeAPIDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues(method, "error").Inc()
		return fmt.Errorf("%s geocode request: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.metrics.GeocodeRequests.WithLabelValues(method, "error").Inc()
		return fmt.Errorf("nominatim API error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.metrics.GeocodeRequests.WithLabelValues(method, "error").Inc()
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Nominatim API response types. Coordinates arrive as strings.

type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Error       string `json:"error,omitempty"`
}
