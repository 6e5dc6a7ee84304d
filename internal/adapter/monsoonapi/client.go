// Package monsoonapi is the HTTP client for the monsoon reporting backend.
package monsoonapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/monsoon-report-client/internal/domain"
)

const (
	uploadPath        = "/upload/image"
	reportPath        = "/map/report"
	waterLogPath      = "/map/water-log"
	drainageBlockPath = "/map/drainage-block"
	hotspotsPath      = "/map/hotspots"

	// The backend expects every upload under this field, name and type,
	// whatever the picker returned.
	uploadField     = "image"
	uploadFileName  = "upload.jpg"
	uploadMediaType = "image/jpeg"

	maxErrorBody = 4096
)

// Client calls the reporting backend. Every call carries the bearer token;
// submission calls also carry the request ID as X-Request-ID.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a backend client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// UploadImage sends the image as multipart/form-data and returns the hosted URL.
// A response without imageUrl is an upload failure even on 2xx.
func (c *Client) UploadImage(ctx context.Context, token, requestID string, img domain.ImageRef) (domain.UploadResult, error) {
	body, contentType, err := multipartImage(img)
	if err != nil {
		return domain.UploadResult{}, domain.NewFailure(domain.KindUploadFailed, "", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, uploadPath, token, requestID, body)
	if err != nil {
		return domain.UploadResult{}, domain.NewFailure(domain.KindUploadFailed, "", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.UploadResult{}, domain.NewFailure(domain.KindNetworkError, "", fmt.Errorf("upload request: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.UploadResult{}, domain.NewFailure(domain.KindNetworkError, "", fmt.Errorf("read upload response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("image upload rejected", "request_id", requestID, "status", resp.StatusCode)
		return domain.UploadResult{}, domain.NewFailure(domain.KindUploadFailed, serverMessage(raw, ""), fmt.Errorf("upload status %d", resp.StatusCode))
	}

	var result domain.UploadResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return domain.UploadResult{}, domain.NewFailure(domain.KindUploadFailed, "", fmt.Errorf("decode upload response: %w", err))
	}
	if result.ImageURL == "" {
		return domain.UploadResult{}, domain.NewFailure(domain.KindUploadFailed, "", fmt.Errorf("upload response has no imageUrl"))
	}
	return result, nil
}

// CreateReport posts the report payload. Non-2xx and undecodable responses
// are rejections carrying the server's message, or its raw body.
func (c *Client) CreateReport(ctx context.Context, token, requestID string, payload domain.ReportPayload) (domain.CreateReportResponse, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return domain.CreateReportResponse{}, fmt.Errorf("marshal report payload: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, reportPath, token, requestID, bytes.NewReader(data))
	if err != nil {
		return domain.CreateReportResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.CreateReportResponse{}, domain.NewFailure(domain.KindNetworkError, "", fmt.Errorf("create report request: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.CreateReportResponse{}, domain.NewFailure(domain.KindNetworkError, "", fmt.Errorf("read create report response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("report rejected", "request_id", requestID, "status", resp.StatusCode)
		return domain.CreateReportResponse{}, domain.NewFailure(domain.KindSubmissionRejected,
			serverMessage(raw, fmt.Sprintf("status %d", resp.StatusCode)),
			fmt.Errorf("create report status %d", resp.StatusCode))
	}

	var out domain.CreateReportResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return domain.CreateReportResponse{}, domain.NewFailure(domain.KindSubmissionRejected,
			serverMessage(raw, "malformed response"),
			fmt.Errorf("decode create report response: %w", err))
	}
	out.Raw = json.RawMessage(raw)
	return out, nil
}

// WaterLogs returns the water-logging reports layer.
func (c *Client) WaterLogs(ctx context.Context, token string) (domain.FeatureCollection, error) {
	return c.featureCollection(ctx, token, waterLogPath)
}

// DrainageBlocks returns the drainage-block reports layer.
func (c *Client) DrainageBlocks(ctx context.Context, token string) (domain.FeatureCollection, error) {
	return c.featureCollection(ctx, token, drainageBlockPath)
}

// Hotspots returns the flood-hotspot layer.
func (c *Client) Hotspots(ctx context.Context, token string) (domain.FeatureCollection, error) {
	return c.featureCollection(ctx, token, hotspotsPath)
}

// FetchMapFeed loads the three map layers concurrently. A layer that fails
// is logged and left empty; the others are still returned.
func (c *Client) FetchMapFeed(ctx context.Context, token string) domain.MapFeed {
	var feed domain.MapFeed
	layers := []struct {
		name  string
		fetch func(context.Context, string) (domain.FeatureCollection, error)
		dst   *domain.FeatureCollection
	}{
		{"water_log", c.WaterLogs, &feed.WaterLogs},
		{"drainage_block", c.DrainageBlocks, &feed.DrainageBlocks},
		{"hotspots", c.Hotspots, &feed.Hotspots},
	}

	done := make(chan struct{}, len(layers))
	for _, l := range layers {
		go func() {
			defer func() { done <- struct{}{} }()
			fc, err := l.fetch(ctx, token)
			if err != nil {
				c.logger.Warn("map layer fetch failed", "layer", l.name, "error", err)
				fc = domain.EmptyFeatureCollection()
			}
			*l.dst = fc
		}()
	}
	for range layers {
		<-done
	}
	return feed
}

func (c *Client) featureCollection(ctx context.Context, token, path string) (domain.FeatureCollection, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, token, "", nil)
	if err != nil {
		return domain.FeatureCollection{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return domain.FeatureCollection{}, fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, body)
	}

	var fc domain.FeatureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if fc.Features == nil {
		fc.Features = []domain.Feature{}
	}
	return fc, nil
}

func (c *Client) newRequest(ctx context.Context, method, path, token, requestID string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}
	return req, nil
}

// multipartImage reads the local image and encodes it as the single form part.
func multipartImage(img domain.ImageRef) (io.Reader, string, error) {
	f, err := os.Open(localPath(img.URI))
	if err != nil {
		return nil, "", fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, uploadField, uploadFileName))
	h.Set("Content-Type", uploadMediaType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create form part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func localPath(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}

// serverMessage returns the body's "message" field, else the raw body, else fallback.
func serverMessage(raw []byte, fallback string) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		return body.Message
	}
	if s := strings.TrimSpace(string(raw)); s != "" {
		if len(s) > maxErrorBody {
			s = s[:maxErrorBody]
		}
		return s
	}
	return fallback
}
