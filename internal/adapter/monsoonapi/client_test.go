package monsoonapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/monsoon-report-client/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return NewClient(url, 5*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func writeImage(t *testing.T) domain.ImageRef {
	t.Helper()
	path := filepath.Join(t.TempDir(), "IMG_0001.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG fake image bytes"), 0o600))
	return domain.ImageRef{URI: "file://" + path, MimeType: "image/png", FileName: "IMG_0001.png"}
}

func TestUploadImage_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/upload/image", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "req-1", r.Header.Get("X-Request-ID"))

		mr, err := r.MultipartReader()
		require.NoError(t, err)
		part, err := mr.NextPart()
		require.NoError(t, err)
		assert.Equal(t, "image", part.FormName())
		assert.Equal(t, "upload.jpg", part.FileName())
		assert.Equal(t, "image/jpeg", part.Header.Get("Content-Type"), "declared type is fixed whatever the source")
		data, _ := io.ReadAll(part)
		assert.Equal(t, "\x89PNG fake image bytes", string(data))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"imageUrl":"https://monsoon-backend.onrender.com/uploads/abc.jpg"}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).UploadImage(context.Background(), "tok", "req-1", writeImage(t))
	require.NoError(t, err)
	assert.Equal(t, "https://monsoon-backend.onrender.com/uploads/abc.jpg", res.ImageURL)
}

func TestUploadImage_MissingImageURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).UploadImage(context.Background(), "tok", "req-1", writeImage(t))
	assert.Equal(t, domain.KindUploadFailed, domain.KindOf(err))
	assert.Equal(t, "Image upload failed", domain.MessageOf(err))
}

func TestUploadImage_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		_, _ = w.Write([]byte(`{"message":"File too large"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).UploadImage(context.Background(), "tok", "req-1", writeImage(t))
	assert.Equal(t, domain.KindUploadFailed, domain.KindOf(err))
	assert.Equal(t, "File too large", domain.MessageOf(err))
}

func TestUploadImage_UnreadableFileSendsNothing(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { hits.Add(1) }))
	defer srv.Close()

	_, err := newTestClient(srv.URL).UploadImage(context.Background(), "tok", "req-1", domain.ImageRef{URI: "file:///does/not/exist.jpg"})
	assert.Equal(t, domain.KindUploadFailed, domain.KindOf(err))
	assert.Zero(t, hits.Load())
}

func TestUploadImage_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url).UploadImage(context.Background(), "tok", "req-1", writeImage(t))
	assert.Equal(t, domain.KindNetworkError, domain.KindOf(err))
}

func TestCreateReport_Created(t *testing.T) {
	payload := domain.ReportPayload{
		Lat: 28.6139, Lon: 77.2090, Severity: "High", ReportType: "Drainage Block",
		EventDate: "2025-08-14", EventTime: "16:42", ImageURL: "https://x/u.jpg", Description: "drain blocked",
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/map/report", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "req-2", r.Header.Get("X-Request-ID"))

		var got domain.ReportPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, payload, got)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"_id":"66bc1f","message":"Report created"}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL).CreateReport(context.Background(), "tok", "req-2", payload)
	require.NoError(t, err)
	assert.Equal(t, "66bc1f", resp.ID)
	assert.Equal(t, "Report created", resp.Message)
	assert.JSONEq(t, `{"_id":"66bc1f","message":"Report created"}`, string(resp.Raw))
}

func TestCreateReport_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"message field", http.StatusBadRequest, `{"message":"Latitude is required"}`, "Latitude is required"},
		{"raw json body", http.StatusUnprocessableEntity, `{"error":"bad"}`, `{"error":"bad"}`},
		{"plain text body", http.StatusInternalServerError, "Internal Server Error", "Internal Server Error"},
		{"malformed 2xx body", http.StatusCreated, "<html>ok</html>", "<html>ok</html>"},
		{"empty body", http.StatusBadGateway, "", "status 502"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).CreateReport(context.Background(), "tok", "req", domain.ReportPayload{})
			assert.Equal(t, domain.KindSubmissionRejected, domain.KindOf(err))
			assert.Equal(t, tt.wantMsg, domain.MessageOf(err))
		})
	}
}

func TestFetchMapFeed_LayerFailureYieldsEmptyLayer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/map/water-log":
			_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[
				{"type":"Feature","geometry":{"type":"Point","coordinates":[77.209,28.6139]},"properties":{"severity":"High","reportType":"Water Log"}}
			]}`))
		case "/map/drainage-block":
			_, _ = w.Write([]byte(`{"type":"FeatureCollection"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	feed := newTestClient(srv.URL).FetchMapFeed(context.Background(), "tok")

	require.Len(t, feed.WaterLogs.Features, 1)
	lat, lon, ok := feed.WaterLogs.Features[0].LatLon()
	assert.True(t, ok)
	assert.Equal(t, 28.6139, lat)
	assert.Equal(t, 77.209, lon)
	assert.Equal(t, "High", feed.WaterLogs.Features[0].Properties.Severity)

	assert.NotNil(t, feed.DrainageBlocks.Features)
	assert.Empty(t, feed.DrainageBlocks.Features)

	assert.Equal(t, domain.EmptyFeatureCollection(), feed.Hotspots)
}

func TestHotspots_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Hotspots(context.Background(), "tok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
