package device

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/monsoon-report-client/internal/config"
	"github.com/couchcryptid/monsoon-report-client/internal/location"
	"github.com/couchcryptid/monsoon-report-client/internal/permission"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDevice(cfg *config.Config) *Device {
	return New(cfg, clockwork.NewFakeClockAt(time.Date(2025, 8, 14, 9, 0, 0, 0, time.UTC)), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRequest(t *testing.T) {
	d := newDevice(&config.Config{DevicePermissions: []string{"location", "camera"}})

	ok, err := d.Request(context.Background(), permission.Location)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.Request(context.Background(), permission.Storage)
	require.NoError(t, err)
	assert.False(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.Request(ctx, permission.Location)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCurrentPosition_Tiers(t *testing.T) {
	d := newDevice(&config.Config{
		DevicePosition:            &config.Position{Lat: 28.6139, Lon: 77.2090},
		DeviceLowAccuracyPosition: &config.Position{Lat: 28.61, Lon: 77.2},
	})

	high, err := d.CurrentPosition(context.Background(), location.Options{HighAccuracy: true})
	require.NoError(t, err)
	assert.Equal(t, 28.6139, high.Lat)
	assert.Equal(t, time.Date(2025, 8, 14, 9, 0, 0, 0, time.UTC), high.Timestamp)

	low, err := d.CurrentPosition(context.Background(), location.Options{})
	require.NoError(t, err)
	assert.Equal(t, 28.61, low.Lat)
}

func TestCurrentPosition_LowFallsBackToHighPosition(t *testing.T) {
	d := newDevice(&config.Config{DevicePosition: &config.Position{Lat: 19.076, Lon: 72.8777}})

	low, err := d.CurrentPosition(context.Background(), location.Options{})
	require.NoError(t, err)
	assert.Equal(t, 19.076, low.Lat)
}

func TestCurrentPosition_OnlyLowConfigured(t *testing.T) {
	d := newDevice(&config.Config{DeviceLowAccuracyPosition: &config.Position{Lat: 12.97, Lon: 77.59}})

	_, err := d.CurrentPosition(context.Background(), location.Options{HighAccuracy: true})
	assert.ErrorIs(t, err, ErrNoFix)

	low, err := d.CurrentPosition(context.Background(), location.Options{})
	require.NoError(t, err)
	assert.Equal(t, 12.97, low.Lat)
}

func TestLaunchCamera(t *testing.T) {
	d := newDevice(&config.Config{})

	resp, err := d.LaunchCamera(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "camera_unavailable", resp.ErrorCode)

	path := filepath.Join(t.TempDir(), "flood.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpeg"), 0o600))
	d.SetCameraImage(path)

	resp, err = d.LaunchCamera(context.Background())
	require.NoError(t, err)
	require.Len(t, resp.Assets, 1)
	assert.Equal(t, "file://"+filepath.ToSlash(path), resp.Assets[0].URI)
}

func TestLaunchGallery(t *testing.T) {
	d := newDevice(&config.Config{})

	resp, err := d.LaunchGallery(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.DidCancel)

	d.SetGalleryImage(filepath.Join(t.TempDir(), "missing.jpg"))
	resp, err = d.LaunchGallery(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ErrorCode)
}
