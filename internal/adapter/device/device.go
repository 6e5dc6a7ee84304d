// Package device is a headless platform for the reporting flow: permissions,
// position fixes and picked images come from configuration and flags instead
// of system dialogs and sensors.
package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/monsoon-report-client/internal/config"
	"github.com/couchcryptid/monsoon-report-client/internal/location"
	"github.com/couchcryptid/monsoon-report-client/internal/media"
	"github.com/couchcryptid/monsoon-report-client/internal/permission"
	"github.com/jonboulle/clockwork"
)

// ErrNoFix is returned when no position is configured for the requested tier.
var ErrNoFix = errors.New("no position fix available")

// Device implements permission.Platform, location.PositionSource and
// media.Platform.
type Device struct {
	granted     map[permission.Permission]bool
	high        *config.Position
	low         *config.Position
	cameraPath  string
	galleryPath string
	clock       clockwork.Clock
	logger      *slog.Logger
}

// New builds a Device from the DEVICE_* settings. The low-accuracy tier
// falls back to the high-accuracy position when unset.
func New(cfg *config.Config, clock clockwork.Clock, logger *slog.Logger) *Device {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	granted := make(map[permission.Permission]bool, len(cfg.DevicePermissions))
	for _, p := range cfg.DevicePermissions {
		granted[permission.Permission(p)] = true
	}
	low := cfg.DeviceLowAccuracyPosition
	if low == nil {
		low = cfg.DevicePosition
	}
	return &Device{
		granted: granted,
		high:    cfg.DevicePosition,
		low:     low,
		clock:   clock,
		logger:  logger,
	}
}

// SetCameraImage sets the file the camera "captures".
func (d *Device) SetCameraImage(path string) { d.cameraPath = path }

// SetGalleryImage sets the file the user "selects" from the gallery.
func (d *Device) SetGalleryImage(path string) { d.galleryPath = path }

// Request reports whether p was granted in DEVICE_PERMISSIONS.
func (d *Device) Request(ctx context.Context, p permission.Permission) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return d.granted[p], nil
}

// CurrentPosition returns the configured fix for the requested tier.
func (d *Device) CurrentPosition(ctx context.Context, opts location.Options) (location.Position, error) {
	if err := ctx.Err(); err != nil {
		return location.Position{}, err
	}
	pos := d.low
	tier := "low"
	if opts.HighAccuracy {
		pos = d.high
		tier = "high"
	}
	if pos == nil {
		return location.Position{}, fmt.Errorf("%s accuracy: %w", tier, ErrNoFix)
	}
	d.logger.Debug("device position", "accuracy", tier, "lat", pos.Lat, "lon", pos.Lon)
	return location.Position{Lat: pos.Lat, Lon: pos.Lon, Timestamp: d.clock.Now()}, nil
}

// LaunchCamera returns the camera image, or an error code when none is set.
func (d *Device) LaunchCamera(ctx context.Context) (media.Response, error) {
	if err := ctx.Err(); err != nil {
		return media.Response{}, err
	}
	if d.cameraPath == "" {
		return media.Response{ErrorCode: "camera_unavailable", ErrorMessage: "no camera on this device"}, nil
	}
	return pickFile(d.cameraPath), nil
}

// LaunchGallery returns the gallery image. Without one the pick is cancelled.
func (d *Device) LaunchGallery(ctx context.Context) (media.Response, error) {
	if err := ctx.Err(); err != nil {
		return media.Response{}, err
	}
	if d.galleryPath == "" {
		return media.Response{DidCancel: true}, nil
	}
	return pickFile(d.galleryPath), nil
}

func pickFile(path string) media.Response {
	abs, err := filepath.Abs(path)
	if err != nil {
		return media.Response{ErrorCode: "others", ErrorMessage: err.Error()}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return media.Response{ErrorCode: "others", ErrorMessage: err.Error()}
	}
	if info.IsDir() {
		return media.Response{ErrorCode: "others", ErrorMessage: abs + " is a directory"}
	}
	return media.Response{Assets: []media.Asset{{URI: "file://" + filepath.ToSlash(abs)}}}
}
