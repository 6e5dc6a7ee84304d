// Package media selects the report photo from the camera or the gallery.
package media

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"path"
	"strings"

	"github.com/couchcryptid/monsoon-report-client/internal/domain"
	"github.com/couchcryptid/monsoon-report-client/internal/permission"
)

// ErrCancelled means the user dismissed the picker. It is not a failure and
// produces no message.
var ErrCancelled = errors.New("image pick cancelled")

// Asset is one item returned by the platform picker.
type Asset struct {
	URI      string
	Type     string
	FileName string
}

// Response mirrors the platform picker callback: exactly one of
// DidCancel, ErrorCode or Assets is meaningful.
type Response struct {
	DidCancel    bool
	ErrorCode    string
	ErrorMessage string
	Assets       []Asset
}

// Platform launches the native camera and gallery pickers.
type Platform interface {
	LaunchCamera(ctx context.Context) (Response, error)
	LaunchGallery(ctx context.Context) (Response, error)
}

// PermissionRequester asks for the camera and storage grant.
type PermissionRequester interface {
	RequestCameraAndStorage(ctx context.Context) permission.Status
}

// Picker gates the platform pickers behind the camera+storage grant.
type Picker struct {
	gate     PermissionRequester
	platform Platform
	logger   *slog.Logger
}

// NewPicker creates a Picker.
func NewPicker(gate PermissionRequester, platform Platform, logger *slog.Logger) *Picker {
	return &Picker{gate: gate, platform: platform, logger: logger}
}

// PickFromCamera captures a new photo.
func (p *Picker) PickFromCamera(ctx context.Context) (domain.ImageRef, error) {
	if p.gate.RequestCameraAndStorage(ctx) != permission.Granted {
		return domain.ImageRef{}, domain.NewFailure(domain.KindPermissionDenied, "Camera and Storage permissions are required.", nil)
	}
	resp, err := p.platform.LaunchCamera(ctx)
	return p.handle(resp, err, "camera", "Failed to open camera")
}

// PickFromGallery selects an existing photo.
func (p *Picker) PickFromGallery(ctx context.Context) (domain.ImageRef, error) {
	if p.gate.RequestCameraAndStorage(ctx) != permission.Granted {
		return domain.ImageRef{}, domain.NewFailure(domain.KindPermissionDenied, "Storage permission is required to access gallery.", nil)
	}
	resp, err := p.platform.LaunchGallery(ctx)
	return p.handle(resp, err, "gallery", "Failed to open gallery")
}

func (p *Picker) handle(resp Response, err error, source, failMsg string) (domain.ImageRef, error) {
	if err != nil {
		p.logger.Warn("image picker error", "source", source, "error", err)
		return domain.ImageRef{}, domain.NewFailure(domain.KindPickerFailure, failMsg, err)
	}
	if resp.DidCancel {
		p.logger.Debug("image picker cancelled", "source", source)
		return domain.ImageRef{}, ErrCancelled
	}
	if resp.ErrorCode != "" {
		p.logger.Warn("image picker error", "source", source, "code", resp.ErrorCode, "message", resp.ErrorMessage)
		return domain.ImageRef{}, domain.NewFailure(domain.KindPickerFailure, failMsg, errors.New(resp.ErrorCode))
	}
	if len(resp.Assets) == 0 || resp.Assets[0].URI == "" {
		return domain.ImageRef{}, ErrCancelled
	}
	return toImageRef(resp.Assets[0]), nil
}

// toImageRef fills a missing file name or MIME type from the URI.
func toImageRef(a Asset) domain.ImageRef {
	ref := domain.ImageRef{URI: a.URI, MimeType: a.Type, FileName: a.FileName}
	if ref.FileName == "" {
		ref.FileName = path.Base(strings.TrimPrefix(a.URI, "file://"))
	}
	if ref.MimeType == "" {
		ref.MimeType = mime.TypeByExtension(strings.ToLower(path.Ext(ref.FileName)))
	}
	return ref
}
