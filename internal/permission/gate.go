// Package permission checks the runtime permissions the reporting flow needs.
package permission

import (
	"context"
	"log/slog"
)

// Permission names a platform capability.
type Permission string

const (
	Location Permission = "location"
	Camera   Permission = "camera"
	Storage  Permission = "storage"
)

// Status is the outcome of a permission request.
type Status int

const (
	Denied Status = iota
	Granted
)

func (s Status) String() string {
	if s == Granted {
		return "granted"
	}
	return "denied"
}

// Platform asks the operating system for a permission. Implementations may
// show a dialog and block until the user answers.
type Platform interface {
	Request(ctx context.Context, p Permission) (bool, error)
}

// Gate requests permissions and collapses every non-grant, including
// platform errors, into Denied.
type Gate struct {
	platform Platform
	logger   *slog.Logger
}

// NewGate creates a Gate over the given platform.
func NewGate(platform Platform, logger *slog.Logger) *Gate {
	return &Gate{platform: platform, logger: logger}
}

// RequestLocation asks for fine location access.
func (g *Gate) RequestLocation(ctx context.Context) Status {
	return g.request(ctx, Location)
}

// RequestCameraAndStorage asks for camera then storage access. Both must be
// granted; storage is not requested once the camera is denied.
func (g *Gate) RequestCameraAndStorage(ctx context.Context) Status {
	if g.request(ctx, Camera) != Granted {
		return Denied
	}
	return g.request(ctx, Storage)
}

func (g *Gate) request(ctx context.Context, p Permission) Status {
	granted, err := g.platform.Request(ctx, p)
	if err != nil {
		g.logger.Warn("permission request failed, treating as denied", "permission", p, "error", err)
		return Denied
	}
	if !granted {
		g.logger.Info("permission denied", "permission", p)
		return Denied
	}
	return Granted
}
