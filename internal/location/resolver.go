// Package location acquires the device position for a report and labels it
// with an address.
//
// Resolution is a fixed sequence of states:
//
//	Idle -> RequestingPermission -> AcquiringHighAccuracy -> Enriching -> Done
//	                                       |
//	                                       v (any error)
//	                               AcquiringLowAccuracy -> Enriching -> Done
//	                                       |
//	                                       v (any error)
//	                                     Failed
//
// A permission denial goes straight to Failed. Enrichment never fails the
// resolution: a geocoder error or timeout yields Done without an address.
package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/monsoon-report-client/internal/domain"
	"github.com/couchcryptid/monsoon-report-client/internal/observability"
	"github.com/couchcryptid/monsoon-report-client/internal/permission"
)

// State is a step of the resolution state machine.
type State int

const (
	Idle State = iota
	RequestingPermission
	AcquiringHighAccuracy
	AcquiringLowAccuracy
	Enriching
	Done
	Failed
)

var stateNames = [...]string{
	Idle:                  "idle",
	RequestingPermission:  "requesting_permission",
	AcquiringHighAccuracy: "acquiring_high_accuracy",
	AcquiringLowAccuracy:  "acquiring_low_accuracy",
	Enriching:             "enriching",
	Done:                  "done",
	Failed:                "failed",
}

func (s State) String() string {
	if int(s) >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ErrSuperseded is returned by a resolution that a newer Resolve call replaced.
// Its result must be discarded.
var ErrSuperseded = errors.New("location resolution superseded")

// Options configures one position acquisition attempt.
type Options struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration // accept a cached fix at most this old
}

// Position is a raw fix from the platform.
type Position struct {
	Lat       float64
	Lon       float64
	Accuracy  float64 // meters, 0 if unknown
	Timestamp time.Time
}

// PositionSource acquires the current device position.
type PositionSource interface {
	CurrentPosition(ctx context.Context, opts Options) (Position, error)
}

// PermissionRequester asks for location access.
type PermissionRequester interface {
	RequestLocation(ctx context.Context) permission.Status
}

// Config is the acquisition policy shared by both accuracy tiers.
type Config struct {
	Timeout       time.Duration
	MaximumAge    time.Duration
	EnrichTimeout time.Duration
}

// DefaultConfig is 20s per attempt, 10s cache tolerance and a 5s bound on enrichment.
func DefaultConfig() Config {
	return Config{
		Timeout:       20 * time.Second,
		MaximumAge:    10 * time.Second,
		EnrichTimeout: 5 * time.Second,
	}
}

// Resolver runs the resolution state machine. Each Resolve restarts it from
// Idle and supersedes any attempt still in flight.
type Resolver struct {
	gate     PermissionRequester
	source   PositionSource
	geocoder domain.ReverseGeocoder
	cfg      Config
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu       sync.Mutex
	state    State
	gen      uint64
	cancel   context.CancelFunc
	observer func(State)
}

// NewResolver creates a Resolver. Pass a nil geocoder to disable enrichment.
func NewResolver(gate PermissionRequester, source PositionSource, geocoder domain.ReverseGeocoder, cfg Config, logger *slog.Logger, metrics *observability.Metrics) *Resolver {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.EnrichTimeout <= 0 {
		cfg.EnrichTimeout = def.EnrichTimeout
	}
	if cfg.MaximumAge < 0 {
		cfg.MaximumAge = 0
	}
	return &Resolver{
		gate:     gate,
		source:   source,
		geocoder: geocoder,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// OnTransition registers fn to receive every state the current resolution enters.
// fn runs with the resolver lock held and must not call back into the resolver.
func (r *Resolver) OnTransition(fn func(State)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer = fn
}

// State returns the state of the most recent resolution.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Resolve acquires and enriches the current position. Failures are
// *domain.Failure with KindPermissionDenied or KindPositionUnavailable;
// ErrSuperseded means a newer call took over.
func (r *Resolver) Resolve(ctx context.Context) (domain.ResolvedLocation, error) {
	ctx, gen, release := r.begin(ctx)
	defer release()

	if !r.transition(gen, RequestingPermission) {
		return r.superseded()
	}
	if r.gate.RequestLocation(ctx) != permission.Granted {
		return r.fail(gen, domain.NewFailure(domain.KindPermissionDenied, "Location permission is required to report issues.", nil), "none")
	}

	loc, err := r.acquire(ctx, gen)
	if errors.Is(err, ErrSuperseded) {
		return r.superseded()
	}
	if err != nil {
		return r.fail(gen, domain.NewFailure(domain.KindPositionUnavailable, "", err), "none")
	}

	if !r.transition(gen, Enriching) {
		return r.superseded()
	}
	enrichCtx, cancel := context.WithTimeout(ctx, r.cfg.EnrichTimeout)
	loc = domain.EnrichLocation(enrichCtx, loc, r.geocoder, r.logger)
	cancel()

	if !r.transition(gen, Done) {
		return r.superseded()
	}
	r.metrics.LocationResolutions.WithLabelValues("done", loc.Accuracy).Inc()
	r.logger.Debug("location resolved",
		"lat", loc.Latitude,
		"lon", loc.Longitude,
		"accuracy", loc.Accuracy,
		"geo_source", loc.GeoSource,
	)
	return loc, nil
}

// acquire tries the high-accuracy tier, then the low-accuracy tier once,
// whatever the first error was.
func (r *Resolver) acquire(ctx context.Context, gen uint64) (domain.ResolvedLocation, error) {
	tiers := [2]struct {
		state    State
		accuracy string
		opts     Options
	}{
		{AcquiringHighAccuracy, domain.AccuracyHigh, Options{HighAccuracy: true, Timeout: r.cfg.Timeout, MaximumAge: r.cfg.MaximumAge}},
		{AcquiringLowAccuracy, domain.AccuracyLow, Options{HighAccuracy: false, Timeout: r.cfg.Timeout, MaximumAge: r.cfg.MaximumAge}},
	}

	var errs []error
	for _, tier := range tiers {
		if !r.transition(gen, tier.state) {
			return domain.ResolvedLocation{}, ErrSuperseded
		}

		pos, err := r.attempt(ctx, tier.opts)
		if err == nil {
			return domain.ResolvedLocation{
				Latitude:  pos.Lat,
				Longitude: pos.Lon,
				Accuracy:  tier.accuracy,
			}, nil
		}
		if !r.isCurrent(gen) {
			return domain.ResolvedLocation{}, ErrSuperseded
		}
		r.logger.Warn("position acquisition failed", "accuracy", tier.accuracy, "error", err)
		errs = append(errs, fmt.Errorf("%s accuracy: %w", tier.accuracy, err))
	}
	return domain.ResolvedLocation{}, errors.Join(errs...)
}

func (r *Resolver) attempt(ctx context.Context, opts Options) (Position, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	pos, err := r.source.CurrentPosition(attemptCtx, opts)
	if err != nil {
		return Position{}, err
	}
	if !domain.ValidCoordinates(pos.Lat, pos.Lon) {
		return Position{}, fmt.Errorf("invalid coordinates %v,%v", pos.Lat, pos.Lon)
	}
	return pos, nil
}

// begin starts a new generation, cancelling the previous one.
func (r *Resolver) begin(parent context.Context) (context.Context, uint64, func()) {
	ctx, cancel := context.WithCancel(parent)

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.gen++
	gen := r.gen
	r.cancel = cancel
	r.setState(Idle)
	r.mu.Unlock()

	return ctx, gen, func() {
		r.mu.Lock()
		if r.gen == gen {
			r.cancel = nil
		}
		r.mu.Unlock()
		cancel()
	}
}

// transition moves to s if gen is still the current generation.
func (r *Resolver) transition(gen uint64, s State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen != gen {
		return false
	}
	r.setState(s)
	return true
}

func (r *Resolver) isCurrent(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen == gen
}

// setState must be called with r.mu held.
func (r *Resolver) setState(s State) {
	r.state = s
	if r.observer != nil {
		r.observer(s)
	}
}

func (r *Resolver) fail(gen uint64, f *domain.Failure, accuracy string) (domain.ResolvedLocation, error) {
	if !r.transition(gen, Failed) {
		return r.superseded()
	}
	r.metrics.LocationResolutions.WithLabelValues(f.Kind.String(), accuracy).Inc()
	return domain.ResolvedLocation{}, f
}

func (r *Resolver) superseded() (domain.ResolvedLocation, error) {
	r.metrics.LocationResolutions.WithLabelValues("superseded", "none").Inc()
	return domain.ResolvedLocation{}, ErrSuperseded
}
