// Package screen is the report screen's state, independent of any renderer.
//
// A ReportScreen wires the location resolver, media picker, composer and
// submission pipeline together and reports every outcome to a Presenter as a
// Notification. Each user action has its own in-flight flag; a second call
// while one runs returns ErrBusy and does nothing. Results that arrive after
// Unmount are dropped.
package screen

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/couchcryptid/monsoon-report-client/internal/composer"
	"github.com/couchcryptid/monsoon-report-client/internal/domain"
	"github.com/couchcryptid/monsoon-report-client/internal/location"
	"github.com/couchcryptid/monsoon-report-client/internal/media"
	"github.com/couchcryptid/monsoon-report-client/internal/pipeline"
)

var (
	// ErrBusy is returned when the same action is already in flight.
	ErrBusy = errors.New("action already in progress")
	// ErrNotMounted is returned for actions on an unmounted screen.
	ErrNotMounted = errors.New("screen not mounted")
	// ErrStale is returned when the screen was unmounted while the action ran.
	// The result has been discarded.
	ErrStale = errors.New("screen unmounted during action")
)

// LocationResolver resolves the device location.
type LocationResolver interface {
	Resolve(ctx context.Context) (domain.ResolvedLocation, error)
}

// ImagePicker selects the report photo.
type ImagePicker interface {
	PickFromCamera(ctx context.Context) (domain.ImageRef, error)
	PickFromGallery(ctx context.Context) (domain.ImageRef, error)
}

// Submitter submits a validated draft.
type Submitter interface {
	Submit(ctx context.Context, draft domain.ReportDraft) (pipeline.Receipt, error)
}

// Source selects the picker.
type Source int

const (
	SourceCamera Source = iota
	SourceGallery
)

func (s Source) String() string {
	if s == SourceGallery {
		return "gallery"
	}
	return "camera"
}

// ReportScreen owns one draft for as long as it is mounted.
type ReportScreen struct {
	resolver  LocationResolver
	picker    ImagePicker
	submitter Submitter
	composer  *composer.Composer
	presenter Presenter
	logger    *slog.Logger

	mu       sync.Mutex
	mounted  bool
	epoch    uint64
	located  bool
	lastErr  error
	receipts int

	locating   atomic.Bool
	picking    atomic.Bool
	submitting atomic.Bool
}

// New creates an unmounted screen.
func New(resolver LocationResolver, picker ImagePicker, submitter Submitter, c *composer.Composer, presenter Presenter, logger *slog.Logger) *ReportScreen {
	return &ReportScreen{
		resolver:  resolver,
		picker:    picker,
		submitter: submitter,
		composer:  c,
		presenter: presenter,
		logger:    logger,
	}
}

// Mount marks the screen live. The caller triggers the initial
// RefreshLocation, as it would on first render.
func (s *ReportScreen) Mount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mounted = true
	s.epoch++
	s.logger.Debug("report screen mounted")
}

// Unmount marks the screen gone. In-flight work is not cancelled but its
// results are discarded.
func (s *ReportScreen) Unmount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mounted = false
	s.epoch++
	s.logger.Debug("report screen unmounted")
}

// RefreshLocation resolves the location and writes it into the draft.
func (s *ReportScreen) RefreshLocation(ctx context.Context) error {
	if !s.locating.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.locating.Store(false)

	epoch, ok := s.begin()
	if !ok {
		return ErrNotMounted
	}

	loc, err := s.resolver.Resolve(ctx)
	if errors.Is(err, location.ErrSuperseded) {
		return nil
	}
	if !s.live(epoch) {
		s.logger.Debug("discarding location result for unmounted screen")
		return ErrStale
	}
	if err != nil {
		s.setLastErr(err)
		s.notify(Notification{Kind: KindError, Title: "Location Error", Message: domain.MessageOf(err)})
		return err
	}

	s.composer.SetLocation(loc)
	s.mu.Lock()
	s.located = true
	s.mu.Unlock()
	return nil
}

// PickImage runs the chosen picker and attaches the image to the draft.
// Cancellation returns media.ErrCancelled and shows nothing.
func (s *ReportScreen) PickImage(ctx context.Context, source Source) error {
	if !s.picking.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.picking.Store(false)

	epoch, ok := s.begin()
	if !ok {
		return ErrNotMounted
	}

	var (
		img domain.ImageRef
		err error
	)
	if source == SourceGallery {
		img, err = s.picker.PickFromGallery(ctx)
	} else {
		img, err = s.picker.PickFromCamera(ctx)
	}
	if !s.live(epoch) {
		return ErrStale
	}
	if errors.Is(err, media.ErrCancelled) {
		return err
	}
	if err != nil {
		s.setLastErr(err)
		title := "Error"
		if domain.IsKind(err, domain.KindPermissionDenied) {
			title = "Permission Denied"
		}
		s.notify(Notification{Kind: KindError, Title: title, Message: domain.MessageOf(err)})
		return err
	}

	s.composer.SetImage(img)
	s.logger.Debug("image attached", "source", source.String(), "file_name", img.FileName)
	return nil
}

// Submit validates the draft and hands it to the pipeline. On success the
// draft is reset; on failure it is left as it was.
func (s *ReportScreen) Submit(ctx context.Context) (pipeline.Receipt, error) {
	if !s.submitting.CompareAndSwap(false, true) {
		return pipeline.Receipt{}, ErrBusy
	}
	defer s.submitting.Store(false)

	epoch, ok := s.begin()
	if !ok {
		return pipeline.Receipt{}, ErrNotMounted
	}

	if err := s.composer.Validate(); err != nil {
		s.setLastErr(err)
		s.notify(Notification{Kind: KindError, Title: "Error", Message: domain.MessageOf(err)})
		return pipeline.Receipt{}, err
	}

	receipt, err := s.submitter.Submit(ctx, s.composer.Draft())
	if !s.live(epoch) {
		s.logger.Debug("discarding submission result for unmounted screen", "request_id", receipt.RequestID)
		return receipt, ErrStale
	}
	if err != nil {
		s.setLastErr(err)
		s.notify(Notification{Kind: KindError, Title: "Error", Message: domain.MessageOf(err)})
		return pipeline.Receipt{}, err
	}

	s.composer.Reset()
	s.mu.Lock()
	s.receipts++
	s.lastErr = nil
	s.mu.Unlock()
	s.notify(Notification{Kind: KindSuccess, Title: "Success", Message: "Report submitted successfully!"})
	return receipt, nil
}

// ImageSourcePrompt presents and returns the camera/gallery choice.
func (s *ReportScreen) ImageSourcePrompt() Notification {
	n := ImageSourcePrompt()
	s.notify(n)
	return n
}

// CheckReadiness reports ready once the screen is mounted and holds a
// resolved location.
func (s *ReportScreen) CheckReadiness(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return ErrNotMounted
	}
	if !s.located {
		return errors.New("location not resolved yet")
	}
	return nil
}

// Status is a point-in-time view of the screen for diagnostics.
type Status struct {
	Mounted     bool                     `json:"mounted"`
	Locating    bool                     `json:"locating"`
	Picking     bool                     `json:"picking"`
	Submitting  bool                     `json:"submitting"`
	Location    *domain.ResolvedLocation `json:"location,omitempty"`
	HasImage    bool                     `json:"has_image"`
	ReportType  string                   `json:"report_type"`
	Severity    string                   `json:"severity"`
	Submitted   int                      `json:"submitted"`
	LastFailure string                   `json:"last_failure,omitempty"`
}

// Status returns the current screen status.
func (s *ReportScreen) Status() Status {
	draft := s.composer.Draft()

	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Mounted:    s.mounted,
		Locating:   s.locating.Load(),
		Picking:    s.picking.Load(),
		Submitting: s.submitting.Load(),
		Location:   draft.Location,
		HasImage:   draft.Image != nil,
		ReportType: draft.ReportType.String(),
		Severity:   draft.Severity.String(),
		Submitted:  s.receipts,
	}
	if s.lastErr != nil {
		st.LastFailure = domain.KindOf(s.lastErr).String()
	}
	return st
}

func (s *ReportScreen) begin() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch, s.mounted
}

func (s *ReportScreen) live(epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mounted && s.epoch == epoch
}

func (s *ReportScreen) setLastErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

func (s *ReportScreen) notify(n Notification) {
	if s.presenter != nil {
		s.presenter.Notify(n)
	}
}
