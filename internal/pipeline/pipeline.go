// Package pipeline runs the upload-then-create report submission.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/monsoon-report-client/internal/domain"
	"github.com/couchcryptid/monsoon-report-client/internal/observability"
	"github.com/google/uuid"
)

// SessionProvider supplies the bearer token for both calls.
type SessionProvider interface {
	Token(ctx context.Context) (string, error)
}

// Uploader stores the report image and returns its hosted URL.
type Uploader interface {
	UploadImage(ctx context.Context, token, requestID string, img domain.ImageRef) (domain.UploadResult, error)
}

// ReportCreator creates the report record.
type ReportCreator interface {
	CreateReport(ctx context.Context, token, requestID string, payload domain.ReportPayload) (domain.CreateReportResponse, error)
}

// ReportNotifier publishes accepted reports downstream.
type ReportNotifier interface {
	PublishSubmitted(ctx context.Context, report domain.SubmittedReport) error
}

// Receipt describes an accepted submission.
type Receipt struct {
	RequestID string
	Payload   domain.ReportPayload
	Response  domain.CreateReportResponse
}

// Pipeline sequences session lookup, image upload, payload composition and
// report creation. It never retries; the caller decides whether to resubmit.
type Pipeline struct {
	session  SessionProvider
	uploader Uploader
	creator  ReportCreator
	notifier ReportNotifier
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// New creates a Pipeline. notifier may be nil.
func New(session SessionProvider, uploader Uploader, creator ReportCreator, notifier ReportNotifier, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		session:  session,
		uploader: uploader,
		creator:  creator,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
	}
}

// Submit runs one submission. Every failure is a *domain.Failure; the draft is
// not modified either way.
func (p *Pipeline) Submit(ctx context.Context, draft domain.ReportDraft) (Receipt, error) {
	p.metrics.SubmitInFlight.Set(1)
	defer p.metrics.SubmitInFlight.Set(0)

	requestID := uuid.NewString()
	logger := p.logger.With("request_id", requestID)

	token, err := p.session.Token(ctx)
	if err != nil {
		logger.Info("submission blocked: no valid session", "error", err)
		return Receipt{}, p.failed(domain.NewFailure(domain.KindSessionExpired, "", err))
	}

	if draft.Image == nil {
		return Receipt{}, p.failed(domain.NewFailure(domain.KindMissingImage, "", nil))
	}

	start := time.Now()
	upload, err := p.uploader.UploadImage(ctx, token, requestID, *draft.Image)
	p.metrics.StageDuration.WithLabelValues("upload").Observe(time.Since(start).Seconds())
	if err != nil {
		logger.Error("image upload failed", "error", err)
		return Receipt{}, p.failed(asFailure(err, domain.KindUploadFailed))
	}
	logger.Debug("image uploaded", "image_url", upload.ImageURL)

	payload, err := domain.ComposePayload(draft, upload)
	if err != nil {
		logger.Error("compose report payload failed", "error", err)
		return Receipt{}, p.failed(asFailure(err, domain.KindInvalidLocation))
	}

	start = time.Now()
	resp, err := p.creator.CreateReport(ctx, token, requestID, payload)
	p.metrics.StageDuration.WithLabelValues("create").Observe(time.Since(start).Seconds())
	if err != nil {
		logger.Error("create report failed", "error", err)
		return Receipt{}, p.failed(asFailure(err, domain.KindSubmissionRejected))
	}

	p.metrics.Submissions.WithLabelValues("success").Inc()
	logger.Info("report submitted",
		"report_id", resp.ID,
		"report_type", payload.ReportType,
		"severity", payload.Severity,
		"event_date", payload.EventDate,
		"event_time", payload.EventTime,
	)

	p.notify(ctx, logger, domain.SubmittedReport{
		RequestID:   requestID,
		ReportID:    resp.ID,
		Payload:     payload,
		SubmittedAt: domain.Now().UTC(),
	})

	return Receipt{RequestID: requestID, Payload: payload, Response: resp}, nil
}

// notify publishes the accepted report. Failures are logged and counted only.
func (p *Pipeline) notify(ctx context.Context, logger *slog.Logger, report domain.SubmittedReport) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.PublishSubmitted(ctx, report); err != nil {
		logger.Warn("publish submitted report failed", "error", err)
		p.metrics.ReportEvents.WithLabelValues("error").Inc()
		return
	}
	p.metrics.ReportEvents.WithLabelValues("published").Inc()
}

func (p *Pipeline) failed(f *domain.Failure) *domain.Failure {
	p.metrics.Submissions.WithLabelValues(f.Kind.String()).Inc()
	return f
}

// asFailure keeps an adapter's classification, or files an unclassified
// error under fallback.
func asFailure(err error, fallback domain.Kind) *domain.Failure {
	var f *domain.Failure
	if errors.As(err, &f) {
		return f
	}
	return domain.NewFailure(fallback, "", err)
}
