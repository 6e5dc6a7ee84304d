// Command reporter submits a water-logging or drainage-block report from the
// command line, using the configured device position and a local image file.
//
// Usage:
//
//	reporter -store-token <token>
//	reporter -image flood.jpg -type drainage-block -severity high -description "drain choked"
//	reporter -camera capture.jpg
//	reporter -feed
//	reporter -search "Connaught Place"
//	reporter -logout
//
// Configuration comes from the environment (and ENV_FILE). DEVICE_POSITION
// supplies the fix; DIAGNOSTICS_ADDR enables /healthz, /readyz, /status and
// /metrics for the lifetime of the command.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/monsoon-report-client/internal/adapter/device"
	"github.com/couchcryptid/monsoon-report-client/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/monsoon-report-client/internal/adapter/kafka"
	"github.com/couchcryptid/monsoon-report-client/internal/adapter/kvstore"
	"github.com/couchcryptid/monsoon-report-client/internal/adapter/monsoonapi"
	"github.com/couchcryptid/monsoon-report-client/internal/adapter/nominatim"
	"github.com/couchcryptid/monsoon-report-client/internal/composer"
	"github.com/couchcryptid/monsoon-report-client/internal/config"
	"github.com/couchcryptid/monsoon-report-client/internal/domain"
	"github.com/couchcryptid/monsoon-report-client/internal/location"
	"github.com/couchcryptid/monsoon-report-client/internal/media"
	"github.com/couchcryptid/monsoon-report-client/internal/observability"
	"github.com/couchcryptid/monsoon-report-client/internal/permission"
	"github.com/couchcryptid/monsoon-report-client/internal/pipeline"
	"github.com/couchcryptid/monsoon-report-client/internal/screen"
	"github.com/couchcryptid/monsoon-report-client/internal/session"
)

type options struct {
	image       string
	camera      string
	reportType  string
	severity    string
	description string
	storeToken  string
	logout      bool
	feed        bool
	search      string
	hold        bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	opts, err := parseFlags(args)
	if err != nil {
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := kvstore.Open(cfg.StorePath)
	if err != nil {
		logger.Error("failed to open store", "error", err, "path", cfg.StorePath)
		return 1
	}
	defer store.Close()
	if err := store.InitSchema(ctx); err != nil {
		logger.Error("failed to init store", "error", err)
		return 1
	}
	sessions := session.NewProvider(store, nil)

	switch {
	case opts.storeToken != "":
		if err := sessions.Store(ctx, opts.storeToken); err != nil {
			logger.Error("failed to store session", "error", err)
			return 1
		}
		fmt.Fprintln(stdout, "session stored")
		return 0
	case opts.logout:
		if err := sessions.Clear(ctx); err != nil {
			logger.Error("failed to clear session", "error", err)
			return 1
		}
		fmt.Fprintln(stdout, "logged out")
		return 0
	}

	// Initialize geocoder (feature-flagged via GEOCODER_ENABLED).
	var geocoder domain.Geocoder
	if cfg.GeocoderEnabled {
		client := nominatim.NewClient(cfg.GeocoderBaseURL, cfg.GeocoderUserAgent, cfg.GeocoderTimeout, metrics, logger)
		geocoder = nominatim.NewCachedGeocoder(client, cfg.GeocoderCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Debug("geocoding enabled", "base_url", cfg.GeocoderBaseURL, "cache_size", cfg.GeocoderCacheSize)
	} else {
		metrics.GeocodeEnabled.Set(0)
		logger.Debug("geocoding disabled")
	}

	api := monsoonapi.NewClient(cfg.APIBaseURL, cfg.APITimeout, logger)

	if opts.search != "" {
		return runSearch(ctx, geocoder, opts.search, stdout, logger)
	}
	if opts.feed {
		return runFeed(ctx, api, sessions, stdout, logger)
	}

	dev := device.New(cfg, nil, logger)
	dev.SetGalleryImage(opts.image)
	dev.SetCameraImage(opts.camera)
	gate := permission.NewGate(dev, logger)

	var reverse domain.ReverseGeocoder
	if geocoder != nil {
		reverse = geocoder
	}
	resolver := location.NewResolver(gate, dev, reverse, location.Config{
		Timeout:       cfg.LocationTimeout,
		MaximumAge:    cfg.LocationMaxAge,
		EnrichTimeout: cfg.GeocoderTimeout,
	}, logger, metrics)
	resolver.OnTransition(func(s location.State) {
		logger.Debug("location state", "state", s.String())
	})

	var notifier pipeline.ReportNotifier
	if cfg.KafkaEnabled() {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		notifier = writer
		logger.Debug("report events enabled", "topic", cfg.KafkaReportTopic)
	}

	draft := composer.New()
	if err := applyDraftFlags(draft, opts); err != nil {
		logger.Error("invalid report flags", "error", err)
		return 2
	}

	p := pipeline.New(sessions, api, api, notifier, logger, metrics)
	scr := screen.New(resolver, media.NewPicker(gate, dev, logger), p, draft, printer(stdout), logger)

	serverDone := make(chan struct{})
	serverCtx, stopServer := context.WithCancel(ctx)
	if cfg.DiagnosticsAddr != "" {
		srv := httpadapter.NewServer(cfg.DiagnosticsAddr, scr, scr, nil, logger)
		go func() {
			defer close(serverDone)
			if err := srv.Run(serverCtx, cfg.ShutdownTimeout); err != nil {
				logger.Error("diagnostics server error", "error", err)
			}
		}()
	} else {
		close(serverDone)
	}
	defer func() {
		stopServer()
		<-serverDone
	}()

	scr.Mount()
	defer scr.Unmount()

	code := submitReport(ctx, scr, opts)

	if opts.hold && cfg.DiagnosticsAddr != "" {
		logger.Info("holding diagnostics server until interrupted", "addr", cfg.DiagnosticsAddr)
		<-ctx.Done()
	}
	return code
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("reporter", flag.ContinueOnError)
	fs.StringVar(&o.image, "image", "", "image file to pick from the gallery")
	fs.StringVar(&o.camera, "camera", "", "image file the camera captures (takes precedence over -image)")
	fs.StringVar(&o.reportType, "type", "water-log", "report type: water-log or drainage-block")
	fs.StringVar(&o.severity, "severity", "low", "severity: low, moderate or high")
	fs.StringVar(&o.description, "description", "", "free-text description")
	fs.StringVar(&o.storeToken, "store-token", "", "store a session token and exit")
	fs.BoolVar(&o.logout, "logout", false, "clear the stored session and exit")
	fs.BoolVar(&o.feed, "feed", false, "print the map feed and exit")
	fs.StringVar(&o.search, "search", "", "search places and exit")
	fs.BoolVar(&o.hold, "hold", false, "keep the diagnostics server running after submitting")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return o, nil
}

func applyDraftFlags(c *composer.Composer, o options) error {
	if err := c.SetField(composer.FieldReportType, o.reportType); err != nil {
		return err
	}
	if err := c.SetField(composer.FieldSeverity, o.severity); err != nil {
		return err
	}
	return c.SetField(composer.FieldDescription, o.description)
}

// submitReport drives the screen the way a user would: load, pick, submit.
func submitReport(ctx context.Context, scr *screen.ReportScreen, o options) int {
	// Location failures are reported by the screen; validation catches them.
	_ = scr.RefreshLocation(ctx)

	source := screen.SourceGallery
	if o.camera != "" {
		source = screen.SourceCamera
	}
	if err := scr.PickImage(ctx, source); err != nil && !errors.Is(err, media.ErrCancelled) {
		return 1
	}

	if _, err := scr.Submit(ctx); err != nil {
		return 1
	}
	return 0
}

func runSearch(ctx context.Context, geocoder domain.PlaceSearcher, query string, stdout io.Writer, logger *slog.Logger) int {
	if geocoder == nil {
		logger.Error("search requires GEOCODER_ENABLED=true")
		return 1
	}
	results, err := geocoder.Search(ctx, query, 5)
	if err != nil {
		logger.Error("place search failed", "error", err)
		return 1
	}
	return printJSON(stdout, results, logger)
}

func runFeed(ctx context.Context, api *monsoonapi.Client, sessions *session.Provider, stdout io.Writer, logger *slog.Logger) int {
	token, err := sessions.Token(ctx)
	if err != nil {
		fmt.Fprintln(stdout, domain.MessageOf(domain.NewFailure(domain.KindSessionExpired, "", err)))
		return 1
	}
	feed := api.FetchMapFeed(ctx, token)
	logger.Debug("map feed loaded",
		"water_logs", len(feed.WaterLogs.Features),
		"drainage_blocks", len(feed.DrainageBlocks.Features),
		"hotspots", len(feed.Hotspots.Features),
	)
	return printJSON(stdout, feed, logger)
}

func printJSON(w io.Writer, v any, logger *slog.Logger) int {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logger.Error("write output", "error", err)
		return 1
	}
	return 0
}

// printer writes notifications as "[kind] title: message".
func printer(w io.Writer) screen.Presenter {
	return screen.PresenterFunc(func(n screen.Notification) {
		fmt.Fprintf(w, "[%s] %s: %s\n", n.Kind, n.Title, n.Message)
	})
}
