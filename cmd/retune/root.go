package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	retune "github.com/tphakala/go-audio-retune"
	"github.com/tphakala/go-audio-retune/internal/observe"
)

const (
	metricsPath        = "/metrics"
	readHeaderTimeout  = 5 * time.Second
	metricsStopTimeout = 5 * time.Second
)

// app holds the global flags and the per-invocation service.
type app struct {
	configPath  string
	logLevel    string
	format      string
	metricsAddr string

	svc      *retune.Service
	cleanups []func(context.Context) error
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "retune",
		Short: "Measure and correct the tuning reference of recordings",
		Long: `retune estimates the A4 reference a recording was tuned to and renders a
copy shifted onto the 440 Hz grid without changing its duration.

Output is Ogg Opus (48 kHz stereo, 192 kbit/s) by default, or 16-bit PCM
WAV at 44.1 kHz stereo with --format wav.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML config file")
	flags.StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	flags.StringVar(&a.format, "format", "", "output format: opus or wav (overrides config)")
	flags.StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	root.AddCommand(
		newAnalyzeCmd(a),
		newCorrectCmd(a),
		newVersionCmd(),
	)
	return root
}

// start loads the config, sets up logging and metrics, and builds the
// service. close must be called when start succeeds.
func (a *app) start(ctx context.Context, stderr io.Writer) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", a.logLevel, err)
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	cfg := retune.DefaultConfig()
	if a.configPath != "" {
		loaded, err := retune.LoadConfig(a.configPath)
		if err != nil {
			return err
		}
		cfg = *loaded
	}
	if a.format != "" {
		cfg.Render.Format = a.format
	}

	if a.metricsAddr != "" {
		if err := a.serveMetrics(ctx, logger); err != nil {
			return err
		}
	}

	svc, err := retune.New(&cfg, retune.WithLogger(logger))
	if err != nil {
		return errors.Join(err, a.close())
	}
	a.svc = svc
	return nil
}

func (a *app) serveMetrics(ctx context.Context, logger *slog.Logger) error {
	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "retune",
		ServiceVersion: version,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	a.cleanups = append(a.cleanups, shutdown)

	ln, err := net.Listen("tcp", a.metricsAddr)
	if err != nil {
		return errors.Join(fmt.Errorf("listen on %s: %w", a.metricsAddr, err), a.close())
	}

	mux := http.NewServeMux()
	mux.Handle(metricsPath, promhttp.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: readHeaderTimeout}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String(), "path", metricsPath)

	a.cleanups = append(a.cleanups, srv.Shutdown)
	return nil
}

// close waits for in-flight operations and releases everything start set
// up, last first.
func (a *app) close() error {
	if a.svc != nil {
		a.svc.Wait()
	}
	ctx, cancel := context.WithTimeout(context.Background(), metricsStopTimeout)
	defer cancel()

	var errs []error
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		errs = append(errs, a.cleanups[i](ctx))
	}
	a.cleanups = nil
	return errors.Join(errs...)
}
