// Package main implements the entry point for the flume event sink.
// It reads events from stdin or a NATS subject and fans each one out to
// the configured sinks, which resolve per-event destinations from path
// templates.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/ExactTargetDev/flume/config"
	"github.com/ExactTargetDev/flume/event"
	"github.com/ExactTargetDev/flume/format"
	"github.com/ExactTargetDev/flume/metric"
	"github.com/ExactTargetDev/flume/natsclient"
	"github.com/ExactTargetDev/flume/pkg/retry"
	"github.com/ExactTargetDev/flume/sink"
	"github.com/ExactTargetDev/flume/writer/file"
	"github.com/ExactTargetDev/flume/writer/objectstore"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "flume"
)

// maxLineSize bounds a single stdin event line.
const maxLineSize = 1 << 20

// natsScheme marks destinations that go to the JetStream object store.
const natsScheme = "nats://"

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg, logger, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	ctx := context.Background()

	formats, err := buildFormats(cfg)
	if err != nil {
		return err
	}

	natsClient, metricsRegistry, metricsServer, err := setupInfrastructure(ctx, cfg)
	if err != nil {
		return err
	}
	if natsClient != nil {
		defer func() { _ = natsClient.Close() }()
	}
	if metricsServer != nil {
		defer func() { _ = metricsServer.Stop() }()
	}

	deps := sink.Dependencies{
		Formats:         formats,
		MetricsRegistry: metricsRegistry,
		Logger:          logger,
	}

	sinks, err := buildSinks(ctx, cfg, natsClient, deps)
	if err != nil {
		return err
	}

	if err := openSinks(ctx, sinks); err != nil {
		closeSinks(sinks)
		return err
	}

	runErr := pumpEvents(ctx, cliCfg, cfg, natsClient, sinks)

	if err := closeSinksWithTimeout(sinks, cliCfg.ShutdownTimeout); err != nil {
		if runErr == nil {
			runErr = err
		} else {
			slog.Error("Errors closing sinks", "error", err)
		}
	}

	if runErr == nil {
		slog.Info("Shutdown complete")
	}
	return runErr
}

// initializeCLI parses flags and sets up logging
func initializeCLI() (*CLIConfig, *slog.Logger, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, nil, true, nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting flume (dynamic multi-destination event sink)",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	return cliCfg, logger, false, nil
}

// buildFormats creates the format registry and applies the configured
// process-wide default.
func buildFormats(cfg config.Config) (*format.Registry, error) {
	formats := format.NewRegistry()

	if cfg.DefaultFormat != "" {
		spec, err := format.ParseSpec(cfg.DefaultFormat)
		if err != nil {
			return nil, fmt.Errorf("parse default format: %w", err)
		}
		if err := formats.SetDefault(spec); err != nil {
			return nil, fmt.Errorf("set default format: %w", err)
		}
	}

	return formats, nil
}

// setupInfrastructure creates the NATS client when configured, and the
// metrics registry and server when metrics are enabled.
func setupInfrastructure(
	ctx context.Context,
	cfg config.Config,
) (*natsclient.Client, *metric.MetricsRegistry, *metric.Server, error) {
	var natsClient *natsclient.Client
	if cfg.NATSUrl != "" {
		client, err := natsclient.NewClient(cfg.NATSUrl, natsclient.WithName(appName))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create NATS client: %w", err)
		}

		slog.Info("Connecting to NATS", "url", cfg.NATSUrl)
		if err := client.Connect(ctx); err != nil {
			return nil, nil, nil, fmt.Errorf("connect to NATS: %w", err)
		}
		natsClient = client
	}

	var metricsRegistry *metric.MetricsRegistry
	var metricsServer *metric.Server
	if cfg.Metrics.Enabled {
		metricsRegistry = metric.NewMetricsRegistry()
		metricsServer = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, metricsRegistry)

		go func() {
			if err := metricsServer.Start(); err != nil {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
		slog.Info("Metrics server started", "address", metricsServer.Address())
	}

	return natsClient, metricsRegistry, metricsServer, nil
}

// newWriterFactory selects the writer backend per destination:
// nats://bucket/object paths go to the JetStream object store, anything
// else is a local file.
func newWriterFactory(natsClient *natsclient.Client) sink.WriterFactory {
	return func(path string) (sink.Writer, error) {
		if strings.HasPrefix(path, natsScheme) {
			if natsClient == nil {
				return nil, fmt.Errorf("destination %q requires nats_url to be configured", path)
			}
			bucket, object, err := splitObjectPath(path)
			if err != nil {
				return nil, err
			}
			provider := objectstore.ClientProvider(natsClient, bucket, retry.DefaultConfig())
			return objectstore.New(object, provider)
		}
		return file.New(path)
	}
}

// splitObjectPath parses nats://bucket/object into its parts.
func splitObjectPath(path string) (string, string, error) {
	rest := strings.TrimPrefix(path, natsScheme)
	bucket, object, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("invalid object store destination %q, want nats://bucket/object", path)
	}
	return bucket, object, nil
}

// buildSinks constructs every configured sink through the type registry.
func buildSinks(
	ctx context.Context,
	cfg config.Config,
	natsClient *natsclient.Client,
	deps sink.Dependencies,
) ([]sink.Sink, error) {
	if len(cfg.Sinks) == 0 {
		return nil, fmt.Errorf("no sinks configured")
	}

	registry := sink.NewSinkRegistry()
	defaults := sink.Config{MaxOpenWriters: cfg.MaxOpenWriters}
	if err := registry.Register("escapedpath",
		sink.NewEscapedPathBuilder(defaults, newWriterFactory(natsClient))); err != nil {
		return nil, fmt.Errorf("register sink types: %w", err)
	}

	sinks := make([]sink.Sink, 0, len(cfg.Sinks))
	for _, sc := range cfg.Sinks {
		args := sc.Args
		if sc.Format != "" && len(args) < 3 {
			// The structured format field travels as the third
			// positional argument.
			for len(args) < 2 {
				args = append(args, "")
			}
			args = append(args, sc.Format)
		}

		s, err := registry.Build(ctx, sc.Type, sc.Name, args, deps)
		if err != nil {
			return nil, fmt.Errorf("build sink %q: %w", sc.Name, err)
		}
		slog.Info("Built sink", "name", sc.Name, "type", sc.Type)
		sinks = append(sinks, s)
	}

	return sinks, nil
}

func openSinks(ctx context.Context, sinks []sink.Sink) error {
	for i, s := range sinks {
		if err := s.Open(ctx); err != nil {
			return fmt.Errorf("open sink %d: %w", i, err)
		}
	}
	return nil
}

func closeSinks(sinks []sink.Sink) error {
	var firstErr error
	for i, s := range sinks {
		if err := s.Close(); err != nil {
			slog.Error("Failed to close sink", "index", i, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// closeSinksWithTimeout bounds the shutdown flush. Sinks flushing to a
// slow object store must not hang the process past the grace period.
func closeSinksWithTimeout(sinks []sink.Sink, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- closeSinks(sinks)
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timeout %s exceeded while closing sinks", timeout)
	}
}

// pumpEvents funnels events from stdin and the optional NATS subject
// into the sinks until the sources end or a shutdown signal arrives.
// The sinks are single-threaded, so all sources converge on one
// channel and one append loop. Append failures are logged and the
// stream continues; a single bad destination must not stall the rest.
func pumpEvents(
	ctx context.Context,
	cliCfg *CLIConfig,
	cfg config.Config,
	natsClient *natsclient.Client,
	sinks []sink.Sink,
) error {
	signalCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	events := make(chan *event.Event)
	stdinDone := make(chan error, 1)

	go readStdin(signalCtx, cliCfg.InputFormat, events, stdinDone)

	subscribed := false
	if cfg.Subject != "" && natsClient != nil {
		sub, err := subscribeEvents(signalCtx, natsClient, cfg.Subject, events)
		if err != nil {
			return err
		}
		defer func() { _ = sub.Unsubscribe() }()
		subscribed = true
	}

	var count int
	for {
		select {
		case <-signalCtx.Done():
			slog.Info("Received shutdown signal", "events", count)
			return nil
		case err := <-stdinDone:
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			if !subscribed {
				slog.Info("Input stream ended", "events", count)
				return nil
			}
			slog.Info("Input stream ended, continuing on subscription", "events", count)
			stdinDone = nil
		case e := <-events:
			appendAll(signalCtx, sinks, e)
			count++
		}
	}
}

// readStdin reads one event per line and sends it downstream.
func readStdin(ctx context.Context, inputFormat string, events chan<- *event.Event, done chan<- error) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		e, err := parseEvent(inputFormat, scanner.Text())
		if err != nil {
			slog.Warn("Skipping malformed event", "error", err)
			continue
		}
		select {
		case events <- e:
		case <-ctx.Done():
			return
		}
	}

	done <- scanner.Err()
}

// subscribeEvents feeds messages from a NATS subject into the event
// channel. Payloads that are not the JSON wire format are treated as
// raw bodies.
func subscribeEvents(
	ctx context.Context,
	client *natsclient.Client,
	subject string,
	events chan<- *event.Event,
) (*nats.Subscription, error) {
	conn := client.GetConnection()
	if conn == nil {
		return nil, fmt.Errorf("subscribe %s: no NATS connection", subject)
	}

	sub, err := conn.Subscribe(subject, func(msg *nats.Msg) {
		e := &event.Event{}
		if err := json.Unmarshal(msg.Data, e); err != nil {
			e = event.New(msg.Data, nil)
		}
		select {
		case events <- e:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}

	slog.Info("Subscribed to NATS subject", "subject", subject)
	return sub, nil
}

func appendAll(ctx context.Context, sinks []sink.Sink, e *event.Event) {
	for i, s := range sinks {
		if err := s.Append(ctx, e); err != nil {
			slog.Error("Append failed", "sink", i, "event_id", e.ID(), "error", err)
		}
	}
}

// parseEvent builds an event from one input line. Raw mode treats the
// line as the body; json mode expects the event wire format.
func parseEvent(inputFormat, line string) (*event.Event, error) {
	if inputFormat == "json" {
		e := &event.Event{}
		if err := json.Unmarshal([]byte(line), e); err != nil {
			return nil, err
		}
		return e, nil
	}

	return event.New([]byte(line), nil), nil
}
