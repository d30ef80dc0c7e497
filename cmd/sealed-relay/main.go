// Package main is the entry point for the sealed letter relay.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/shineum/sealed-relay/internal/config"
	"github.com/shineum/sealed-relay/internal/counter"
	"github.com/shineum/sealed-relay/internal/notify"
	"github.com/shineum/sealed-relay/internal/notify/ses"
	"github.com/shineum/sealed-relay/internal/notify/stdout"
	"github.com/shineum/sealed-relay/internal/relay"
	"github.com/shineum/sealed-relay/internal/server"
	relaytls "github.com/shineum/sealed-relay/internal/tls"
)

// Subcommands.
const (
	commandLaunch = "launch"
	commandInfo   = "info"
)

// options holds the parsed command line.
type options struct {
	command    string
	configPath string
	envFile    string
	verbose    bool
	quiet      bool
}

func main() {
	gin.SetMode(gin.ReleaseMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		sig := <-sigCh
		slog.Info("received signal, initiating shutdown", "signal", sig)
		cancel()
	}()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		slog.Error("sealed-relay failed", "error", err)
		os.Exit(1)
	}
}

// run executes one subcommand. It returns when the command completes or,
// for launch, when ctx is cancelled and the server has drained.
func run(ctx context.Context, args []string, out io.Writer) error {
	opts, err := parseArgs(args)
	if err != nil {
		return err
	}

	if opts.envFile != "" {
		if err := config.LoadEnvFile(opts.envFile); err != nil {
			return err
		}
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	switch {
	case opts.verbose:
		cfg.Logging.Level = "debug"
	case opts.quiet:
		cfg.Logging.Level = "warn"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	switch opts.command {
	case commandInfo:
		return printInfo(out, cfg)
	default:
		setupLogger(cfg.Logging.Level)
		return launch(ctx, cfg)
	}
}

// parseArgs accepts the subcommand either before or after the flags.
func parseArgs(args []string) (options, error) {
	var opts options

	fs := flag.NewFlagSet("sealed-relay", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "path to YAML configuration file (optional)")
	fs.StringVar(&opts.envFile, "env-file", "", "path to a .env file loaded before configuration (optional)")
	fs.BoolVar(&opts.verbose, "v", false, "enable debug logging")
	fs.BoolVar(&opts.verbose, "verbose", false, "enable debug logging")
	fs.BoolVar(&opts.quiet, "q", false, "log warnings and errors only")
	fs.BoolVar(&opts.quiet, "quiet", false, "log warnings and errors only")

	if len(args) > 0 && (args[0] == commandLaunch || args[0] == commandInfo) {
		opts.command = args[0]
		args = args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if rest := fs.Args(); len(rest) > 0 {
		if opts.command != "" || len(rest) > 1 {
			return options{}, fmt.Errorf("unexpected arguments: %v", rest)
		}
		opts.command = rest[0]
	}
	if opts.command == "" {
		opts.command = commandLaunch
	}
	if opts.command != commandLaunch && opts.command != commandInfo {
		return options{}, fmt.Errorf("unknown command %q", opts.command)
	}
	if opts.verbose && opts.quiet {
		return options{}, errors.New("-verbose and -quiet are mutually exclusive")
	}

	return opts, nil
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// printInfo writes the effective configuration, with secrets masked.
func printInfo(out io.Writer, cfg *config.Config) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(cfg.Redacted()); err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	return enc.Close()
}

func launch(ctx context.Context, cfg *config.Config) error {
	store, err := counter.Open(ctx, counter.Options{
		Store:    cfg.Counter.Store,
		Path:     cfg.Counter.Path,
		RedisURL: cfg.Counter.RedisURL,
		Prefix:   cfg.Counter.Prefix,
	})
	if err != nil {
		return fmt.Errorf("failed to open counter store: %w", err)
	}
	defer store.Close()

	notifier, err := selectNotifier(ctx, cfg)
	if err != nil {
		return err
	}

	srvCfg := server.Config{
		ListenAddr:  cfg.HTTP.Listen,
		Directory:   cfg.HTTP.Directory,
		RateLimit:   cfg.HTTP.RateLimit,
		RateBurst:   cfg.HTTP.RateBurst,
		MaxBodySize: cfg.HTTP.MaxBodySize,
	}

	tlsMode := "disabled"
	if cfg.TLSEnabled() {
		srvCfg.TLSConfig, err = relaytls.LoadOrGenerateTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.HTTP.Host)
		if err != nil {
			return fmt.Errorf("failed to setup TLS: %w", err)
		}
		tlsMode = "self-signed"
		if cfg.TLS.CertFile != "" {
			tlsMode = "file"
		}
	}

	service := relay.New(relay.Config{
		Host:     cfg.HTTP.Host,
		Policy:   cfg.Mail,
		Counter:  store,
		Notifier: notifier,
	})

	slog.Info("starting sealed-relay",
		"listen", cfg.HTTP.Listen,
		"host", cfg.HTTP.Host,
		"counter", store.Name(),
		"notifier", notifier.Name(),
		"tls_mode", tlsMode,
	)

	// The notification worker keeps going while the server drains and is
	// stopped once no more receipts can be queued.
	notifyCtx, stopNotify := context.WithCancel(context.WithoutCancel(ctx))
	var workers errgroup.Group
	workers.Go(func() error {
		service.Run(notifyCtx)
		return nil
	})

	serveErr := server.New(srvCfg, service).ListenAndServe(ctx)
	stopNotify()
	_ = workers.Wait()

	if serveErr != nil {
		return fmt.Errorf("server error: %w", serveErr)
	}

	slog.Info("sealed-relay stopped")
	return nil
}

// setupLogger configures the global slog logger with JSON output and the
// specified log level.
func setupLogger(level string) {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: levelFor(level),
	})
	slog.SetDefault(slog.New(handler))
}

func levelFor(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// selectNotifier chooses where receipts are reported.
func selectNotifier(ctx context.Context, cfg *config.Config) (notify.Notifier, error) {
	switch cfg.Notify.Provider {
	case "ses":
		if !cfg.SESConfigured() {
			return nil, errors.New("SES notifier selected but SES_REGION, SES_SENDER and SES_RECIPIENT are required")
		}
		slog.Info("using AWS SES notifier",
			"region", cfg.Notify.SES.Region,
			"sender", cfg.Notify.SES.Sender,
			"recipient", cfg.Notify.SES.Recipient,
		)
		n, err := ses.New(ctx, ses.Config{
			Region:          cfg.Notify.SES.Region,
			AccessKeyID:     cfg.Notify.SES.AccessKeyID,
			SecretAccessKey: cfg.Notify.SES.SecretAccessKey,
			Sender:          cfg.Notify.SES.Sender,
			Recipient:       cfg.Notify.SES.Recipient,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create SES notifier: %w", err)
		}
		return n, nil

	case "stdout":
		slog.Info("using stdout notifier")
		return stdout.New(), nil

	case "", "none":
		return notify.Discard{}, nil

	default:
		return nil, fmt.Errorf("unknown notify provider %q", cfg.Notify.Provider)
	}
}
