// Touch Node - touch-to-MQTT orchestration core
//
// This is the main entry point for the touch node. The node scans a
// capacitive touch panel, publishes the status bound to each touched button
// to an MQTT topic, drives a binary output from a subscribed command topic,
// and keeps that subscription alive across broker and link outages.
//
// Usage:
//
//	touchnode [-config path]
//	touchnode -issue-token <subject> [-role viewer|operator]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/nerrad567/gray-logic-touchnode/migrations"

	"github.com/nerrad567/gray-logic-touchnode/internal/api"
	"github.com/nerrad567/gray-logic-touchnode/internal/auth"
	"github.com/nerrad567/gray-logic-touchnode/internal/event"
	"github.com/nerrad567/gray-logic-touchnode/internal/hal"
	"github.com/nerrad567/gray-logic-touchnode/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-touchnode/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-touchnode/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-touchnode/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-touchnode/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-touchnode/internal/journal"
	"github.com/nerrad567/gray-logic-touchnode/internal/link"
	"github.com/nerrad567/gray-logic-touchnode/internal/node"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// startupCheckTimeout bounds the health check run before the node starts.
const startupCheckTimeout = 5 * time.Second

// options are the command-line flags.
type options struct {
	configPath string
	issueToken string
	role       string
	version    bool
}

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags reads the command line. The config path defaults to
// TOUCHNODE_CONFIG, then configs/config.yaml.
func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("touchnode", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.configPath, "config", getConfigPath(), "path to config.yaml")
	fs.StringVar(&opts.issueToken, "issue-token", "", "print an API token for this subject and exit")
	fs.StringVar(&opts.role, "role", string(auth.RoleViewer), "role for -issue-token: viewer or operator")
	fs.BoolVar(&opts.version, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return options{}, fmt.Errorf("parsing flags: %w", err)
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	if opts.version {
		fmt.Fprintf(stdout, "touchnode %s (%s, %s)\n", version, commit, date)
		return nil
	}

	// Use default logger until config is loaded
	log := logging.Default()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if opts.issueToken != "" {
		return issueToken(stdout, cfg, opts.issueToken, auth.Role(opts.role))
	}

	log = logging.New(cfg.Logging, version)
	log.Info("starting touch node",
		"version", version,
		"commit", commit,
		"build_date", date,
		"node_id", cfg.Node.ID,
		"config", opts.configPath,
	)

	checks := make(map[string]api.HealthChecker)

	// Event journal (optional)
	var journalRepo journal.Repository
	if cfg.Database.Enabled {
		db, err := database.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		journalRepo = journal.NewSQLiteRepository(db.DB)
		checks["database"] = db
		log.Info("event journal ready", "path", cfg.Database.Path, "retention", cfg.Database.Retention.String())
	} else {
		log.Info("event journal disabled")
	}

	// Time-series telemetry (optional)
	var (
		sinks  []event.Recorder
		health node.HealthSink
	)
	if cfg.InfluxDB.Enabled {
		influxClient, err := influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		sinks = append(sinks, influxClient)
		health = influxClient
		checks["influxdb"] = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Transport
	mqttClient, err := mqtt.Connect(cfg.MQTT, cfg.Node.ID)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.With("component", "mqtt"))
	checks["mqtt"] = mqttClient
	brokerAddr := net.JoinHostPort(cfg.MQTT.Broker.Host, strconv.Itoa(cfg.MQTT.Broker.Port))
	log.Info("MQTT connected", "broker", brokerAddr, "client_id", mqttClient.ClientID())

	// Hardware
	probe, err := link.New(cfg.Link, brokerAddr, mqttClient, log.With("component", "link"))
	if err != nil {
		return fmt.Errorf("creating link probe: %w", err)
	}

	panel, err := hal.NewTouchPanel(panelChannels(cfg.Sensor.Buttons), cfg.Sensor.ScanDuration)
	if err != nil {
		return fmt.Errorf("creating touch panel: %w", err)
	}
	defer panel.Close()

	output, err := hal.NewOutput(cfg.Actuator.Output)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	if closer, ok := output.(io.Closer); ok {
		defer func() {
			if closeErr := closer.Close(); closeErr != nil {
				log.Error("error closing output", "error", closeErr)
			}
		}()
	}

	// Live event stream, fed from the journal writer
	hub := api.NewHub(cfg.API.WebSocket, log.With("component", "api"))
	sinks = append(sinks, hub)

	n, err := node.New(cfg, node.Deps{
		Transport: node.MQTT(mqttClient),
		Link:      probe,
		Panel:     panel,
		Output:    output,
		Journal:   journalRepo,
		Sinks:     sinks,
		Health:    health,
		Logger:    log,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating node: %w", err)
	}

	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	if cfg.API.Enabled {
		srv, err := api.New(api.Deps{
			Config:       cfg.API,
			Logger:       log.With("component", "api"),
			Node:         n,
			Journal:      journalRepo,
			Hub:          hub,
			HealthChecks: checks,
			Version:      version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	if journalRepo != nil {
		go journal.Retain(ctx, journalRepo, cfg.Database.Retention, journal.DefaultPruneInterval, log.With("component", "journal"))
	}

	go watchConfig(ctx, opts.configPath, log)

	log.Info("initialisation complete, waiting for shutdown signal")

	// Blocks until ctx is cancelled.
	if err := n.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("node stopped: %w", err)
	}

	log.Info("shutdown signal received, cleaning up")
	// Deferred Close() calls run in reverse order: API, output, panel,
	// MQTT, InfluxDB, database.
	return nil
}

// getConfigPath returns the configuration file path.
// Uses TOUCHNODE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("TOUCHNODE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// panelChannels sizes the touch panel to cover the highest configured button.
func panelChannels(buttons []config.ButtonConfig) int {
	channels := 0
	for _, b := range buttons {
		if b.ID+1 > channels {
			channels = b.ID + 1
		}
	}
	return channels
}

// healthCheck verifies all infrastructure connections are healthy.
// Returns the first failure.
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	ctx, cancel := context.WithTimeout(ctx, startupCheckTimeout)
	defer cancel()

	for _, name := range []string{"database", "mqtt", "influxdb"} {
		check, ok := checks[name]
		if !ok {
			continue
		}
		if err := check.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// issueToken prints a signed API token for subject.
func issueToken(w io.Writer, cfg *config.Config, subject string, role auth.Role) error {
	if cfg.API.Auth.JWTSecret == "" {
		return fmt.Errorf("issuing token: api.auth.jwt_secret (or TOUCHNODE_JWT_SECRET) is not set")
	}
	token, err := auth.GenerateAccessToken(subject, role, cfg.API.Auth.JWTSecret, cfg.API.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("issuing token: %w", err)
	}
	fmt.Fprintln(w, token)
	return nil
}

// watchConfig applies log level changes from the config file at runtime.
// Every other setting needs a restart.
func watchConfig(ctx context.Context, path string, log *logging.Logger) {
	err := config.Watch(ctx, path,
		func(c *config.Config) {
			if c.Logging.Level != log.Level() && log.SetLevel(c.Logging.Level) {
				log.Info("log level changed", "level", log.Level())
				return
			}
			log.Info("config file changed; restart to apply settings other than logging.level")
		},
		func(err error) {
			log.Warn("ignoring config change", "error", err)
		},
	)
	if err != nil {
		log.Warn("config watcher not running", "error", err)
	}
}
