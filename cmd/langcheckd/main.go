// langcheckd keeps a grammar engine warm and answers check requests
// published over MQTT.
//
// Configuration is read from the YAML file named by LANGCHECK_CONFIG
// (default configs/langcheck.yaml) and overridden by LANGCHECK_* variables.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/langcheck/internal/bridge"
	"github.com/nerrad567/langcheck/internal/checkcache"
	"github.com/nerrad567/langcheck/internal/client"
	"github.com/nerrad567/langcheck/internal/infrastructure/config"
	"github.com/nerrad567/langcheck/internal/infrastructure/database"
	"github.com/nerrad567/langcheck/internal/infrastructure/influxdb"
	"github.com/nerrad567/langcheck/internal/infrastructure/logging"
	"github.com/nerrad567/langcheck/internal/infrastructure/mqtt"
	"github.com/nerrad567/langcheck/internal/process"
	"github.com/nerrad567/langcheck/internal/setup"
	"github.com/nerrad567/langcheck/migrations"
)

// Version information, set at build time via ldflags:
// go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/langcheck.yaml"
	pruneInterval     = time.Hour
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	cancel()

	// Kill any engine that survived its supervisor, including on error paths.
	process.DefaultRegistry().KillAll()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the daemon, separated from main for testability.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting langcheckd",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
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
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	hooks := newEngineHooks(log, checkcache.NewEventLog(db.DB), influxClient)

	opts := setup.ClientOptions(cfg)
	opts.Logger = log.With("component", "client")
	opts.Engine.OnStart = hooks.onStart
	opts.Engine.OnStop = hooks.onStop
	opts.Engine.OnRestart = hooks.onRestart
	if influxClient != nil {
		opts.Metrics = influxClient
	}

	var cache *checkcache.Store
	if cfg.Cache.Enabled {
		cache = checkcache.New(db.DB, cfg.GetCacheTTL())
		cache.SetLogger(log.With("component", "cache"))
		opts.Cache = cache
		log.Info("check cache enabled", "ttl", cfg.GetCacheTTL())
	}

	checker, err := setup.NewClient(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("stopping engine")
		if closeErr := checker.Close(); closeErr != nil {
			log.Error("error stopping engine", "error", closeErr)
		}
	}()
	log.Info("checker ready",
		"url", checker.URL(),
		"remote", checker.Remote(),
		"language", checker.Language().String(),
	)

	if cache != nil {
		go pruneLoop(ctx, cache, log)
	}

	if !cfg.MQTT.Enabled {
		log.Warn("MQTT disabled, no check requests will be served")
		<-ctx.Done()
		log.Info("langcheckd stopped")
		return nil
	}

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT connected")
		hooks.notify()
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	checkBridge, err := bridge.New(bridge.Options{
		Checker:        checker,
		MQTT:           mqttClient,
		Logger:         log.With("component", "bridge"),
		RequestTimeout: cfg.GetRequestTimeout(),
	})
	if err != nil {
		return fmt.Errorf("creating check bridge: %w", err)
	}
	if err := checkBridge.Start(ctx); err != nil {
		return fmt.Errorf("starting check bridge: %w", err)
	}
	defer checkBridge.Stop()

	go publishEngineStatus(ctx, hooks.changes(), checker, checkBridge, log)
	hooks.notify()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse: bridge, MQTT, engine, InfluxDB, database.
	log.Info("langcheckd stopped")
	return nil
}

// getConfigPath returns LANGCHECK_CONFIG or the default path.
func getConfigPath() string {
	if path := os.Getenv("LANGCHECK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies every infrastructure connection.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}

// pruneLoop drops expired cache entries until ctx is done.
func pruneLoop(ctx context.Context, cache *checkcache.Store, log *logging.Logger) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := cache.Prune(ctx)
			if err != nil {
				log.Warn("cache prune failed", "error", err)
				continue
			}
			if n > 0 {
				log.Debug("cache pruned", "removed", n)
			}
		}
	}
}

// publishEngineStatus republishes the retained engine status whenever the
// hooks report a lifecycle change.
func publishEngineStatus(ctx context.Context, changes <-chan struct{}, c *client.Client, b *bridge.Bridge, log *logging.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
			if err := b.PublishEngineStatus(engineStatus(c)); err != nil {
				log.Warn("publishing engine status failed", "error", err)
			}
		}
	}
}

func engineStatus(c *client.Client) bridge.EngineStatus {
	status := bridge.EngineStatus{Remote: c.Remote(), URL: c.URL()}
	if sup := c.Engine(); sup != nil {
		stats := sup.Stats()
		status.Engine = &stats
	}
	return status
}
