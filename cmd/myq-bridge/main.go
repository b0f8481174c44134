// myq-bridge - SmartThings to myQ local bridge
//
// This is the main entry point for the bridge. It runs on the local network,
// lets a SmartThings hub discover it via SSDP, and proxies device refreshes
// and door/lamp commands to the cloud myQ service on the hub's behalf.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/smartthings-community/myq-bridge/internal/api"
	"github.com/smartthings-community/myq-bridge/internal/device"
	"github.com/smartthings-community/myq-bridge/internal/discovery"
	"github.com/smartthings-community/myq-bridge/internal/infrastructure/config"
	"github.com/smartthings-community/myq-bridge/internal/infrastructure/logging"
	"github.com/smartthings-community/myq-bridge/internal/infrastructure/mqtt"
	"github.com/smartthings-community/myq-bridge/internal/myq"
	"github.com/smartthings-community/myq-bridge/internal/session"
	"github.com/smartthings-community/myq-bridge/internal/update"
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

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting myq-bridge",
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

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Session manager; each fresh login gets a fresh upstream client so no
	// stale token or account id survives a credential change.
	sessions := session.NewManager(func() myq.API {
		return myq.NewClient(cfg.MyQ)
	})
	sessions.SetLogger(log)

	// Device cache for transition detection
	cache := device.NewCache()
	cache.SetLogger(log)

	// Version poller (background, best-effort)
	var updates api.UpdateChecker
	if cfg.Update.Enabled {
		poller := update.NewPoller(cfg.Update, version)
		poller.SetLogger(log)
		go poller.Run(ctx)
		log.Info("version poller started", "url", cfg.Update.URL)
		updates = poller
	} else {
		log.Info("version poller disabled")
	}

	// MQTT event publisher (optional)
	var events api.EventPublisher
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		mqttClient.SetLogger(log)
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		)
		events = mqttClient
	} else {
		log.Info("MQTT disabled")
	}

	// SSDP discovery responder so the hub can find us without static config
	if cfg.Discovery.Enabled {
		responder := discovery.NewResponder(cfg.Discovery, cfg.Server.Port)
		responder.SetLogger(log)
		if startErr := responder.Start(ctx); startErr != nil {
			return fmt.Errorf("starting discovery responder: %w", startErr)
		}
		defer func() {
			log.Info("stopping discovery responder")
			if closeErr := responder.Close(); closeErr != nil {
				log.Error("error closing discovery responder", "error", closeErr)
			}
		}()
		log.Info("discovery responder started",
			"service_type", cfg.Discovery.ServiceType,
		)
	} else {
		log.Info("discovery responder disabled")
	}

	// Hub-facing HTTP server
	server, err := api.New(api.Deps{
		Config:   cfg.Server,
		Logger:   log,
		Sessions: sessions,
		Cache:    cache,
		Updates:  updates,
		Events:   events,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal",
		"port", cfg.Server.Port,
	)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	log.Info("myq-bridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses MYQBRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("MYQBRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
