// fleetd - Device Proxy & State Synchronization Engine
//
// fleetd remotely controls and monitors a fleet of hardware components
// (sensors, relays, climate units) over MQTT and an optional device API
// channel. It builds per-component proxies from declarative capability
// metadata, correlates commands with their status replies, probes each
// transport namespace for liveness, and maintains a continuously updated
// merged state snapshot for downstream consumers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/fleetd/internal/capability"
	"github.com/nerrad567/fleetd/internal/heartbeat"
	"github.com/nerrad567/fleetd/internal/infrastructure/config"
	"github.com/nerrad567/fleetd/internal/infrastructure/influxdb"
	"github.com/nerrad567/fleetd/internal/infrastructure/logging"
	"github.com/nerrad567/fleetd/internal/infrastructure/mqtt"
	"github.com/nerrad567/fleetd/internal/proxy"
	"github.com/nerrad567/fleetd/internal/state"
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
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting fleetd",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
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

	// Load capability metadata and device inventory
	meta, err := capability.LoadMetadata(cfg.Fleet.MetadataFile)
	if err != nil {
		return fmt.Errorf("loading capability metadata: %w", err)
	}
	registry, err := capability.NewRegistry(meta, capability.WithLogger(log))
	if err != nil {
		return fmt.Errorf("building capability registry: %w", err)
	}
	log.Info("capability registry built", "types", registry.Len())

	inventory, err := capability.LoadInventory(cfg.Fleet.DevicesFile)
	if err != nil {
		return fmt.Errorf("loading device inventory: %w", err)
	}
	log.Info("device inventory loaded",
		"devices", len(inventory.Devices),
		"namespaces", len(inventory.Namespaces()),
	)

	// Connect to MQTT broker
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
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	pushChannel := mqtt.NewChannel(mqttClient)

	// Build the device proxies. No pull channel is wired by default: the
	// device-API client is deployment-specific, and poll-only components
	// declared without one are skipped with a warning.
	manager := proxy.NewManager(inventory, registry, pushChannel, nil,
		proxy.WithLogger(log),
		proxy.WithSettleDelay(cfg.SettleDelay()),
		proxy.WithPollInterval(cfg.PollInterval("")),
	)
	defer func() {
		log.Info("closing device proxies")
		manager.Close()
	}()

	// Build the aggregator
	pollOverrides := make(map[string]time.Duration, len(cfg.State.PollIntervals))
	for status := range cfg.State.PollIntervals {
		pollOverrides[status] = cfg.PollInterval(status)
	}

	aggregator := state.New(manager, state.Config{
		BootstrapTimeout: cfg.BootstrapTimeout(),
		RefreshInterval:  cfg.RefreshInterval(),
		PollInterval:     cfg.PollInterval(""),
		PollIntervals:    pollOverrides,
		Internal:         cfg.State.Internal,
	},
		state.WithLogger(log),
		state.WithCommandHandler(commandHandler(manager, log)),
	)

	// Start heartbeat monitors, one per transport namespace
	var monitors []*heartbeat.Monitor
	for _, namespace := range inventory.Namespaces() {
		monitor := heartbeat.NewMonitor(namespace, pushChannel,
			cfg.HeartbeatInterval(), cfg.HeartbeatTimeout(),
			aggregator.RecordHeartbeat,
			heartbeat.WithLogger(log),
		)
		if startErr := monitor.Start(); startErr != nil {
			log.Warn("heartbeat monitor failed to start", "namespace", namespace, "error", startErr)
			continue
		}
		monitors = append(monitors, monitor)
	}
	defer func() {
		log.Info("stopping heartbeat monitors")
		for _, monitor := range monitors {
			if stopErr := monitor.Stop(); stopErr != nil {
				log.Error("error stopping heartbeat monitor",
					"namespace", monitor.Namespace(),
					"error", stopErr,
				)
			}
		}
	}()

	// Bootstrap refresh, then steady state
	log.Info("starting bootstrap refresh")
	aggregator.Bootstrap(ctx)

	if err := aggregator.Start(); err != nil {
		return fmt.Errorf("starting aggregator: %w", err)
	}
	defer func() {
		log.Info("stopping aggregator")
		if stopErr := aggregator.Stop(); stopErr != nil {
			log.Error("error stopping aggregator", "error", stopErr)
		}
	}()

	// Connect to InfluxDB and start the history recorder (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		subID, updates := aggregator.Subscribe()
		recorder := influxdb.NewRecorder(influxClient, influxdb.WithLogger(log))
		recorder.Start(updates)
		defer func() {
			log.Info("stopping state history recorder")
			recorder.Stop()
			aggregator.Unsubscribe(subID)
		}()
	} else {
		log.Info("InfluxDB disabled")
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred cleanup runs in reverse order: recorder and InfluxDB first,
	// then the aggregator's watches and loops, then heartbeat monitors and
	// proxies, and the MQTT connection last so no consumer task ever
	// operates on a closed transport.

	log.Info("fleetd stopped")
	return nil
}

// commandHandler executes queued front-end commands against the fleet.
//
// Command names use the dotted form "device.component.command"; the data
// map carries the command's keyword arguments.
func commandHandler(manager *proxy.Manager, log *logging.Logger) state.CommandHandler {
	return func(ctx context.Context, name string, data map[string]any) {
		device, component, command, ok := splitCommandPath(name)
		if !ok {
			log.Warn("malformed command path", "command", name)
			return
		}

		dev, err := manager.Device(device)
		if err != nil {
			log.Warn("command for unknown device", "command", name, "error", err)
			return
		}
		comp, err := dev.Component(component)
		if err != nil {
			log.Warn("command for unknown component", "command", name, "error", err)
			return
		}

		if err := comp.Invoke(ctx, command, data); err != nil {
			log.Warn("command dispatch failed", "command", name, "error", err)
			return
		}
		log.Debug("command dispatched", "command", name)
	}
}

// splitCommandPath splits "device.component.command" into its parts.
func splitCommandPath(path string) (device, component, command string, ok bool) {
	first := -1
	second := -1
	for i, r := range path {
		if r != '.' {
			continue
		}
		if first == -1 {
			first = i
		} else if second == -1 {
			second = i
		} else {
			return "", "", "", false
		}
	}
	if first <= 0 || second <= first+1 || second == len(path)-1 {
		return "", "", "", false
	}
	return path[:first], path[first+1 : second], path[second+1:], true
}

// getConfigPath returns the configuration file path.
// Uses FLEETD_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("FLEETD_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
