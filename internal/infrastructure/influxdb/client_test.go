package influxdb

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/fleetd/internal/infrastructure/config"
)

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestClient_NilSafety(t *testing.T) {
	// A zero client must not panic on teardown paths.
	c := &Client{}

	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	c.Flush()

	if c.IsConnected() {
		t.Error("IsConnected() = true on zero client")
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	// Writes on a disconnected client are silently dropped.
	c.WriteStateValue("hvac.temp.reading", 21.5)
	c.WritePoint("fleet_state", nil, map[string]interface{}{"value": 1.0})
}
