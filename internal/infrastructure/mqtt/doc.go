// Package mqtt provides MQTT client connectivity for fleetd.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// fleetd uses MQTT as the push-capable transport connecting the engine to
// device firmware. The broker decouples the engine from device-specific
// implementations:
//
//	fleetd engine ↔ MQTT Broker ↔ Device firmware
//
// The Channel type adapts the client to transport.PushChannel so the
// proxy and heartbeat layers never depend on this package directly.
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := transport.Topics{}.Status("devices", "hvac", "fan", "speed")
//	err = client.Subscribe(topic, 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
package mqtt
