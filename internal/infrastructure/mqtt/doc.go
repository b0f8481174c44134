// Package mqtt publishes bridge events to a local broker.
//
// The bridge is publish-only: it announces its own online/offline status
// (with a Last Will for crash detection) and per-device state transitions.
// MQTT is optional and disabled by default; when no broker is configured the
// rest of the bridge runs unchanged.
package mqtt
