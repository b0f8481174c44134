package mqtt

import "fmt"

// Topics builds the bridge's MQTT topic names under a configurable prefix.
//
// Layout:
//
//	{prefix}/system/status                     bridge online/offline (retained)
//	{prefix}/device/{serial}/transition        door or lamp state changes
//	{prefix}/device/{serial}/state             latest known state snapshot
type Topics struct {
	// Prefix is the topic root, e.g. "myq-bridge".
	Prefix string
}

// Status returns the bridge status topic.
func (t Topics) Status() string {
	return fmt.Sprintf("%s/system/status", t.Prefix)
}

// DeviceTransition returns the transition topic for a device serial.
func (t Topics) DeviceTransition(serial string) string {
	return fmt.Sprintf("%s/device/%s/transition", t.Prefix, serial)
}

// DeviceState returns the state topic for a device serial.
func (t Topics) DeviceState(serial string) string {
	return fmt.Sprintf("%s/device/%s/state", t.Prefix, serial)
}
