// Package device provides the device model and the last-seen device cache
// for the MyQ bridge.
//
// The cache exists for two reasons: control calls from the hub arrive with
// nothing but a serial number, so the bridge needs the full device record to
// hand to the upstream API; and comparing each refresh against the previous
// snapshot lets the bridge log (and optionally publish) meaningful state
// transitions such as a garage door moving from closed to open.
//
// # Key Types
//
//   - Device: upstream device record, keyed by serial number, opaque State map
//   - Cache: serial number → last-seen deep-copied snapshot
//   - Transition: a detected effective-status change
//
// Effective status is door_state when present, else lamp_state, the single
// comparable value for a device that may be a garage door opener or a lamp
// module.
//
// # Usage
//
//	cache := device.NewCache()
//	cache.SetLogger(log)
//
//	transitions := cache.Ingest(session.Devices())
//	dev, ok := cache.Get("CG0123456789")
//
// # Thread Safety
//
// The Cache is safe for concurrent use. All snapshots entering or leaving it
// are deep copies, so callers never alias cache-internal state.
package device
