package device

import "sync"

// Logger defines the logging interface used by the Cache.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Transition records a meaningful device status change detected during
// ingest: the effective status moved from one non-identical value to a new
// non-empty value.
type Transition struct {
	SerialNumber string `json:"serial_number"`
	Name         string `json:"name"`
	From         string `json:"from"`
	To           string `json:"to"`
}

// Cache holds the last-seen snapshot of every device the upstream session
// has ever reported, keyed by serial number.
//
// Ingest is the only mutator. A device that stops appearing in refreshed
// lists is deliberately retained at its last snapshot: the hub may still
// issue a control call for it, and the upstream list flaps during cloud
// outages. See DESIGN.md for the record of this decision.
//
// All methods are safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	devices map[string]*Device
	logger  Logger
}

// NewCache creates an empty device cache.
func NewCache() *Cache {
	return &Cache{
		devices: make(map[string]*Device),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the cache.
func (c *Cache) SetLogger(logger Logger) {
	c.logger = logger
}

// Ingest compares an incoming device list against the cached snapshots and
// replaces each cached entry with a deep copy of the incoming device.
//
// A Transition is produced for a device when all of:
//   - a cached snapshot exists (newly appeared devices produce no event)
//   - the cached effective status differs from the incoming one
//   - the incoming effective status is non-empty
//
// Transitions to an absent status are not reported, but the cache entry is
// still replaced, so a later return to a real status is reported against it.
func (c *Cache) Ingest(devices []Device) []Transition {
	c.mu.Lock()
	defer c.mu.Unlock()

	var transitions []Transition
	for i := range devices {
		incoming := &devices[i]
		if incoming.SerialNumber == "" {
			c.logger.Warn("ignoring device without serial number", "name", incoming.Name)
			continue
		}

		if cached, ok := c.devices[incoming.SerialNumber]; ok {
			oldStatus, _ := cached.State.EffectiveStatus()
			newStatus, hasNew := incoming.State.EffectiveStatus()
			if hasNew && oldStatus != newStatus {
				transitions = append(transitions, Transition{
					SerialNumber: incoming.SerialNumber,
					Name:         incoming.Name,
					From:         oldStatus,
					To:           newStatus,
				})
				c.logger.Info("device state changed",
					"device", incoming.Name,
					"serial_number", incoming.SerialNumber,
					"from", oldStatus,
					"to", newStatus,
				)
			}
		}

		c.devices[incoming.SerialNumber] = incoming.DeepCopy()
	}

	return transitions
}

// Get retrieves the last-seen snapshot for a serial number.
// The returned device is a deep copy; callers can safely modify it.
func (c *Cache) Get(serialNumber string) (*Device, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cached, ok := c.devices[serialNumber]
	if !ok {
		return nil, false
	}
	return cached.DeepCopy(), true
}

// Len returns the number of cached devices.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.devices)
}
