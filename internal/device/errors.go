package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrUnknownDevice) {
//	    // handle unknown serial number
//	}
var (
	// ErrUnknownDevice is returned when a serial number has never been seen
	// in any refreshed device list.
	ErrUnknownDevice = errors.New("device: unknown serial number")
)
