package device

// Device represents a MyQ device as returned by the upstream cloud API.
// Identity is SerialNumber. The bridge treats State as opaque apart from
// door_state and lamp_state, which drive transition detection; everything
// else is passed through to the hub untouched.
type Device struct {
	SerialNumber string `json:"serial_number"`
	Name         string `json:"name"`
	DeviceFamily string `json:"device_family,omitempty"`
	State        State  `json:"state"`
}

// State holds device state as a JSON map. MyQ reports dozens of fields per
// device family; only the two status fields below are meaningful here.
type State map[string]any

// State field keys used for transition detection.
const (
	stateKeyDoor = "door_state"
	stateKeyLamp = "lamp_state"
)

// DoorState returns the door_state field if present and non-empty.
func (s State) DoorState() (string, bool) {
	return s.stringField(stateKeyDoor)
}

// LampState returns the lamp_state field if present and non-empty.
func (s State) LampState() (string, bool) {
	return s.stringField(stateKeyLamp)
}

// EffectiveStatus returns the single comparable status value for a device:
// door_state if present, else lamp_state. The ok result is false when
// neither field carries a value.
func (s State) EffectiveStatus() (string, bool) {
	if v, ok := s.DoorState(); ok {
		return v, true
	}
	return s.LampState()
}

func (s State) stringField(key string) (string, bool) {
	v, ok := s[key]
	if !ok || v == nil {
		return "", false
	}
	str, ok := v.(string)
	if !ok || str == "" {
		return "", false
	}
	return str, true
}

// DeepCopy creates a complete independent copy of the Device.
// The State map is cloned recursively so mutations to the copy never
// affect the original. This is essential for cache isolation.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d
	cpy.State = deepCopyMap(d.State)
	return &cpy
}

// deepCopyMap creates a deep copy of a map[string]any.
// Nested maps and slices are recursively copied.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		// Primitives (string, bool, float64, etc.) are safe to copy by value
		return v
	}
}
