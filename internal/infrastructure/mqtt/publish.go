package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/smartthings-community/myq-bridge/internal/device"
)

// statusPayload is published to the bridge status topic.
type statusPayload struct {
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

// transitionPayload is published when a device changes state.
type transitionPayload struct {
	SerialNumber string `json:"serial_number"`
	Name         string `json:"name"`
	From         string `json:"from,omitempty"`
	To           string `json:"to"`
	Timestamp    string `json:"timestamp"`
}

// Publish sends a message to the given topic.
//
// Payload handling:
//   - []byte and string pass through unchanged
//   - anything else is JSON-marshaled
func (c *Client) Publish(topic string, payload any, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return fmt.Errorf("%w: %d", ErrInvalidQoS, qos)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		var err error
		data, err = json.Marshal(v)
		if err != nil {
			return fmt.Errorf("%w: marshaling payload: %w", ErrPublishFailed, err)
		}
	}

	token := c.client.Publish(topic, qos, retained, data)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishTransition announces a device state change on the device's
// transition topic at QoS 1.
func (c *Client) PublishTransition(tr device.Transition) error {
	return c.Publish(c.topics.DeviceTransition(tr.SerialNumber), transitionPayload{
		SerialNumber: tr.SerialNumber,
		Name:         tr.Name,
		From:         tr.From,
		To:           tr.To,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}, 1, false)
}

// PublishDeviceState publishes a device's latest state snapshot, retained so
// late subscribers see the current value.
func (c *Client) PublishDeviceState(d device.Device) error {
	return c.Publish(c.topics.DeviceState(d.SerialNumber), d, 1, true)
}

// publishStatus publishes bridge online/offline status, retained. Errors are
// logged and dropped; status publishing must never block shutdown.
func (c *Client) publishStatus(status, reason string) {
	err := c.Publish(c.topics.Status(), statusPayload{
		Status:    status,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, 1, true)
	if err != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Error("failed to publish bridge status", "status", status, "error", err)
		}
	}
}
