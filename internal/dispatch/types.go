package dispatch

import (
	"context"
	"fmt"
	"time"
)

// #region errors

// DeviceBusyError means the device already has an in-flight action and the
// busy policy rejected this one.
type DeviceBusyError struct {
	DeviceID string
}

func (e *DeviceBusyError) Error() string {
	return fmt.Sprintf("device %q is busy", e.DeviceID)
}

// #endregion errors

// #region outcome

// Outcome reports one dispatch attempt, success or failure, for the audit
// log and the feedback edge into the next context packet.
type Outcome struct {
	DeviceID    string
	Function    string
	Params      map[string]any
	OK          bool
	Error       string
	State       DeviceState
	CompletedAt time.Time
}

// Summary renders the outcome for audit rows.
func (o Outcome) Summary() string {
	if o.OK {
		return fmt.Sprintf("ok: %s on %s", o.Function, o.DeviceID)
	}
	return fmt.Sprintf("failed: %s on %s: %s", o.Function, o.DeviceID, o.Error)
}

// #endregion outcome

// #region device-state

// DeviceState is the actuator-reported state of one device after an action.
type DeviceState struct {
	DeviceID string
	On       bool
	Params   map[string]any
}

// #endregion device-state

// #region actuator

// Actuator executes one validated action against a real or simulated device
// and reports the resulting state. Implementations need not be concurrency
// safe per device; the dispatcher guarantees at most one in-flight call per
// device id.
type Actuator interface {
	Execute(ctx context.Context, deviceID, function string, params map[string]any) (DeviceState, error)
}

// #endregion actuator

// #region config

// BusyPolicy decides what happens when an action targets a busy device.
type BusyPolicy string

const (
	// PolicyReject fails fast with DeviceBusyError.
	PolicyReject BusyPolicy = "reject"
	// PolicyQueue waits for the in-flight action, holding at most one
	// waiter per device; a second waiter is rejected.
	PolicyQueue BusyPolicy = "queue"
)

// Config holds dispatcher knobs.
type Config struct {
	Policy BusyPolicy
	// ExecuteTimeout bounds a single actuator call.
	ExecuteTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{Policy: PolicyReject, ExecuteTimeout: 15 * time.Second}
}

// #endregion config
