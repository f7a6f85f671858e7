package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sadaflabs/sadaf/go-controller/internal/rules"
	"github.com/sadaflabs/sadaf/go-controller/internal/sense"
)

// #region simulated-actuator

// SimulatedActuator executes actions against an in-memory device model.
// Power functions flip the on/off flag, set_* and parameterized functions
// merge parameters into the device's state. Good enough for development and
// for closing the feedback loop: dispatched actions change the state the
// next context packet sees.
type SimulatedActuator struct {
	mu      sync.Mutex
	devices map[string]DeviceState
	// Delay approximates actuation latency, zero in tests.
	Delay time.Duration
}

// NewSimulatedActuator creates a SimulatedActuator with the given initial
// device states.
func NewSimulatedActuator(initial ...DeviceState) *SimulatedActuator {
	a := &SimulatedActuator{devices: map[string]DeviceState{}}
	for _, s := range initial {
		if s.Params == nil {
			s.Params = map[string]any{}
		}
		a.devices[s.DeviceID] = s
	}
	return a
}

// Execute applies the function to the in-memory model.
func (a *SimulatedActuator) Execute(ctx context.Context, deviceID, function string, params map[string]any) (DeviceState, error) {
	if a.Delay > 0 {
		select {
		case <-time.After(a.Delay):
		case <-ctx.Done():
			return DeviceState{}, ctx.Err()
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	state, ok := a.devices[deviceID]
	if !ok {
		return DeviceState{}, fmt.Errorf("simulated device %q not provisioned", deviceID)
	}

	switch {
	case function == "turn_on" || function == "on":
		state.On = true
	case function == "turn_off" || function == "off":
		state.On = false
	default:
		// Parameterized functions imply the device is active.
		state.On = true
	}
	if strings.HasPrefix(function, "set_") || len(params) > 0 {
		for k, v := range params {
			state.Params[k] = v
		}
	}

	a.devices[deviceID] = state
	return snapshot(state), nil
}

// State returns a copy of one device's current state.
func (a *SimulatedActuator) State(deviceID string) (DeviceState, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.devices[deviceID]
	if !ok {
		return DeviceState{}, false
	}
	return snapshot(s), true
}

func snapshot(s DeviceState) DeviceState {
	out := DeviceState{DeviceID: s.DeviceID, On: s.On, Params: make(map[string]any, len(s.Params))}
	for k, v := range s.Params {
		out.Params[k] = v
	}
	return out
}

// #endregion simulated-actuator

// #region state-source

// StateSource exposes the actuator's device power states as synthetic
// sensors, one reading per device under "device.<id>.power". This is the
// feedback edge: a dispatched action shows up in the next packet's device
// state.
type StateSource struct {
	actuator  *SimulatedActuator
	deviceIDs []string
}

// NewStateSource creates a StateSource over the given devices.
func NewStateSource(actuator *SimulatedActuator, deviceIDs []string) *StateSource {
	return &StateSource{actuator: actuator, deviceIDs: deviceIDs}
}

// ID implements sense.Source.
func (s *StateSource) ID() string { return "device-state" }

// Sense implements sense.Source. Device state is authoritative, so readings
// carry full confidence.
func (s *StateSource) Sense(_ context.Context) ([]sense.RawReading, error) {
	now := time.Now()
	readings := make([]sense.RawReading, 0, len(s.deviceIDs))
	for _, id := range s.deviceIDs {
		state, ok := s.actuator.State(id)
		if !ok {
			continue
		}
		readings = append(readings, sense.RawReading{
			SensorID:      rules.DevicePowerSensor(id),
			Value:         state.On,
			Confidence:    1.0,
			HasConfidence: true,
			Timestamp:     now,
		})
	}
	return readings, nil
}

// #endregion state-source
