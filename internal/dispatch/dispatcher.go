package dispatch

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/sadaflabs/sadaf/go-controller/internal/device"
)

// #region dispatcher

// Dispatcher executes accepted actions, at most one in-flight per device.
// The per-device lock is held from dispatch start to actuator completion.
// There is no automatic retry: a failed dispatch is reported and the cycle
// ends; a new attempt requires a fresh cycle.
type Dispatcher struct {
	actuator Actuator
	config   Config

	mu      sync.Mutex
	inUse   map[string]chan struct{} // per-device semaphore, cap 1
	waiters map[string]int
	states  map[string]DeviceState // last reported state per device
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(actuator Actuator, config Config) *Dispatcher {
	if config.Policy == "" {
		config.Policy = PolicyReject
	}
	if config.ExecuteTimeout <= 0 {
		config.ExecuteTimeout = DefaultConfig().ExecuteTimeout
	}
	return &Dispatcher{
		actuator: actuator,
		config:   config,
		inUse:    map[string]chan struct{}{},
		waiters:  map[string]int{},
		states:   map[string]DeviceState{},
	}
}

// Dispatch executes one validated, accepted action. Failure never panics the
// cycle: actuator errors come back inside the Outcome with OK=false, and a
// busy device returns DeviceBusyError per the configured policy.
func (d *Dispatcher) Dispatch(ctx context.Context, action device.ValidatedAction) (Outcome, error) {
	deviceID := action.DeviceID()
	sem, err := d.acquire(ctx, deviceID)
	if err != nil {
		return Outcome{}, err
	}
	defer d.release(deviceID, sem)

	execCtx, cancel := context.WithTimeout(ctx, d.config.ExecuteTimeout)
	defer cancel()

	out := Outcome{
		DeviceID: deviceID,
		Function: action.Function(),
		Params:   action.Params(),
	}
	state, execErr := d.actuator.Execute(execCtx, deviceID, action.Function(), action.Params())
	out.CompletedAt = time.Now().UTC()
	if execErr != nil {
		out.Error = execErr.Error()
		log.Printf("[DISPATCH] %s failed: %v", action.Summary(), execErr)
		return out, nil
	}
	out.OK = true
	out.State = state

	d.mu.Lock()
	d.states[deviceID] = state
	d.mu.Unlock()

	log.Printf("[DISPATCH] %s done", action.Summary())
	return out, nil
}

// acquire takes the device's semaphore per the busy policy.
func (d *Dispatcher) acquire(ctx context.Context, deviceID string) (chan struct{}, error) {
	d.mu.Lock()
	sem, ok := d.inUse[deviceID]
	if !ok {
		sem = make(chan struct{}, 1)
		d.inUse[deviceID] = sem
	}

	select {
	case sem <- struct{}{}:
		d.mu.Unlock()
		return sem, nil
	default:
	}

	if d.config.Policy == PolicyReject || d.waiters[deviceID] > 0 {
		d.mu.Unlock()
		return nil, &DeviceBusyError{DeviceID: deviceID}
	}
	d.waiters[deviceID]++
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.waiters[deviceID]--
		d.mu.Unlock()
	}()

	select {
	case sem <- struct{}{}:
		return sem, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *Dispatcher) release(deviceID string, sem chan struct{}) {
	<-sem
}

// LastState returns the most recent actuator-reported state for a device.
func (d *Dispatcher) LastState(deviceID string) (DeviceState, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.states[deviceID]
	return s, ok
}

// Busy reports whether a device currently has an in-flight action.
func (d *Dispatcher) Busy(deviceID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	sem, ok := d.inUse[deviceID]
	return ok && len(sem) > 0
}

// #endregion dispatcher
