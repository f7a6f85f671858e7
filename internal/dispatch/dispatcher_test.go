package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sadaflabs/sadaf/go-controller/internal/device"
)

func lightOff(t *testing.T) device.ValidatedAction {
	t.Helper()
	v := device.NewValidator(device.StaticLookup{
		"smart_light_1": {Functions: []string{"turn_on", "turn_off", "set_brightness"},
			Parameters: map[string]device.ParamSpec{
				"brightness": {Min: 0, Max: 100, HasRange: true},
			}},
	})
	a, err := v.Validate("smart_light_1", "turn_off", nil)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	return a
}

// blockingActuator holds Execute until released, for busy-path tests.
type blockingActuator struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingActuator) Execute(ctx context.Context, deviceID, _ string, _ map[string]any) (DeviceState, error) {
	b.started <- struct{}{}
	select {
	case <-b.release:
		return DeviceState{DeviceID: deviceID}, nil
	case <-ctx.Done():
		return DeviceState{}, ctx.Err()
	}
}

func TestDispatchUpdatesDeviceState(t *testing.T) {
	actuator := NewSimulatedActuator(DeviceState{DeviceID: "smart_light_1", On: true})
	d := NewDispatcher(actuator, DefaultConfig())

	out, err := d.Dispatch(context.Background(), lightOff(t))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !out.OK {
		t.Fatalf("expected success, got %s", out.Error)
	}
	if out.State.On {
		t.Fatal("light should be off after turn_off")
	}
	if s, ok := d.LastState("smart_light_1"); !ok || s.On {
		t.Fatalf("dispatcher should remember the new state, got %+v ok=%v", s, ok)
	}
}

func TestDispatchActuatorFailureIsReported(t *testing.T) {
	actuator := NewSimulatedActuator() // device not provisioned
	d := NewDispatcher(actuator, DefaultConfig())

	out, err := d.Dispatch(context.Background(), lightOff(t))
	if err != nil {
		t.Fatalf("actuator failure should come back in the outcome: %v", err)
	}
	if out.OK || out.Error == "" {
		t.Fatalf("expected failed outcome, got %+v", out)
	}
}

func TestDispatchRejectsBusyDevice(t *testing.T) {
	actuator := &blockingActuator{started: make(chan struct{}, 1), release: make(chan struct{})}
	d := NewDispatcher(actuator, Config{Policy: PolicyReject, ExecuteTimeout: time.Second})

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Dispatch(context.Background(), lightOff(t))
	}()
	<-actuator.started

	_, err := d.Dispatch(context.Background(), lightOff(t))
	var busyErr *DeviceBusyError
	if !errors.As(err, &busyErr) {
		t.Fatalf("expected DeviceBusyError, got %v", err)
	}
	if busyErr.DeviceID != "smart_light_1" {
		t.Fatalf("error should name the device, got %q", busyErr.DeviceID)
	}

	close(actuator.release)
	<-done
}

func TestDispatchQueuePolicyHoldsOneWaiter(t *testing.T) {
	actuator := &blockingActuator{started: make(chan struct{}, 2), release: make(chan struct{})}
	d := NewDispatcher(actuator, Config{Policy: PolicyQueue, ExecuteTimeout: time.Second})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.Dispatch(context.Background(), lightOff(t))
	}()
	<-actuator.started

	// Second dispatch queues behind the first.
	waiterErr := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := d.Dispatch(context.Background(), lightOff(t))
		waiterErr <- err
	}()

	// Give the waiter a moment to enqueue, then a third caller must be
	// rejected: the queue holds at most one.
	deadline := time.Now().Add(time.Second)
	for !d.Busy("smart_light_1") && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(10 * time.Millisecond)

	_, err := d.Dispatch(context.Background(), lightOff(t))
	var busyErr *DeviceBusyError
	if !errors.As(err, &busyErr) {
		t.Fatalf("third caller should be rejected, got %v", err)
	}

	close(actuator.release)
	wg.Wait()
	if err := <-waiterErr; err != nil {
		t.Fatalf("queued dispatch should eventually run: %v", err)
	}
}

func TestSimulatedActuatorMergesParams(t *testing.T) {
	actuator := NewSimulatedActuator(DeviceState{DeviceID: "smart_light_1", On: false})

	state, err := actuator.Execute(context.Background(), "smart_light_1", "set_brightness", map[string]any{"brightness": 40})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !state.On {
		t.Fatal("parameterized function should imply the device is on")
	}
	if state.Params["brightness"] != 40 {
		t.Fatalf("expected brightness 40, got %v", state.Params["brightness"])
	}
}

func TestStateSourceEmitsPowerSensors(t *testing.T) {
	actuator := NewSimulatedActuator(
		DeviceState{DeviceID: "smart_light_1", On: true},
		DeviceState{DeviceID: "fridge_1", On: true},
	)
	src := NewStateSource(actuator, []string{"smart_light_1", "fridge_1", "missing_device"})

	raws, err := src.Sense(context.Background())
	if err != nil {
		t.Fatalf("sense: %v", err)
	}
	if len(raws) != 2 {
		t.Fatalf("expected 2 readings (missing device skipped), got %d", len(raws))
	}
	if raws[0].SensorID != "device.smart_light_1.power" {
		t.Fatalf("unexpected sensor id %q", raws[0].SensorID)
	}
	if raws[0].Value != true {
		t.Fatalf("expected powered light, got %v", raws[0].Value)
	}
}
