package device

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// #region errors

// UnknownDeviceError means the intention addressed a device that is not in
// the registry.
type UnknownDeviceError struct {
	DeviceID string
}

func (e *UnknownDeviceError) Error() string {
	return fmt.Sprintf("unknown device %q", e.DeviceID)
}

// UnsupportedFunctionError means the proposed function is outside the
// device's allowed-function set.
type UnsupportedFunctionError struct {
	DeviceID string
	Function string
	Allowed  []string
}

func (e *UnsupportedFunctionError) Error() string {
	return fmt.Sprintf("device %q does not support function %q (allowed: %s)",
		e.DeviceID, e.Function, strings.Join(e.Allowed, ", "))
}

// ParameterOutOfRangeError names the offending parameter key. Covers
// unrecognized keys, type mismatches, and values outside the declared
// range/enum/format. Never clamped: a value outside range is a hard reject.
type ParameterOutOfRangeError struct {
	DeviceID  string
	Function  string
	Parameter string
	Value     any
	Detail    string
}

func (e *ParameterOutOfRangeError) Error() string {
	return fmt.Sprintf("device %q function %q: parameter %q=%v %s",
		e.DeviceID, e.Function, e.Parameter, e.Value, e.Detail)
}

// #endregion errors

// #region validated-action

// ValidatedAction is an intention narrowed to exactly one allowed function
// with in-range parameters for one registered device. Only the Validator
// constructs it; the Safety Layer and Confirmation Gate operate on nothing
// else.
type ValidatedAction struct {
	deviceID string
	function string
	params   map[string]any
}

// DeviceID returns the target device id.
func (a ValidatedAction) DeviceID() string { return a.deviceID }

// Function returns the validated function name.
func (a ValidatedAction) Function() string { return a.function }

// Params returns a copy of the validated parameters.
func (a ValidatedAction) Params() map[string]any {
	out := make(map[string]any, len(a.params))
	for k, v := range a.params {
		out[k] = v
	}
	return out
}

// Param returns one parameter value.
func (a ValidatedAction) Param(key string) (any, bool) {
	v, ok := a.params[key]
	return v, ok
}

// Summary renders the action canonically (sorted parameter keys) for
// audit rows, preference records, and replay comparison.
func (a ValidatedAction) Summary() string {
	if len(a.params) == 0 {
		return fmt.Sprintf("%s(%s)", a.function, a.deviceID)
	}
	keys := make([]string, 0, len(a.params))
	for k := range a.params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, a.params[k])
	}
	return fmt.Sprintf("%s(%s, %s)", a.function, a.deviceID, strings.Join(parts, ", "))
}

// MarshalJSON emits a stable wire form for audit and replay fixtures.
func (a ValidatedAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		DeviceID string         `json:"device_id"`
		Function string         `json:"function"`
		Params   map[string]any `json:"params,omitempty"`
	}{a.deviceID, a.function, a.params})
}

// #endregion validated-action

// #region validator

var hhmmPattern = regexp.MustCompile(`^\d{2}:\d{2}$`)

// Validator binds intentions to device capability schemas.
type Validator struct {
	registry CapabilityLookup
}

// NewValidator creates a Validator over the given registry.
func NewValidator(registry CapabilityLookup) *Validator {
	return &Validator{registry: registry}
}

// Validate checks, in order: device exists, function allowed, every
// parameter recognized and within its declared range/enum/format. Any
// failure is terminal for the cycle; values are never clamped or dropped.
func (v *Validator) Validate(deviceID, function string, params map[string]any) (ValidatedAction, error) {
	cap, ok := v.registry.Capabilities(deviceID)
	if !ok {
		return ValidatedAction{}, &UnknownDeviceError{DeviceID: deviceID}
	}

	if !cap.Allows(function) {
		return ValidatedAction{}, &UnsupportedFunctionError{
			DeviceID: deviceID,
			Function: function,
			Allowed:  cap.Functions,
		}
	}

	checked := make(map[string]any, len(params))
	for key, val := range params {
		spec, ok := cap.Parameters[key]
		if !ok {
			return ValidatedAction{}, &ParameterOutOfRangeError{
				DeviceID: deviceID, Function: function, Parameter: key, Value: val,
				Detail: "is not a recognized parameter",
			}
		}
		if err := checkParam(deviceID, function, key, val, spec); err != nil {
			return ValidatedAction{}, err
		}
		checked[key] = val
	}

	return ValidatedAction{deviceID: deviceID, function: function, params: checked}, nil
}

// checkParam validates one value against its spec.
func checkParam(deviceID, function, key string, val any, spec ParamSpec) error {
	switch {
	case spec.HasRange:
		num, ok := asFloat(val)
		if !ok {
			return &ParameterOutOfRangeError{
				DeviceID: deviceID, Function: function, Parameter: key, Value: val,
				Detail: "is not numeric, expected range " + spec.Describe(),
			}
		}
		if num < spec.Min || num > spec.Max {
			return &ParameterOutOfRangeError{
				DeviceID: deviceID, Function: function, Parameter: key, Value: val,
				Detail: "outside range " + spec.Describe(),
			}
		}

	case len(spec.Enum) > 0:
		s, ok := val.(string)
		if !ok {
			return &ParameterOutOfRangeError{
				DeviceID: deviceID, Function: function, Parameter: key, Value: val,
				Detail: "is not a string, expected one of " + spec.Describe(),
			}
		}
		found := false
		for _, allowed := range spec.Enum {
			if s == allowed {
				found = true
				break
			}
		}
		if !found {
			return &ParameterOutOfRangeError{
				DeviceID: deviceID, Function: function, Parameter: key, Value: val,
				Detail: "not in allowed set " + spec.Describe(),
			}
		}

	case spec.Format == "HH:MM":
		s, ok := val.(string)
		if !ok || !hhmmPattern.MatchString(s) {
			return &ParameterOutOfRangeError{
				DeviceID: deviceID, Function: function, Parameter: key, Value: val,
				Detail: `does not match format "HH:MM"`,
			}
		}
	}
	return nil
}

// asFloat widens the numeric types JSON decoding and rule code produce.
func asFloat(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// #endregion validator
