package device

import (
	"encoding/json"
	"fmt"
)

// #region param-spec

// ParamSpec declares the valid values for one capability parameter.
// Exactly one of the three shapes is set:
//   - numeric range [min, max]
//   - string enum
//   - string format (currently "HH:MM")
type ParamSpec struct {
	Min      float64
	Max      float64
	HasRange bool
	Enum     []string
	Format   string
}

// UnmarshalJSON accepts the devices.json spec shapes:
// [min, max] numeric range, ["a", "b"] enum, or "HH:MM" format string.
func (s *ParamSpec) UnmarshalJSON(data []byte) error {
	var format string
	if err := json.Unmarshal(data, &format); err == nil {
		*s = ParamSpec{Format: format}
		return nil
	}

	var nums []float64
	if err := json.Unmarshal(data, &nums); err == nil {
		if len(nums) != 2 {
			return fmt.Errorf("numeric param spec must be [min, max], got %d values", len(nums))
		}
		*s = ParamSpec{Min: nums[0], Max: nums[1], HasRange: true}
		return nil
	}

	var enum []string
	if err := json.Unmarshal(data, &enum); err == nil {
		if len(enum) == 0 {
			return fmt.Errorf("enum param spec must not be empty")
		}
		*s = ParamSpec{Enum: enum}
		return nil
	}

	return fmt.Errorf("unsupported param spec shape: %s", string(data))
}

// MarshalJSON writes the spec back in devices.json shape.
func (s ParamSpec) MarshalJSON() ([]byte, error) {
	switch {
	case s.HasRange:
		return json.Marshal([2]float64{s.Min, s.Max})
	case len(s.Enum) > 0:
		return json.Marshal(s.Enum)
	case s.Format != "":
		return json.Marshal(s.Format)
	}
	return nil, fmt.Errorf("empty param spec")
}

// Describe renders the spec for error messages and prompts.
func (s ParamSpec) Describe() string {
	switch {
	case s.HasRange:
		return fmt.Sprintf("[%g, %g]", s.Min, s.Max)
	case len(s.Enum) > 0:
		return fmt.Sprintf("%v", s.Enum)
	case s.Format != "":
		return fmt.Sprintf("format %q", s.Format)
	}
	return "unconstrained"
}

// #endregion param-spec

// #region capability

// Capability is one device's schema: its allowed function names and the
// valid range or enum for each recognized parameter. Registered once at
// onboarding; read-only thereafter.
type Capability struct {
	DeviceID   string               `json:"-"`
	Functions  []string             `json:"functions"`
	Parameters map[string]ParamSpec `json:"parameters"`
}

// Allows reports whether fn is in the allowed-function set.
func (c Capability) Allows(fn string) bool {
	for _, f := range c.Functions {
		if f == fn {
			return true
		}
	}
	return false
}

// #endregion capability
