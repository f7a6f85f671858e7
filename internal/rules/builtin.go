package rules

import (
	"fmt"
	"strings"

	"github.com/sadaflabs/sadaf/go-controller/internal/sense"
)

// Device state enters the packet as synthetic sensors named
// "device.<id>.power" (bool), written by the controller from the last
// dispatch-reported state. Rules discover devices by scanning those ids.

// #region device-helpers

// devicePowerPrefix prefixes the synthetic per-device power sensors.
const devicePowerPrefix = "device."

const devicePowerSuffix = ".power"

// DevicePowerSensor returns the synthetic sensor id carrying a device's
// power state.
func DevicePowerSensor(deviceID string) string {
	return devicePowerPrefix + deviceID + devicePowerSuffix
}

// poweredDevices returns the ids of devices whose power sensor reads true
// and whose id contains match. Sorted order comes from SensorIDs.
func poweredDevices(p sense.ContextPacket, match string, wantOn bool) []string {
	var out []string
	for _, sid := range p.SensorIDs() {
		if !strings.HasPrefix(sid, devicePowerPrefix) || !strings.HasSuffix(sid, devicePowerSuffix) {
			continue
		}
		devID := strings.TrimSuffix(strings.TrimPrefix(sid, devicePowerPrefix), devicePowerSuffix)
		if match != "" && !strings.Contains(devID, match) {
			continue
		}
		on, _, ok := p.Bool(sid)
		if !ok || on != wantOn {
			continue
		}
		out = append(out, devID)
	}
	return out
}

// knownDevices returns all device ids present in the packet matching any of
// the substrings.
func knownDevices(p sense.ContextPacket, matches ...string) []string {
	var out []string
	for _, sid := range p.SensorIDs() {
		if !strings.HasPrefix(sid, devicePowerPrefix) || !strings.HasSuffix(sid, devicePowerSuffix) {
			continue
		}
		devID := strings.TrimSuffix(strings.TrimPrefix(sid, devicePowerPrefix), devicePowerSuffix)
		for _, m := range matches {
			if strings.Contains(devID, m) {
				out = append(out, devID)
				break
			}
		}
	}
	return out
}

// #endregion device-helpers

// #region builtin

// Builtin returns the stock rule set in its fixed registration order.
func Builtin() []Rule {
	return []Rule{
		emptyRoomLightsOff(),
		postWorkoutBathPrep(),
		highStressRelaxation(),
	}
}

// emptyRoomLightsOff proposes turning off lights when the room is vacant.
func emptyRoomLightsOff() Rule {
	return Rule{
		ID:          "empty_room_lights_off",
		Description: "room appears empty and lights are on",
		Evaluate: func(p sense.ContextPacket) (Directive, bool) {
			occ, r, ok := p.String("occupancy")
			if !ok || occ != "vacant" {
				return Directive{}, false
			}
			lightsOn := poweredDevices(p, "light", true)
			if len(lightsOn) == 0 {
				return Directive{}, false
			}
			return Directive{
				ActionType:    "turn_off_room_lights",
				TargetDevices: lightsOn,
				Facts: []string{
					fmt.Sprintf("occupancy=vacant (confidence %.2f)", r.Confidence),
					fmt.Sprintf("lights on: %s", strings.Join(lightsOn, ", ")),
				},
			}, true
		},
	}
}

// postWorkoutBathPrep proposes warming water when the user finished a
// workout and is at home.
func postWorkoutBathPrep() Rule {
	return Rule{
		ID:          "post_workout_bath_prep",
		Description: "user finished workout and is at home",
		Evaluate: func(p sense.ContextPacket) (Directive, bool) {
			activity, _, ok := p.String("activity_status")
			if !ok || activity != "post_workout" {
				return Directive{}, false
			}
			place, _, ok := p.String("place")
			if !ok || place != "home" {
				return Directive{}, false
			}
			water := knownDevices(p, "geyser", "water_heater")
			if len(water) == 0 {
				return Directive{}, false
			}
			return Directive{
				ActionType:    "prepare_bath",
				TargetDevices: water,
				Facts: []string{
					"activity_status=post_workout",
					"place=home",
				},
			}, true
		},
	}
}

// highStressRelaxation proposes a relaxation routine on high stress.
func highStressRelaxation() Rule {
	return Rule{
		ID:          "high_stress_relaxation",
		Description: "user shows high stress",
		Evaluate: func(p sense.ContextPacket) (Directive, bool) {
			stress, r, ok := p.String("stress_level")
			if !ok || stress != "high" {
				return Directive{}, false
			}
			targets := knownDevices(p, "light", "speaker")
			if len(targets) == 0 {
				return Directive{}, false
			}
			return Directive{
				ActionType:    "relaxation_routine",
				TargetDevices: targets,
				Facts: []string{
					fmt.Sprintf("stress_level=high (confidence %.2f)", r.Confidence),
				},
			}, true
		},
	}
}

// #endregion builtin
