package device

// #region sample-fleet

// SampleFleet returns the development fleet used by the seed command and
// the simulated environment. Mirrors a small apartment: water heater,
// lights, AC, speaker, and a fridge that safety rules protect.
func SampleFleet() []Capability {
	return []Capability{
		{
			DeviceID:  "smart_geyser_1",
			Functions: []string{"turn_on", "turn_off", "set_temperature"},
			Parameters: map[string]ParamSpec{
				"temperature": {Min: 30, Max: 75, HasRange: true},
			},
		},
		{
			DeviceID:  "smart_light_1",
			Functions: []string{"turn_on", "turn_off", "set_brightness", "set_color_temperature"},
			Parameters: map[string]ParamSpec{
				"brightness":        {Min: 0, Max: 100, HasRange: true},
				"color_temperature": {Min: 2700, Max: 6500, HasRange: true},
			},
		},
		{
			DeviceID:  "smart_ac_1",
			Functions: []string{"turn_on", "turn_off", "set_mode", "set_temperature", "set_schedule"},
			Parameters: map[string]ParamSpec{
				"mode":          {Enum: []string{"cool", "heat", "fan", "dry"}},
				"temperature":   {Min: 16, Max: 30, HasRange: true},
				"schedule_time": {Format: "HH:MM"},
			},
		},
		{
			DeviceID:  "speaker_1",
			Functions: []string{"turn_on", "turn_off", "play_ambient", "set_volume"},
			Parameters: map[string]ParamSpec{
				"volume": {Min: 0, Max: 100, HasRange: true},
			},
		},
		{
			DeviceID:  "fridge_1",
			Functions: []string{"turn_on", "turn_off", "set_temperature"},
			Parameters: map[string]ParamSpec{
				"temperature": {Min: 1, Max: 8, HasRange: true},
			},
		},
	}
}

// #endregion sample-fleet
