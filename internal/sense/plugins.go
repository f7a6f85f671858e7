package sense

import (
	"context"
	"math/rand"
	"time"
)

// Simulated sensor sources for running the controller without the real
// fitness/camera/location services. Each mirrors the reading shape of its
// production counterpart, including its confidence tier.

// #region fit

// FitSource simulates the fitness tracker: activity state from step count,
// heart rate biased by activity, stress from heart rate vs. baseline.
type FitSource struct {
	rng *rand.Rand
}

// NewFitSource creates a FitSource seeded for reproducible simulation.
func NewFitSource(seed int64) *FitSource {
	return &FitSource{rng: rand.New(rand.NewSource(seed))}
}

// ID implements Source.
func (s *FitSource) ID() string { return "fit" }

// Sense implements Source.
func (s *FitSource) Sense(ctx context.Context) ([]RawReading, error) {
	steps := s.rng.Intn(12000)
	activity := "idle"
	hrBoost := 0
	switch {
	case steps >= 8000:
		activity = "post_workout"
		hrBoost = 25
	case steps >= 1500:
		activity = "walking"
		hrBoost = 10
	}

	baseline := 72
	hr := baseline + hrBoost + s.rng.Intn(8)
	stress := "low"
	if hr > baseline+5 {
		stress = "high"
	}

	now := time.Now().UTC()
	return []RawReading{
		{SensorID: "heart_rate", Value: float64(hr), Confidence: 0.95, HasConfidence: true, Timestamp: now},
		{SensorID: "activity_status", Value: activity, Confidence: 0.95, HasConfidence: true, Timestamp: now},
		{SensorID: "stress_level", Value: stress, Confidence: 0.95, HasConfidence: true, Timestamp: now},
	}, nil
}

// #endregion fit

// #region camera

// CameraSource simulates the room camera: occupancy plus a coarse emotion
// estimate.
type CameraSource struct {
	rng *rand.Rand
}

// NewCameraSource creates a CameraSource seeded for reproducible simulation.
func NewCameraSource(seed int64) *CameraSource {
	return &CameraSource{rng: rand.New(rand.NewSource(seed))}
}

// ID implements Source.
func (s *CameraSource) ID() string { return "camera" }

// Sense implements Source.
func (s *CameraSource) Sense(ctx context.Context) ([]RawReading, error) {
	occupied := s.rng.Float64() < 0.6
	emotions := []string{"neutral", "happy", "focused", "tired"}
	emotion := emotions[s.rng.Intn(len(emotions))]

	occupancy := "vacant"
	if occupied {
		occupancy = "occupied"
	}

	now := time.Now().UTC()
	return []RawReading{
		{SensorID: "occupancy", Value: occupancy, Confidence: 0.85, HasConfidence: true, Timestamp: now},
		{SensorID: "emotion", Value: emotion, Confidence: 0.4 + 0.55*s.rng.Float64(), HasConfidence: true, Timestamp: now},
	}, nil
}

// #endregion camera

// #region location

// LocationSource simulates the location service. Confidence tiers match the
// production plugin: 0.98 for device GPS, 0.45 for IP-derived, 0.30 when
// nothing resolved.
type LocationSource struct {
	rng *rand.Rand
}

// NewLocationSource creates a LocationSource seeded for reproducible simulation.
func NewLocationSource(seed int64) *LocationSource {
	return &LocationSource{rng: rand.New(rand.NewSource(seed))}
}

// ID implements Source.
func (s *LocationSource) ID() string { return "location" }

// Sense implements Source.
func (s *LocationSource) Sense(ctx context.Context) ([]RawReading, error) {
	now := time.Now().UTC()
	roll := s.rng.Float64()
	switch {
	case roll < 0.7:
		return []RawReading{
			{SensorID: "place", Value: "home", Confidence: 0.98, HasConfidence: true, Timestamp: now},
			{SensorID: "travel_eta_min", Value: float64(0), Confidence: 0.98, HasConfidence: true, Timestamp: now},
		}, nil
	case roll < 0.9:
		return []RawReading{
			{SensorID: "place", Value: "office", Confidence: 0.45, HasConfidence: true, Timestamp: now},
			{SensorID: "travel_eta_min", Value: float64(25 + s.rng.Intn(20)), Confidence: 0.45, HasConfidence: true, Timestamp: now},
		}, nil
	default:
		// No fix at all; report only the low-confidence absence of a place.
		return []RawReading{
			{SensorID: "place", Value: "unknown", Confidence: 0.30, HasConfidence: true, Timestamp: now},
		}, nil
	}
}

// #endregion location
