package device

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// #region schema

const registrySchema = `
CREATE TABLE IF NOT EXISTS device_registry (
	device_id         TEXT PRIMARY KEY,
	capabilities_json TEXT NOT NULL,
	registered_at     TEXT NOT NULL
);
`

// #endregion schema

// #region registry-interface

// CapabilityLookup is the read side of the registry, all the validator needs.
type CapabilityLookup interface {
	Capabilities(deviceID string) (Capability, bool)
}

// #endregion registry-interface

// #region registry

// Registry persists device capabilities in SQLite and serves lookups from an
// in-memory copy. Capabilities are written once at onboarding and never
// mutated.
type Registry struct {
	db *sql.DB

	mu   sync.RWMutex
	caps map[string]Capability
}

// NewRegistry creates the device_registry table if needed and loads all
// registered devices into memory.
func NewRegistry(db *sql.DB) (*Registry, error) {
	if _, err := db.Exec(registrySchema); err != nil {
		return nil, fmt.Errorf("migrate device registry: %w", err)
	}
	r := &Registry{db: db, caps: make(map[string]Capability)}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) load() error {
	rows, err := r.db.Query(`SELECT device_id, capabilities_json FROM device_registry`)
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, capsJSON string
		if err := rows.Scan(&id, &capsJSON); err != nil {
			return fmt.Errorf("scan registry row: %w", err)
		}
		var cap Capability
		if err := json.Unmarshal([]byte(capsJSON), &cap); err != nil {
			return fmt.Errorf("unmarshal capabilities for %s: %w", id, err)
		}
		cap.DeviceID = id
		r.caps[id] = cap
	}
	return rows.Err()
}

// Register onboards one device. Registering an already-known device id is an
// error: capabilities are immutable after onboarding.
func (r *Registry) Register(cap Capability) error {
	if cap.DeviceID == "" {
		return fmt.Errorf("register: empty device id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.caps[cap.DeviceID]; exists {
		return fmt.Errorf("register %s: already onboarded", cap.DeviceID)
	}

	capsJSON, err := json.Marshal(cap)
	if err != nil {
		return fmt.Errorf("marshal capabilities for %s: %w", cap.DeviceID, err)
	}
	_, err = r.db.Exec(
		`INSERT INTO device_registry (device_id, capabilities_json, registered_at) VALUES (?, ?, ?)`,
		cap.DeviceID, string(capsJSON), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert device %s: %w", cap.DeviceID, err)
	}

	r.caps[cap.DeviceID] = cap
	return nil
}

// Capabilities implements CapabilityLookup.
func (r *Registry) Capabilities(deviceID string) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cap, ok := r.caps[deviceID]
	return cap, ok
}

// DeviceIDs returns all onboarded device ids.
func (r *Registry) DeviceIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.caps))
	for id := range r.caps {
		ids = append(ids, id)
	}
	return ids
}

// #endregion registry

// #region file-load

// LoadFile registers every device from a devices.json file:
// {"<device_id>": {"functions": [...], "parameters": {...}}, ...}.
// Devices already onboarded are skipped.
func (r *Registry) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	var fleet map[string]Capability
	if err := json.Unmarshal(data, &fleet); err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}

	added := 0
	for id, cap := range fleet {
		cap.DeviceID = id
		if _, exists := r.Capabilities(id); exists {
			continue
		}
		if err := r.Register(cap); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

// #endregion file-load

// #region static

// StaticLookup is an in-memory CapabilityLookup for tests and simulation.
type StaticLookup map[string]Capability

// Capabilities implements CapabilityLookup.
func (s StaticLookup) Capabilities(deviceID string) (Capability, bool) {
	cap, ok := s[deviceID]
	if ok && cap.DeviceID == "" {
		cap.DeviceID = deviceID
	}
	return cap, ok
}

// #endregion static
