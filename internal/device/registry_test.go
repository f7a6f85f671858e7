package device

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestParamSpecUnmarshalShapes(t *testing.T) {
	var spec ParamSpec

	if err := json.Unmarshal([]byte(`[30, 75]`), &spec); err != nil {
		t.Fatalf("range: %v", err)
	}
	if !spec.HasRange || spec.Min != 30 || spec.Max != 75 {
		t.Fatalf("expected range [30, 75], got %+v", spec)
	}

	if err := json.Unmarshal([]byte(`["cool", "heat"]`), &spec); err != nil {
		t.Fatalf("enum: %v", err)
	}
	if len(spec.Enum) != 2 || spec.Enum[0] != "cool" {
		t.Fatalf("expected enum, got %+v", spec)
	}

	if err := json.Unmarshal([]byte(`"HH:MM"`), &spec); err != nil {
		t.Fatalf("format: %v", err)
	}
	if spec.Format != "HH:MM" {
		t.Fatalf("expected HH:MM format, got %+v", spec)
	}

	if err := json.Unmarshal([]byte(`[1, 2, 3]`), &spec); err == nil {
		t.Fatal("three-element range should be rejected")
	}
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r, err := NewRegistry(testDB(t))
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	cap := Capability{
		DeviceID:  "smart_geyser_1",
		Functions: []string{"turn_on", "set_temperature"},
		Parameters: map[string]ParamSpec{
			"temperature": {Min: 30, Max: 75, HasRange: true},
		},
	}
	if err := r.Register(cap); err != nil {
		t.Fatalf("register: %v", err)
	}

	got, ok := r.Capabilities("smart_geyser_1")
	if !ok {
		t.Fatal("expected device to be registered")
	}
	if !got.Allows("set_temperature") {
		t.Fatal("expected set_temperature to be allowed")
	}
}

func TestRegistryRejectsDuplicateOnboarding(t *testing.T) {
	r, err := NewRegistry(testDB(t))
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	cap := Capability{DeviceID: "smart_light_1", Functions: []string{"turn_on"}}
	if err := r.Register(cap); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.Register(cap); err == nil {
		t.Fatal("capabilities are immutable; re-registering must fail")
	}
}

func TestRegistrySurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reopen.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	r, err := NewRegistry(db)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	if err := r.Register(Capability{DeviceID: "speaker_1", Functions: []string{"turn_on"}}); err != nil {
		t.Fatalf("register: %v", err)
	}
	db.Close()

	db2, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("reopen db: %v", err)
	}
	defer db2.Close()
	r2, err := NewRegistry(db2)
	if err != nil {
		t.Fatalf("reopen registry: %v", err)
	}
	if _, ok := r2.Capabilities("speaker_1"); !ok {
		t.Fatal("registered device should survive reopen")
	}
}

func TestRegistryLoadFile(t *testing.T) {
	r, err := NewRegistry(testDB(t))
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	path := filepath.Join(t.TempDir(), "devices.json")
	fleet := `{
		"smart_ac_1": {
			"functions": ["turn_on", "set_mode", "set_schedule"],
			"parameters": {
				"mode": ["cool", "heat", "fan", "dry"],
				"temperature": [16, 30],
				"schedule_time": "HH:MM"
			}
		}
	}`
	if err := os.WriteFile(path, []byte(fleet), 0o644); err != nil {
		t.Fatalf("write fleet: %v", err)
	}

	n, err := r.LoadFile(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 device onboarded, got %d", n)
	}
	cap, ok := r.Capabilities("smart_ac_1")
	if !ok {
		t.Fatal("smart_ac_1 should be registered")
	}
	if spec := cap.Parameters["temperature"]; !spec.HasRange || spec.Max != 30 {
		t.Fatalf("expected temperature range [16, 30], got %+v", spec)
	}
	if spec := cap.Parameters["schedule_time"]; spec.Format != "HH:MM" {
		t.Fatalf("expected HH:MM format, got %+v", spec)
	}
}
