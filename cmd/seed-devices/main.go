package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/sadaflabs/sadaf/go-controller/internal/device"
	"github.com/sadaflabs/sadaf/go-controller/internal/memory"
)

// #region main

// seed-devices onboards the sample fleet into the registry, or exports it
// as a devices.json starting point.
func main() {
	dbPath := flag.String("db", "sadaf.db", "sqlite database path")
	out := flag.String("out", "", "write the fleet as devices.json instead of onboarding")
	flag.Parse()

	fleet := device.SampleFleet()

	if *out != "" {
		byID := make(map[string]device.Capability, len(fleet))
		for _, cap := range fleet {
			byID[cap.DeviceID] = cap
		}
		data, err := json.MarshalIndent(byID, "", "  ")
		if err != nil {
			log.Fatalf("encode fleet: %v", err)
		}
		if err := os.WriteFile(*out, append(data, '\n'), 0o644); err != nil {
			log.Fatalf("write %s: %v", *out, err)
		}
		fmt.Printf("wrote %d devices to %s\n", len(fleet), *out)
		return
	}

	db, err := memory.OpenDB(*dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	registry, err := device.NewRegistry(db)
	if err != nil {
		log.Fatalf("registry: %v", err)
	}

	added := 0
	for _, cap := range fleet {
		if _, exists := registry.Capabilities(cap.DeviceID); exists {
			continue
		}
		if err := registry.Register(cap); err != nil {
			log.Fatalf("register %s: %v", cap.DeviceID, err)
		}
		added++
	}
	fmt.Printf("onboarded %d devices (%d already present)\n", added, len(fleet)-added)
}

// #endregion main
