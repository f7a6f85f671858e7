package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/sadaflabs/sadaf/go-controller/internal/audit"
	"github.com/sadaflabs/sadaf/go-controller/internal/device"
	"github.com/sadaflabs/sadaf/go-controller/internal/memory"
)

// #region main

func main() {
	dbPath := flag.String("db", "sadaf.db", "sqlite database path")
	limit := flag.Int("n", 10, "number of audit entries to show")
	flag.Parse()

	db, err := memory.OpenDB(*dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	registry, err := device.NewRegistry(db)
	if err != nil {
		log.Fatalf("registry: %v", err)
	}
	ids := registry.DeviceIDs()
	sort.Strings(ids)
	fmt.Printf("Devices (%d):\n", len(ids))
	for _, id := range ids {
		cap, _ := registry.Capabilities(id)
		fmt.Printf("  %s: %s\n", id, strings.Join(cap.Functions, ", "))
	}

	store, err := memory.NewSQLiteStore(db)
	if err != nil {
		log.Fatalf("preference store: %v", err)
	}
	count, err := store.Count(context.Background())
	if err != nil {
		log.Fatalf("count preferences: %v", err)
	}
	fmt.Printf("\nPreference records: %d\n", count)

	auditLog, err := audit.NewLog(db)
	if err != nil {
		log.Fatalf("audit log: %v", err)
	}
	entries, err := auditLog.Recent(*limit)
	if err != nil {
		log.Fatalf("read audit log: %v", err)
	}
	fmt.Printf("\nAudit log (newest %d):\n", len(entries))
	for _, e := range entries {
		fmt.Printf("  %s cycle %s\n", e.CreatedAt.Format("2006-01-02 15:04:05"), e.CycleID)
		if len(e.DirectivesFired) > 0 {
			fmt.Printf("    rules:     %s\n", strings.Join(e.DirectivesFired, ", "))
		}
		if e.IntentionSummary != "" {
			fmt.Printf("    intention: %s\n", e.IntentionSummary)
		}
		if e.ValidatorOutcome != "" {
			fmt.Printf("    validator: %s\n", e.ValidatorOutcome)
		}
		if e.SafetyVerdict != "" {
			fmt.Printf("    safety:    %s\n", e.SafetyVerdict)
		}
		fmt.Printf("    verdict:   %s\n", e.FinalVerdict)
		if e.DispatchOutcome != "" {
			fmt.Printf("    dispatch:  %s\n", e.DispatchOutcome)
		}
	}
}

// #endregion main
