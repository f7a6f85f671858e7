package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sadaflabs/sadaf/go-controller/internal/audit"
	"github.com/sadaflabs/sadaf/go-controller/internal/config"
	"github.com/sadaflabs/sadaf/go-controller/internal/device"
	"github.com/sadaflabs/sadaf/go-controller/internal/dispatch"
	"github.com/sadaflabs/sadaf/go-controller/internal/gate"
	"github.com/sadaflabs/sadaf/go-controller/internal/memory"
	"github.com/sadaflabs/sadaf/go-controller/internal/oracle"
	"github.com/sadaflabs/sadaf/go-controller/internal/pipeline"
	"github.com/sadaflabs/sadaf/go-controller/internal/reason"
	"github.com/sadaflabs/sadaf/go-controller/internal/rules"
	"github.com/sadaflabs/sadaf/go-controller/internal/safety"
	"github.com/sadaflabs/sadaf/go-controller/internal/sense"
)

// #region main

func main() {
	configPath := flag.String("config", "sadaf.yaml", "config file path")
	interval := flag.Duration("interval", 30*time.Second, "automatic sense interval (0 disables)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := memory.OpenDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	registry, err := device.NewRegistry(db)
	if err != nil {
		log.Fatalf("registry: %v", err)
	}
	if cfg.DevicesFile != "" {
		n, err := registry.LoadFile(cfg.DevicesFile)
		if err != nil {
			log.Fatalf("load devices: %v", err)
		}
		log.Printf("[MAIN] onboarded %d devices from %s", n, cfg.DevicesFile)
	}
	if len(registry.DeviceIDs()) == 0 {
		for _, cap := range device.SampleFleet() {
			if err := registry.Register(cap); err != nil {
				log.Fatalf("seed fleet: %v", err)
			}
		}
		log.Printf("[MAIN] seeded sample fleet")
	}

	llm, embedder, err := buildOracle(cfg.Oracle)
	if err != nil {
		log.Fatalf("oracle: %v", err)
	}

	store, err := memory.NewSQLiteStore(db)
	if err != nil {
		log.Fatalf("preference store: %v", err)
	}
	mem := memory.New(embedder, store, memory.Config{
		DupThreshold: cfg.Memory.DupThreshold,
		QueryK:       cfg.Memory.QueryK,
	})

	auditLog, err := audit.NewLog(db)
	if err != nil {
		log.Fatalf("audit log: %v", err)
	}

	actuator := dispatch.NewSimulatedActuator(initialStates(registry.DeviceIDs())...)
	dispatcher := dispatch.NewDispatcher(actuator, dispatch.Config{
		Policy:         dispatch.BusyPolicy(cfg.Dispatch.BusyPolicy),
		ExecuteTimeout: time.Duration(cfg.Dispatch.ExecuteTimeoutSeconds) * time.Second,
	})

	builder := sense.NewBuilder(sense.BuilderConfig{
		FreshFor: time.Duration(cfg.Sense.FreshForSeconds) * time.Second,
		DecayTTL: time.Duration(cfg.Sense.DecayTTLSeconds) * time.Second,
		Floor:    sense.DefaultBuilderConfig().Floor,
	})
	seed := time.Now().UnixNano()
	collector := sense.NewCollector(builder,
		time.Duration(cfg.Sense.SourceTimeoutSeconds)*time.Second,
		sense.NewFitSource(seed),
		sense.NewCameraSource(seed+1),
		sense.NewLocationSource(seed+2),
		dispatch.NewStateSource(actuator, registry.DeviceIDs()),
	)

	validator := device.NewValidator(registry)
	layer := safety.NewLayer(validator, safety.Builtin(safety.Config{
		ProtectedPatterns:  cfg.Safety.ProtectedPatterns,
		TemperatureCeiling: cfg.Safety.TemperatureCeiling,
	})...)

	console := &consoleNotifier{}
	g := gate.NewGate(gate.Config{
		ConfirmTimeout: time.Duration(cfg.Gate.ConfirmTimeoutSeconds) * time.Second,
	}, mem, console)

	controller := pipeline.NewController(pipeline.Deps{
		Collector:  collector,
		Engine:     rules.NewEngine(rules.Builtin()...),
		Memory:     mem,
		Reasoner:   reason.NewReasoner(llm, registry),
		Validator:  validator,
		Safety:     layer,
		Gate:       g,
		Dispatcher: dispatcher,
		Audit:      auditLog,
		Budget:     pipeline.NewBudget(time.Duration(cfg.Budget.CooldownMinutes) * time.Minute),
		Enabled:    cfg.Enabled,
	})

	fmt.Println("Sadaf decision core ready.")
	fmt.Printf("  DB: %s | oracle: %s/%s | devices: %d\n",
		cfg.DBPath, cfg.Oracle.Provider, cfg.Oracle.Model, len(registry.DeviceIDs()))
	fmt.Println("Commands: s = sense now, y = accept, n = reject, quit")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kick := make(chan struct{}, 1)
	go runCycles(ctx, controller, *interval, kick)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		switch strings.TrimSpace(scanner.Text()) {
		case "":
			continue
		case "quit", "exit":
			return
		case "s":
			select {
			case kick <- struct{}{}:
			default:
			}
		case "y":
			console.resolve(g, true)
		case "n":
			console.resolve(g, false)
		default:
			fmt.Println("commands: s, y, n, quit")
		}
	}
}

// runCycles drives the pipeline on a timer and on manual kicks.
func runCycles(ctx context.Context, c *pipeline.Controller, interval time.Duration, kick <-chan struct{}) {
	var tick <-chan time.Time
	if interval > 0 {
		t := time.NewTicker(interval)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
		case <-kick:
		}
		if _, err := c.RunCycle(ctx); err != nil {
			log.Printf("[MAIN] cycle error: %v", err)
		}
	}
}

// #endregion main

// #region console

// consoleNotifier prints pending suggestions and remembers the newest one so
// y/n from stdin can resolve it.
type consoleNotifier struct {
	mu      sync.Mutex
	pending string
}

func (c *consoleNotifier) Notify(s gate.Suggestion) {
	c.mu.Lock()
	c.pending = s.ID
	c.mu.Unlock()
	fmt.Printf("\nSuggestion: %s\n  why: %s\n  accept? y/n (expires %s)\n> ",
		s.Action.Summary(), s.Rationale, s.ExpiresAt.Format("15:04:05"))
}

func (c *consoleNotifier) resolve(g *gate.Gate, accepted bool) {
	c.mu.Lock()
	id := c.pending
	c.pending = ""
	c.mu.Unlock()
	if id == "" {
		fmt.Println("no pending suggestion")
		return
	}
	if err := g.Resolve(id, accepted); err != nil {
		fmt.Printf("verdict not applied: %v\n", err)
	}
}

// #endregion console

// #region wiring-helpers

// buildOracle constructs the configured reasoning backend. Both providers
// serve generation and embeddings from the same client.
func buildOracle(cfg config.OracleConfig) (oracle.Oracle, oracle.Embedder, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	switch cfg.Provider {
	case "", "ollama":
		c, err := oracle.NewOllamaClient(cfg.Model, cfg.EmbedModel, timeout)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	case "gemini":
		c, err := oracle.NewGeminiClient(context.Background(), os.Getenv(cfg.APIKeyEnv), cfg.Model, cfg.EmbedModel, timeout)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	}
	return nil, nil, fmt.Errorf("unknown oracle provider %q", cfg.Provider)
}

// initialStates provisions the simulated fleet: lights start on so the
// vacancy rule has something to act on, everything else starts off.
func initialStates(deviceIDs []string) []dispatch.DeviceState {
	states := make([]dispatch.DeviceState, len(deviceIDs))
	for i, id := range deviceIDs {
		states[i] = dispatch.DeviceState{
			DeviceID: id,
			On:       strings.Contains(id, "light") || strings.Contains(id, "fridge"),
		}
	}
	return states
}

// #endregion wiring-helpers
