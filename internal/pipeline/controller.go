package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/sadaflabs/sadaf/go-controller/internal/audit"
	"github.com/sadaflabs/sadaf/go-controller/internal/device"
	"github.com/sadaflabs/sadaf/go-controller/internal/dispatch"
	"github.com/sadaflabs/sadaf/go-controller/internal/gate"
	"github.com/sadaflabs/sadaf/go-controller/internal/memory"
	"github.com/sadaflabs/sadaf/go-controller/internal/reason"
	"github.com/sadaflabs/sadaf/go-controller/internal/rules"
	"github.com/sadaflabs/sadaf/go-controller/internal/safety"
	"github.com/sadaflabs/sadaf/go-controller/internal/sense"
)

// #region verdicts

// Final cycle verdicts beyond the gate's terminal states.
const (
	VerdictDisabled         = "disabled"
	VerdictNoSuggestion     = "no_suggestion"
	VerdictReasoningError   = "reasoning_error"
	VerdictSchemaReject     = "schema_reject"
	VerdictSafetyDenied     = "safety_denied"
	VerdictBudgetSuppressed = "budget_suppressed"
)

// #endregion verdicts

// #region result

// CycleResult reports one full cycle for callers and tests. The audit log
// holds the durable copy.
type CycleResult struct {
	CycleID    string
	Packet     sense.ContextPacket
	Directives []rules.Directive
	Intention  reason.Intention
	// FinalVerdict is one of the Verdict* constants or a gate terminal state.
	FinalVerdict string
	Resolution   gate.Resolution
	Dispatch     *dispatch.Outcome
}

// #endregion result

// #region controller

// Deps wires the pipeline stages. All fields are required except Collector
// (RunPacket-only use) and Budget (nil disables suppression).
type Deps struct {
	Collector  *sense.Collector
	Engine     *rules.Engine
	Memory     *memory.Memory
	Reasoner   *reason.Reasoner
	Validator  *device.Validator
	Safety     *safety.Layer
	Gate       *gate.Gate
	Dispatcher *dispatch.Dispatcher
	Audit      *audit.Log
	Budget     *Budget
	Enabled    bool
}

// Controller runs the decision cycle: packet in, at most one suggestion
// out, every stage audited. Each cycle is independent; a failed or quiet
// cycle leaves no state behind except its audit row and any preference
// record the gate wrote.
type Controller struct {
	deps Deps
}

// NewController creates a Controller.
func NewController(deps Deps) *Controller {
	return &Controller{deps: deps}
}

// RunCycle senses a fresh packet and runs it through the pipeline.
func (c *Controller) RunCycle(ctx context.Context) (CycleResult, error) {
	if c.deps.Collector == nil {
		return CycleResult{}, errors.New("no collector configured")
	}
	return c.RunPacket(ctx, c.deps.Collector.Collect(ctx))
}

// RunPacket runs one already-built packet through the pipeline. The returned
// error only reports audit persistence failure; every in-pipeline outcome,
// including reasoning errors and safety denials, lands in the CycleResult.
func (c *Controller) RunPacket(ctx context.Context, p sense.ContextPacket) (CycleResult, error) {
	d := c.deps
	res := CycleResult{CycleID: uuid.New().String(), Packet: p}
	entry := audit.Entry{CycleID: res.CycleID, PacketTimestamp: p.Timestamp()}
	log.Printf("[CYCLE] %s start: %d sensors", res.CycleID, p.Len())

	res.Directives = d.Engine.Evaluate(p)
	for _, dir := range res.Directives {
		entry.DirectivesFired = append(entry.DirectivesFired, dir.RuleID)
	}

	res.FinalVerdict = c.decide(ctx, p, &res, &entry)
	entry.FinalVerdict = res.FinalVerdict

	log.Printf("[CYCLE] %s done: %s", res.CycleID, res.FinalVerdict)
	if err := d.Audit.Append(entry); err != nil {
		return res, fmt.Errorf("audit cycle %s: %w", res.CycleID, err)
	}
	return res, nil
}

// decide runs reason, validate, safety, budget, gate, and dispatch, and
// returns the final verdict. Stage outcomes accumulate into the audit entry.
func (c *Controller) decide(ctx context.Context, p sense.ContextPacket, res *CycleResult, entry *audit.Entry) string {
	d := c.deps
	if !d.Enabled {
		return VerdictDisabled
	}

	query := memory.QueryString(p)
	precedent := d.Memory.QuerySimilar(ctx, query, 0)

	intention, err := d.Reasoner.Reason(ctx, p, res.Directives, precedent)
	switch {
	case errors.Is(err, reason.ErrNoSuggestion):
		return VerdictNoSuggestion
	case err != nil:
		log.Printf("[CYCLE] %s reasoning failed: %v", res.CycleID, err)
		entry.IntentionSummary = err.Error()
		return VerdictReasoningError
	}
	res.Intention = intention
	entry.IntentionSummary = intention.Summary()

	action, err := d.Validator.Validate(intention.TargetDeviceID, intention.ProposedFunction, intention.ProposedParameters)
	if err != nil {
		log.Printf("[CYCLE] %s schema reject: %v", res.CycleID, err)
		entry.ValidatorOutcome = err.Error()
		return VerdictSchemaReject
	}
	entry.ValidatorOutcome = "ok"

	verdict := d.Safety.Evaluate(action, p)
	switch verdict.Kind {
	case safety.KindDeny:
		entry.SafetyVerdict = fmt.Sprintf("deny: %s (%s)", verdict.Reason, verdict.RuleID)
		return VerdictSafetyDenied
	case safety.KindRewrite:
		entry.SafetyVerdict = fmt.Sprintf("rewrite: %s (%s)", verdict.Reason, verdict.RuleID)
		action = verdict.Rewritten
	default:
		entry.SafetyVerdict = "allow"
	}

	if d.Budget != nil && !d.Budget.Allow() {
		return VerdictBudgetSuppressed
	}

	ticket := d.Gate.Submit(action, intention.Summary(), intention.Rationale, query)
	if d.Budget != nil {
		d.Budget.Note()
	}
	res.Resolution = ticket.Await(ctx)

	if !res.Resolution.Dispatchable() {
		return string(res.Resolution.State)
	}

	out, err := d.Dispatcher.Dispatch(ctx, res.Resolution.Suggestion.Action)
	if err != nil {
		// Busy device or cancelled wait; the acceptance still stands in
		// memory, only the execution was refused.
		entry.DispatchOutcome = err.Error()
		return string(res.Resolution.State)
	}
	entry.DispatchOutcome = out.Summary()
	res.Dispatch = &out
	return string(res.Resolution.State)
}

// #endregion controller
