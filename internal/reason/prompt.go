package reason

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sadaflabs/sadaf/go-controller/internal/device"
	"github.com/sadaflabs/sadaf/go-controller/internal/memory"
	"github.com/sadaflabs/sadaf/go-controller/internal/rules"
	"github.com/sadaflabs/sadaf/go-controller/internal/sense"
)

// Prompt construction is deterministic: sensors render in sorted id order,
// directives and precedents in the order they were produced. The same packet
// and rule output always yields the same prompt text.

// #region render

// renderPacket lists every present sensor with confidence and age.
func renderPacket(p sense.ContextPacket) string {
	var b strings.Builder
	fmt.Fprintf(&b, "timestamp: %s\n", p.Timestamp().Format("2006-01-02T15:04:05Z07:00"))
	for _, id := range p.SensorIDs() {
		r, _ := p.Reading(id)
		fmt.Fprintf(&b, "- %s = %v (confidence %.2f, age %ds)\n", id, r.Value, r.Confidence, int(r.Age.Seconds()))
	}
	return b.String()
}

// renderDirectives lists rule-engine candidates in trigger order.
func renderDirectives(ds []rules.Directive) string {
	if len(ds) == 0 {
		return "(no candidate actions triggered)\n"
	}
	var b strings.Builder
	for _, d := range ds {
		fmt.Fprintf(&b, "- rule %s proposes %s on [%s]; facts: %s\n",
			d.RuleID, d.ActionType, strings.Join(d.TargetDevices, ", "), strings.Join(d.Facts, "; "))
	}
	return b.String()
}

// renderPrecedent lists retrieved preference records, most similar first.
func renderPrecedent(recs []memory.PreferenceRecord) string {
	if len(recs) == 0 {
		return "(no relevant precedent)\n"
	}
	var b strings.Builder
	for _, rec := range recs {
		fmt.Fprintf(&b, "- user %s: %s (context: %s)\n", rec.Verdict, rec.ActionSummary, rec.ContextText)
	}
	return b.String()
}

// renderCapability serializes the schema pass 2 must bind to.
func renderCapability(cap device.Capability, found bool) string {
	if !found {
		return "(device not found in registry)"
	}
	data, err := json.Marshal(cap)
	if err != nil {
		return "(capability unavailable)"
	}
	return fmt.Sprintf("device %q: %s", cap.DeviceID, string(data))
}

// #endregion render

// #region pass1

// pass1Prompt asks for a situation summary plus a draft action. The draft
// fields are advisory; only pass 2 output is machine-checked.
func pass1Prompt(p sense.ContextPacket, ds []rules.Directive, precedent []memory.PreferenceRecord) string {
	var b strings.Builder
	b.WriteString("You are Sadaf, a proactive smart-environment assistant. ")
	b.WriteString("Given the context, candidate actions, and relevant user precedent, ")
	b.WriteString("decide whether one action is worth suggesting and explain why.\n\n")
	b.WriteString("Context:\n")
	b.WriteString(renderPacket(p))
	b.WriteString("\nCandidate actions:\n")
	b.WriteString(renderDirectives(ds))
	b.WriteString("\nRelevant precedent:\n")
	b.WriteString(renderPrecedent(precedent))
	b.WriteString("\nRespond with a JSON object:\n")
	b.WriteString(`{"goal": "<one sentence: what to achieve>", "rationale": "<2-4 sentences: why>", ` +
		`"target_device_id": "<device id or empty>", "function": "<draft function or empty>", ` +
		`"parameters": {}, "should_suggest": true}`)
	b.WriteString("\nSet should_suggest to false when nothing is worth doing.\n")
	return b.String()
}

// #endregion pass1

// #region pass2

// pass2Prompt asks for the strict machine-checkable form bound to the
// device's capability schema. Goal and rationale are fixed inputs here, not
// outputs: pass 2 only re-emits function and parameters.
func pass2Prompt(p sense.ContextPacket, pass1Text string, cap device.Capability, found bool) string {
	var b strings.Builder
	b.WriteString("You are Sadaf. Bind the drafted suggestion below to the device's capability schema. ")
	b.WriteString("Your response MUST be only a JSON object, nothing else.\n\n")
	b.WriteString("Draft (from the previous reasoning step):\n")
	b.WriteString(pass1Text)
	b.WriteString("\n\nCapability schema:\n")
	b.WriteString(renderCapability(cap, found))
	b.WriteString("\n\nContext (for reference):\n")
	b.WriteString(renderPacket(p))
	b.WriteString("\nJSON output, exactly these keys:\n")
	b.WriteString(`{"target_device_id": "<id>", "function": "<one allowed function>", ` +
		`"parameters": {"<recognized key>": <in-range value>}, "confidence": 0.0, "should_suggest": true}`)
	b.WriteString("\n")
	return b.String()
}

// #endregion pass2

// #region extract-json

// extractJSON pulls the outermost JSON object from oracle output, tolerating
// prose or code fences around it.
func extractJSON(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// #endregion extract-json
