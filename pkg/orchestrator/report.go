package orchestrator

import (
	"fmt"
	"strings"
)

type Outcome string

const (
	OutcomeOK     Outcome = "ok"
	OutcomeFailed Outcome = "failed"
)

type StepResult struct {
	Name    string
	Outcome Outcome
	Detail  string
}

// Report is the append-only record of one pipeline run. Steps are
// recorded in execution order before the next step starts and are never
// mutated afterwards; the report is terminal once the pipeline halts.
type Report struct {
	RunID string
	Steps []StepResult
}

func (r *Report) ok(name, detail string) {
	r.Steps = append(r.Steps, StepResult{Name: name, Outcome: OutcomeOK, Detail: detail})
}

func (r *Report) failed(name, detail string) {
	r.Steps = append(r.Steps, StepResult{Name: name, Outcome: OutcomeFailed, Detail: detail})
}

func (r *Report) AllOK() bool {
	for _, s := range r.Steps {
		if s.Outcome != OutcomeOK {
			return false
		}
	}
	return true
}

// Render formats the full report for chat. Every attempted step shows
// up; partial failures are reported, never hidden.
func (r *Report) Render() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🚀 Deploy pipeline report (run %s)\n\n", r.RunID))
	for _, s := range r.Steps {
		marker := "✅"
		if s.Outcome == OutcomeFailed {
			marker = "❌"
		}
		b.WriteString(fmt.Sprintf("%s %s", marker, s.Name))
		if s.Detail != "" {
			b.WriteString(": " + s.Detail)
		}
		b.WriteString("\n")
	}
	if r.AllOK() {
		b.WriteString("\n🎉 All steps completed.")
	} else {
		b.WriteString("\n⚠️ Some steps failed; completed steps are not rolled back.")
	}
	return b.String()
}
