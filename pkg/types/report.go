package types

import "time"

// Outcome values for a component within an operation report.
const (
	OutcomeOK       = "ok"
	OutcomeFailed   = "failed"
	OutcomeSkipped  = "skipped"
	OutcomeDegraded = "degraded"
)

// ComponentOutcome records what happened to one component during an
// InstallAll, RollbackAll, or CleanupAll run.
type ComponentOutcome struct {
	Component ComponentID `json:"component"`
	Outcome   string      `json:"outcome"`
	// Error holds the failure text when Outcome is failed or degraded.
	// Kept as a string so the report serializes cleanly.
	Error string `json:"error,omitempty"`
}

// Report is the structured result of one controller operation. Every
// component that was attempted appears exactly once; an unreported
// failure is a bug by contract.
type Report struct {
	Operation  string             `json:"operation"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Outcomes   []ComponentOutcome `json:"outcomes"`
}

// Add appends an outcome for component.
func (r *Report) Add(component ComponentID, outcome string, err error) {
	co := ComponentOutcome{Component: component, Outcome: outcome}
	if err != nil {
		co.Error = err.Error()
	}
	r.Outcomes = append(r.Outcomes, co)
}

// OK reports whether every component outcome succeeded.
func (r *Report) OK() bool {
	for _, o := range r.Outcomes {
		if o.Outcome != OutcomeOK {
			return false
		}
	}
	return true
}

// Degraded reports whether any component finished with a degraded
// outcome (for example a partial restore).
func (r *Report) Degraded() bool {
	for _, o := range r.Outcomes {
		if o.Outcome == OutcomeDegraded {
			return true
		}
	}
	return false
}

// Outcome returns the outcome recorded for component, or nil.
func (r *Report) Outcome(component ComponentID) *ComponentOutcome {
	for i := range r.Outcomes {
		if r.Outcomes[i].Component == component {
			return &r.Outcomes[i]
		}
	}
	return nil
}
