package fanout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/cocktail-hub/internal/model"
)

// ErrPartialFailure matches every *PartialFailure under errors.Is.
var ErrPartialFailure = errors.New("partial failure")

// StepOutcome records one committed step.
type StepOutcome struct {
	Index    int       `json:"index"`
	Step     WriteStep `json:"step"`
	ID       string    `json:"id"`
	Modified int       `json:"modified"`
}

// Result reports what a plan execution did.  FailedStep is 0 on success.
type Result struct {
	Event      string        `json:"event"`
	Strategy   string        `json:"strategy"`
	Committed  []StepOutcome `json:"committed"`
	FailedStep int           `json:"failedStep,omitempty"`
}

// CommittedSteps returns the step numbers that committed, in order.
func (r Result) CommittedSteps() []int {
	out := make([]int, len(r.Committed))
	for i, c := range r.Committed {
		out[i] = c.Index
	}
	return out
}

// InsertedID returns the id produced by the Insert at step n.
func (r Result) InsertedID(n int) (string, bool) {
	for _, c := range r.Committed {
		if c.Index == n && c.Step.Op == OpInsert {
			return c.ID, true
		}
	}
	return "", false
}

// EntityRef names one document touched by a committed step.
type EntityRef struct {
	Type model.EntityType `json:"type"`
	ID   string           `json:"id"`
}

// PartialFailure reports a plan that stopped at FailedStep.  Committed
// holds the steps that had been applied when it stopped; whether they are
// still applied depends on Compensated and RolledBack.
type PartialFailure struct {
	Event      string
	Strategy   string
	Committed  []StepOutcome
	FailedStep int
	Step       WriteStep
	Cause      error

	// Compensated is set when a saga undid every committed step.
	Compensated bool
	// CompensationErr is the first compensation that failed, if any.
	CompensationErr error
	// RolledBack is set when a transaction discarded the committed steps.
	RolledBack bool
}

func (e *PartialFailure) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: step %d (%s %s) failed after %d committed",
		e.Event, e.FailedStep, e.Step.Op, e.Step.Target, len(e.Committed))
	switch {
	case e.RolledBack:
		b.WriteString(", rolled back")
	case e.Compensated:
		b.WriteString(", compensated")
	case e.CompensationErr != nil:
		fmt.Fprintf(&b, ", compensation failed: %v", e.CompensationErr)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *PartialFailure) Unwrap() []error {
	return []error{ErrPartialFailure, e.Cause}
}

// Dirty reports whether committed steps are still applied, i.e. the
// store is left in a state that needs reconciliation.
func (e *PartialFailure) Dirty() bool {
	return len(e.Committed) > 0 && !e.Compensated && !e.RolledBack
}

// Mutated lists the documents changed by the committed steps.
func (e *PartialFailure) Mutated() []EntityRef {
	out := make([]EntityRef, 0, len(e.Committed))
	seen := map[EntityRef]bool{}
	for _, c := range e.Committed {
		ref := EntityRef{Type: c.Step.Target, ID: c.ID}
		if !seen[ref] {
			seen[ref] = true
			out = append(out, ref)
		}
	}
	return out
}

// AsPartialFailure extracts a *PartialFailure from err.
func AsPartialFailure(err error) (*PartialFailure, bool) {
	var pf *PartialFailure
	if errors.As(err, &pf) {
		return pf, true
	}
	return nil, false
}
