// Package queue carries write-path events to the message brokers: failed
// fan-out plans go to RabbitMQ for reconciliation and committed plans go to
// Kafka as an activity feed.
package queue

import (
	"time"

	"github.com/iliyamo/cocktail-hub/internal/fanout"
	"github.com/iliyamo/cocktail-hub/internal/model"
)

// CommittedStep describes one step that was applied before a plan failed.
type CommittedStep struct {
	Step   int    `json:"step"`
	Op     string `json:"op"`
	Target string `json:"target"`
	ID     string `json:"id"`
	Field  string `json:"field,omitempty"`
}

// PlanFailedEvent is published for every fan-out plan that stopped early.
// It holds enough detail for the reconciliation consumer to find every
// document the plan touched without querying the store.
type PlanFailedEvent struct {
	Event        string          `json:"event"`
	Strategy     string          `json:"strategy"`
	PrincipalID  string          `json:"principal_id,omitempty"`
	Role         string          `json:"role,omitempty"`
	FailedStep   int             `json:"failed_step"`
	FailedOp     string          `json:"failed_op"`
	FailedTarget string          `json:"failed_target"`
	Committed    []CommittedStep `json:"committed"`
	Cause        string          `json:"cause"`
	Compensated  bool            `json:"compensated"`
	RolledBack   bool            `json:"rolled_back"`
	OccurredAt   string          `json:"occurred_at"`
}

// NeedsReconciliation reports whether committed writes were left applied.
func (e PlanFailedEvent) NeedsReconciliation() bool {
	return len(e.Committed) > 0 && !e.Compensated && !e.RolledBack
}

// NewPlanFailedEvent builds the event for pf.  p may be nil for plans run
// outside a request, such as the recompute job.
func NewPlanFailedEvent(pf *fanout.PartialFailure, p model.Principal, at time.Time) PlanFailedEvent {
	ev := PlanFailedEvent{
		Event:        pf.Event,
		Strategy:     pf.Strategy,
		FailedStep:   pf.FailedStep,
		FailedOp:     pf.Step.Op.String(),
		FailedTarget: string(pf.Step.Target),
		Committed:    make([]CommittedStep, 0, len(pf.Committed)),
		Compensated:  pf.Compensated,
		RolledBack:   pf.RolledBack,
		OccurredAt:   at.UTC().Format(time.RFC3339),
	}
	if pf.Cause != nil {
		ev.Cause = pf.Cause.Error()
	}
	if p != nil {
		ev.PrincipalID = p.PrincipalID()
		ev.Role = string(p.Role())
	}
	for _, c := range pf.Committed {
		ev.Committed = append(ev.Committed, CommittedStep{
			Step:   c.Index,
			Op:     c.Step.Op.String(),
			Target: string(c.Step.Target),
			ID:     c.ID,
			Field:  c.Step.Field,
		})
	}
	return ev
}

// ActivityEvent is published for every committed plan.
type ActivityEvent struct {
	Event       string             `json:"event"`
	PrincipalID string             `json:"principal_id,omitempty"`
	Role        string             `json:"role,omitempty"`
	Steps       int                `json:"steps"`
	Entities    []fanout.EntityRef `json:"entities"`
	OccurredAt  string             `json:"occurred_at"`
}

// NewActivityEvent summarizes a committed plan.
func NewActivityEvent(res fanout.Result, p model.Principal, at time.Time) ActivityEvent {
	ev := ActivityEvent{
		Event:      res.Event,
		Steps:      len(res.Committed),
		Entities:   make([]fanout.EntityRef, 0, len(res.Committed)),
		OccurredAt: at.UTC().Format(time.RFC3339),
	}
	if p != nil {
		ev.PrincipalID = p.PrincipalID()
		ev.Role = string(p.Role())
	}
	seen := map[fanout.EntityRef]bool{}
	for _, c := range res.Committed {
		ref := fanout.EntityRef{Type: c.Step.Target, ID: c.ID}
		if !seen[ref] {
			seen[ref] = true
			ev.Entities = append(ev.Entities, ref)
		}
	}
	return ev
}
