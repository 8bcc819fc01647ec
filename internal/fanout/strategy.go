package fanout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/cocktail-hub/internal/store"
)

// ErrNoTransactions is returned by Transactional for stores without a
// transaction primitive.
var ErrNoTransactions = errors.New("store does not support transactions")

// StepFunc applies one resolved step as step number n.
type StepFunc func(ctx context.Context, s store.Store, n int, step WriteStep) (StepOutcome, error)

// CommitStrategy decides how a validated plan is committed and what
// happens to earlier steps when one fails.  Implementations must run the
// steps in plan order and check ctx before starting each one.
type CommitStrategy interface {
	Name() string
	Commit(ctx context.Context, s store.Store, plan Plan, apply StepFunc) (Result, error)
}

// ParseStrategy resolves a configured strategy name.
func ParseStrategy(name string) (CommitStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sequential":
		return Sequential{}, nil
	case "saga":
		return Saga{}, nil
	case "transactional", "tx":
		return Transactional{}, nil
	default:
		return nil, fmt.Errorf("unknown commit strategy %q", name)
	}
}

// stepHooks lets a strategy observe the loop.  before runs ahead of each
// step; a non-nil error fails that step.  after runs for each commit.
type stepHooks struct {
	before func(ctx context.Context, s store.Store, n int, step WriteStep) error
	after  func(n int, step WriteStep, out StepOutcome)
}

// runSteps is the ordered loop shared by every strategy.
func runSteps(ctx context.Context, s store.Store, plan Plan, apply StepFunc, h stepHooks) (Result, *PartialFailure) {
	res := Result{Event: plan.Event}
	inserted := map[int]string{}
	for i, raw := range plan.Steps {
		n := i + 1
		fail := func(step WriteStep, cause error) (Result, *PartialFailure) {
			res.FailedStep = n
			return res, &PartialFailure{
				Event:      plan.Event,
				Committed:  append([]StepOutcome(nil), res.Committed...),
				FailedStep: n,
				Step:       step,
				Cause:      cause,
			}
		}
		// a done context stops the plan before the next step starts
		if err := ctx.Err(); err != nil {
			return fail(raw, err)
		}
		step, err := raw.Resolve(inserted)
		if err != nil {
			return fail(raw, err)
		}
		if h.before != nil {
			if err := h.before(ctx, s, n, step); err != nil {
				return fail(step, err)
			}
		}
		out, err := apply(ctx, s, n, step)
		if err != nil {
			return fail(step, err)
		}
		if step.Op == OpInsert {
			inserted[n] = out.ID
		}
		res.Committed = append(res.Committed, out)
		if h.after != nil {
			h.after(n, step, out)
		}
	}
	return res, nil
}

// Sequential commits each step as it goes and never undoes anything.  A
// failure at step k leaves steps 1..k-1 applied and reports them.
type Sequential struct{}

func (Sequential) Name() string { return "sequential" }

func (Sequential) Commit(ctx context.Context, s store.Store, plan Plan, apply StepFunc) (Result, error) {
	res, pf := runSteps(ctx, s, plan, apply, stepHooks{})
	if pf != nil {
		return res, pf
	}
	return res, nil
}

// Saga commits like Sequential but records an inverse for every step and,
// when a later step fails, applies the inverses in reverse order.
// Cancellation is not compensated: a done context only stops the plan.
type Saga struct{}

func (Saga) Name() string { return "saga" }

func (Saga) Commit(ctx context.Context, s store.Store, plan Plan, apply StepFunc) (Result, error) {
	var (
		pending []WriteStep
		undo    [][]WriteStep
	)
	h := stepHooks{
		before: func(ctx context.Context, s store.Store, _ int, step WriteStep) error {
			inv, err := captureInverse(ctx, s, step)
			pending = inv
			return err
		},
		after: func(_ int, step WriteStep, out StepOutcome) {
			undo = append(undo, completeInverse(step, out, pending))
		},
	}
	res, pf := runSteps(ctx, s, plan, apply, h)
	if pf == nil {
		return res, nil
	}
	if errors.Is(pf.Cause, context.Canceled) || errors.Is(pf.Cause, context.DeadlineExceeded) {
		return res, pf
	}

	cctx := context.WithoutCancel(ctx)
	for i := len(undo) - 1; i >= 0; i-- {
		for _, inv := range undo[i] {
			if _, err := applyStep(cctx, s, inv); err != nil && pf.CompensationErr == nil {
				pf.CompensationErr = fmt.Errorf("undo step %d: %w", res.Committed[i].Index, err)
			}
		}
	}
	pf.Compensated = pf.CompensationErr == nil
	return res, pf
}

// captureInverse reads whatever pre-image the inverse of step needs.
// Inverses that only depend on the step outcome are built afterwards.
func captureInverse(ctx context.Context, s store.Store, step WriteStep) ([]WriteStep, error) {
	switch step.Op {
	case OpRemove:
		doc, err := s.Find(ctx, step.Target, step.ID)
		if err != nil {
			return nil, err
		}
		return []WriteStep{{Target: step.Target, Op: OpInsert, Value: doc}}, nil
	case OpSetField:
		doc, err := s.Find(ctx, step.Target, step.ID)
		if err != nil {
			return nil, err
		}
		return []WriteStep{{Target: step.Target, Op: OpSetField, ID: step.ID, Field: step.Field, Value: doc[step.Field]}}, nil
	case OpArrayPull:
		doc, err := s.Find(ctx, step.Target, step.ID)
		if err != nil {
			return nil, err
		}
		arr, err := doc.Array(step.Field)
		if err != nil {
			return nil, err
		}
		_, removed, err := store.Pull(arr, step.Value.(store.Match))
		if err != nil {
			return nil, err
		}
		inv := make([]WriteStep, 0, len(removed))
		for _, elem := range removed {
			inv = append(inv, WriteStep{Target: step.Target, Op: OpArrayPush, ID: step.ID, Field: step.Field, Value: elem})
		}
		return inv, nil
	}
	return nil, nil
}

func completeInverse(step WriteStep, out StepOutcome, captured []WriteStep) []WriteStep {
	switch step.Op {
	case OpInsert:
		return []WriteStep{{Target: step.Target, Op: OpRemove, ID: out.ID}}
	case OpArrayPush:
		if out.Modified == 0 {
			return nil
		}
		// only the pushed copy; an equal element may have been there before
		return []WriteStep{{Target: step.Target, Op: OpArrayPull, ID: step.ID, Field: step.Field, Value: store.LastEqual(step.Value)}}
	case OpIncrement:
		return []WriteStep{{Target: step.Target, Op: OpIncrement, ID: step.ID, Field: step.Field, Value: -step.Value.(int64)}}
	default:
		return captured
	}
}

// Transactional runs the whole plan inside one store transaction, so a
// failure leaves nothing applied.
type Transactional struct{}

func (Transactional) Name() string { return "transactional" }

func (Transactional) Commit(ctx context.Context, s store.Store, plan Plan, apply StepFunc) (Result, error) {
	tx, ok := s.(store.Transactor)
	if !ok {
		return Result{Event: plan.Event}, ErrNoTransactions
	}
	var (
		res Result
		pf  *PartialFailure
	)
	err := tx.RunInTransaction(ctx, func(txs store.Store) error {
		res, pf = runSteps(ctx, txs, plan, apply, stepHooks{})
		if pf != nil {
			return pf
		}
		return nil
	})
	if pf != nil {
		pf.RolledBack = true
		res.Committed = nil
		return res, pf
	}
	if err != nil {
		return Result{Event: plan.Event}, fmt.Errorf("commit %s: %w", plan.Event, err)
	}
	return res, nil
}
