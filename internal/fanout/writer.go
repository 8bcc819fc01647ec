package fanout

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/cocktail-hub/internal/logger"
	"github.com/iliyamo/cocktail-hub/internal/store"
)

const tracerName = "github.com/iliyamo/cocktail-hub/internal/fanout"

// Writer executes plans against a store using a CommitStrategy.
type Writer struct {
	store    store.Store
	strategy CommitStrategy
	hooks    Hooks
	log      *logger.Logger
	tracer   trace.Tracer
}

// Option customizes a Writer.
type Option func(*Writer)

// WithStrategy replaces the default Sequential strategy.
func WithStrategy(s CommitStrategy) Option {
	return func(w *Writer) {
		if s != nil {
			w.strategy = s
		}
	}
}

// WithHooks installs observability hooks.
func WithHooks(h Hooks) Option {
	return func(w *Writer) {
		if h != nil {
			w.hooks = h
		}
	}
}

// WithLogger sets the logger used for failed plans.
func WithLogger(l *logger.Logger) Option {
	return func(w *Writer) {
		if l != nil {
			w.log = l
		}
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(w *Writer) {
		if t != nil {
			w.tracer = t
		}
	}
}

// NewWriter returns a Writer with the Sequential strategy, no-op hooks and
// a discarding logger unless overridden.
func NewWriter(s store.Store, opts ...Option) *Writer {
	w := &Writer{
		store:    s,
		strategy: Sequential{},
		hooks:    noopHooks{},
		log:      logger.Nop(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Strategy returns the name of the active commit strategy.
func (w *Writer) Strategy() string { return w.strategy.Name() }

// Execute validates plan and commits it step by step.  On failure the
// returned error is a *PartialFailure (unless the plan was rejected before
// running) and the Result lists what had been committed.
func (w *Writer) Execute(ctx context.Context, plan Plan) (Result, error) {
	name := w.strategy.Name()
	if err := plan.Validate(); err != nil {
		return Result{Event: plan.Event, Strategy: name}, err
	}

	start := time.Now()
	ctx, span := w.tracer.Start(ctx, "fanout.plan", trace.WithAttributes(
		attribute.String("fanout.event", plan.Event),
		attribute.String("fanout.strategy", name),
		attribute.Int("fanout.steps", len(plan.Steps)),
	))
	defer span.End()

	res, err := w.strategy.Commit(ctx, w.store, plan, w.apply)
	res.Event = plan.Event
	res.Strategy = name

	status := "ok"
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		status = "error"
		if pf, ok := AsPartialFailure(err); ok {
			pf.Event = plan.Event
			pf.Strategy = name
			status = failureStatus(pf)
			w.observeFailure(pf)
		} else {
			w.log.Error("fan-out plan failed", "event", plan.Event, "strategy", name, "error", err)
		}
	}
	span.SetAttributes(attribute.Int("fanout.committed", len(res.Committed)))
	w.hooks.ObservePlan(plan.Event, name, status, time.Since(start))
	return res, err
}

func (w *Writer) observeFailure(pf *PartialFailure) {
	if pf.Dirty() {
		w.hooks.IncPartialFailure(pf.Event)
	}
	switch {
	case pf.Compensated:
		w.hooks.IncCompensation("ok")
	case pf.CompensationErr != nil:
		w.hooks.IncCompensation("failed")
	}
	kv := []interface{}{
		"event", pf.Event,
		"strategy", pf.Strategy,
		"failed_step", pf.FailedStep,
		"committed_steps", len(pf.Committed),
		"target", string(pf.Step.Target),
		"op", pf.Step.Op.String(),
		"error", pf.Cause,
	}
	if pf.Dirty() {
		w.log.Error("fan-out plan left partial writes", kv...)
		return
	}
	w.log.Warn("fan-out plan failed without partial writes", append(kv,
		"compensated", pf.Compensated, "rolled_back", pf.RolledBack)...)
}

func failureStatus(pf *PartialFailure) string {
	switch {
	case pf.RolledBack:
		return "rolled_back"
	case pf.Compensated:
		return "compensated"
	case len(pf.Committed) == 0:
		return "failed"
	default:
		return "partial"
	}
}

// apply is the StepFunc handed to strategies: one span and one hook
// observation per step.
func (w *Writer) apply(ctx context.Context, s store.Store, n int, step WriteStep) (StepOutcome, error) {
	ctx, span := w.tracer.Start(ctx, "fanout.step", trace.WithAttributes(
		attribute.Int("fanout.step", n),
		attribute.String("fanout.target", string(step.Target)),
		attribute.String("fanout.op", step.Op.String()),
	))
	defer span.End()

	start := time.Now()
	out, err := applyStep(ctx, s, step)
	out.Index = n
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	w.hooks.ObserveStep(step.Target, step.Op, status, time.Since(start))
	return out, err
}

// applyStep maps a resolved step onto the store primitive.
func applyStep(ctx context.Context, s store.Store, step WriteStep) (StepOutcome, error) {
	out := StepOutcome{Step: step, ID: step.ID}
	var err error
	switch step.Op {
	case OpInsert:
		var doc store.Document
		switch v := step.Value.(type) {
		case store.Document:
			doc = v
		case map[string]any:
			doc = store.Document(v)
		default:
			return out, fmt.Errorf("insert value must be a document, got %T", step.Value)
		}
		out.ID, err = s.Insert(ctx, step.Target, doc)
		out.Modified = 1
	case OpRemove:
		err = s.Remove(ctx, step.Target, step.ID)
		out.Modified = 1
	case OpSetField:
		err = s.UpdateField(ctx, step.Target, step.ID, step.Field, step.Value)
		out.Modified = 1
	case OpArrayPush:
		out.Modified, err = s.ArrayPush(ctx, step.Target, step.ID, step.Field, step.Value)
	case OpArrayPull:
		m, ok := step.Value.(store.Match)
		if !ok {
			return out, fmt.Errorf("pull value must be a store.Match, got %T", step.Value)
		}
		out.Modified, err = s.ArrayPull(ctx, step.Target, step.ID, step.Field, m)
	case OpIncrement:
		delta, ok := step.Value.(int64)
		if !ok {
			return out, fmt.Errorf("increment delta must be int64, got %T", step.Value)
		}
		err = s.Increment(ctx, step.Target, step.ID, step.Field, delta)
		out.Modified = 1
	default:
		return out, fmt.Errorf("unknown operation %v", step.Op)
	}
	if err != nil {
		out.Modified = 0
	}
	return out, err
}
