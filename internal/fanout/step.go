// Package fanout executes ordered multi-document write plans.  The store
// underneath has no cross-document transaction, so the commit discipline
// (ordering, failure reporting, optional compensation) lives here.
package fanout

import (
	"errors"
	"fmt"

	"github.com/iliyamo/cocktail-hub/internal/model"
	"github.com/iliyamo/cocktail-hub/internal/store"
)

// Operation is the primitive a step performs on its target document.
type Operation int

const (
	OpInsert Operation = iota + 1
	OpRemove
	OpSetField
	OpArrayPush
	OpArrayPull
	OpIncrement
)

func (o Operation) String() string {
	switch o {
	case OpInsert:
		return "insert"
	case OpRemove:
		return "remove"
	case OpSetField:
		return "set_field"
	case OpArrayPush:
		return "array_push"
	case OpArrayPull:
		return "array_pull"
	case OpIncrement:
		return "increment"
	default:
		return fmt.Sprintf("operation(%d)", int(o))
	}
}

// Ref stands for the id produced by the Insert at step number Step.  It
// may appear as a step's IDFrom or anywhere inside its Value.
type Ref struct{ Step int }

// InsertedID references the id created by an earlier Insert step.
func InsertedID(step int) Ref { return Ref{Step: step} }

// WriteStep is one write against one document.  Step numbers are 1-based.
//
//	Insert:    Value is the document (store.Document or map[string]any).
//	Remove:    no Field or Value.
//	SetField:  Field and its new Value.
//	ArrayPush: Field and the element to append.
//	ArrayPull: Field and a store.Match selecting elements to remove.
//	Increment: Field and an int64 delta.
type WriteStep struct {
	Target model.EntityType `json:"target"`
	Op     Operation        `json:"op"`
	ID     string           `json:"id,omitempty"`
	IDFrom int              `json:"idFrom,omitempty"`
	Field  string           `json:"field,omitempty"`
	Value  any              `json:"value,omitempty"`
}

// Plan is the ordered step list of one logical operation.  Event names the
// operation for logs, metrics and reconciliation.
type Plan struct {
	Event string
	Steps []WriteStep
}

// ErrInvalidPlan is returned before any step runs when a plan is malformed.
var ErrInvalidPlan = errors.New("invalid plan")

// Validate checks the plan shape, including that every Ref points at an
// earlier Insert step.
func (p Plan) Validate() error {
	if len(p.Steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidPlan)
	}
	inserts := map[int]bool{}
	for i, s := range p.Steps {
		n := i + 1
		if err := s.validate(n, inserts); err != nil {
			return fmt.Errorf("%w: step %d: %v", ErrInvalidPlan, n, err)
		}
		if s.Op == OpInsert {
			inserts[n] = true
		}
	}
	return nil
}

func (s WriteStep) validate(n int, inserts map[int]bool) error {
	if !s.Target.Valid() {
		return fmt.Errorf("unknown target %q", s.Target)
	}
	if s.Op != OpInsert {
		if s.ID == "" && s.IDFrom == 0 {
			return errors.New("missing match key")
		}
		if s.IDFrom != 0 && !inserts[s.IDFrom] {
			return fmt.Errorf("idFrom %d is not an earlier insert", s.IDFrom)
		}
	}
	switch s.Op {
	case OpInsert:
		switch s.Value.(type) {
		case store.Document, map[string]any:
		default:
			return fmt.Errorf("insert value must be a document, got %T", s.Value)
		}
	case OpRemove:
	case OpSetField, OpArrayPush:
		if s.Field == "" {
			return errors.New("missing field")
		}
	case OpArrayPull:
		if s.Field == "" {
			return errors.New("missing field")
		}
		if _, ok := s.Value.(store.Match); !ok {
			return fmt.Errorf("pull value must be a store.Match, got %T", s.Value)
		}
	case OpIncrement:
		if s.Field == "" {
			return errors.New("missing field")
		}
		if _, ok := s.Value.(int64); !ok {
			return fmt.Errorf("increment delta must be int64, got %T", s.Value)
		}
	default:
		return fmt.Errorf("unknown operation %v", s.Op)
	}
	return walkRefs(s.Value, func(r Ref) error {
		if !inserts[r.Step] {
			return fmt.Errorf("ref to step %d is not an earlier insert", r.Step)
		}
		return nil
	})
}

// Resolve returns a copy of s with every Ref replaced by the ids in
// inserted (step number to id).
func (s WriteStep) Resolve(inserted map[int]string) (WriteStep, error) {
	out := s
	if s.IDFrom != 0 {
		id, ok := inserted[s.IDFrom]
		if !ok {
			return WriteStep{}, fmt.Errorf("no id for step %d", s.IDFrom)
		}
		out.ID = id
		out.IDFrom = 0
	}
	v, err := resolveValue(s.Value, inserted)
	if err != nil {
		return WriteStep{}, err
	}
	out.Value = v
	return out, nil
}

func resolveValue(v any, inserted map[int]string) (any, error) {
	switch t := v.(type) {
	case Ref:
		id, ok := inserted[t.Step]
		if !ok {
			return nil, fmt.Errorf("no id for step %d", t.Step)
		}
		return id, nil
	case store.Document:
		m, err := resolveValue(map[string]any(t), inserted)
		if err != nil {
			return nil, err
		}
		return store.Document(m.(map[string]any)), nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			r, err := resolveValue(val, inserted)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			r, err := resolveValue(val, inserted)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	case store.Match:
		r, err := resolveValue(t.Value, inserted)
		if err != nil {
			return nil, err
		}
		return store.Match{Field: t.Field, Value: r}, nil
	default:
		return v, nil
	}
}

func walkRefs(v any, fn func(Ref) error) error {
	switch t := v.(type) {
	case Ref:
		return fn(t)
	case store.Document:
		return walkRefs(map[string]any(t), fn)
	case map[string]any:
		for _, val := range t {
			if err := walkRefs(val, fn); err != nil {
				return err
			}
		}
	case []any:
		for _, val := range t {
			if err := walkRefs(val, fn); err != nil {
				return err
			}
		}
	case store.Match:
		return walkRefs(t.Value, fn)
	}
	return nil
}
