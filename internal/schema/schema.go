// Package schema is the declarative table of denormalized mirrors.  Every
// event that touches more than one document is listed here once, as an
// ordered list of step templates, and Build expands it into a fanout.Plan.
package schema

import (
	"errors"
	"fmt"
	"sort"

	"github.com/iliyamo/cocktail-hub/internal/fanout"
	"github.com/iliyamo/cocktail-hub/internal/model"
	"github.com/iliyamo/cocktail-hub/internal/store"
)

var (
	// ErrUnknownEvent is returned by Build for events missing from the table.
	ErrUnknownEvent = errors.New("unknown event")
	// ErrMissingParam is returned when a template reads an absent parameter.
	ErrMissingParam = errors.New("missing parameter")
)

// Params carries the caller-resolved values a template reads.
type Params map[string]any

// binding is what a Value is evaluated against: the params plus, inside
// an Each expansion, the current item.
type binding struct {
	params Params
	item   map[string]any
	refs   map[int]int // template number -> step number
}

// Value is a declarative template value.
type Value struct {
	kind  string
	name  string
	lit   any
	ref   int
	obj   map[string]Value
	match *Value
}

// Param reads a caller parameter.
func Param(name string) Value { return Value{kind: "param", name: name} }

// Opt reads a caller parameter that may be absent, yielding nil.
func Opt(name string) Value { return Value{kind: "opt", name: name} }

// Lit is a constant.
func Lit(v any) Value { return Value{kind: "lit", lit: v} }

// Ref is the id produced by the Insert template with the given 1-based
// number.
func Ref(template int) Value { return Value{kind: "ref", ref: template} }

// Item reads a field of the current Each item.  An empty field yields the
// whole item.
func Item(field string) Value { return Value{kind: "item", name: field} }

// Obj builds an object from named values.
func Obj(fields map[string]Value) Value { return Value{kind: "obj", obj: fields} }

// MatchOn builds a store.Match selecting array elements whose field equals
// v.  An empty field compares whole elements.
func MatchOn(field string, v Value) Value {
	return Value{kind: "match", name: field, match: &v}
}

func (v Value) String() string {
	switch v.kind {
	case "param", "opt":
		return v.kind + "(" + v.name + ")"
	case "item":
		return "item(" + v.name + ")"
	case "ref":
		return fmt.Sprintf("ref(%d)", v.ref)
	case "lit":
		return fmt.Sprintf("lit(%v)", v.lit)
	case "obj":
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return fmt.Sprintf("obj%v", keys)
	case "match":
		return fmt.Sprintf("match(%s=%s)", v.name, v.match)
	}
	return "<none>"
}

func (v Value) isZero() bool { return v.kind == "" }

func (v Value) eval(b binding) (any, error) {
	switch v.kind {
	case "":
		return nil, nil
	case "param":
		val, ok := b.params[v.name]
		if !ok || val == nil {
			return nil, fmt.Errorf("%w %q", ErrMissingParam, v.name)
		}
		return val, nil
	case "opt":
		return b.params[v.name], nil
	case "lit":
		return v.lit, nil
	case "ref":
		n, ok := b.refs[v.ref]
		if !ok {
			return nil, fmt.Errorf("ref to template %d which is not an insert", v.ref)
		}
		return fanout.InsertedID(n), nil
	case "item":
		if b.item == nil {
			return nil, fmt.Errorf("item(%s) outside Each", v.name)
		}
		if v.name == "" {
			return b.item, nil
		}
		val, ok := b.item[v.name]
		if !ok {
			return nil, fmt.Errorf("%w: item field %q", ErrMissingParam, v.name)
		}
		return val, nil
	case "obj":
		out := make(map[string]any, len(v.obj))
		for k, fv := range v.obj {
			val, err := fv.eval(b)
			if err != nil {
				return nil, err
			}
			out[k] = val
		}
		return out, nil
	case "match":
		val, err := v.match.eval(b)
		if err != nil {
			return nil, err
		}
		return store.Match{Field: v.name, Value: val}, nil
	}
	return nil, fmt.Errorf("bad value kind %q", v.kind)
}

// StepTemplate is one write of an event.  ID selects the target document:
// a Param, an Item or a Ref to an earlier Insert template.
type StepTemplate struct {
	Target model.EntityType
	Op     fanout.Operation
	ID     Value
	Field  string
	Value  Value

	// When names a boolean param; the step is skipped unless it is true.
	When string
	// Each names a list param; the step is emitted once per item.
	Each string
}

// Build expands event into a plan using params.
func Build(event string, params Params) (fanout.Plan, error) {
	tmpls, ok := registry[event]
	if !ok {
		return fanout.Plan{}, fmt.Errorf("%w %q", ErrUnknownEvent, event)
	}
	plan := fanout.Plan{Event: event}
	refs := map[int]int{}
	for i, t := range tmpls {
		if t.When != "" {
			on, _ := params[t.When].(bool)
			if !on {
				continue
			}
		}
		items := []map[string]any{nil}
		if t.Each != "" {
			var err error
			if items, err = listParam(params, t.Each); err != nil {
				return fanout.Plan{}, fmt.Errorf("%s step %d: %w", event, i+1, err)
			}
		}
		for _, item := range items {
			step, err := t.expand(binding{params: params, item: item, refs: refs})
			if err != nil {
				return fanout.Plan{}, fmt.Errorf("%s step %d: %w", event, i+1, err)
			}
			plan.Steps = append(plan.Steps, step)
		}
		if t.Op == fanout.OpInsert && t.Each == "" && t.When == "" {
			refs[i+1] = len(plan.Steps)
		}
	}
	return plan, nil
}

func (t StepTemplate) expand(b binding) (fanout.WriteStep, error) {
	step := fanout.WriteStep{Target: t.Target, Op: t.Op, Field: t.Field}
	if !t.ID.isZero() {
		id, err := t.ID.eval(b)
		if err != nil {
			return step, err
		}
		switch v := id.(type) {
		case fanout.Ref:
			step.IDFrom = v.Step
		case string:
			if v == "" {
				return step, fmt.Errorf("%w: empty id for %s", ErrMissingParam, t.Target)
			}
			step.ID = v
		default:
			return step, fmt.Errorf("id for %s must be a string, got %T", t.Target, id)
		}
	}
	val, err := t.Value.eval(b)
	if err != nil {
		return step, err
	}
	if t.Op == fanout.OpInsert {
		if val, err = asDocument(val); err != nil {
			return step, err
		}
	}
	step.Value = val
	return step, nil
}

func asDocument(v any) (store.Document, error) {
	switch d := v.(type) {
	case store.Document:
		return d, nil
	case map[string]any:
		return store.Document(d), nil
	default:
		return store.Encode(v)
	}
}

func listParam(params Params, name string) ([]map[string]any, error) {
	raw, ok := params[name]
	if !ok || raw == nil {
		return nil, nil
	}
	norm, err := store.Normalize(raw)
	if err != nil {
		return nil, err
	}
	list, ok := norm.([]any)
	if !ok {
		return nil, fmt.Errorf("param %q must be a list, got %T", name, raw)
	}
	out := make([]map[string]any, 0, len(list))
	for _, e := range list {
		m, ok := e.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("param %q items must be objects", name)
		}
		out = append(out, m)
	}
	return out, nil
}

// Events returns every registered event name, sorted.
func Events() []string {
	out := make([]string, 0, len(registry))
	for e := range registry {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// Templates returns a copy of the templates for event.
func Templates(event string) []StepTemplate {
	return append([]StepTemplate(nil), registry[event]...)
}

// Mirror is one denormalized array or counter and the events that grow or
// shrink it.
type Mirror struct {
	Target model.EntityType
	Field  string
	Grow   []string
	Shrink []string
}

// Mirrors lists every array or counter field written by some event.
func Mirrors() []Mirror {
	type key struct {
		t model.EntityType
		f string
	}
	idx := map[key]*Mirror{}
	var order []key
	add := func(k key, event string, grow bool) {
		m, ok := idx[k]
		if !ok {
			m = &Mirror{Target: k.t, Field: k.f}
			idx[k] = m
			order = append(order, k)
		}
		list := &m.Shrink
		if grow {
			list = &m.Grow
		}
		for _, e := range *list {
			if e == event {
				return
			}
		}
		*list = append(*list, event)
	}
	for _, event := range Events() {
		for _, t := range registry[event] {
			k := key{t.Target, t.Field}
			switch t.Op {
			case fanout.OpArrayPush:
				add(k, event, true)
			case fanout.OpArrayPull:
				add(k, event, false)
			case fanout.OpIncrement:
				n, _ := t.Value.lit.(int64)
				add(k, event, n > 0)
			}
		}
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].t != order[j].t {
			return order[i].t < order[j].t
		}
		return order[i].f < order[j].f
	})
	out := make([]Mirror, 0, len(order))
	for _, k := range order {
		out = append(out, *idx[k])
	}
	return out
}
