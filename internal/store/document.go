package store

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/iliyamo/cocktail-hub/internal/model"
)

// Document is a schemaless record as kept by the backends.  Values are
// always in their JSON-decoded form (map[string]any, []any, float64,
// string, bool, nil) so that every backend compares them the same way.
type Document map[string]any

// ID returns the document id or "".
func (d Document) ID() string {
	s, _ := d[model.FieldID].(string)
	return s
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return cloneValue(map[string]any(d)).(map[string]any)
}

// Encode converts any JSON-serializable value into a Document.
func Encode(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return doc, nil
}

// Decode fills out from doc.
func Decode(doc Document, out any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// Normalize returns v in JSON-decoded form.
func Normalize(v any) (any, error) {
	switch v.(type) {
	case nil, string, bool, float64:
		return v, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("normalize value: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("normalize value: %w", err)
	}
	return out, nil
}

// MatchElem reports whether elem is selected by m.  Both sides are
// compared in normalized form.
func MatchElem(elem any, m Match) (bool, error) {
	want, err := Normalize(m.Value)
	if err != nil {
		return false, err
	}
	if m.Field == "" {
		return reflect.DeepEqual(elem, want), nil
	}
	obj, ok := elem.(map[string]any)
	if !ok {
		return false, nil
	}
	got, ok := obj[m.Field]
	if !ok {
		return false, nil
	}
	return reflect.DeepEqual(got, want), nil
}

// MatchDocument reports whether doc satisfies every match.
func MatchDocument(doc Document, matches []Match) (bool, error) {
	for _, m := range matches {
		ok, err := MatchElem(map[string]any(doc), m)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// Array returns the array stored under field.  A missing or null field is
// an empty array.
func (d Document) Array(field string) ([]any, error) {
	v, ok := d[field]
	if !ok || v == nil {
		return nil, nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotArray, field)
	}
	return arr, nil
}

// Number returns the numeric value stored under field.  A missing field
// reads as zero.
func (d Document) Number(field string) (float64, error) {
	v, ok := d[field]
	if !ok || v == nil {
		return 0, nil
	}
	n, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotNumber, field)
	}
	return n, nil
}

// Pull splits arr into the elements kept and the elements matched by m.
func Pull(arr []any, m Match) ([]any, []any, error) {
	if m.Last {
		return pullLast(arr, m)
	}
	kept := make([]any, 0, len(arr))
	var removed []any
	for _, elem := range arr {
		ok, err := MatchElem(elem, m)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			removed = append(removed, elem)
			continue
		}
		kept = append(kept, elem)
	}
	return kept, removed, nil
}

func pullLast(arr []any, m Match) ([]any, []any, error) {
	for i := len(arr) - 1; i >= 0; i-- {
		ok, err := MatchElem(arr[i], m)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			kept := make([]any, 0, len(arr)-1)
			kept = append(kept, arr[:i]...)
			kept = append(kept, arr[i+1:]...)
			return kept, []any{arr[i]}, nil
		}
	}
	return arr, nil, nil
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}
