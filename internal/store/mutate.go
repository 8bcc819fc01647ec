package store

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/iliyamo/cocktail-hub/internal/model"
)

// The helpers below mutate a single decoded document in place.  Backends
// load the document, call one of them and persist the result, which keeps
// the semantics identical across memory and SQL storage.

// PrepareInsert normalizes doc and assigns an id when it has none.
func PrepareInsert(doc Document) (Document, error) {
	norm, err := Normalize(map[string]any(doc))
	if err != nil {
		return nil, err
	}
	out, ok := norm.(map[string]any)
	if !ok {
		out = map[string]any{}
	}
	if id, _ := out[model.FieldID].(string); id == "" {
		out[model.FieldID] = NewID()
	}
	return Document(out), nil
}

// NewID returns a fresh document id.
func NewID() string {
	return uuid.NewString()
}

// SetField stores value under field.
func SetField(doc Document, field string, value any) error {
	if field == "" || field == model.FieldID {
		return fmt.Errorf("field %q cannot be set", field)
	}
	norm, err := Normalize(value)
	if err != nil {
		return err
	}
	doc[field] = norm
	return nil
}

// PushElem appends elem to the array under field.
func PushElem(doc Document, field string, elem any) (int, error) {
	arr, err := doc.Array(field)
	if err != nil {
		return 0, err
	}
	norm, err := Normalize(elem)
	if err != nil {
		return 0, err
	}
	doc[field] = append(arr, norm)
	return 1, nil
}

// PullElems removes every element of the array under field selected by m.
func PullElems(doc Document, field string, m Match) (int, error) {
	arr, err := doc.Array(field)
	if err != nil {
		return 0, err
	}
	kept, removed, err := Pull(arr, m)
	if err != nil {
		return 0, err
	}
	if len(removed) > 0 {
		doc[field] = kept
	}
	return len(removed), nil
}

// AddNumber adds delta to the number under field.
func AddNumber(doc Document, field string, delta int64) error {
	n, err := doc.Number(field)
	if err != nil {
		return err
	}
	doc[field] = n + float64(delta)
	return nil
}
