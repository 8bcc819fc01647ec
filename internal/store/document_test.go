package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type likeEntry struct {
	ID         string `json:"id"`
	CustomerID string `json:"customerId"`
}

func TestMatchElemNormalizesBothSides(t *testing.T) {
	elem, err := Normalize(likeEntry{ID: "l1", CustomerID: "c1"})
	require.NoError(t, err)

	tests := []struct {
		name string
		m    Match
		want bool
	}{
		{"field match", Where("customerId", "c1"), true},
		{"field mismatch", Where("customerId", "c2"), false},
		{"missing field", Where("username", "c1"), false},
		{"whole struct", Equal(likeEntry{ID: "l1", CustomerID: "c1"}), true},
		{"whole map", Equal(map[string]any{"id": "l1", "customerId": "c1"}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MatchElem(elem, tt.m)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchElemNumbers(t *testing.T) {
	ok, err := MatchElem(float64(3), Equal(3))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPrepareInsertAssignsID(t *testing.T) {
	doc, err := PrepareInsert(Document{"name": "x"})
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID())

	doc, err = PrepareInsert(Document{"id": "fixed"})
	require.NoError(t, err)
	assert.Equal(t, "fixed", doc.ID())
}

func TestMutators(t *testing.T) {
	doc := Document{"id": "d1", "tags": []any{"a"}, "count": float64(2), "name": "n"}

	n, err := PushElem(doc, "tags", "b")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []any{"a", "b"}, doc["tags"])

	n, err = PullElems(doc, "tags", Equal("a"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []any{"b"}, doc["tags"])

	require.NoError(t, AddNumber(doc, "count", -3))
	assert.Equal(t, float64(-1), doc["count"])

	assert.ErrorIs(t, AddNumber(doc, "name", 1), ErrNotNumber)
	_, err = PushElem(doc, "name", "x")
	assert.ErrorIs(t, err, ErrNotArray)
	assert.Error(t, SetField(doc, "id", "other"))
}

func TestPullLastRemovesOneElement(t *testing.T) {
	doc := Document{"tags": []any{"a", "b", "a"}}
	n, err := PullElems(doc, "tags", LastEqual("a"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []any{"a", "b"}, doc["tags"])

	n, err = PullElems(doc, "tags", LastEqual("z"))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, []any{"a", "b"}, doc["tags"])
}

func TestEncodeDecode(t *testing.T) {
	doc, err := Encode(likeEntry{ID: "l1", CustomerID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "l1", doc.ID())

	var out likeEntry
	require.NoError(t, Decode(doc, &out))
	assert.Equal(t, "c1", out.CustomerID)
}
