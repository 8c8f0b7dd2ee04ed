package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatches(t *testing.T) {
	fields := Fields{
		"userId": json.RawMessage(`"u1"`),
		"shelf":  json.RawMessage(`3`),
		"meta":   json.RawMessage(`{"b": 2, "a": 1}`),
	}

	tests := []struct {
		name  string
		preds []Predicate
		want  bool
	}{
		{"no predicates", nil, true},
		{"string", []Predicate{Eq("userId", "u1")}, true},
		{"string mismatch", []Predicate{Eq("userId", "u2")}, false},
		{"number", []Predicate{Eq("shelf", 3)}, true},
		{"number as string", []Predicate{Eq("shelf", "3")}, false},
		{"object key order", []Predicate{Eq("meta", map[string]int{"a": 1, "b": 2})}, true},
		{"missing is null", []Predicate{Eq("gone", nil)}, true},
		{"missing is not a value", []Predicate{Eq("gone", "x")}, false},
		{"all must hold", []Predicate{Eq("userId", "u1"), Eq("shelf", 4)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Matches(fields, tt.preds)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatches_UnencodablePredicate(t *testing.T) {
	_, err := Matches(Fields{}, []Predicate{Eq("x", make(chan int))})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDocument_Merge(t *testing.T) {
	doc := &Document{Fields: Fields{
		"name":  json.RawMessage(`"A"`),
		"books": json.RawMessage(`[]`),
	}}

	merged := doc.Merge(Fields{"books": json.RawMessage(`[1]`)})

	assert.JSONEq(t, `"A"`, string(merged["name"]))
	assert.JSONEq(t, `[1]`, string(merged["books"]))
	assert.JSONEq(t, `[]`, string(doc.Fields["books"]), "merge does not modify the document")
}

func TestCheckRevision(t *testing.T) {
	doc := &Document{Collection: "users", ID: "u1", Revision: 3}

	assert.NoError(t, CheckRevision(doc, nil))
	assert.NoError(t, CheckRevision(doc, []UpdateOption{IfRevision(3)}))
	assert.ErrorIs(t, CheckRevision(doc, []UpdateOption{IfRevision(2)}), ErrRevisionConflict)
}

func TestFieldsOf(t *testing.T) {
	fields, err := FieldsOf(struct {
		Name string `json:"name"`
	}{"Sci-Fi"})
	require.NoError(t, err)
	assert.JSONEq(t, `"Sci-Fi"`, string(fields["name"]))

	_, err = FieldsOf([]int{1})
	assert.Error(t, err, "arrays are not documents")
}

func TestDocument_Decode(t *testing.T) {
	doc := &Document{ID: "bc-1", Fields: Fields{"name": json.RawMessage(`"Sci-Fi"`)}}
	var v struct {
		Name string `json:"name"`
	}
	require.NoError(t, doc.Decode(&v))
	assert.Equal(t, "Sci-Fi", v.Name)
}

func TestError_IsByCode(t *testing.T) {
	err := ErrRevisionConflict.WithCause(assert.AnError)
	assert.ErrorIs(t, err, ErrRevisionConflict)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, assert.AnError)
}
