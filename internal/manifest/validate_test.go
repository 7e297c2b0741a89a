package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/tagmgr/internal/match"
	"github.com/roach88/tagmgr/internal/unit"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func validManifest() *Manifest {
	return &Manifest{
		Name:  "m",
		Units: []unit.Descriptor{{ID: "a", Type: unit.KindScript, Src: "a.js"}},
	}
}

func TestValidate_Valid(t *testing.T) {
	assert.Empty(t, Validate(validManifest()))
}

func TestValidate_Manifest(t *testing.T) {
	errs := Validate(&Manifest{})
	assert.Equal(t, []string{ErrNameRequired, ErrNoUnits}, codes(errs))
	assert.Equal(t, "name", errs[0].Field)
}

func TestValidate_Units(t *testing.T) {
	tests := []struct {
		name  string
		unit  unit.Descriptor
		codes []string
		field string
	}{
		{"unknown type", unit.Descriptor{Type: "iframe", Src: "x"}, []string{ErrUnknownKind}, "units[1].type"},
		{"missing type and src", unit.Descriptor{}, []string{ErrUnknownKind, ErrMissingSrc}, "units[1].type"},
		{"bad target", unit.Descriptor{Type: unit.KindJS, Src: "x", Inject: unit.Inject{Target: "footer"}}, []string{ErrInvalidInject}, "units[1].inject.target"},
		{"bad position", unit.Descriptor{ID: "p", Type: unit.KindJS, Src: "x", Inject: unit.Inject{Position: "middle"}}, []string{ErrInvalidInject}, "units[1](p).inject.position"},
		{"duplicate id", unit.Descriptor{ID: "a", Type: unit.KindJS, Src: "x"}, []string{ErrDuplicateUnitID}, "units[1](a).id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validManifest()
			m.Units = append(m.Units, tt.unit)

			errs := Validate(m)
			assert.Equal(t, tt.codes, codes(errs))
			if len(errs) > 0 {
				assert.Equal(t, tt.field, errs[0].Field)
			}
		})
	}
}

func TestValidate_Match(t *testing.T) {
	tests := []struct {
		name string
		cond match.Condition
		ok   bool
	}{
		{"path contains", match.Condition{Param: "path", Condition: "contains", Values: &match.Values{Scalar: "/x"}}, true},
		{"host regex", match.Condition{Param: "host", Condition: "regex", Values: &match.Values{Pattern: "^a\\."}}, true},
		{"cookie with name", match.Condition{Param: "cookie", ParamName: "c", Condition: "contains", Values: &match.Values{}}, true},
		{"daterange", match.Condition{Param: "date", Condition: "daterange", Values: &match.Values{Min: "2024-01-01", Max: "2024-12-31T23:59:59Z"}}, true},
		{"dow", match.Condition{Param: "date", Condition: "dow", Values: &match.Values{Days: []int{0, 6}}}, true},
		{"unknown param", match.Condition{Param: "referrer", Condition: "contains", Values: &match.Values{}}, false},
		{"query without name", match.Condition{Param: "query", Condition: "contains", Values: &match.Values{}}, false},
		{"missing values", match.Condition{Param: "path", Condition: "contains"}, false},
		{"bad regex", match.Condition{Param: "path", Condition: "regex", Values: &match.Values{Pattern: "("}}, false},
		{"date op on path", match.Condition{Param: "path", Condition: "dow", Values: &match.Values{}}, false},
		{"bad date", match.Condition{Param: "date", Condition: "daterange", Values: &match.Values{Min: "soon"}}, false},
		{"dow without days", match.Condition{Param: "date", Condition: "dow", Values: &match.Values{}}, false},
		{"dow out of range", match.Condition{Param: "date", Condition: "dow", Values: &match.Values{Days: []int{7}}}, false},
		{"date missing values", match.Condition{Param: "date", Condition: "dow"}, false},
		{"contains on date", match.Condition{Param: "date", Condition: "contains", Values: &match.Values{}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validManifest()
			m.Units[0].Match = []match.Condition{tt.cond}

			errs := Validate(m)
			if tt.ok {
				assert.Empty(t, errs)
				return
			}
			if assert.Len(t, errs, 1) {
				assert.Equal(t, ErrInvalidMatch, errs[0].Code)
				assert.Equal(t, "units[0](a).match[0]", errs[0].Field)
			}
		})
	}
}

func TestValidate_Page(t *testing.T) {
	m := validManifest()
	m.Page = Page{URL: "http://[::1", Now: "2024-03-13"}
	assert.Equal(t, []string{ErrInvalidPage}, codes(Validate(m)))

	m.Page = Page{Now: "someday"}
	assert.Equal(t, []string{ErrInvalidPage}, codes(Validate(m)))
}

func TestValidationError_Error(t *testing.T) {
	e := ValidationError{Field: "name", Message: "name is required", Code: ErrNameRequired}
	assert.Equal(t, "[E201] name: name is required", e.Error())
}
