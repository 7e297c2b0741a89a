package manifest

import (
	"fmt"
	"regexp"

	"github.com/roach88/tagmgr/internal/match"
	"github.com/roach88/tagmgr/internal/unit"
)

// Validate checks a parsed manifest, its match conditions and its page.
// Returns all errors found (does not fail-fast).
func Validate(m *Manifest) []ValidationError {
	var errs []ValidationError

	// E201: name is required
	if m.Name == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "name is required", Code: ErrNameRequired})
	}

	// E202: at least one unit required
	if len(m.Units) == 0 {
		errs = append(errs, ValidationError{Field: "units", Message: "at least one unit is required", Code: ErrNoUnits})
	}

	errs = append(errs, validatePage(m.Page)...)

	seen := make(map[string]int)
	for i, d := range m.Units {
		field := fmt.Sprintf("units[%d]", i)
		if d.ID != "" {
			field = fmt.Sprintf("units[%d](%s)", i, d.ID)

			// E208: duplicate id
			if first, dup := seen[d.ID]; dup {
				errs = append(errs, ValidationError{
					Field:   field + ".id",
					Message: fmt.Sprintf("id %q already used by units[%d]", d.ID, first),
					Code:    ErrDuplicateUnitID,
				})
			} else {
				seen[d.ID] = i
			}
		}
		errs = append(errs, validateUnit(field, d)...)
	}

	return errs
}

func validateUnit(field string, d unit.Descriptor) []ValidationError {
	var errs []ValidationError

	// E203: unknown type
	if !d.Type.Valid() {
		errs = append(errs, ValidationError{
			Field:   field + ".type",
			Message: fmt.Sprintf("unknown unit type %q (want script, js, block-script or html)", d.Type),
			Code:    ErrUnknownKind,
		})
	}

	// E204: src is required
	if d.Src == "" {
		errs = append(errs, ValidationError{Field: field + ".src", Message: "src is required", Code: ErrMissingSrc})
	}

	// E205: inject target and position
	switch d.Inject.Target {
	case "", unit.TargetHead, unit.TargetBody:
	default:
		errs = append(errs, ValidationError{
			Field:   field + ".inject.target",
			Message: fmt.Sprintf("unknown target %q (want head or body)", d.Inject.Target),
			Code:    ErrInvalidInject,
		})
	}
	switch d.Inject.Position {
	case "", unit.AtStart, unit.AtEnd:
	default:
		errs = append(errs, ValidationError{
			Field:   field + ".inject.position",
			Message: fmt.Sprintf("unknown position %q (want start or end)", d.Inject.Position),
			Code:    ErrInvalidInject,
		})
	}

	for j, c := range d.Match {
		errs = append(errs, validateCondition(fmt.Sprintf("%s.match[%d]", field, j), c)...)
	}

	return errs
}

// validateCondition rejects conditions the checker would silently pass or
// fail: unknown params, operators that do not apply to the param, missing
// operands, bad patterns and dates.
func validateCondition(field string, c match.Condition) []ValidationError {
	invalid := func(format string, args ...any) []ValidationError {
		return []ValidationError{{Field: field, Message: fmt.Sprintf(format, args...), Code: ErrInvalidMatch}}
	}

	switch c.Param {
	case match.ParamPath, match.ParamHost:
	case match.ParamQuery, match.ParamCookie:
		if c.ParamName == "" {
			return invalid("param_name is required for %s", c.Param)
		}
	case match.ParamDate:
		return validateDateCondition(c, invalid)
	default:
		return invalid("unknown param %q", c.Param)
	}

	if c.Values == nil {
		return invalid("values are required")
	}
	switch c.Condition {
	case match.OpContains:
	case match.OpRegex:
		if _, err := regexp.Compile("(?i)" + c.Values.Pattern); err != nil {
			return invalid("invalid pattern %q: %v", c.Values.Pattern, err)
		}
	default:
		return invalid("unknown condition %q for %s (want contains or regex)", c.Condition, c.Param)
	}
	return nil
}

func validateDateCondition(c match.Condition, invalid func(string, ...any) []ValidationError) []ValidationError {
	if c.Values == nil {
		return invalid("values are required")
	}
	switch c.Condition {
	case match.OpDateRange:
		for _, bound := range []string{c.Values.Min, c.Values.Max} {
			if bound == "" {
				continue
			}
			if _, err := match.ParseDate(bound); err != nil {
				return invalid("invalid date %q", bound)
			}
		}
	case match.OpDayOfWeek:
		if len(c.Values.Days) == 0 {
			return invalid("days are required for dow")
		}
		for _, d := range c.Values.Days {
			if d < 0 || d > 6 {
				return invalid("day %d out of range 0-6", d)
			}
		}
	default:
		return invalid("unknown condition %q for date (want daterange or dow)", c.Condition)
	}
	return nil
}

func validatePage(p Page) []ValidationError {
	if _, err := p.Context(); err != nil {
		return []ValidationError{{Field: "page", Message: err.Error(), Code: ErrInvalidPage}}
	}
	return nil
}
