package harness

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/tagmgr/internal/journal"
	"github.com/roach88/tagmgr/internal/page"
	"github.com/roach88/tagmgr/internal/runner"
)

// validIdentifier matches valid SQL identifiers (table/column names).
// Only allows alphanumeric and underscore, must start with letter or underscore.
// This prevents SQL injection via identifier interpolation.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string              // Assertion type for categorization
	Expected string              // Human-readable expected outcome
	Actual   string              // Human-readable actual outcome
	Trace    []runner.TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)

	// Expected vs Actual (most important info)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s\n", event.Seq, event.Mode, event.Topic)
		}
	}

	return buf.String()
}

// assertTraceContains checks if the trace contains a publish of the topic,
// in the given mode when one is set.
func assertTraceContains(trace []runner.TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Topic == assertion.Topic && (assertion.Mode == "" || event.Mode == assertion.Mode) {
			return nil
		}
	}

	expected := "topic " + assertion.Topic
	if assertion.Mode != "" {
		expected += " published " + assertion.Mode
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that topics were first published in the given
// order. Topics don't need to be consecutive.
func assertTraceOrder(trace []runner.TraceEvent, assertion Assertion) error {
	// Step 1: Find first position of each expected topic
	positions := make(map[string]int)
	for i, event := range trace {
		if _, seen := positions[event.Topic]; !seen {
			positions[event.Topic] = i + 1 // 1-indexed for readability
		}
	}

	// Step 2: Verify all topics found
	for _, topic := range assertion.Topics {
		if positions[topic] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all topics present: %v", assertion.Topics),
				Actual:   fmt.Sprintf("missing topic: %s", topic),
				Trace:    trace,
			}
		}
	}

	// Step 3: Verify order
	for i := 1; i < len(assertion.Topics); i++ {
		prev := assertion.Topics[i-1]
		curr := assertion.Topics[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("topics in order: %v", assertion.Topics),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks if the topic was published exactly Count times.
func assertTraceCount(trace []runner.TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Topic == assertion.Topic {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Topic),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertFinalState checks that exactly one journal row matches Where and
// that it holds the expected values (subset semantics). Queries on the
// events table are scoped to runID unless Where names run_id.
//
// Table and column names are validated against a whitelist pattern since
// identifiers can't be parameterized.
func assertFinalState(ctx context.Context, db *sql.DB, runID string, assertion Assertion) error {
	if assertion.Table == "" {
		return fmt.Errorf("final_state assertion requires table name")
	}

	if !validIdentifier.MatchString(assertion.Table) {
		return fmt.Errorf("invalid table name %q: must match pattern %s", assertion.Table, validIdentifier.String())
	}

	where := assertion.Where
	if assertion.Table == "events" && runID != "" {
		if _, ok := where["run_id"]; !ok {
			where = make(map[string]interface{}, len(assertion.Where)+1)
			for k, v := range assertion.Where {
				where[k] = v
			}
			where["run_id"] = runID
		}
	}

	whereSQL, whereArgs, err := buildWhereClause(where)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("SELECT * FROM %s", assertion.Table)
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}

	rows, err := db.QueryContext(ctx, query, whereArgs...)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("get columns: %w", err)
	}

	if !rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "row not found",
		}
	}

	values := make([]interface{}, len(columns))
	valuePtrs := make([]interface{}, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	if err := rows.Scan(valuePtrs...); err != nil {
		return fmt.Errorf("scan row: %w", err)
	}

	// Multiple matching rows would make the assertion ambiguous
	if rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	actualRow := make(map[string]interface{})
	for i, col := range columns {
		actualRow[col] = values[i]
	}

	for _, key := range sortedKeys(assertion.Expect) {
		expectedValue := assertion.Expect[key]
		actualValue, exists := actualRow[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in result columns: %v", key, columns),
			}
		}

		if !stateValuesEqual(expectedValue, actualValue) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expectedValue, expectedValue),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actualValue, actualValue),
			}
		}
	}

	return nil
}

// assertReport compares the run report against the expected fields.
// Recognized keys: done, stalled, pending, queued, units, executed, head,
// body. head and body are compared by element id.
func assertReport(rep *runner.Report, assertion Assertion) error {
	if rep == nil {
		return fmt.Errorf("report assertion requires a run report")
	}

	actual := map[string]interface{}{
		"done":     rep.Done,
		"stalled":  rep.Stalled,
		"pending":  rep.Pending,
		"queued":   rep.Queued,
		"units":    rep.Units,
		"executed": rep.Executed,
		"head":     elementIDs(rep.Head),
		"body":     elementIDs(rep.Body),
	}

	for _, key := range sortedKeys(assertion.Expect) {
		expectedValue := assertion.Expect[key]
		actualValue, ok := actual[key]
		if !ok {
			return fmt.Errorf("report assertion: unknown field %q", key)
		}

		equal := false
		if list, isList := actualValue.([]string); isList {
			equal = stringsEqual(expectedValue, list)
		} else {
			equal = stateValuesEqual(expectedValue, actualValue)
		}
		if !equal {
			return &AssertionError{
				Type:     AssertReport,
				Expected: fmt.Sprintf("%s = %v", key, expectedValue),
				Actual:   fmt.Sprintf("%s = %v", key, actualValue),
				Trace:    rep.Trace,
			}
		}
	}

	return nil
}

func elementIDs(elems []page.Element) []string {
	ids := make([]string, len(elems))
	for i, e := range elems {
		ids[i] = e.ID
	}
	return ids
}

// stringsEqual compares a decoded YAML list against actual.
func stringsEqual(expected interface{}, actual []string) bool {
	var list []interface{}
	switch exp := expected.(type) {
	case []interface{}:
		list = exp
	case []string:
		return reflect.DeepEqual(exp, actual) || (len(exp) == 0 && len(actual) == 0)
	case nil:
		return len(actual) == 0
	default:
		return false
	}
	if len(list) != len(actual) {
		return false
	}
	for i, v := range list {
		if fmt.Sprint(v) != actual[i] {
			return false
		}
	}
	return true
}

// buildWhereClause constructs parameterized WHERE clause from assertion.Where.
// Returns SQL fragment, arguments slice, and error. Keys are sorted for determinism.
func buildWhereClause(where map[string]interface{}) (string, []interface{}, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	keys := sortedKeys(where)
	clauses := make([]string, 0, len(keys))
	args := make([]interface{}, 0, len(keys))

	for _, key := range keys {
		if !validIdentifier.MatchString(key) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", key, validIdentifier.String())
		}
		clauses = append(clauses, fmt.Sprintf("%s = ?", key))
		args = append(args, toSQLValue(where[key]))
	}

	return strings.Join(clauses, " AND "), args, nil
}

// toSQLValue converts an interface{} value to a SQL-compatible value.
func toSQLValue(v interface{}) interface{} {
	switch val := v.(type) {
	case journal.Mode:
		return string(val)
	case string, int, int64, bool:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]interface{}) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := sortedKeys(where)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// stateValuesEqual compares expected and actual values.
// SQLite returns integers as int64 and stores booleans as 0/1.
func stateValuesEqual(expected, actual interface{}) bool {
	if expected == nil && actual == nil {
		return true
	}
	if expected == nil || actual == nil {
		return false
	}

	switch exp := expected.(type) {
	case string:
		switch act := actual.(type) {
		case string:
			return exp == act
		case []byte:
			return exp == string(act)
		}
		return false
	case int:
		switch act := actual.(type) {
		case int64:
			return int64(exp) == act
		case int:
			return exp == act
		}
		return false
	case int64:
		switch act := actual.(type) {
		case int64:
			return exp == act
		case int:
			return exp == int64(act)
		}
		return false
	case bool:
		switch act := actual.(type) {
		case bool:
			return exp == act
		case int64:
			return exp == (act != 0)
		}
		return false
	}

	return reflect.DeepEqual(expected, actual)
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Journal *journal.Journal
	RunID   string
	Ctx     context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides journal access for final_state assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			if actx == nil || actx.Journal == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires journal context", i)
			} else {
				ctx := actx.Ctx
				if ctx == nil {
					ctx = context.Background()
				}
				err = assertFinalState(ctx, actx.Journal.DB(), actx.RunID, assertion)
			}
		case AssertReport:
			err = assertReport(result.Report, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
