package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tagmgr/internal/manifest"
	"github.com/roach88/tagmgr/internal/unit"
)

// Scenario defines a conformance test scenario: a manifest to run and the
// assertions its trace and final state must satisfy.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Manifest is the path of a manifest file (.yaml or .cue).
	// Relative paths are resolved against the scenario file's directory.
	// Mutually exclusive with Units.
	Manifest string `yaml:"manifest,omitempty"`

	// Serial overrides the manifest's scheduling mode.
	Serial *bool `yaml:"serial,omitempty"`

	// Page describes the host page of an inline manifest.
	Page manifest.Page `yaml:"page,omitempty"`

	// Units are the units of an inline manifest.
	Units []unit.Descriptor `yaml:"units,omitempty"`

	// Assertions validate the final trace and state.
	// Supported types: trace_contains, trace_order, trace_count, final_state, report
	Assertions []Assertion `yaml:"assertions"`

	// RunID is an optional fixed run id for the journal.
	// If empty, defaults to testutil.DefaultRunID.
	RunID string `yaml:"run_id,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": Check topic appears in trace (with mode, if set)
	// - "trace_order": Check topics appear in order
	// - "trace_count": Check topic appears exactly N times
	// - "final_state": Query a journal table and verify expected values
	// - "report": Compare run report fields
	Type string `yaml:"type"`

	// Topic is the full topic (used by trace_contains, trace_count).
	Topic string `yaml:"topic,omitempty"`

	// Mode is "sync" or "async" (optional, used by trace_contains).
	Mode string `yaml:"mode,omitempty"`

	// Topics is the expected topic order (used by trace_order).
	Topics []string `yaml:"topics,omitempty"`

	// Count is the expected number of occurrences (used by trace_count).
	Count int `yaml:"count,omitempty"`

	// Table is the journal table name (used by final_state).
	Table string `yaml:"table,omitempty"`

	// Where specifies query filters (used by final_state).
	// All fields must match exactly.
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect contains expected field values (used by final_state, report).
	// Subset match - only specified fields are validated.
	Expect map[string]interface{} `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertReport        = "report"
)

// ManifestNotFoundError is returned when a scenario references a manifest
// file that doesn't exist.
type ManifestNotFoundError struct {
	Scenario     string
	ManifestPath string
	ResolvedPath string
}

// Error implements the error interface.
func (e *ManifestNotFoundError) Error() string {
	return fmt.Sprintf(
		"scenario %q references manifest %q which does not exist (resolved to: %s)",
		e.Scenario,
		e.ManifestPath,
		e.ResolvedPath,
	)
}

// LoadScenario reads and parses a scenario YAML file. A relative manifest
// path is resolved against the scenario file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the manifest path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve manifest path BEFORE validation
	original := scenario.Manifest
	if scenario.Manifest != "" && !filepath.IsAbs(scenario.Manifest) && basePath != "" {
		scenario.Manifest = filepath.Join(basePath, scenario.Manifest)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	if scenario.Manifest != "" {
		if _, err := os.Stat(scenario.Manifest); os.IsNotExist(err) {
			return nil, &ManifestNotFoundError{
				Scenario:     scenario.Name,
				ManifestPath: original,
				ResolvedPath: scenario.Manifest,
			}
		}
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Manifest == "" && len(s.Units) == 0 {
		return fmt.Errorf("either manifest or units is required")
	}
	if s.Manifest != "" && len(s.Units) > 0 {
		return fmt.Errorf("manifest and units are mutually exclusive")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Topic == "" {
			return fmt.Errorf("assertions[%d]: topic is required for trace_contains", index)
		}
		switch a.Mode {
		case "", "sync", "async":
		default:
			return fmt.Errorf("assertions[%d]: mode must be sync or async, got %q", index, a.Mode)
		}
	case AssertTraceOrder:
		if len(a.Topics) == 0 {
			return fmt.Errorf("assertions[%d]: topics list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Topic == "" {
			return fmt.Errorf("assertions[%d]: topic is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertReport:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for report", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
