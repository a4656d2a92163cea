package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a resolution scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is CUE source declaring the record types the steps use.
	Schema string `yaml:"schema"`

	// Prefetch, when positive, resolves with that many concurrent reads.
	Prefetch int `yaml:"prefetch,omitempty"`

	// Steps run in order against one store.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and final store contents.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step operations.
const (
	OpCreate  = "create"
	OpSave    = "save"
	OpDelete  = "delete"
	OpLoad    = "load"
	OpLoadID  = "load_id"
	OpLookup  = "lookup"
	OpDetail  = "detail"
	OpHistory = "history"
)

// Step is one operation against the dataset source.
type Step struct {
	Op string `yaml:"op"`

	// As labels the id the step mints.
	As string `yaml:"as,omitempty"`

	// Dataset is the label of the dataset the step works in.
	Dataset string `yaml:"dataset,omitempty"`

	// Name, Parent, Imports and NonTemporal configure create. Parent
	// defaults to the root. Omitting imports imports the parent; an empty
	// list imports nothing.
	Name        string   `yaml:"name,omitempty"`
	Parent      string   `yaml:"parent,omitempty"`
	Imports     []string `yaml:"imports,omitempty"`
	NonTemporal bool     `yaml:"non_temporal,omitempty"`

	Type   string         `yaml:"type,omitempty"`
	Key    string         `yaml:"key,omitempty"`
	Record map[string]any `yaml:"record,omitempty"`

	// ID is the version label load_id addresses.
	ID string `yaml:"id,omitempty"`

	// Cutoff is a version label or temporal id. For detail steps it sets
	// the dataset's CutoffTime.
	Cutoff string `yaml:"cutoff,omitempty"`

	// ReadOnly and ImportsCutoff configure detail.
	ReadOnly      bool   `yaml:"read_only,omitempty"`
	ImportsCutoff string `yaml:"imports_cutoff,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected outcome of a step.
type Expect struct {
	// Error is the expected error code, e.g. READ_ONLY.
	Error string `yaml:"error,omitempty"`

	// Null expects a load to find nothing.
	Null bool `yaml:"null,omitempty"`

	// Record is a subset match against the loaded record.
	Record map[string]any `yaml:"record,omitempty"`

	// Lookup is the exact list of labels a lookup or history step returns.
	Lookup []string `yaml:"lookup,omitempty"`
}

// Assertion types.
const (
	AssertTraceCount = "trace_count"
	AssertTraceOrder = "trace_order"
	AssertVersions   = "versions"
)

// Assertion validates the trace or final store contents.
type Assertion struct {
	// Type is trace_count, trace_order, or versions.
	Type string `yaml:"type"`

	// Op and Count check how many steps of an op ran (trace_count).
	Op    string `yaml:"op,omitempty"`
	Count int    `yaml:"count,omitempty"`

	// IDs lists labels that must appear in this order among minted ids
	// (trace_order).
	IDs []string `yaml:"ids,omitempty"`

	// RecordType and Count check the stored row count of a type (versions).
	RecordType string `yaml:"record_type,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
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
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.Prefetch < 0 {
		return fmt.Errorf("prefetch must not be negative")
	}

	for i, step := range s.Steps {
		if err := validateStep(&step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(&a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(s *Step) error {
	need := func(field, value string) error {
		if value == "" {
			return fmt.Errorf("%s is required for %s", field, s.Op)
		}
		return nil
	}
	var errs []error
	switch s.Op {
	case OpCreate:
		errs = append(errs, need("name", s.Name))
	case OpSave:
		errs = append(errs, need("type", s.Type), need("dataset", s.Dataset))
		if s.Record == nil {
			errs = append(errs, fmt.Errorf("record is required for save"))
		}
	case OpDelete, OpLoad, OpHistory:
		errs = append(errs, need("type", s.Type), need("dataset", s.Dataset), need("key", s.Key))
	case OpLoadID:
		errs = append(errs, need("type", s.Type), need("id", s.ID))
	case OpLookup, OpDetail:
		errs = append(errs, need("dataset", s.Dataset))
	case "":
		return fmt.Errorf("op is required")
	default:
		return fmt.Errorf("unknown op %q", s.Op)
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	if s.Expect != nil && s.Expect.Null && s.Expect.Record != nil {
		return fmt.Errorf("expect: null and record are mutually exclusive")
	}
	return nil
}

func validateAssertion(a *Assertion) error {
	switch a.Type {
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("op is required for trace_count")
		}
	case AssertTraceOrder:
		if len(a.IDs) == 0 {
			return fmt.Errorf("ids list is required for trace_order")
		}
	case AssertVersions:
		if a.RecordType == "" {
			return fmt.Errorf("record_type is required for versions")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	if a.Count < 0 {
		return fmt.Errorf("count must be non-negative")
	}
	return nil
}
