package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance check: which endpoint to call, with
// what, and what the call is meant to provoke.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Endpoint is "profile" or "list".
	Endpoint string `yaml:"endpoint"`

	// Intent is a conformance intent kind, e.g. "out_of_range".
	Intent string `yaml:"intent"`

	// Target selects the parameter values to send.
	Target Target `yaml:"target"`

	// Statuses narrows the accepted error statuses.
	Statuses []int `yaml:"statuses,omitempty"`

	// Fields constrains profile attributes (enumerated_field only).
	Fields []FieldSpec `yaml:"fields,omitempty"`
}

// Target selects request parameter values. Exactly one source is set.
type Target struct {
	// Fixture is "first" or "each" and draws from the session's fixture ids.
	Fixture string `yaml:"fixture,omitempty"`

	// Values are literal parameter values. An empty string is a valid value.
	Values []string `yaml:"values,omitempty"`

	// Contract names a contract value list, e.g. "categories".
	Contract string `yaml:"contract,omitempty"`

	// Omit sends the request without the parameter.
	Omit bool `yaml:"omit,omitempty"`
}

// FieldSpec is the YAML form of a conformance.FieldRule. The *_contract
// variants take their value from the loaded contract.
type FieldSpec struct {
	Field           string   `yaml:"field"`
	OneOf           []string `yaml:"one_of,omitempty"`
	OneOfContract   string   `yaml:"one_of_contract,omitempty"`
	Pattern         string   `yaml:"pattern,omitempty"`
	PatternContract string   `yaml:"pattern_contract,omitempty"`
	Min             *int64   `yaml:"min,omitempty"`
	MinContract     string   `yaml:"min_contract,omitempty"`
	NonEmpty        bool     `yaml:"non_empty,omitempty"`
}

// Endpoint names.
const (
	EndpointProfile = "profile"
	EndpointList    = "list"
)

// Fixture selectors.
const (
	FixtureFirst = "first"
	FixtureEach  = "each"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseScenario parses scenario YAML with strict field validation.
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

// validateScenario checks structural requirements. Intent kinds and
// contract references are checked when the scenario is planned.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch s.Endpoint {
	case EndpointProfile, EndpointList:
	case "":
		return fmt.Errorf("endpoint is required")
	default:
		return fmt.Errorf("unknown endpoint %q", s.Endpoint)
	}

	if s.Intent == "" {
		return fmt.Errorf("intent is required")
	}

	if err := validateTarget(s.Endpoint, &s.Target); err != nil {
		return err
	}

	for i, f := range s.Fields {
		if f.Field == "" {
			return fmt.Errorf("fields[%d]: field is required", i)
		}
		if len(f.OneOf) > 0 && f.OneOfContract != "" {
			return fmt.Errorf("fields[%d]: one_of and one_of_contract are mutually exclusive", i)
		}
		if f.Pattern != "" && f.PatternContract != "" {
			return fmt.Errorf("fields[%d]: pattern and pattern_contract are mutually exclusive", i)
		}
		if f.Min != nil && f.MinContract != "" {
			return fmt.Errorf("fields[%d]: min and min_contract are mutually exclusive", i)
		}
	}
	return nil
}

func validateTarget(endpoint string, t *Target) error {
	sources := 0
	if t.Fixture != "" {
		sources++
	}
	if len(t.Values) > 0 {
		sources++
	}
	if t.Contract != "" {
		sources++
	}
	if t.Omit {
		sources++
	}
	if sources != 1 {
		return fmt.Errorf("target: exactly one of fixture, values, contract, omit is required")
	}

	if t.Fixture != "" {
		if t.Fixture != FixtureFirst && t.Fixture != FixtureEach {
			return fmt.Errorf("target: unknown fixture selector %q", t.Fixture)
		}
		if endpoint != EndpointProfile {
			return fmt.Errorf("target: fixture ids apply to the profile endpoint only")
		}
	}
	if t.Omit && endpoint != EndpointList {
		return fmt.Errorf("target: omit applies to the list endpoint only; use values: [\"\"] for an empty id")
	}
	return nil
}
