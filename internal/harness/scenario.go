package harness

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sumstate/internal/record"
)

// Scenario is a scripted sequence of invocations against a fresh ledger.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Program labels the program ID. Defaults to "program".
	Program string `yaml:"program,omitempty"`

	// Batch is the batch token prefix. Defaults to "batch".
	Batch string `yaml:"batch,omitempty"`

	// Accounts are created before the first step.
	Accounts []AccountSpec `yaml:"accounts"`

	// Steps are invoked in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final ledger.
	Assertions []Assertion `yaml:"assertions"`
}

// AccountSpec declares one initial account.
type AccountSpec struct {
	Name string `yaml:"name"`

	// Owner is "program" (default), "system", or any other label, which
	// maps to a stable key derived from the label.
	Owner string `yaml:"owner,omitempty"`

	// Record or Data sets the initial bytes. Neither means a zero record.
	Record *record.Record `yaml:"record,omitempty"`
	Data   *string        `yaml:"data,omitempty"`
}

// Step is one invocation.
type Step struct {
	// Accounts are account names in instruction order.
	Accounts []string `yaml:"accounts"`

	// Payload or PayloadHex sets the instruction data.
	Payload    *record.Record `yaml:"payload,omitempty"`
	PayloadHex *string        `yaml:"payload_hex,omitempty"`

	// Readonly passes every account read-only.
	Readonly bool `yaml:"readonly,omitempty"`

	// Expect checks the step outcome. If nil, the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the expected outcome of a step.
type Expect struct {
	// Status is the expected status code (e.g. "OK", "WRONG_OWNER").
	Status string `yaml:"status"`

	// Record is the expected record of the first account after the step.
	Record *record.Record `yaml:"record,omitempty"`
}

// Assertion validates the final ledger.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Account is the account name (final_record, unchanged).
	Account string `yaml:"account,omitempty"`

	// Record is the expected final record (final_record).
	Record *record.Record `yaml:"record,omitempty"`

	// Status and Count are used by status_count.
	Status string `yaml:"status,omitempty"`
	Count  int    `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalRecord       = "final_record"
	AssertUnchanged         = "unchanged"
	AssertStatusCount       = "status_count"
	AssertHistoryConsistent = "history_consistent"
)

// Owner aliases.
const (
	OwnerProgram = "program"
	OwnerSystem  = "system"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
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

// LoadScenarioDir loads every *.yaml and *.yml file in dir, sorted by path.
func LoadScenarioDir(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", dir, err)
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks required fields and cross references.
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

	names := make(map[string]bool, len(s.Accounts))
	for i, a := range s.Accounts {
		if a.Name == "" {
			return fmt.Errorf("accounts[%d]: name is required", i)
		}
		if names[a.Name] {
			return fmt.Errorf("accounts[%d]: duplicate name %q", i, a.Name)
		}
		names[a.Name] = true
		if a.Record != nil && a.Data != nil {
			return fmt.Errorf("accounts[%d]: record and data are mutually exclusive", i)
		}
		if a.Data != nil {
			if _, err := hex.DecodeString(*a.Data); err != nil {
				return fmt.Errorf("accounts[%d]: data: %w", i, err)
			}
		}
	}

	for i, step := range s.Steps {
		if step.Payload == nil && step.PayloadHex == nil {
			return fmt.Errorf("steps[%d]: payload or payload_hex is required", i)
		}
		if step.Payload != nil && step.PayloadHex != nil {
			return fmt.Errorf("steps[%d]: payload and payload_hex are mutually exclusive", i)
		}
		if step.PayloadHex != nil {
			if _, err := hex.DecodeString(*step.PayloadHex); err != nil {
				return fmt.Errorf("steps[%d]: payload_hex: %w", i, err)
			}
		}
		if step.Expect != nil && step.Expect.Status == "" {
			return fmt.Errorf("steps[%d].expect: status is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, names); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, names map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFinalRecord:
		if a.Record == nil {
			return fmt.Errorf("assertions[%d]: record is required for final_record", index)
		}
		fallthrough
	case AssertUnchanged:
		if a.Account == "" {
			return fmt.Errorf("assertions[%d]: account is required for %s", index, a.Type)
		}
		if !names[a.Account] {
			return fmt.Errorf("assertions[%d]: unknown account %q", index, a.Account)
		}
	case AssertStatusCount:
		if a.Status == "" {
			return fmt.Errorf("assertions[%d]: status is required for status_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for status_count", index)
		}
	case AssertHistoryConsistent:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
