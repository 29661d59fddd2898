package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/racetrack/internal/codec/hierarchical"
	"github.com/roach88/racetrack/internal/ir"
)

// Scenario defines one import scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Format of every document: xml or yaml. Defaults to yaml.
	Format string `yaml:"format,omitempty"`

	// Setup documents are imported before Document, in order. Setup
	// imports are expected to succeed.
	Setup []string `yaml:"setup,omitempty"`

	// Document is the import under test.
	Document string `yaml:"document"`

	// Expect lists what the import must produce.
	Expect Expect `yaml:"expect"`
}

// Expect holds the expectations of a scenario. Unset fields are not
// checked, except Error: an import that fails without an expected error
// always fails the scenario.
type Expect struct {
	// Error is the expected ir error code, e.g. RELATION_CYCLE.
	Error string `yaml:"error,omitempty"`

	// Message must be a substring of the error text.
	Message string `yaml:"message,omitempty"`

	// Pending lists the unresolved entries of a relation cycle error.
	Pending []string `yaml:"pending,omitempty"`

	// Report maps report counters to expected values. Keys are the
	// ReportFields.
	Report map[string]int `yaml:"report,omitempty"`

	// Counts maps type names to the number of stored instances.
	Counts map[string]int `yaml:"counts,omitempty"`
}

// ReportFields are the report counters a scenario can name.
var ReportFields = []string{
	"created",
	"skipped",
	"deferred",
	"late_assigned",
	"links_added",
	"links_present",
	"passes",
}

var errorCodes = []ir.ErrorCode{
	ir.CodeSchema,
	ir.CodeConversion,
	ir.CodeFormat,
	ir.CodeRelationCycle,
	ir.CodeStore,
}

// format returns the document format, defaulting to yaml.
func (s *Scenario) format() string {
	if s.Format == "" {
		return hierarchical.FormatYAML
	}
	return s.Format
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Reject unknown fields so that "expects:" is not silently ignored.
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", filepath.Base(path), err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var out []*Scenario
	seen := make(map[string]string)
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("scenario %q is defined in %s and %s", s.Name, prev, p)
		}
		seen[s.Name] = p
		out = append(out, s)
	}
	return out, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Document == "" {
		return fmt.Errorf("document is required")
	}

	if f := s.format(); f != hierarchical.FormatXML && f != hierarchical.FormatYAML {
		return fmt.Errorf("format %q: must be xml or yaml", s.Format)
	}

	for i, doc := range s.Setup {
		if doc == "" {
			return fmt.Errorf("setup[%d]: document is empty", i)
		}
	}

	e := s.Expect
	if e.Error != "" && !slices.Contains(errorCodes, ir.ErrorCode(e.Error)) {
		return fmt.Errorf("expect.error: unknown error code %q", e.Error)
	}
	if e.Error == "" && (e.Message != "" || len(e.Pending) > 0) {
		return fmt.Errorf("expect.message and expect.pending require expect.error")
	}
	for key := range e.Report {
		if !slices.Contains(ReportFields, key) {
			return fmt.Errorf("expect.report: unknown counter %q", key)
		}
	}

	return nil
}
