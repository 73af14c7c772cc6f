package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// Scenario defines a query scenario: a program and the queries to run
// against it, each with its expected answer.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Program is the path of the CUE program to load.
	// Relative paths are resolved against the scenario file location.
	Program string `yaml:"program"`

	// Queries run in order against one engine.
	Queries []Query `yaml:"queries"`
}

// Query holds exactly one query.
type Query struct {
	Equal        *EqualQuery        `yaml:"equal,omitempty"`
	Justify      *JustifyQuery      `yaml:"justify,omitempty"`
	JustifyAll   *JustifyAllQuery   `yaml:"justify_all,omitempty"`
	Dependencies *DependenciesQuery `yaml:"dependencies,omitempty"`
}

// Query kinds, as written in scenarios and traces.
const (
	QueryEqual        = "equal"
	QueryJustify      = "justify"
	QueryJustifyAll   = "justify_all"
	QueryDependencies = "dependencies"
)

// Kind returns the name of the query set on q, or "" if none or several are.
func (q Query) Kind() string {
	var kinds []string
	if q.Equal != nil {
		kinds = append(kinds, QueryEqual)
	}
	if q.Justify != nil {
		kinds = append(kinds, QueryJustify)
	}
	if q.JustifyAll != nil {
		kinds = append(kinds, QueryJustifyAll)
	}
	if q.Dependencies != nil {
		kinds = append(kinds, QueryDependencies)
	}
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

// EqualQuery compares two items.
type EqualQuery struct {
	Left   string `yaml:"left"`
	Right  string `yaml:"right"`
	Limit  uint32 `yaml:"limit"`
	Expect string `yaml:"expect"`

	// Trim removes redundant substitutions from a yes before comparing.
	Trim bool `yaml:"trim,omitempty"`

	// LeftSubs and RightSubs map target names to rendered values.
	// If nil, substitutions are not checked.
	LeftSubs  map[string]string `yaml:"left_subs,omitempty"`
	RightSubs map[string]string `yaml:"right_subs,omitempty"`
}

// JustifyQuery searches for a justification of one statement.
type JustifyQuery struct {
	Context   string `yaml:"context"`
	Statement string `yaml:"statement"`
	Limit     uint32 `yaml:"limit"`
	Expect    string `yaml:"expect"`
}

// JustifyAllQuery discharges every requirement of the program.
type JustifyAllQuery struct {
	Expect string `yaml:"expect"`
}

// DependenciesQuery lists the free variables of an item.
type DependenciesQuery struct {
	Item string `yaml:"item"`

	// ExpectVars are the variable names in order. If nil, not checked.
	ExpectVars []string `yaml:"expect_vars,omitempty"`
}

// Expected outcomes.
var (
	equalOutcomes      = []string{"yes", "no", "unknown", "needs_higher_limit"}
	justifyOutcomes    = []string{"ok", "dead_end", "might_not_exist", "unresolved"}
	justifyAllOutcomes = []string{"ok", "unjustified"}
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "querys:" vs "queries:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Program != "" && !filepath.IsAbs(scenario.Program) {
		scenario.Program = filepath.Join(filepath.Dir(path), scenario.Program)
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
	if s.Program == "" {
		return fmt.Errorf("program is required")
	}
	if _, err := os.Stat(s.Program); os.IsNotExist(err) {
		return fmt.Errorf("program file not found: %s", s.Program)
	}
	if len(s.Queries) == 0 {
		return fmt.Errorf("queries list is required and must be non-empty")
	}
	for i, q := range s.Queries {
		if err := validateQuery(i, q); err != nil {
			return err
		}
	}
	return nil
}

func validateQuery(index int, q Query) error {
	switch q.Kind() {
	case QueryEqual:
		if q.Equal.Left == "" || q.Equal.Right == "" {
			return fmt.Errorf("queries[%d]: left and right are required for equal", index)
		}
		return validateOutcome(index, QueryEqual, q.Equal.Expect, equalOutcomes)
	case QueryJustify:
		if q.Justify.Context == "" || q.Justify.Statement == "" {
			return fmt.Errorf("queries[%d]: context and statement are required for justify", index)
		}
		return validateOutcome(index, QueryJustify, q.Justify.Expect, justifyOutcomes)
	case QueryJustifyAll:
		return validateOutcome(index, QueryJustifyAll, q.JustifyAll.Expect, justifyAllOutcomes)
	case QueryDependencies:
		if q.Dependencies.Item == "" {
			return fmt.Errorf("queries[%d]: item is required for dependencies", index)
		}
		return nil
	default:
		return fmt.Errorf("queries[%d]: exactly one of equal, justify, justify_all or dependencies is required", index)
	}
}

func validateOutcome(index int, kind, expect string, allowed []string) error {
	if !slices.Contains(allowed, expect) {
		return fmt.Errorf("queries[%d]: %s expect must be one of %v, got %q", index, kind, allowed, expect)
	}
	return nil
}
