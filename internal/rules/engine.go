// Package rules provides an ordered keyword classifier for ledger rows.
package rules

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"spendsense/internal/core"
)

//go:embed rules.yaml
var embeddedRules []byte

// Category is one named group of keywords. Keywords match as substrings of
// the case-folded description.
type Category struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// RuleSet represents the top-level YAML structure
type RuleSet struct {
	Categories []Category `yaml:"categories"`
}

// Engine classifies descriptions. It is immutable after construction and safe
// for concurrent use.
type Engine struct {
	categories []Category // declaration order, keywords folded
}

// NewEngine creates a classifier from YAML data
func NewEngine(data []byte) (*Engine, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("failed to parse YAML rules: %w", err)
	}
	return FromRuleSet(rs)
}

// FromRuleSet validates rs and builds an Engine from it.
func FromRuleSet(rs RuleSet) (*Engine, error) {
	seen := make(map[string]struct{}, len(rs.Categories))
	out := make([]Category, 0, len(rs.Categories))

	for i, c := range rs.Categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("category %d: name cannot be empty", i)
		}
		if strings.EqualFold(name, core.OtherCategory) {
			return nil, fmt.Errorf("category %d: %q is reserved for unmatched rows", i, name)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("category %d: duplicate name %q", i, name)
		}
		seen[name] = struct{}{}

		if len(c.Keywords) == 0 {
			return nil, fmt.Errorf("category %d (%s): at least one keyword is required", i, name)
		}
		kws := make([]string, 0, len(c.Keywords))
		for j, kw := range c.Keywords {
			kw = strings.TrimSpace(kw)
			if kw == "" {
				return nil, fmt.Errorf("category %d (%s): keyword %d cannot be empty", i, name, j)
			}
			kws = append(kws, fold(kw))
		}
		out = append(out, Category{Name: name, Keywords: kws})
	}

	return &Engine{categories: out}, nil
}

// Default returns the built-in rule set.
func Default() *Engine {
	e, err := NewEngine(embeddedRules)
	if err != nil {
		panic(fmt.Sprintf("embedded rules are invalid: %v", err))
	}
	return e
}

// LoadFromFile loads rules from a YAML file. An empty path yields the
// built-in rule set.
func LoadFromFile(path string) (*Engine, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file %s: %w", path, err)
	}
	e, err := NewEngine(data)
	if err != nil {
		return nil, fmt.Errorf("rules file %s: %w", path, err)
	}
	return e, nil
}

// Classify returns the first category, in declaration order, with a keyword
// contained in description. Unmatched descriptions are core.OtherCategory.
func (e *Engine) Classify(description string) string {
	d := fold(description)
	for _, c := range e.categories {
		for _, kw := range c.Keywords {
			if strings.Contains(d, kw) {
				return c.Name
			}
		}
	}
	return core.OtherCategory
}

// Categories returns the category names in declaration order, followed by
// core.OtherCategory.
func (e *Engine) Categories() []string {
	names := make([]string, 0, len(e.categories)+1)
	for _, c := range e.categories {
		names = append(names, c.Name)
	}
	return append(names, core.OtherCategory)
}

// Caser values carry state, so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}
