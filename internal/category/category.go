// Package category assigns a root cause category to each failure by
// running every rule in an embedded rule set and resolving conflicts by
// category priority.
package category

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var rulesYAML []byte

// Category is a root cause bucket.
type Category string

const (
	Timeout          Category = "TIMEOUT"
	ElementNotFound  Category = "ELEMENT_NOT_FOUND"
	AssertionFailure Category = "ASSERTION_FAILURE"
	EnvironmentIssue Category = "ENVIRONMENT_ISSUE"
	Other            Category = "OTHER"
)

// Evidence is everything a rule can look at for one failure.
type Evidence struct {
	TestName          string
	RootCause         string
	RecommendedAction string
	Log               string
	// PreTag is the upstream classification, re-checked by filter rules.
	PreTag Category
}

// Match records one rule that fired, kept for auditability.
type Match struct {
	Rule             string
	Category         Category
	RulePriority     int
	CategoryPriority int
}

type pairedPhrase struct {
	Phrase  string   `yaml:"phrase"`
	Context []string `yaml:"context"`
}

type ruleSpec struct {
	Name           string         `yaml:"name"`
	Category       Category       `yaml:"category"`
	Priority       int            `yaml:"priority"`
	AppliesTo      Category       `yaml:"applies_to"`
	Phrases        []string       `yaml:"phrases"`
	PairedPhrases  []pairedPhrase `yaml:"paired_phrases"`
	Patterns       []string       `yaml:"patterns"`
	AbsentPatterns []string       `yaml:"absent_patterns"`
}

type rule struct {
	spec     ruleSpec
	patterns []*regexp.Regexp
	absent   []*regexp.Regexp
}

type ruleFile struct {
	Categories map[Category]int `yaml:"categories"`
	Rules      []ruleSpec       `yaml:"rules"`
}

// Engine evaluates a compiled rule set.
type Engine struct {
	rules      []rule
	priorities map[Category]int
}

// Load parses and compiles the embedded rule set.
func Load() (*Engine, error) {
	return load(rulesYAML, "rules.yaml")
}

// LoadFile builds an Engine from a rule file on disk instead of the
// embedded set, for deployments that tune signatures without rebuilding.
func LoadFile(path string) (*Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return load(data, path)
}

func load(data []byte, source string) (*Engine, error) {
	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", source, err)
	}
	e := &Engine{priorities: rf.Categories}
	for _, spec := range rf.Rules {
		r := rule{spec: spec}
		for _, p := range spec.Patterns {
			re, err := regexp.Compile("(?is)" + p)
			if err != nil {
				return nil, fmt.Errorf("rule %s: compile %q: %w", spec.Name, p, err)
			}
			r.patterns = append(r.patterns, re)
		}
		for _, p := range spec.AbsentPatterns {
			re, err := regexp.Compile("(?is)" + p)
			if err != nil {
				return nil, fmt.Errorf("rule %s: compile %q: %w", spec.Name, p, err)
			}
			r.absent = append(r.absent, re)
		}
		e.rules = append(e.rules, r)
	}
	return e, nil
}

// normalizePreTag folds legacy upstream tags into the category set.
func normalizePreTag(c Category) Category {
	switch c {
	case "NETWORK_ISSUE", "ENVIRONMENT_FAILURE":
		return EnvironmentIssue
	case "":
		return Other
	default:
		return c
	}
}

// Classify runs every rule against the evidence and returns the winning
// category plus all matches for audit. With no match the normalized
// pre-tag stands.
func (e *Engine) Classify(ev Evidence) (Category, []Match) {
	preTag := normalizePreTag(ev.PreTag)
	haystack := strings.ToLower(ev.RootCause + " " + ev.RecommendedAction + " " + ev.Log)

	var matches []Match
	for _, r := range e.rules {
		if r.matches(preTag, haystack) {
			matches = append(matches, Match{
				Rule:             r.spec.Name,
				Category:         r.spec.Category,
				RulePriority:     r.spec.Priority,
				CategoryPriority: e.priorities[r.spec.Category],
			})
		}
	}
	if len(matches) == 0 {
		return preTag, nil
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].CategoryPriority != matches[j].CategoryPriority {
			return matches[i].CategoryPriority > matches[j].CategoryPriority
		}
		return matches[i].RulePriority > matches[j].RulePriority
	})
	return matches[0].Category, matches
}

func (r *rule) matches(preTag Category, haystack string) bool {
	if r.spec.AppliesTo != "" && preTag != r.spec.AppliesTo {
		return false
	}
	for _, ph := range r.spec.Phrases {
		if strings.Contains(haystack, ph) {
			return true
		}
	}
	for _, pp := range r.spec.PairedPhrases {
		if !strings.Contains(haystack, pp.Phrase) {
			continue
		}
		for _, ctx := range pp.Context {
			if strings.Contains(haystack, ctx) {
				return true
			}
		}
	}
	for _, re := range r.patterns {
		if re.MatchString(haystack) {
			return true
		}
	}
	if len(r.absent) > 0 {
		for _, re := range r.absent {
			if re.MatchString(haystack) {
				return false
			}
		}
		return true
	}
	return false
}
