// Package doccontext derives the document context string handed to every
// analysis and fix call.
package doccontext

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultLabel is used when a filename matches no rule.
	DefaultLabel = "General Legal Document"
	// FallbackContext is used when neither user text nor a filename is available.
	FallbackContext = "General legal document review"
)

// Rule maps filename substrings to a context label. A rule matches when the
// lower-cased filename contains any of its substrings.
type Rule struct {
	Contains []string `yaml:"contains"`
	Label    string   `yaml:"label"`
}

// DefaultRules is the built-in ordered rule list.
var DefaultRules = []Rule{
	{Contains: []string{"agreement"}, Label: "Agreement Document"},
	{Contains: []string{"offer", "letter"}, Label: "Offer Letter or Similar"},
	{Contains: []string{"sale"}, Label: "Sale Document"},
}

// Resolver resolves the effective context. The zero value uses DefaultRules.
type Resolver struct {
	Rules        []Rule
	DefaultLabel string
	Fallback     string
}

// Resolve returns a non-empty context string. Trimmed user text wins; otherwise
// the first matching filename rule; otherwise the default label for a named
// file, or the fallback when there is no filename at all.
func (r Resolver) Resolve(userText, fileName string) string {
	if trimmed := strings.TrimSpace(userText); trimmed != "" {
		return trimmed
	}

	name := strings.ToLower(strings.TrimSpace(fileName))
	if name == "" {
		if r.Fallback != "" {
			return r.Fallback
		}
		return FallbackContext
	}

	rules := r.Rules
	if rules == nil {
		rules = DefaultRules
	}
	for _, rule := range rules {
		for _, needle := range rule.Contains {
			needle = strings.ToLower(strings.TrimSpace(needle))
			if needle != "" && strings.Contains(name, needle) {
				return rule.Label
			}
		}
	}
	if r.DefaultLabel != "" {
		return r.DefaultLabel
	}
	return DefaultLabel
}

// Resolve applies the built-in rules.
func Resolve(userText, fileName string) string {
	return Resolver{}.Resolve(userText, fileName)
}

type rulesFile struct {
	Rules        []Rule `yaml:"rules"`
	DefaultLabel string `yaml:"default_label"`
	Fallback     string `yaml:"fallback"`
}

// LoadFile reads a YAML rule list. An empty path yields the built-in resolver.
func LoadFile(path string) (Resolver, error) {
	if strings.TrimSpace(path) == "" {
		return Resolver{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Resolver{}, fmt.Errorf("read context rules: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML rule list and validates it.
func Parse(data []byte) (Resolver, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Resolver{}, fmt.Errorf("parse context rules: %w", err)
	}
	if len(f.Rules) == 0 {
		return Resolver{}, errors.New("context rules: at least one rule is required")
	}
	for i, rule := range f.Rules {
		if strings.TrimSpace(rule.Label) == "" {
			return Resolver{}, fmt.Errorf("context rules: rule %d has no label", i)
		}
		if len(rule.Contains) == 0 {
			return Resolver{}, fmt.Errorf("context rules: rule %d (%s) has no substrings", i, rule.Label)
		}
	}
	return Resolver{
		Rules:        f.Rules,
		DefaultLabel: strings.TrimSpace(f.DefaultLabel),
		Fallback:     strings.TrimSpace(f.Fallback),
	}, nil
}
