package rewrite

import (
	"errors"
	"fmt"
	"strings"
)

// Rule renames one table identifier.
type Rule struct {
	Old string `yaml:"old"`
	New string `yaml:"new"`
}

// ValidateRules rejects rule sets that cannot be applied safely: empty identifiers,
// duplicate old identifiers, and chains where a new identifier is itself renamed,
// which would make a second run change the files again.
func ValidateRules(rules []Rule) error {
	if len(rules) == 0 {
		return errors.New("no replacement rules")
	}
	olds := make(map[string]struct{}, len(rules))
	for _, r := range rules {
		if r.Old == "" || r.New == "" {
			return fmt.Errorf("rule %q -> %q: identifiers must not be empty", r.Old, r.New)
		}
		if _, dup := olds[r.Old]; dup {
			return fmt.Errorf("duplicate rule for %q", r.Old)
		}
		olds[r.Old] = struct{}{}
	}
	for _, r := range rules {
		if _, chained := olds[r.New]; chained {
			return fmt.Errorf("rule %q -> %q: %q is renamed by another rule", r.Old, r.New, r.New)
		}
	}
	return nil
}

var quotes = []string{`"`, `'`}

// Apply replaces quoted string literals holding an old identifier with the new one,
// keeping the quote style. Unquoted occurrences are left alone.
func Apply(content string, rules []Rule) string {
	for _, r := range rules {
		for _, q := range quotes {
			content = strings.ReplaceAll(content, q+r.Old+q, q+r.New+q)
		}
	}
	return content
}
