// Package rules manages registration of style rules.
package rules

import (
	"github.com/donaldgifford/deflint/internal/cop"
)

var registered []cop.Rule

// Register adds a rule to the registry. Registration order is the rule's
// priority when two offences share a range.
func Register(r cop.Rule) {
	registered = append(registered, r)
}

// Rules returns all registered rules in priority order.
func Rules() []cop.Rule {
	return registered
}

// Lookup returns the registered rule with the given name.
func Lookup(name string) (cop.Rule, bool) {
	for _, r := range registered {
		if r.Name() == name {
			return r, true
		}
	}
	return nil, false
}
