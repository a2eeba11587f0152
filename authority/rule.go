// Package authority implements origin-based allow/deny lists
// (SPEC_FULL.md §3/§4.8): AuthorityRule, its manager, and AuthoritySlot.
package authority

import (
	"strings"

	"github.com/pkg/errors"
)

// Strategy selects whitelist vs blacklist semantics.
type Strategy uint8

const (
	White Strategy = iota
	Black
)

// Rule is the AuthorityRule of SPEC_FULL.md §3: LimitApp is a
// comma-separated list of origins, matched by exact token equality.
type Rule struct {
	ID       string
	Resource string
	// LimitApp is "a,aa,bbb" — exact-token match, never substring
	// (SPEC_FULL.md §8 "Authority exact-match": "a,aa" matches origin "a"
	// but not "aaa").
	LimitApp string
	Strategy Strategy

	origins map[string]struct{}
}

func NewRule(id, resource, limitApp string, strategy Strategy) (*Rule, error) {
	r := &Rule{ID: id, Resource: resource, LimitApp: limitApp, Strategy: strategy}
	if err := r.validate(); err != nil {
		return nil, err
	}
	r.compile()
	return r, nil
}

func (r *Rule) validate() error {
	if r.Resource == "" {
		return errors.New("authority: resource must not be empty")
	}
	return nil
}

func (r *Rule) compile() {
	r.origins = make(map[string]struct{})
	for _, tok := range strings.Split(r.LimitApp, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		r.origins[tok] = struct{}{}
	}
}

// Allows reports whether origin passes this rule. An empty origin always
// admits, per SPEC_FULL.md §4.8.
func (r *Rule) Allows(origin string) bool {
	if origin == "" {
		return true
	}
	_, present := r.origins[origin]
	switch r.Strategy {
	case White:
		return present
	case Black:
		return !present
	default:
		return true
	}
}
