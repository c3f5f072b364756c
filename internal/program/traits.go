package program

import (
	"quill/internal/ast"
	"strings"
)

// Resolution is the outcome of an insteadof lookup for two conflicting trait methods.
type Resolution int

const (
	NoRule Resolution = iota
	UseNew
	UseExisting
)

func (r Resolution) String() string {
	switch r {
	case UseNew:
		return "use-new"
	case UseExisting:
		return "use-existing"
	default:
		return "no-rule"
	}
}

// Alias is one `as` rule applying to a trait method.
type Alias struct {
	Name          string // empty when the rule only changes visibility
	Visibility    ast.Visibility
	HasVisibility bool
}

// TraitMap holds the composition rules of one class. It is used while linking and then dropped.
type TraitMap struct {
	aliases map[string][]Alias // method|trait, trait may be empty
	exclude map[string]bool    // method|excluded trait|winning trait
}

func NewTraitMap(uses []*ast.TraitUse) *TraitMap {
	m := &TraitMap{aliases: map[string][]Alias{}, exclude: map[string]bool{}}
	for _, use := range uses {
		for _, r := range use.Rules {
			if len(r.InsteadOf) > 0 {
				for _, loser := range r.InsteadOf {
					m.exclude[traitKey(r.Method, loser, r.Trait)] = true
				}
				continue
			}
			k := traitKey(r.Method, r.Trait)
			m.aliases[k] = append(m.aliases[k], Alias{Name: r.Alias, Visibility: r.AliasVis, HasVisibility: r.HasVisibility})
		}
	}
	return m
}

func traitKey(parts ...string) string {
	return strings.ToLower(strings.Join(parts, "|"))
}

// Aliases returns the `as` rules for method coming from trait, qualified rules first.
func (m *TraitMap) Aliases(method, trait string) []Alias {
	out := append([]Alias(nil), m.aliases[traitKey(method, trait)]...)
	return append(out, m.aliases[traitKey(method, "")]...)
}

// InsteadOf decides between method from trait (new) and the same method already taken from
// conflicting (existing).
func (m *TraitMap) InsteadOf(method, trait, conflicting string) Resolution {
	switch {
	case m.exclude[traitKey(method, conflicting, trait)]:
		return UseNew
	case m.exclude[traitKey(method, trait, conflicting)]:
		return UseExisting
	default:
		return NoRule
	}
}

// Excluded reports whether some rule removes method of trait in favour of another trait.
func (m *TraitMap) Excluded(method, trait string) bool {
	prefix := traitKey(method, trait) + "|"
	for k := range m.exclude {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}
