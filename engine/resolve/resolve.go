// Package resolve maps entity names in parsed requests to entity IDs.
package resolve

import (
	"fmt"
	"strings"

	"github.com/nathoo/osricore/engine/state"
	"github.com/nathoo/osricore/types"
)

// AmbiguityError indicates multiple entities matched a name.
type AmbiguityError struct {
	Name       string
	Candidates []string
}

func (e *AmbiguityError) Error() string {
	names := strings.Join(e.Candidates, ", ")
	return fmt.Sprintf("which %s? (%s)", e.Name, names)
}

// NotFoundError indicates no entity matched a name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no one called %q is here", e.Name)
}

// Resolve returns req with its actor and targets replaced by entity IDs.
// req itself is not modified.
func Resolve(ents *state.Entities, req types.Request) (types.Request, error) {
	out := req
	out.Targets = nil

	if req.Actor != "" {
		id, err := Name(ents, req.Actor)
		if err != nil {
			return req, err
		}
		out.Actor = id
	}
	for _, t := range req.Targets {
		id, err := Name(ents, t)
		if err != nil {
			return req, err
		}
		out.Targets = append(out.Targets, id)
	}
	return out, nil
}

// Name resolves a single name to an entity ID: an exact ID first, then a
// case-insensitive match against entity names.
func Name(ents *state.Entities, name string) (string, error) {
	if ents.Has(name) {
		return name, nil
	}

	nameLower := strings.ToLower(name)
	var matches []string
	for _, id := range ents.IDs() {
		ent, _ := ents.Get(id)
		if matchesName(id, ent, nameLower) {
			matches = append(matches, id)
		}
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{Name: name}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguityError{Name: name, Candidates: matches}
	}
}

// matchesName checks the entity's name (exact or any single word) and its ID
// (case-insensitive, with "_" standing in for spaces).
func matchesName(id string, ent types.Entity, nameLower string) bool {
	entityNameLower := strings.ToLower(ent.Name)
	if entityNameLower != "" {
		if entityNameLower == nameLower {
			return true
		}
		// "goblin" matches "Goblin Archer".
		for _, word := range strings.Fields(entityNameLower) {
			if word == nameLower {
				return true
			}
		}
	}
	idLower := strings.ToLower(id)
	if idLower == nameLower {
		return true
	}
	return strings.ReplaceAll(nameLower, " ", "_") == idLower
}
