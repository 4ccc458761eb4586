// Package edit records the create and delete operations applied to a plan
// and compacts them into a minimal net diff.
package edit

import (
	"fmt"
	"slices"

	"github.com/felixgeelhaar/chronoplan/pkg/domain/directive"
)

// Kind tags an edit.
type Kind string

const (
	KindCreate Kind = "create"
	KindDelete Kind = "delete"
)

// Edit is a change made to the plan: a Create or a Delete of one directive.
type Edit struct {
	Kind      Kind                `json:"kind" yaml:"kind"`
	Directive directive.Directive `json:"directive" yaml:"directive"`
}

// Create returns an edit creating d.
func Create(d directive.Directive) Edit {
	return Edit{Kind: KindCreate, Directive: d}
}

// Delete returns an edit deleting d.
func Delete(d directive.Directive) Edit {
	return Edit{Kind: KindDelete, Directive: d}
}

// Inverse returns the edit that undoes e.
func (e Edit) Inverse() Edit {
	switch e.Kind {
	case KindCreate:
		return Delete(e.Directive)
	case KindDelete:
		return Create(e.Directive)
	default:
		panic(fmt.Sprintf("edit: unknown kind %q", e.Kind))
	}
}

// Key identifies the edit by kind and directive content.
func (e Edit) Key() string {
	return string(e.Kind) + ":" + e.Directive.Fingerprint()
}

// Equal compares edits by value.
func (e Edit) Equal(other Edit) bool {
	return e.Kind == other.Kind && e.Directive.Equal(other.Directive)
}

func (e Edit) String() string {
	return fmt.Sprintf("%s(%s %s @ %s)", e.Kind, e.Directive.Type, e.Directive.ID, e.Directive.Start)
}

// Compact folds next into prior. An edit whose inverse is already present
// cancels it; any other edit is appended. Neither input is modified.
func Compact(prior, next []Edit) []Edit {
	diff := slices.Clone(prior)
	for _, e := range next {
		inverse := e.Inverse().Key()
		idx := slices.IndexFunc(diff, func(existing Edit) bool {
			return existing.Key() == inverse
		})
		if idx >= 0 {
			diff = slices.Delete(diff, idx, idx+1)
			continue
		}
		diff = append(diff, e)
	}
	return diff
}

// References reports whether any edit in diff mentions directive id.
func References(diff []Edit, id directive.ID) bool {
	return slices.ContainsFunc(diff, func(e Edit) bool {
		return e.Directive.ID == id
	})
}
