// Package directive defines the activity directive value types scheduled in a plan.
package directive

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
	"sort"
	"strconv"
	"time"
)

// ID identifies an activity directive within a plan.
type ID int64

// String returns the decimal form of the ID.
func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseID parses a decimal directive ID.
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return ID(v), nil
}

// Directive is a single scheduled activity instance.
// Values are never mutated after construction; edits replace them.
type Directive struct {
	ID        ID             `json:"id" yaml:"id"`
	Type      string         `json:"type" yaml:"type"`
	Name      string         `json:"name,omitempty" yaml:"name,omitempty"`
	Start     Start          `json:"start" yaml:"start"`
	Arguments map[string]any `json:"arguments,omitempty" yaml:"arguments,omitempty"`
}

// WithStart returns a copy of the directive with a different start.
func (d Directive) WithStart(s Start) Directive {
	d.Start = s
	d.Arguments = maps.Clone(d.Arguments)
	return d
}

// IsAnchored reports whether the directive starts relative to another directive.
func (d Directive) IsAnchored() bool {
	return d.Start.Kind == StartAnchor
}

// AnchoredTo reports whether the directive is anchored directly to parent.
func (d Directive) AnchoredTo(parent ID) bool {
	return d.Start.Kind == StartAnchor && d.Start.ParentID == parent
}

// Fingerprint returns a deterministic hash of the directive content.
// Two directives are equal exactly when their fingerprints match.
func (d Directive) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(d.ID.String()))
	h.Write([]byte{0})
	h.Write([]byte(d.Type))
	h.Write([]byte{0})
	h.Write([]byte(d.Name))
	h.Write([]byte{0})
	h.Write([]byte(d.Start.canonical()))
	h.Write([]byte{0})
	h.Write([]byte(canonicalJSON(d.Arguments)))
	return hex.EncodeToString(h.Sum(nil))
}

// Equal compares two directives by value.
func (d Directive) Equal(other Directive) bool {
	if d.ID != other.ID || d.Type != other.Type || d.Name != other.Name {
		return false
	}
	return d.Fingerprint() == other.Fingerprint()
}

// NewDirective is a directive proposed by a scheduling algorithm before
// it has been assigned an ID.
type NewDirective struct {
	Type      string
	Name      string
	Start     Start
	Arguments map[string]any
}

// Resolve assigns an ID and produces the directive. For anchored starts the
// cached estimated start is computed from the parent's resolved anchor time.
func (n NewDirective) Resolve(id ID, parentAnchorTime time.Time) Directive {
	start := n.Start
	if start.Kind == StartAnchor {
		start.EstimatedStart = parentAnchorTime.Add(start.Offset)
	}
	return Directive{
		ID:        id,
		Type:      n.Type,
		Name:      n.Name,
		Start:     start,
		Arguments: maps.Clone(n.Arguments),
	}
}

// SameSet reports whether a and b hold the same directives, ignoring order.
func SameSet(a, b []Directive) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, d := range a {
		counts[d.Fingerprint()]++
	}
	for _, d := range b {
		fp := d.Fingerprint()
		if counts[fp] == 0 {
			return false
		}
		counts[fp]--
	}
	return true
}

// canonicalValue encodes v as JSON. Values JSON cannot hold, such as NaN,
// fall back to their Go syntax behind a prefix no JSON text starts with.
func canonicalValue(v any) []byte {
	if b, err := json.Marshal(v); err == nil {
		return b
	}
	return []byte("go:" + fmt.Sprintf("%#v", v))
}

func canonicalJSON(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([]byte, 0, 256)
	ordered = append(ordered, '{')
	for i, k := range keys {
		if i > 0 {
			ordered = append(ordered, ',')
		}
		keyJSON, _ := json.Marshal(k)
		ordered = append(ordered, keyJSON...)
		ordered = append(ordered, ':')
		ordered = append(ordered, canonicalValue(m[k])...)
	}
	ordered = append(ordered, '}')
	return string(ordered)
}
