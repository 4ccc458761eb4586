package storage

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/chronoplan/pkg/domain/activity"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/directive"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/plan"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/planning"
)

// planRecord is the on-disk layout of plan.yaml.
type planRecord struct {
	Version    int               `yaml:"version"`
	Horizon    horizonRecord     `yaml:"horizon"`
	Directives []directiveRecord `yaml:"directives"`
}

type horizonRecord struct {
	Start time.Time `yaml:"start"`
	End   time.Time `yaml:"end"`
}

// directiveRecord stores either At (absolute start) or Anchor.
type directiveRecord struct {
	ID        directive.ID   `yaml:"id" json:"id"`
	Type      string         `yaml:"type" json:"type"`
	Name      string         `yaml:"name,omitempty" json:"name,omitempty"`
	At        *time.Time     `yaml:"at,omitempty" json:"at,omitempty"`
	Anchor    *anchorRecord  `yaml:"anchor,omitempty" json:"anchor,omitempty"`
	Arguments map[string]any `yaml:"arguments,omitempty" json:"arguments,omitempty"`
}

type anchorRecord struct {
	Parent    directive.ID          `yaml:"parent" json:"parent"`
	Offset    time.Duration         `yaml:"offset" json:"offset"`
	Point     directive.AnchorPoint `yaml:"point,omitempty" json:"point,omitempty"`
	Estimated time.Time             `yaml:"estimated" json:"estimated"`
}

func toDirectiveRecord(d directive.Directive) directiveRecord {
	rec := directiveRecord{
		ID:        d.ID,
		Type:      d.Type,
		Name:      d.Name,
		Arguments: d.Arguments,
	}
	switch d.Start.Kind {
	case directive.StartAnchor:
		rec.Anchor = &anchorRecord{
			Parent:    d.Start.ParentID,
			Offset:    d.Start.Offset,
			Point:     d.Start.Point,
			Estimated: d.Start.EstimatedStart.UTC(),
		}
	default:
		at := d.Start.Time.UTC()
		rec.At = &at
	}
	return rec
}

func (rec directiveRecord) toDirective() (directive.Directive, error) {
	var start directive.Start
	switch {
	case rec.Anchor != nil && rec.At != nil:
		return directive.Directive{}, fmt.Errorf("directive %s has both an absolute and an anchored start", rec.ID)
	case rec.Anchor != nil:
		start = directive.Anchor(rec.Anchor.Parent, rec.Anchor.Offset, rec.Anchor.Point, rec.Anchor.Estimated.UTC())
	case rec.At != nil:
		start = directive.Absolute(rec.At.UTC())
	default:
		return directive.Directive{}, fmt.Errorf("directive %s has no start", rec.ID)
	}
	if err := start.Validate(); err != nil {
		return directive.Directive{}, fmt.Errorf("directive %s: %w", rec.ID, err)
	}
	return directive.Directive{
		ID:        rec.ID,
		Type:      rec.Type,
		Name:      rec.Name,
		Start:     start,
		Arguments: rec.Arguments,
	}, nil
}

func toPlanRecord(doc *planning.Document) planRecord {
	rec := planRecord{
		Version: doc.Version,
		Horizon: horizonRecord{Start: doc.Horizon.Start.UTC(), End: doc.Horizon.End.UTC()},
	}
	rec.Directives = make([]directiveRecord, 0, len(doc.Directives))
	for _, d := range doc.Directives {
		rec.Directives = append(rec.Directives, toDirectiveRecord(d))
	}
	return rec
}

func (rec planRecord) toDocument() (*planning.Document, error) {
	horizon, err := plan.NewHorizon(rec.Horizon.Start.UTC(), rec.Horizon.End.UTC())
	if err != nil {
		return nil, err
	}
	doc := &planning.Document{Version: rec.Version, Horizon: horizon}
	seen := make(map[directive.ID]bool, len(rec.Directives))
	for _, r := range rec.Directives {
		if seen[r.ID] {
			return nil, fmt.Errorf("%w: %s", plan.ErrDuplicateID, r.ID)
		}
		seen[r.ID] = true
		d, err := r.toDirective()
		if err != nil {
			return nil, err
		}
		doc.Directives = append(doc.Directives, d)
	}
	return doc, nil
}

// typesRecord is the on-disk layout of activity_types.yaml.
type typesRecord struct {
	Types []typeRecord `yaml:"types"`
}

type typeRecord struct {
	Name     string         `yaml:"name"`
	Duration durationRecord `yaml:"duration"`
	Schema   map[string]any `yaml:"schema,omitempty"`
}

type durationRecord struct {
	Kind      activity.DurationKind `yaml:"kind"`
	Fixed     time.Duration         `yaml:"fixed,omitempty"`
	Parameter string                `yaml:"parameter,omitempty"`
}

func (rec typeRecord) toType() (*activity.Type, error) {
	if rec.Name == "" {
		return nil, fmt.Errorf("activity type without a name")
	}
	rule := activity.DurationRule{Kind: rec.Duration.Kind}
	switch rec.Duration.Kind {
	case "", activity.DurationUncontrollable:
		rule.Kind = activity.DurationUncontrollable
	case activity.DurationFixed:
		rule.Fixed = rec.Duration.Fixed
	case activity.DurationControllable:
		if rec.Duration.Parameter == "" {
			return nil, fmt.Errorf("activity type %s: controllable duration needs a parameter", rec.Name)
		}
		rule.Parameter = rec.Duration.Parameter
	default:
		return nil, fmt.Errorf("activity type %s: duration kind %q cannot be declared in a file", rec.Name, rec.Duration.Kind)
	}
	return &activity.Type{Name: rec.Name, Schema: rec.Schema, Duration: rule}, nil
}

func toTypeRecord(t *activity.Type) typeRecord {
	return typeRecord{
		Name:   t.Name,
		Schema: t.Schema,
		Duration: durationRecord{
			Kind:      t.Duration.Kind,
			Fixed:     t.Duration.Fixed,
			Parameter: t.Duration.Parameter,
		},
	}
}
