package directive

import (
	"fmt"
	"strconv"
	"time"
)

// StartKind tags the variant held by a Start.
type StartKind string

const (
	StartAbsolute StartKind = "absolute"
	StartAnchor   StartKind = "anchor"
)

// AnchorPoint selects which end of the parent an anchored directive is relative to.
type AnchorPoint string

const (
	AnchorStart AnchorPoint = "start"
	AnchorEnd   AnchorPoint = "end"
)

// IsValid checks if the anchor point is known.
func (p AnchorPoint) IsValid() bool {
	switch p {
	case AnchorStart, AnchorEnd:
		return true
	default:
		return false
	}
}

// Start is the start specification of a directive. Only the fields of the
// variant named by Kind are meaningful.
type Start struct {
	Kind StartKind `json:"kind" yaml:"kind"`

	// Absolute
	Time time.Time `json:"time,omitempty" yaml:"time,omitempty"`

	// Anchor
	ParentID       ID            `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Offset         time.Duration `json:"offset,omitempty" yaml:"offset,omitempty"`
	Point          AnchorPoint   `json:"point,omitempty" yaml:"point,omitempty"`
	EstimatedStart time.Time     `json:"estimated_start,omitempty" yaml:"estimated_start,omitempty"`
}

// Absolute returns a start fixed at t.
func Absolute(t time.Time) Start {
	return Start{Kind: StartAbsolute, Time: t}
}

// Anchor returns a start relative to the parent directive.
func Anchor(parent ID, offset time.Duration, point AnchorPoint, estimated time.Time) Start {
	if point == "" {
		point = AnchorStart
	}
	return Start{
		Kind:           StartAnchor,
		ParentID:       parent,
		Offset:         offset,
		Point:          point,
		EstimatedStart: estimated,
	}
}

// Estimate returns the absolute time for absolute starts and the cached
// estimate for anchored ones.
func (s Start) Estimate() time.Time {
	if s.Kind == StartAnchor {
		return s.EstimatedStart
	}
	return s.Time
}

// Validate checks the variant fields are consistent.
func (s Start) Validate() error {
	switch s.Kind {
	case StartAbsolute:
		return nil
	case StartAnchor:
		if !s.Point.IsValid() {
			return fmt.Errorf("invalid anchor point %q", s.Point)
		}
		return nil
	default:
		return fmt.Errorf("unknown start kind %q", s.Kind)
	}
}

func (s Start) String() string {
	switch s.Kind {
	case StartAnchor:
		return fmt.Sprintf("anchor(%s %s %+v)", s.ParentID, s.Point, s.Offset)
	default:
		return s.Time.UTC().Format(time.RFC3339)
	}
}

func (s Start) canonical() string {
	switch s.Kind {
	case StartAnchor:
		return string(s.Kind) + "|" + s.ParentID.String() + "|" +
			strconv.FormatInt(int64(s.Offset), 10) + "|" + string(s.Point) + "|" +
			s.EstimatedStart.UTC().Format(time.RFC3339Nano)
	default:
		return string(StartAbsolute) + "|" + s.Time.UTC().Format(time.RFC3339Nano)
	}
}
