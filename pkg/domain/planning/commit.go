package planning

import (
	"slices"
	"time"

	"github.com/felixgeelhaar/chronoplan/pkg/domain/edit"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/staleness"
)

// Commit is the boundary past which edits can no longer be rolled back.
//
// The validity set is shared with the editable plan until the next edit:
// results obtained in that window are added to it, so a later rollback to this
// commit can mark them valid again. Only the plan mutates the set.
type Commit struct {
	ID   string
	At   time.Time
	diff []edit.Edit
	set  staleness.SetID
}

// Diff returns the total compacted diff as of this commit.
func (c *Commit) Diff() []edit.Edit {
	return slices.Clone(c.diff)
}

// ValiditySet returns the validity set held by the commit.
func (c *Commit) ValiditySet() staleness.SetID {
	return c.set
}
