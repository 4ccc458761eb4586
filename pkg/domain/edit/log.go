package edit

import "slices"

// Log is the ordered list of edits applied since the last commit.
type Log struct {
	entries []Edit
}

// Record appends e.
func (l *Log) Record(e Edit) {
	l.entries = append(l.entries, e)
}

// Len returns the number of recorded edits.
func (l *Log) Len() int {
	return len(l.entries)
}

// Entries returns a copy of the recorded edits in application order.
func (l *Log) Entries() []Edit {
	return slices.Clone(l.entries)
}

// Take returns the recorded edits and empties the log.
func (l *Log) Take() []Edit {
	taken := l.entries
	l.entries = nil
	return taken
}
