package protocol

import "fmt"

// Ballot is unique increasing round ID.
// It’s convenient to use tuples as Ballot numbers.
// To generate it a proposer combines its ID with a local increasing counter: (counter, ID).
// To compare Ballot tuples, we compare the first component of the tuples and use ID only as a tiebreaker.
// The zero Ballot means "no ballot"; real ballots start at Counter 1.
type Ballot struct {
	Counter uint64
	NodeID  string
}

// Compare returns -1, 0 or +1 depending on whether b is lower, equal or higher than other.
func (b Ballot) Compare(other Ballot) int {
	switch {
	case b.Counter < other.Counter:
		return -1
	case b.Counter > other.Counter:
		return 1
	case b.NodeID < other.NodeID:
		return -1
	case b.NodeID > other.NodeID:
		return 1
	}
	return 0
}

// Less reports whether b orders strictly before other.
func (b Ballot) Less(other Ballot) bool {
	return b.Compare(other) < 0
}

// IsZero reports whether b is the empty ballot.
func (b Ballot) IsZero() bool {
	return b.Counter == 0 && b.NodeID == ""
}

func (b Ballot) String() string {
	if b.IsZero() {
		return "(none)"
	}
	return fmt.Sprintf("(%d,%s)", b.Counter, b.NodeID)
}
