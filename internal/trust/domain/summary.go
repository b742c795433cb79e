package domain

// AddressList is an ordered, append-only set of addresses. Order is
// insertion order; duplicates are never added. Both the per-ratee rater set
// and the global peers list use this shape, which keeps the append-iff-absent
// contract explicit instead of hiding it in ad-hoc slice mutation.
type AddressList []string

// Contains reports whether address is a member of the list.
func (l AddressList) Contains(address string) bool {
	for _, member := range l {
		if member == address {
			return true
		}
	}
	return false
}

// Append returns the list with address appended iff it is not already a
// member. The receiver is not mutated.
func (l AddressList) Append(address string) AddressList {
	if l.Contains(address) {
		return l
	}
	next := make(AddressList, 0, len(l)+1)
	next = append(next, l...)
	return append(next, address)
}

// Summary is the derived reputation aggregate for one ratee. It must stay
// consistent with the full rating set for that ratee on every mutation;
// a mismatch is a replica divergence, not a recoverable error.
type Summary struct {
	TotalScore int         `json:"totalScore"`
	Count      int         `json:"count"`
	AvgScore   float64     `json:"avgScore"`
	LastRated  *int64      `json:"lastRated"`
	Raters     AddressList `json:"raters"`
}

// NewSummary returns a zero summary with an allocated rater list, matching
// the initial record shape written on first rating.
func NewSummary() Summary {
	return Summary{Raters: AddressList{}}
}
