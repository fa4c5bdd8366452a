package domain

// Roster is an insertion-ordered set of participant identifiers.
// It is not safe for concurrent use; the Catalog serialises access.
type Roster struct {
	order []string
	index map[string]struct{}
}

// NewRoster returns an empty roster.
func NewRoster() *Roster {
	return &Roster{index: make(map[string]struct{})}
}

// Add inserts id and reports whether it was absent.
func (r *Roster) Add(id string) bool {
	if _, ok := r.index[id]; ok {
		return false
	}
	r.index[id] = struct{}{}
	r.order = append(r.order, id)
	return true
}

// Remove deletes id and reports whether it was present.
func (r *Roster) Remove(id string) bool {
	if _, ok := r.index[id]; !ok {
		return false
	}
	delete(r.index, id)
	for i, member := range r.order {
		if member == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Contains reports membership.
func (r *Roster) Contains(id string) bool {
	_, ok := r.index[id]
	return ok
}

// Len returns the number of members.
func (r *Roster) Len() int {
	return len(r.order)
}

// Members returns a copy of the members in insertion order.
func (r *Roster) Members() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
