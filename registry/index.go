package registry

import "github.com/wippyai/hotreflect/typedesc"

type slotState uint8

const (
	slotEmpty slotState = iota
	slotUsed
	// slotDeleted keeps probe chains intact after a removal. Lookups skip it,
	// inserts may reuse it.
	slotDeleted
)

type slot struct {
	hash  typedesc.Hash
	id    typedesc.TypeID
	state slotState
}

// index is an open-addressed hash -> id table with linear probing.
// Capacity is fixed at construction.
type index struct {
	slots []slot
	used  int
	dead  int
}

func newIndex(capacity int) index {
	if capacity < 1 {
		capacity = 1
	}
	return index{slots: make([]slot, capacity)}
}

func (x *index) start(h typedesc.Hash) int {
	return int(uint32(h) % uint32(len(x.slots)))
}

// find returns the position of the used slot holding h, probing from
// h mod capacity and stopping at the first empty slot.
func (x *index) find(h typedesc.Hash) (int, bool) {
	n := len(x.slots)
	pos := x.start(h)
	for i := 0; i < n; i++ {
		s := &x.slots[pos]
		switch s.state {
		case slotEmpty:
			return -1, false
		case slotUsed:
			if s.hash == h {
				return pos, true
			}
		}
		pos++
		if pos == n {
			pos = 0
		}
	}
	return -1, false
}

// insert stores (h, id) in the first empty or deleted slot along the probe
// sequence. Callers check for an existing entry with find first.
func (x *index) insert(h typedesc.Hash, id typedesc.TypeID) bool {
	n := len(x.slots)
	pos := x.start(h)
	for i := 0; i < n; i++ {
		s := &x.slots[pos]
		if s.state != slotUsed {
			if s.state == slotDeleted {
				x.dead--
			}
			*s = slot{hash: h, id: id, state: slotUsed}
			x.used++
			return true
		}
		pos++
		if pos == n {
			pos = 0
		}
	}
	return false
}

// remove marks the slot holding (h, id) deleted. Returns false when the pair
// is not present.
func (x *index) remove(h typedesc.Hash, id typedesc.TypeID) bool {
	pos, ok := x.find(h)
	if !ok || x.slots[pos].id != id {
		return false
	}
	x.slots[pos] = slot{hash: h, state: slotDeleted}
	x.used--
	x.dead++
	return true
}

// probeLength returns how many slots a lookup for h inspects.
func (x *index) probeLength(h typedesc.Hash) int {
	n := len(x.slots)
	pos := x.start(h)
	for i := 0; i < n; i++ {
		s := &x.slots[pos]
		if s.state == slotEmpty || (s.state == slotUsed && s.hash == h) {
			return i + 1
		}
		pos++
		if pos == n {
			pos = 0
		}
	}
	return n
}
