package registry

import "math/bits"

// validity is a fixed-size bitmask with one bit per type slot. A cleared bit
// is a tombstone.
type validity []uint64

func newValidity(n int) validity {
	return make(validity, (n+63)/64)
}

func (v validity) set(i int) {
	v[i>>6] |= 1 << (uint(i) & 63)
}

func (v validity) clear(i int) {
	v[i>>6] &^= 1 << (uint(i) & 63)
}

func (v validity) has(i int) bool {
	return v[i>>6]&(1<<(uint(i)&63)) != 0
}

func (v validity) count() int {
	n := 0
	for _, w := range v {
		n += bits.OnesCount64(w)
	}
	return n
}
