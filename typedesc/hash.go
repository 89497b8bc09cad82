package typedesc

// Hash is the 32-bit hash of a type name.
type Hash uint32

// HashString hashes a type name with djb2 (seed 5381, h*33 + c).
func HashString(s string) Hash {
	h := Hash(5381)
	for i := 0; i < len(s); i++ {
		h = h<<5 + h + Hash(s[i])
	}
	return h
}
