package utils

func SliceContains[K comparable](l []K, key K) bool {
	for _, k := range l {
		if k == key {
			return true
		}
	}
	return false
}

// SliceDifference returns the elements of a that are not in b, in order.
func SliceDifference[K comparable](a, b []K) []K {
	var out []K
	for _, k := range a {
		if !SliceContains(b, k) {
			out = append(out, k)
		}
	}
	return out
}
