package highspeed

import "slices"

// commonElements returns the elements present in every input list. Order
// follows the first list; duplicates within a list count once. An empty
// input yields an empty result.
func commonElements[T comparable](lists [][]T) []T {
	if len(lists) == 0 {
		return nil
	}

	common := make([]T, 0, len(lists[0]))
	seen := make(map[T]bool, len(lists[0]))
	for _, candidate := range lists[0] {
		if seen[candidate] {
			continue
		}
		seen[candidate] = true

		inAll := true
		for _, list := range lists[1:] {
			if !slices.Contains(list, candidate) {
				inAll = false
				break
			}
		}
		if inAll {
			common = append(common, candidate)
		}
	}
	return common
}
