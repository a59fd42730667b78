package thread

import "sort"

// SortOption selects the projection order for a comment list.
type SortOption string

const (
	SortNewest  SortOption = "newest"
	SortOldest  SortOption = "oldest"
	SortPopular SortOption = "popular"
)

// Valid reports whether the option is one of the supported sorts.
func (s SortOption) Valid() bool {
	switch s {
	case SortNewest, SortOldest, SortPopular:
		return true
	}
	return false
}

// Project returns a sorted view of comments without mutating the input.
// "popular" orders by descending score; equal scores fall back to newest
// first so the ordering is deterministic.
func Project(comments []Comment, by SortOption) []Comment {
	out := make([]Comment, len(comments))
	copy(out, comments)

	switch by {
	case SortOldest:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
	case SortPopular:
		sort.SliceStable(out, func(i, j int) bool {
			si, sj := out[i].Score(), out[j].Score()
			if si != sj {
				return si > sj
			}
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	default: // SortNewest
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}
	return out
}
