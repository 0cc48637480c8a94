package album

import (
	"sort"
	"time"

	"github.com/lumapix/lumapix/pkg/api"
)

// comparePictures is the default ("reverse-chronological") comparator: when
// two pictures were uploaded on the same calendar day they order by capture
// timestamp descending, otherwise by upload timestamp descending. Returns a
// negative value when a sorts before b.
func comparePictures(a, b *api.Picture) int {

	if sameDay(a, b) {
		return compareTimesDesc(a.CapturedAt, b.CapturedAt)
	}

	return compareTimesDesc(a.UploadedAt, b.UploadedAt)
}

// sameDay reports whether two pictures were uploaded on the same calendar
// day (same year and day-of-year).
func sameDay(a, b *api.Picture) bool {
	return a.UploadedAt.Year() == b.UploadedAt.Year() &&
		a.UploadedAt.YearDay() == b.UploadedAt.YearDay()
}

func compareTimesDesc(a, b time.Time) int {
	switch {
	case a.After(b):
		return -1
	case a.Before(b):
		return 1
	default:
		return 0
	}
}

// sortPictures orders the pictures in the album's sort order. A chronological
// album inverts the entire default comparator (oldest uploaded first, same-day
// tie-break inverted too): a global sign flip, not an independent ascending
// rule.
func sortPictures(pictures []api.Picture, chronological bool) {

	sign := 1
	if chronological {
		sign = -1
	}

	sort.SliceStable(pictures, func(i, j int) bool {
		return sign*comparePictures(&pictures[i], &pictures[j]) < 0
	})
}

// combineSharedUsers merges the album's current shared-user set with the ids
// to add, dropping duplicates. It is idempotent and order independent.
func combineSharedUsers(current, toAdd []int64) []int64 {

	seen := make(map[int64]struct{}, len(current)+len(toAdd))
	combined := make([]int64, 0, len(current)+len(toAdd))

	for _, id := range current {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			combined = append(combined, id)
		}
	}

	for _, id := range toAdd {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			combined = append(combined, id)
		}
	}

	return combined
}
