package album

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lumapix/lumapix/pkg/api"
)

func TestDefaultOrderIsUploadDescending(t *testing.T) {

	day1 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)

	pictures := []api.Picture{
		{Id: 1, UploadedAt: day1},
		{Id: 2, UploadedAt: day2},
	}

	sortPictures(pictures, false)

	assert.Equal(t, int64(2), pictures[0].Id, "newest upload first")
	assert.Equal(t, int64(1), pictures[1].Id)
}

func TestSameDayTieBreaksOnCaptureTime(t *testing.T) {

	uploaded := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	pictures := []api.Picture{
		{Id: 1, UploadedAt: uploaded, CapturedAt: uploaded.Add(-2 * time.Hour)},
		{Id: 2, UploadedAt: uploaded.Add(time.Minute), CapturedAt: uploaded.Add(-1 * time.Hour)},
	}

	// uploaded the same day: upload order is ignored, the later capture
	// timestamp sorts first
	sortPictures(pictures, false)

	assert.Equal(t, int64(2), pictures[0].Id)
	assert.Equal(t, int64(1), pictures[1].Id)
}

func TestChronologicalFlipsEntireComparator(t *testing.T) {

	day1 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)

	pictures := []api.Picture{
		{Id: 1, UploadedAt: day2},
		{Id: 2, UploadedAt: day1, CapturedAt: day1.Add(-1 * time.Hour)},
		{Id: 3, UploadedAt: day1.Add(time.Minute), CapturedAt: day1.Add(-2 * time.Hour)},
	}

	sortPictures(pictures, true)

	// the sign flip inverts the same-day tie-break too: the older capture
	// sorts first among the day1 pair, then the day2 picture
	assert.Equal(t, int64(3), pictures[0].Id)
	assert.Equal(t, int64(2), pictures[1].Id)
	assert.Equal(t, int64(1), pictures[2].Id)
}

func TestCombineSharedUsers(t *testing.T) {

	combined := combineSharedUsers([]int64{2, 3}, []int64{3, 4, 2, 5})
	assert.Equal(t, []int64{2, 3, 4, 5}, combined)

	// idempotent
	assert.Equal(t, combined, combineSharedUsers(combined, []int64{4, 5}))

	// nil current is a valid empty set
	assert.Equal(t, []int64{7}, combineSharedUsers(nil, []int64{7, 7}))
	assert.Empty(t, combineSharedUsers(nil, nil))
}
