package picture

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumapix/lumapix/internal/access"
	"github.com/lumapix/lumapix/internal/pipeline"
	"github.com/lumapix/lumapix/internal/quota"
	"github.com/lumapix/lumapix/internal/storage"
	"github.com/lumapix/lumapix/internal/store"
	"github.com/lumapix/lumapix/pkg/api"
)

type stubAuthorizer struct{}

func (stubAuthorizer) Validate(string, int64) bool { return true }
func (stubAuthorizer) IsAdmin(string) bool         { return true }

// countingBlobStore wraps a BlobStore and counts writes.
type countingBlobStore struct {
	storage.BlobStore
	saves int
}

func (c *countingBlobStore) Save(ctx context.Context, key string, data []byte) error {
	c.saves++
	return c.BlobStore.Save(ctx, key, data)
}

type fixture struct {
	pictures store.PictureStore
	albums   store.AlbumStore
	limits   store.LimitStore
	blobs    *countingBlobStore
	quotas   quota.Engine
	service  Service
}

func newFixture() *fixture {

	pictures := store.NewMemoryPictureStore()
	albums := store.NewMemoryAlbumStore()
	limits := store.NewMemoryLimitStore()
	blobs := &countingBlobStore{BlobStore: storage.NewMemoryBlobStore()}

	gate := access.NewGate(albums)
	quotas := quota.NewEngine(pictures, limits, blobs, stubAuthorizer{}, 2*1024*1024*1024)

	return &fixture{
		pictures: pictures,
		albums:   albums,
		limits:   limits,
		blobs:    blobs,
		quotas:   quotas,
		service:  NewService(pictures, albums, blobs, gate, quotas),
	}
}

func newJpeg(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 64, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: pipeline.JpegQuality}))

	return buf.Bytes()
}

func TestInsertBelowEnvelopeDoublesConsumption(t *testing.T) {

	f := newFixture()
	ctx := context.Background()

	raw := newJpeg(t, 640, 480)

	id, err := f.service.Insert(ctx, 1, 0, raw)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	// no exif and inside the envelope: original and optimized are both the
	// raw bytes, recorded separately and summed
	consumption, err := f.quotas.Consumption(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2*len(raw)), consumption.Used)

	record, err := f.pictures.Find(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, int64(2*len(raw)), record.Size)
	assert.NotEmpty(t, record.OriginalKey)
	assert.NotEmpty(t, record.OptimizedKey)
	assert.Empty(t, record.DownloadCode, "download codes are lazily provisioned")
}

func TestInsertExceedingLimitWritesNothing(t *testing.T) {

	f := newFixture()
	ctx := context.Background()

	raw := newJpeg(t, 640, 480)

	// limit below the combined variant size
	require.NoError(t, f.limits.Save(ctx, 1, int64(len(raw))))

	_, err := f.service.Insert(ctx, 1, 0, raw)
	assert.ErrorIs(t, err, api.ErrStorageLimitExceeded)

	assert.Zero(t, f.blobs.saves, "no blob may be written")

	records, err := f.pictures.FindByUser(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, records, "no metadata may be written")
}

func TestInsertIntoMissingAlbumFails(t *testing.T) {

	f := newFixture()

	_, err := f.service.Insert(context.Background(), 1, 42, newJpeg(t, 10, 10))
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestFetchNotModified(t *testing.T) {

	f := newFixture()
	ctx := context.Background()

	id, err := f.service.Insert(ctx, 1, 0, newJpeg(t, 64, 48))
	require.NoError(t, err)

	first, err := f.service.Fetch(ctx, 1, "", id, false)
	require.NoError(t, err)
	assert.False(t, first.NotModified)
	assert.NotEmpty(t, first.Payload)
	assert.NotEmpty(t, first.Hash)

	second, err := f.service.Fetch(ctx, 1, first.Hash, id, false)
	require.NoError(t, err)
	assert.True(t, second.NotModified)
	assert.Equal(t, first.Hash, second.Hash)
	assert.Empty(t, second.Payload)

	// the full-size flag is part of the validator
	third, err := f.service.Fetch(ctx, 1, first.Hash, id, true)
	require.NoError(t, err)
	assert.False(t, third.NotModified)
	assert.NotEqual(t, first.Hash, third.Hash)
}

func TestFetchSelectsVariant(t *testing.T) {

	f := newFixture()
	ctx := context.Background()

	original := []byte("original-bytes")
	optimized := []byte("optimized")

	require.NoError(t, f.blobs.Save(ctx, "originals/x.jpg", original))
	require.NoError(t, f.blobs.Save(ctx, "optimized/x.jpg", optimized))

	id, err := f.pictures.Save(ctx, api.Picture{
		UserId:       1,
		OriginalKey:  "originals/x.jpg",
		OptimizedKey: "optimized/x.jpg",
	})
	require.NoError(t, err)

	resp, err := f.service.Fetch(ctx, 1, "", id, false)
	require.NoError(t, err)
	assert.Equal(t, optimized, resp.Payload)

	resp, err = f.service.Fetch(ctx, 1, "", id, true)
	require.NoError(t, err)
	assert.Equal(t, original, resp.Payload)

	// without an optimized variant the original is served either way
	bare, err := f.pictures.Save(ctx, api.Picture{UserId: 1, OriginalKey: "originals/x.jpg"})
	require.NoError(t, err)

	resp, err = f.service.Fetch(ctx, 1, "", bare, false)
	require.NoError(t, err)
	assert.Equal(t, original, resp.Payload)
}

func TestFetchAuthorization(t *testing.T) {

	f := newFixture()
	ctx := context.Background()

	id, err := f.service.Insert(ctx, 1, 0, newJpeg(t, 10, 10))
	require.NoError(t, err)

	_, err = f.service.Fetch(ctx, 2, "", id, false)
	assert.ErrorIs(t, err, api.ErrUnauthorized)

	_, err = f.service.Fetch(ctx, 1, "", 999, false)
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestDownloadByCode(t *testing.T) {

	f := newFixture()
	ctx := context.Background()

	id, err := f.service.Insert(ctx, 1, 0, newJpeg(t, 10, 10))
	require.NoError(t, err)

	record, err := f.pictures.Find(ctx, id)
	require.NoError(t, err)

	// unprovisioned code never matches
	_, err = f.service.DownloadByCode(ctx, id, "")
	assert.ErrorIs(t, err, api.ErrUnauthorized)

	record.DownloadCode = "secret-code"
	require.NoError(t, f.pictures.Update(ctx, *record))

	_, err = f.service.DownloadByCode(ctx, id, "wrong")
	assert.ErrorIs(t, err, api.ErrUnauthorized)

	resp, err := f.service.DownloadByCode(ctx, id, "secret-code")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Payload)
}

func TestRotateSwapsStoredDimensions(t *testing.T) {

	f := newFixture()
	ctx := context.Background()

	id, err := f.service.Insert(ctx, 1, 0, newJpeg(t, 10, 6))
	require.NoError(t, err)

	before, err := f.pictures.Find(ctx, id)
	require.NoError(t, err)

	require.NoError(t, f.service.Rotate(ctx, 1, id))

	resp, err := f.service.Fetch(ctx, 1, "", id, true)
	require.NoError(t, err)

	w, h, err := pipeline.Dimensions(resp.Payload)
	require.NoError(t, err)
	assert.Equal(t, 6, w)
	assert.Equal(t, 10, h)

	// rotating twice by 90 is a 180: dimensions back to the original
	require.NoError(t, f.service.Rotate(ctx, 1, id))

	resp, err = f.service.Fetch(ctx, 1, "", id, true)
	require.NoError(t, err)

	w, h, err = pipeline.Dimensions(resp.Payload)
	require.NoError(t, err)
	assert.Equal(t, 10, w)
	assert.Equal(t, 6, h)

	after, err := f.pictures.Find(ctx, id)
	require.NoError(t, err)
	assert.False(t, after.LastModified.Before(before.LastModified), "rotation refreshes the last-modified timestamp")
}

func TestRotateSkipsMissingOptimizedVariant(t *testing.T) {

	f := newFixture()
	ctx := context.Background()

	raw := newJpeg(t, 10, 6)
	require.NoError(t, f.blobs.Save(ctx, "originals/y.jpg", raw))

	// optimized key recorded but blob gone
	id, err := f.pictures.Save(ctx, api.Picture{
		UserId:       1,
		OriginalKey:  "originals/y.jpg",
		OptimizedKey: "optimized/y.jpg",
	})
	require.NoError(t, err)

	assert.NoError(t, f.service.Rotate(ctx, 1, id))
}

func TestRotateFailsWithoutOriginal(t *testing.T) {

	f := newFixture()
	ctx := context.Background()

	id, err := f.pictures.Save(ctx, api.Picture{UserId: 1, OriginalKey: "originals/gone.jpg"})
	require.NoError(t, err)

	err = f.service.Rotate(ctx, 1, id)
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestDeleteRemovesRecordAndBlobs(t *testing.T) {

	f := newFixture()
	ctx := context.Background()

	id, err := f.service.Insert(ctx, 1, 0, newJpeg(t, 10, 10))
	require.NoError(t, err)

	record, err := f.pictures.Find(ctx, id)
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(ctx, 1, id))

	gone, err := f.pictures.Find(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, gone)

	_, err = f.blobs.Find(ctx, record.OriginalKey)
	assert.ErrorIs(t, err, api.ErrNotFound)

	_, err = f.blobs.Find(ctx, record.OptimizedKey)
	assert.ErrorIs(t, err, api.ErrNotFound)
}
