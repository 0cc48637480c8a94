package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumapix/lumapix/pkg/api"
)

func TestPictureIdsAreMaxPlusOne(t *testing.T) {

	pictures := NewMemoryPictureStore()
	ctx := context.Background()

	first, err := pictures.Save(ctx, api.Picture{UserId: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)

	second, err := pictures.Save(ctx, api.Picture{UserId: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second)

	// deleting the newest record frees its id for reuse
	require.NoError(t, pictures.Delete(ctx, second))

	reused, err := pictures.Save(ctx, api.Picture{UserId: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), reused)
}

func TestFindReturnsNilForAbsentRecords(t *testing.T) {

	ctx := context.Background()

	picture, err := NewMemoryPictureStore().Find(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, picture)

	album, err := NewMemoryAlbumStore().Find(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, album)
}

func TestAlbumFindByUserIncludesShares(t *testing.T) {

	albums := NewMemoryAlbumStore()
	ctx := context.Background()

	_, err := albums.Save(ctx, api.Album{UserId: 1, Name: "owned"})
	require.NoError(t, err)
	_, err = albums.Save(ctx, api.Album{UserId: 2, Name: "shared", SharedUsers: []int64{1}})
	require.NoError(t, err)
	_, err = albums.Save(ctx, api.Album{UserId: 2, Name: "private"})
	require.NoError(t, err)

	visible, err := albums.FindByUser(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, visible, 2)
}

func TestAlbumSharedUsersAreCopied(t *testing.T) {

	albums := NewMemoryAlbumStore()
	ctx := context.Background()

	id, err := albums.Save(ctx, api.Album{UserId: 1, Name: "trip", SharedUsers: []int64{2}})
	require.NoError(t, err)

	loaded, err := albums.Find(ctx, id)
	require.NoError(t, err)

	// mutating the returned slice must not leak into stored state
	loaded.SharedUsers[0] = 99

	again, err := albums.Find(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, again.SharedUsers)
}

func TestLimitStoreRoundTrip(t *testing.T) {

	limits := NewMemoryLimitStore()
	ctx := context.Background()

	_, ok, err := limits.Find(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, limits.Save(ctx, 1, 5000))

	limit, ok, err := limits.Find(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(5000), limit)
}
