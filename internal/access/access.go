package access

import (
	"context"

	"github.com/lumapix/lumapix/internal/store"
	"github.com/lumapix/lumapix/pkg/api"
)

// Gate decides whether a user may act on a picture. It is the single place
// where ownership, the album shared-user list, and album-membership
// inheritance are combined.
type Gate interface {

	// CanAccessPicture reports whether the user may act on the picture:
	// a picture with no album is only accessible to its direct owner; a
	// picture filed in an album is accessible to the album's owner and its
	// shared users. When the album link does not resolve, the decision
	// falls back to direct ownership.
	CanAccessPicture(ctx context.Context, userId int64, picture *api.Picture) bool
}

// NewGate creates a Gate resolving album links through the given store.
func NewGate(albums store.AlbumStore) Gate {
	return &gate{
		albums: albums,
	}
}

var _ Gate = (*gate)(nil)

// gate is the concrete implementation of the Gate interface.
type gate struct {
	albums store.AlbumStore
}

// CanAccessPicture is the concrete implementation of the interface method
// which decides whether the user may act on the picture.
func (g *gate) CanAccessPicture(ctx context.Context, userId int64, picture *api.Picture) bool {

	if picture == nil || userId <= 0 {
		return false
	}

	// unfiled pictures are owner-only
	if picture.AlbumId <= 0 {
		return picture.UserId == userId
	}

	album, err := g.albums.Find(ctx, picture.AlbumId)
	if err != nil || album == nil {
		// album link did not resolve (cascade delete window, store error):
		// fall back to direct ownership
		return picture.UserId == userId
	}

	// the album decides, not the picture's own owner field; this lets
	// reassigned pictures still honor album sharing
	return album.UserId == userId || album.SharedWith(userId)
}
