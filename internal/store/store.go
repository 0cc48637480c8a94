package store

import (
	"context"

	"github.com/lumapix/lumapix/pkg/api"
)

// PictureStore is the narrow metadata contract for picture records.
// Find returns (nil, nil) when no record exists; callers map absence to
// their own failure kind.
type PictureStore interface {

	// Save persists a new picture record, assigning it the next id
	// (max existing id + 1, starting at 1), and returns that id.
	Save(ctx context.Context, record api.Picture) (int64, error)

	// Find retrieves a picture record by id, nil if absent.
	Find(ctx context.Context, id int64) (*api.Picture, error)

	// FindByUser retrieves all picture records owned by the given user.
	FindByUser(ctx context.Context, userId int64) ([]api.Picture, error)

	// FindByAlbum retrieves all picture records filed in the given album.
	FindByAlbum(ctx context.Context, albumId int64) ([]api.Picture, error)

	// Update replaces the stored record's mutable fields with the given
	// record's, matched by id.
	Update(ctx context.Context, record api.Picture) error

	// Delete removes the picture record by id.
	Delete(ctx context.Context, id int64) error
}

// AlbumStore is the narrow metadata contract for album records.
type AlbumStore interface {

	// Save persists a new album record under the next id (max existing
	// id + 1, starting at 1) and returns that id.
	Save(ctx context.Context, record api.Album) (int64, error)

	// Find retrieves an album record by id, nil if absent.
	Find(ctx context.Context, id int64) (*api.Album, error)

	// FindByUser retrieves all albums the user owns or is shared into.
	FindByUser(ctx context.Context, userId int64) ([]api.Album, error)

	// Update replaces the stored record's mutable fields with the given
	// record's, matched by id.
	Update(ctx context.Context, record api.Album) error

	// Delete removes the album record by id.
	Delete(ctx context.Context, id int64) error
}

// LimitStore persists per-user storage limit overrides as a simple
// user id -> byte ceiling mapping.
type LimitStore interface {

	// Find returns the stored limit for the user and whether one exists.
	Find(ctx context.Context, userId int64) (int64, bool, error)

	// Save stores (or replaces) the limit for the user.
	Save(ctx context.Context, userId int64, limit int64) error
}
