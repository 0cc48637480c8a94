package api

import (
	"fmt"
	"time"
)

// Picture is the metadata record for a single uploaded picture.
// Ids are assigned by the metadata store on insert (max existing id + 1).
type Picture struct {
	Id     int64 `json:"id,omitempty"`
	UserId int64 `json:"user_id"`

	// AlbumId <= 0 means the picture is unfiled.
	AlbumId int64 `json:"album_id,omitempty"`

	// Size is the combined byte size of the original and optimized variants.
	// A value <= 0 means the size is unknown and will be backfilled from the
	// blob store by the quota engine.
	Size int64 `json:"size,omitempty"`

	// object keys into the blob store
	OriginalKey  string `json:"original_key,omitempty"`
	OptimizedKey string `json:"optimized_key,omitempty"` // may be empty

	// DownloadCode is an opaque token enabling access without a session
	// token. It is empty until lazily provisioned on the first shareable
	// fetch of the picture's album.
	DownloadCode string `json:"download_code,omitempty"`

	// CapturedAt is taken from EXIF data; falls back to the upload time
	// when no usable EXIF timestamp exists.
	CapturedAt   time.Time `json:"captured_at"`
	UploadedAt   time.Time `json:"uploaded_at"`
	LastModified time.Time `json:"last_modified"`
}

// WeakHash returns the weak validator for the picture in the form
// W/"{id}{lastModifiedEpochSeconds}{fullSizeFlag}".
func (p *Picture) WeakHash(fullSize bool) string {
	return fmt.Sprintf("W/\"%d%d%t\"", p.Id, p.LastModified.Unix(), fullSize)
}

// Album is a named collection of pictures owned by one user and optionally
// shared with others.
type Album struct {
	Id     int64  `json:"id,omitempty"`
	UserId int64  `json:"user_id"`
	Name   string `json:"name"`

	// SharedUsers holds the ids of users the album is shared with.
	// It is normalized to a duplicate-free, possibly empty slice.
	SharedUsers []int64 `json:"shared_users"`

	// Chronological inverts the picture sort order inside the album
	// (oldest uploaded first).
	Chronological bool `json:"chronological"`

	// DownloadCode is lazily provisioned on the album fetch path.
	DownloadCode string `json:"download_code,omitempty"`

	// display-only fields derived at fetch time from the album's pictures;
	// never persisted
	CoverPictureId int64  `json:"cover_picture_id,omitempty"`
	CreationDate   string `json:"creation_date,omitempty"`
}

// SharedWith reports whether the album is shared with the given user.
func (a *Album) SharedWith(userId int64) bool {
	for _, id := range a.SharedUsers {
		if id == userId {
			return true
		}
	}
	return false
}

// CreateAlbumCmd is the input to album creation.
// Nil SharedUsers and Chronological are normalized to empty/false.
type CreateAlbumCmd struct {
	UserId        int64   `json:"user_id"`
	Name          string  `json:"name"`
	SharedUsers   []int64 `json:"shared_users,omitempty"`
	Chronological *bool   `json:"chronological,omitempty"`
}

// AlbumPatch is a partial album update: a nil field is left unchanged.
// UserId identifies the caller and must match the existing record's owner.
type AlbumPatch struct {
	Id            int64   `json:"id"`
	UserId        int64   `json:"user_id"`
	Name          *string `json:"name,omitempty"`
	SharedUsers   []int64 `json:"shared_users,omitempty"`
	Chronological *bool   `json:"chronological,omitempty"`
}

// AlbumContents is the result of fetching an album's pictures: the album
// record (download code provisioned) plus its member pictures in the album's
// sort order, every one carrying a non-empty download code.
type AlbumContents struct {
	Album    Album     `json:"album"`
	Pictures []Picture `json:"pictures"`
}

// StorageConsumption is computed per request and never persisted.
type StorageConsumption struct {
	UserId int64 `json:"user_id"`
	Used   int64 `json:"used"`
	Limit  int64 `json:"limit"`
}

// Remaining returns the bytes left before the limit is hit.
func (c *StorageConsumption) Remaining() int64 {
	return c.Limit - c.Used
}

// PictureResponse is the transport value for a picture fetch: either payload
// bytes with a weak content hash, or a not-modified marker carrying only the
// hash.
type PictureResponse struct {
	NotModified bool   `json:"not_modified"`
	Hash        string `json:"hash"`
	Payload     []byte `json:"payload,omitempty"`
}
