package album

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/lumapix/lumapix/internal/picture"
	"github.com/lumapix/lumapix/internal/storage"
	"github.com/lumapix/lumapix/internal/store"
	"github.com/lumapix/lumapix/internal/util"
	"github.com/lumapix/lumapix/pkg/api"
)

// maxProvisionPasses bounds the download-code provision-then-retry loop so a
// store that fails to persist codes cannot spin it forever.
const maxProvisionPasses = 3

// Service is the album lifecycle orchestrator, split into independently
// authorized roles: creation, fetching, sharing, updating, deleting and
// archive download.
type Service interface {

	// Create validates and persists a new album and returns its id.
	Create(ctx context.Context, cmd api.CreateAlbumCmd) (int64, error)

	// FetchAll returns the albums the user owns or is shared into, each
	// decorated with a cover picture reference and a creation date derived
	// from it, sorted by album id descending.
	FetchAll(ctx context.Context, userId int64) ([]api.Album, error)

	// FetchContents returns the album and its pictures in the album's sort
	// order. Any picture (and the album itself) lacking a download code has
	// one generated and persisted before the result is returned, so callers
	// always observe fully provisioned codes.
	FetchContents(ctx context.Context, userId, albumId int64) (*api.AlbumContents, error)

	// Share adds the given user ids to the album's shared-user set,
	// deduplicated; sharing is owner-only.
	Share(ctx context.Context, userId, albumId int64, sharedUsers []int64) error

	// Update applies the non-nil fields of the patch to the existing
	// record; the patch's user id must match the existing owner.
	Update(ctx context.Context, patch api.AlbumPatch) error

	// Delete removes the album record and then cascades deletion to all
	// member pictures, joined concurrently. Picture deletion failures are
	// surfaced even though the album record is already gone.
	Delete(ctx context.Context, userId, albumId int64) error

	// DownloadArchive assembles a zip archive of the album's original
	// blobs, one entry per picture named {pictureId}.jpg, in the album's
	// sort order. The supplied code must equal the album's download code.
	DownloadArchive(ctx context.Context, userId, albumId int64, code string) ([]byte, error)
}

// NewService creates an album Service, returning a pointer to the concrete
// implementation.
func NewService(
	albums store.AlbumStore,
	pictureStore store.PictureStore,
	pictures picture.Service,
	blobs storage.BlobStore,
) Service {

	return &service{
		albums:       albums,
		pictureStore: pictureStore,
		pictures:     pictures,
		blobs:        blobs,

		logger: slog.Default().
			With(slog.String(util.PackageKey, util.PackageAlbum)).
			With(slog.String(util.ComponentKey, util.ComponentAlbumService)),
	}
}

var _ Service = (*service)(nil)

// service is the concrete implementation of the Service interface.
type service struct {
	albums       store.AlbumStore
	pictureStore store.PictureStore
	pictures     picture.Service
	blobs        storage.BlobStore

	logger *slog.Logger
}

// Create is the concrete implementation of the interface method which
// validates and persists a new album.
func (s *service) Create(ctx context.Context, cmd api.CreateAlbumCmd) (int64, error) {

	if cmd.UserId <= 0 {
		return 0, fmt.Errorf("album owner id must be positive: %w", api.ErrInvalidArgument)
	}

	if strings.TrimSpace(cmd.Name) == "" {
		return 0, fmt.Errorf("album name is required: %w", api.ErrInvalidArgument)
	}

	// normalize nils: nil shared users -> empty, nil chronological -> false
	record := api.Album{
		UserId:      cmd.UserId,
		Name:        cmd.Name,
		SharedUsers: combineSharedUsers(nil, cmd.SharedUsers),
	}
	if cmd.Chronological != nil {
		record.Chronological = *cmd.Chronological
	}

	id, err := s.albums.Save(ctx, record)
	if err != nil {
		return 0, fmt.Errorf("failed to persist album record: %v", err)
	}

	s.logger.Info(fmt.Sprintf("created album %d for user %d", id, cmd.UserId))

	return id, nil
}

// FetchAll is the concrete implementation of the interface method which
// returns the user's visible albums, decorated.
func (s *service) FetchAll(ctx context.Context, userId int64) ([]api.Album, error) {

	if userId <= 0 {
		return nil, fmt.Errorf("user id must be positive: %w", api.ErrInvalidArgument)
	}

	albums, err := s.albums.FindByUser(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to load albums for user %d: %v", userId, err)
	}

	// decorate with display-only cover picture + creation date; neither is
	// ever persisted
	for i := range albums {
		pictures, err := s.pictureStore.FindByAlbum(ctx, albums[i].Id)
		if err != nil {
			return nil, fmt.Errorf("failed to load pictures for album %d: %v", albums[i].Id, err)
		}

		if len(pictures) == 0 {
			continue
		}

		sortPictures(pictures, albums[i].Chronological)

		cover := pictures[0]
		albums[i].CoverPictureId = cover.Id
		albums[i].CreationDate = cover.UploadedAt.Format("2006-01-02")
	}

	// list order is by album id descending regardless of the chronological
	// flag, which only affects intra-album picture order
	sort.Slice(albums, func(i, j int) bool {
		return albums[i].Id > albums[j].Id
	})

	return albums, nil
}

// FetchContents is the concrete implementation of the interface method which
// returns the album's pictures with fully provisioned download codes.
func (s *service) FetchContents(ctx context.Context, userId, albumId int64) (*api.AlbumContents, error) {

	for pass := 0; pass < maxProvisionPasses; pass++ {

		album, err := s.loadShared(ctx, userId, albumId)
		if err != nil {
			return nil, err
		}

		// the album's own code is provisioned on this fetch path too
		if album.DownloadCode == "" {
			if err := s.provisionAlbumCode(ctx, album); err != nil {
				return nil, err
			}
			continue
		}

		pictures, err := s.pictureStore.FindByAlbum(ctx, albumId)
		if err != nil {
			return nil, fmt.Errorf("failed to load pictures for album %d: %v", albumId, err)
		}

		missing := make([]api.Picture, 0)
		for _, p := range pictures {
			if p.DownloadCode == "" {
				missing = append(missing, p)
			}
		}

		if len(missing) == 0 {
			sortPictures(pictures, album.Chronological)
			return &api.AlbumContents{
				Album:    *album,
				Pictures: pictures,
			}, nil
		}

		// backfill the missing codes concurrently, then retry the whole
		// fetch from scratch
		if err := s.provisionPictureCodes(ctx, missing); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("download codes for album %d still missing after %d provisioning passes", albumId, maxProvisionPasses)
}

// Share is the concrete implementation of the interface method which adds
// users to the album's shared-user set.
func (s *service) Share(ctx context.Context, userId, albumId int64, sharedUsers []int64) error {

	album, err := s.loadOwned(ctx, userId, albumId)
	if err != nil {
		return err
	}

	album.SharedUsers = combineSharedUsers(album.SharedUsers, sharedUsers)

	if err := s.albums.Update(ctx, *album); err != nil {
		return fmt.Errorf("failed to update shared users for album %d: %v", albumId, err)
	}

	return nil
}

// Update is the concrete implementation of the interface method which
// applies a partial album update.
func (s *service) Update(ctx context.Context, patch api.AlbumPatch) error {

	album, err := s.albums.Find(ctx, patch.Id)
	if err != nil {
		return fmt.Errorf("failed to load album %d: %v", patch.Id, err)
	}
	if album == nil {
		return fmt.Errorf("album %d: %w", patch.Id, api.ErrNotFound)
	}

	// ownership is matched against the existing record, not the patch
	if album.UserId != patch.UserId {
		return fmt.Errorf("user %d does not own album %d: %w", patch.UserId, patch.Id, api.ErrUnauthorized)
	}

	// patch semantics: a nil field is unchanged
	if patch.Name != nil {
		album.Name = *patch.Name
	}
	if patch.Chronological != nil {
		album.Chronological = *patch.Chronological
	}
	if patch.SharedUsers != nil {
		album.SharedUsers = combineSharedUsers(nil, patch.SharedUsers)
	}

	if err := s.albums.Update(ctx, *album); err != nil {
		return fmt.Errorf("failed to update album %d: %v", patch.Id, err)
	}

	return nil
}

// Delete is the concrete implementation of the interface method which
// removes the album and cascades deletion to its member pictures.
func (s *service) Delete(ctx context.Context, userId, albumId int64) error {

	if _, err := s.loadOwned(ctx, userId, albumId); err != nil {
		return err
	}

	// member pictures are loaded before the album record disappears
	pictures, err := s.pictureStore.FindByAlbum(ctx, albumId)
	if err != nil {
		return fmt.Errorf("failed to load pictures for album %d: %v", albumId, err)
	}

	// album record first; picture cleanup failures below are surfaced even
	// though the album is already gone
	if err := s.albums.Delete(ctx, albumId); err != nil {
		return fmt.Errorf("failed to delete album record %d: %v", albumId, err)
	}

	if len(pictures) > 0 {

		var (
			wg    sync.WaitGroup
			errCh = make(chan error, len(pictures))
		)

		for _, p := range pictures {

			wg.Add(1)
			go func(pictureId int64) {

				defer wg.Done()

				if err := s.pictures.Delete(ctx, userId, pictureId); err != nil {
					errCh <- fmt.Errorf("failed to delete picture %d: %w", pictureId, err)
				}
			}(p.Id)
		}

		wg.Wait()
		close(errCh)

		if len(errCh) > 0 {
			errs := make([]error, 0, len(errCh))
			for err := range errCh {
				errs = append(errs, err)
			}
			return fmt.Errorf("album %d deleted but picture cleanup failed: %v", albumId, errors.Join(errs...))
		}
	}

	s.logger.Info(fmt.Sprintf("deleted album %d and its %d pictures for user %d", albumId, len(pictures), userId))

	return nil
}

// DownloadArchive is the concrete implementation of the interface method
// which assembles a zip archive of the album's originals.
func (s *service) DownloadArchive(ctx context.Context, userId, albumId int64, code string) ([]byte, error) {

	album, err := s.loadShared(ctx, userId, albumId)
	if err != nil {
		return nil, err
	}

	// the album code only exists once the album has been fetched at least
	// once; an unprovisioned code never matches
	if code == "" || album.DownloadCode == "" || code != album.DownloadCode {
		return nil, fmt.Errorf("download code mismatch for album %d: %w", albumId, api.ErrUnauthorized)
	}

	pictures, err := s.pictureStore.FindByAlbum(ctx, albumId)
	if err != nil {
		return nil, fmt.Errorf("failed to load pictures for album %d: %v", albumId, err)
	}

	sortPictures(pictures, album.Chronological)

	// fetch each picture's original concurrently, joined all-or-fail;
	// results are indexed so the archive preserves the sort order
	var (
		wg    sync.WaitGroup
		errCh = make(chan error, len(pictures))

		payloads = make([][]byte, len(pictures))
	)

	for i, p := range pictures {

		wg.Add(1)
		go func(i int, pic api.Picture) {

			defer wg.Done()

			payload, err := s.blobs.Find(ctx, pic.OriginalKey)
			if err != nil {
				errCh <- fmt.Errorf("failed to fetch original for picture %d: %w", pic.Id, err)
				return
			}

			payloads[i] = payload
		}(i, p)
	}

	wg.Wait()
	close(errCh)

	if len(errCh) > 0 {
		errs := make([]error, 0, len(errCh))
		for err := range errCh {
			errs = append(errs, err)
		}
		return nil, fmt.Errorf("failed to assemble archive for album %d: %v", albumId, errors.Join(errs...))
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for i, p := range pictures {
		entry, err := zw.Create(fmt.Sprintf("%d.jpg", p.Id))
		if err != nil {
			return nil, fmt.Errorf("failed to create archive entry for picture %d: %v", p.Id, err)
		}
		if _, err := entry.Write(payloads[i]); err != nil {
			return nil, fmt.Errorf("failed to write archive entry for picture %d: %v", p.Id, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive for album %d: %v", albumId, err)
	}

	return buf.Bytes(), nil
}

// loadOwned loads the album and enforces strict ownership.
func (s *service) loadOwned(ctx context.Context, userId, albumId int64) (*api.Album, error) {

	album, err := s.albums.Find(ctx, albumId)
	if err != nil {
		return nil, fmt.Errorf("failed to load album %d: %v", albumId, err)
	}
	if album == nil {
		return nil, fmt.Errorf("album %d: %w", albumId, api.ErrNotFound)
	}

	if album.UserId != userId {
		return nil, fmt.Errorf("user %d does not own album %d: %w", userId, albumId, api.ErrUnauthorized)
	}

	return album, nil
}

// loadShared loads the album and authorizes via ownership or the shared-user
// set.
func (s *service) loadShared(ctx context.Context, userId, albumId int64) (*api.Album, error) {

	album, err := s.albums.Find(ctx, albumId)
	if err != nil {
		return nil, fmt.Errorf("failed to load album %d: %v", albumId, err)
	}
	if album == nil {
		return nil, fmt.Errorf("album %d: %w", albumId, api.ErrNotFound)
	}

	if album.UserId != userId && !album.SharedWith(userId) {
		return nil, fmt.Errorf("user %d may not access album %d: %w", userId, albumId, api.ErrUnauthorized)
	}

	return album, nil
}

// provisionAlbumCode generates and persists the album's download code.
func (s *service) provisionAlbumCode(ctx context.Context, album *api.Album) error {

	code, err := uuid.NewRandom()
	if err != nil {
		return fmt.Errorf("failed to generate download code for album %d: %v", album.Id, err)
	}

	album.DownloadCode = code.String()
	if err := s.albums.Update(ctx, *album); err != nil {
		return fmt.Errorf("failed to persist download code for album %d: %v", album.Id, err)
	}

	return nil
}

// provisionPictureCodes generates and persists download codes for the given
// pictures concurrently, joined all-or-fail.
func (s *service) provisionPictureCodes(ctx context.Context, pictures []api.Picture) error {

	var (
		wg    sync.WaitGroup
		errCh = make(chan error, len(pictures))
	)

	for _, p := range pictures {

		wg.Add(1)
		go func(pic api.Picture) {

			defer wg.Done()

			code, err := uuid.NewRandom()
			if err != nil {
				errCh <- fmt.Errorf("failed to generate download code for picture %d: %v", pic.Id, err)
				return
			}

			pic.DownloadCode = code.String()
			if err := s.pictureStore.Update(ctx, pic); err != nil {
				errCh <- fmt.Errorf("failed to persist download code for picture %d: %v", pic.Id, err)
			}
		}(p)
	}

	wg.Wait()
	close(errCh)

	if len(errCh) > 0 {
		errs := make([]error, 0, len(errCh))
		for err := range errCh {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	}

	return nil
}
