package picture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lumapix/lumapix/internal/access"
	"github.com/lumapix/lumapix/internal/pipeline"
	"github.com/lumapix/lumapix/internal/quota"
	"github.com/lumapix/lumapix/internal/storage"
	"github.com/lumapix/lumapix/internal/store"
	"github.com/lumapix/lumapix/internal/util"
	"github.com/lumapix/lumapix/pkg/api"
)

// Service is the picture lifecycle orchestrator: it turns raw uploads into
// quota-checked, transformed, access-controlled picture state.
type Service interface {

	// Insert ingests raw jpeg bytes for the user, optionally filing them
	// into an album (albumId <= 0 means unfiled), and returns the new
	// picture id. The combined size of the rotated original and the
	// optimized variant is checked against the user's storage quota before
	// any byte is written.
	Insert(ctx context.Context, userId, albumId int64, raw []byte) (int64, error)

	// Fetch returns the picture payload with its weak content hash, or a
	// not-modified marker when the client-supplied hash still matches. The
	// optimized variant is served unless fullSize is requested or no
	// optimized variant exists.
	Fetch(ctx context.Context, userId int64, clientHash string, pictureId int64, fullSize bool) (*api.PictureResponse, error)

	// DownloadByCode is the code-gated fetch variant for unauthenticated
	// sharing links: access is authorized solely by download code equality
	// and the full-size original is returned.
	DownloadByCode(ctx context.Context, pictureId int64, code string) (*api.PictureResponse, error)

	// Rotate rotates both stored variants of the picture by 90 degrees
	// clockwise and updates the last-modified timestamp. A missing
	// optimized variant is skipped; a missing original fails the whole
	// operation.
	Rotate(ctx context.Context, userId, pictureId int64) error

	// Delete removes the picture record and then its blobs. Blob deletion
	// failures after the record is gone are surfaced, not rolled back.
	Delete(ctx context.Context, userId, pictureId int64) error
}

// NewService creates a picture Service, returning a pointer to the concrete
// implementation.
func NewService(
	pictures store.PictureStore,
	albums store.AlbumStore,
	blobs storage.BlobStore,
	gate access.Gate,
	quotas quota.Engine,
) Service {

	return &service{
		pictures: pictures,
		albums:   albums,
		blobs:    blobs,
		gate:     gate,
		quotas:   quotas,

		logger: slog.Default().
			With(slog.String(util.PackageKey, util.PackagePicture)).
			With(slog.String(util.ComponentKey, util.ComponentPictureService)),
	}
}

var _ Service = (*service)(nil)

// service is the concrete implementation of the Service interface.
type service struct {
	pictures store.PictureStore
	albums   store.AlbumStore
	blobs    storage.BlobStore
	gate     access.Gate
	quotas   quota.Engine

	logger *slog.Logger
}

// Insert is the concrete implementation of the interface method which
// ingests raw jpeg bytes and returns the new picture id.
func (s *service) Insert(ctx context.Context, userId, albumId int64, raw []byte) (int64, error) {

	if userId <= 0 || len(raw) == 0 {
		return 0, fmt.Errorf("user id and payload are required: %w", api.ErrInvalidArgument)
	}

	// a filed picture must reference an existing album at creation time
	if albumId > 0 {
		album, err := s.albums.Find(ctx, albumId)
		if err != nil {
			return 0, fmt.Errorf("failed to resolve album %d: %v", albumId, err)
		}
		if album == nil {
			return 0, fmt.Errorf("album %d: %w", albumId, api.ErrNotFound)
		}
	}

	consumption, err := s.quotas.Consumption(ctx, userId)
	if err != nil {
		return 0, fmt.Errorf("failed to compute storage consumption for user %d: %w", userId, err)
	}

	now := time.Now().UTC()

	// best effort; never fails the request
	capturedAt := pipeline.CaptureTime(raw, now)

	// the rotated bytes become the canonical original
	rotated, err := pipeline.Rotate(raw, pipeline.OrientationDegrees(raw))
	if err != nil {
		return 0, fmt.Errorf("failed to apply exif rotation: %v", err)
	}

	optimized, err := pipeline.Optimize(rotated)
	if err != nil {
		return 0, fmt.Errorf("failed to build optimized variant: %v", err)
	}

	size := int64(len(rotated) + len(optimized))
	if consumption.Used+size > consumption.Limit {
		return 0, fmt.Errorf("upload of %d bytes exceeds remaining quota of %d bytes for user %d: %w",
			size, consumption.Remaining(), userId, api.ErrStorageLimitExceeded)
	}

	slug, err := uuid.NewRandom()
	if err != nil {
		return 0, fmt.Errorf("failed to generate object key slug: %v", err)
	}

	originalKey := fmt.Sprintf("originals/%s.jpg", slug.String())
	optimizedKey := fmt.Sprintf("optimized/%s.jpg", slug.String())

	// save both variants concurrently, all-or-fail; no compensating delete
	// is performed on partial failure
	var (
		wg    sync.WaitGroup
		errCh = make(chan error, 2)
	)

	wg.Add(2)
	go s.saveBlob(ctx, originalKey, rotated, errCh, &wg)
	go s.saveBlob(ctx, optimizedKey, optimized, errCh, &wg)

	wg.Wait()
	close(errCh)

	if len(errCh) > 0 {
		errs := make([]error, 0, len(errCh))
		for err := range errCh {
			errs = append(errs, err)
		}
		return 0, fmt.Errorf("failed to save picture blobs: %v", errors.Join(errs...))
	}

	record := api.Picture{
		UserId:       userId,
		Size:         size,
		OriginalKey:  originalKey,
		OptimizedKey: optimizedKey,
		CapturedAt:   capturedAt,
		UploadedAt:   now,
		LastModified: now,
	}

	// only attach the album when the id is positive
	if albumId > 0 {
		record.AlbumId = albumId
	}

	id, err := s.pictures.Save(ctx, record)
	if err != nil {
		return 0, fmt.Errorf("failed to persist picture record: %v", err)
	}

	s.logger.Info(fmt.Sprintf("ingested picture %d for user %d (%d bytes)", id, userId, size))

	return id, nil
}

// Fetch is the concrete implementation of the interface method which returns
// the picture payload or a not-modified marker.
func (s *service) Fetch(ctx context.Context, userId int64, clientHash string, pictureId int64, fullSize bool) (*api.PictureResponse, error) {

	picture, err := s.loadAuthorized(ctx, userId, pictureId)
	if err != nil {
		return nil, err
	}

	hash := picture.WeakHash(fullSize)
	if clientHash != "" && clientHash == hash {
		return &api.PictureResponse{
			NotModified: true,
			Hash:        hash,
		}, nil
	}

	key := picture.OptimizedKey
	if fullSize || key == "" {
		key = picture.OriginalKey
	}

	payload, err := s.blobs.Find(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load blob for picture %d: %w", pictureId, err)
	}

	return &api.PictureResponse{
		Hash:    hash,
		Payload: payload,
	}, nil
}

// DownloadByCode is the concrete implementation of the interface method
// which serves the full-size original gated solely by download code equality.
func (s *service) DownloadByCode(ctx context.Context, pictureId int64, code string) (*api.PictureResponse, error) {

	picture, err := s.pictures.Find(ctx, pictureId)
	if err != nil {
		return nil, fmt.Errorf("failed to load picture %d: %v", pictureId, err)
	}
	if picture == nil {
		return nil, fmt.Errorf("picture %d: %w", pictureId, api.ErrNotFound)
	}

	// an unprovisioned code never matches
	if code == "" || picture.DownloadCode == "" || code != picture.DownloadCode {
		return nil, fmt.Errorf("download code mismatch for picture %d: %w", pictureId, api.ErrUnauthorized)
	}

	payload, err := s.blobs.Find(ctx, picture.OriginalKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load original blob for picture %d: %w", pictureId, err)
	}

	return &api.PictureResponse{
		Hash:    picture.WeakHash(true),
		Payload: payload,
	}, nil
}

// Rotate is the concrete implementation of the interface method which
// rotates both stored variants by 90 degrees clockwise.
func (s *service) Rotate(ctx context.Context, userId, pictureId int64) error {

	picture, err := s.loadAuthorized(ctx, userId, pictureId)
	if err != nil {
		return err
	}

	if picture.OriginalKey == "" {
		return fmt.Errorf("picture %d has no original blob: %w", pictureId, api.ErrNotFound)
	}

	original, err := s.blobs.Find(ctx, picture.OriginalKey)
	if err != nil {
		return fmt.Errorf("failed to load original blob for picture %d: %w", pictureId, err)
	}

	rotated, err := pipeline.Rotate(original, 90)
	if err != nil {
		return fmt.Errorf("failed to rotate original for picture %d: %v", pictureId, err)
	}

	if err := s.blobs.Replace(ctx, picture.OriginalKey, rotated); err != nil {
		return fmt.Errorf("failed to persist rotated original for picture %d: %v", pictureId, err)
	}

	// the optimized variant is best effort: absent is skipped, anything
	// else fails the operation
	if picture.OptimizedKey != "" {
		optimized, err := s.blobs.Find(ctx, picture.OptimizedKey)
		switch {
		case err == nil:
			rotatedOpt, err := pipeline.Rotate(optimized, 90)
			if err != nil {
				return fmt.Errorf("failed to rotate optimized variant for picture %d: %v", pictureId, err)
			}
			if err := s.blobs.Replace(ctx, picture.OptimizedKey, rotatedOpt); err != nil {
				return fmt.Errorf("failed to persist rotated optimized variant for picture %d: %v", pictureId, err)
			}
		case errors.Is(err, api.ErrNotFound):
			s.logger.Warn(fmt.Sprintf("optimized variant missing for picture %d, skipping its rotation", pictureId))
		default:
			return fmt.Errorf("failed to load optimized variant for picture %d: %v", pictureId, err)
		}
	}

	picture.LastModified = time.Now().UTC()
	if err := s.pictures.Update(ctx, *picture); err != nil {
		return fmt.Errorf("failed to update picture record %d: %v", pictureId, err)
	}

	return nil
}

// Delete is the concrete implementation of the interface method which
// removes the picture record and then its blobs.
func (s *service) Delete(ctx context.Context, userId, pictureId int64) error {

	picture, err := s.loadAuthorized(ctx, userId, pictureId)
	if err != nil {
		return err
	}

	// metadata first; blob failures below are surfaced but the record is
	// already gone
	if err := s.pictures.Delete(ctx, pictureId); err != nil {
		return fmt.Errorf("failed to delete picture record %d: %v", pictureId, err)
	}

	if err := s.blobs.Delete(ctx, picture.OriginalKey); err != nil {
		return fmt.Errorf("failed to delete original blob for picture %d: %v", pictureId, err)
	}

	if picture.OptimizedKey != "" {
		if err := s.blobs.Delete(ctx, picture.OptimizedKey); err != nil {
			return fmt.Errorf("failed to delete optimized blob for picture %d: %v", pictureId, err)
		}
	}

	s.logger.Info(fmt.Sprintf("deleted picture %d for user %d", pictureId, userId))

	return nil
}

// loadAuthorized loads the picture and runs it through the access gate.
func (s *service) loadAuthorized(ctx context.Context, userId, pictureId int64) (*api.Picture, error) {

	picture, err := s.pictures.Find(ctx, pictureId)
	if err != nil {
		return nil, fmt.Errorf("failed to load picture %d: %v", pictureId, err)
	}
	if picture == nil {
		return nil, fmt.Errorf("picture %d: %w", pictureId, api.ErrNotFound)
	}

	if !s.gate.CanAccessPicture(ctx, userId, picture) {
		return nil, fmt.Errorf("user %d may not act on picture %d: %w", userId, pictureId, api.ErrUnauthorized)
	}

	return picture, nil
}

// saveBlob is a helper for the concurrent dual-variant save.
func (s *service) saveBlob(ctx context.Context, key string, data []byte, errCh chan error, wg *sync.WaitGroup) {

	defer wg.Done()

	if err := s.blobs.Save(ctx, key, data); err != nil {
		errCh <- fmt.Errorf("failed to save blob %s: %v", key, err)
	}
}
