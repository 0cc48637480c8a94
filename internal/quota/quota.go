package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lumapix/lumapix/internal/auth"
	"github.com/lumapix/lumapix/internal/storage"
	"github.com/lumapix/lumapix/internal/store"
	"github.com/lumapix/lumapix/internal/util"
	"github.com/lumapix/lumapix/pkg/api"
)

// Engine is the storage quota accounting engine: it computes a user's total
// consumed bytes, lazily backfilling unknown sizes from the blob store, and
// compares them to a configured or stored limit.
type Engine interface {

	// Consumption computes the user's total consumed bytes and effective
	// limit. Pictures whose stored size is unknown are backfilled by
	// loading both blob variants; the backfilled size is persisted so later
	// calls do not re-read the blobs.
	Consumption(ctx context.Context, userId int64) (*api.StorageConsumption, error)

	// Consumptions is the batched multi-user variant of Consumption.
	Consumptions(ctx context.Context, userIds []int64) ([]api.StorageConsumption, error)

	// SetLimit stores a per-user limit override. Only a caller whose token
	// resolves to the configured admin identity may set another user's
	// limit; everything else fails with api.ErrUnauthorized.
	SetLimit(ctx context.Context, token string, userId int64, limit int64) error
}

// NewEngine creates a quota Engine, returning a pointer to the concrete
// implementation.
func NewEngine(
	pictures store.PictureStore,
	limits store.LimitStore,
	blobs storage.BlobStore,
	authorizer auth.Authorizer,
	defaultLimit int64,
) Engine {

	return &engine{
		pictures:     pictures,
		limits:       limits,
		blobs:        blobs,
		authorizer:   authorizer,
		defaultLimit: defaultLimit,

		logger: slog.Default().
			With(slog.String(util.PackageKey, util.PackageQuota)).
			With(slog.String(util.ComponentKey, util.ComponentQuotaEngine)),
	}
}

var _ Engine = (*engine)(nil)

// engine is the concrete implementation of the Engine interface.
type engine struct {
	pictures     store.PictureStore
	limits       store.LimitStore
	blobs        storage.BlobStore
	authorizer   auth.Authorizer
	defaultLimit int64

	logger *slog.Logger
}

// Consumption is the concrete implementation of the interface method which
// computes the user's total consumed bytes and effective limit.
func (e *engine) Consumption(ctx context.Context, userId int64) (*api.StorageConsumption, error) {

	if userId <= 0 {
		return nil, fmt.Errorf("user id must be positive: %w", api.ErrInvalidArgument)
	}

	pictures, err := e.pictures.FindByUser(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to load pictures for user %d: %v", userId, err)
	}

	// split known sizes from the ones needing a blob-store backfill
	var total int64
	var unknown []api.Picture
	for _, p := range pictures {
		if p.Size > 0 {
			total += p.Size
		} else {
			unknown = append(unknown, p)
		}
	}

	// backfill unknown sizes concurrently and join all-or-fail
	if len(unknown) > 0 {

		var (
			wg     sync.WaitGroup
			sizeCh = make(chan int64, len(unknown))
			errCh  = make(chan error, len(unknown))
		)

		for _, p := range unknown {

			wg.Add(1)
			go func(pic api.Picture) {

				defer wg.Done()

				size, err := e.backfillSize(ctx, pic)
				if err != nil {
					errCh <- err
					return
				}

				sizeCh <- size
			}(p)
		}

		wg.Wait()
		close(sizeCh)
		close(errCh)

		if len(errCh) > 0 {
			errs := make([]error, 0, len(errCh))
			for err := range errCh {
				errs = append(errs, err)
			}
			return nil, fmt.Errorf("failed to backfill picture sizes for user %d: %v", userId, errors.Join(errs...))
		}

		for size := range sizeCh {
			total += size
		}
	}

	limit, err := e.effectiveLimit(ctx, userId)
	if err != nil {
		return nil, err
	}

	return &api.StorageConsumption{
		UserId: userId,
		Used:   total,
		Limit:  limit,
	}, nil
}

// Consumptions is the concrete implementation of the interface method which
// computes consumption for several users, joined concurrently all-or-fail.
func (e *engine) Consumptions(ctx context.Context, userIds []int64) ([]api.StorageConsumption, error) {

	if len(userIds) == 0 {
		return nil, nil
	}

	var (
		wg    sync.WaitGroup
		errCh = make(chan error, len(userIds))

		results = make([]api.StorageConsumption, len(userIds))
	)

	for i, userId := range userIds {

		wg.Add(1)
		go func(i int, userId int64) {

			defer wg.Done()

			consumption, err := e.Consumption(ctx, userId)
			if err != nil {
				errCh <- fmt.Errorf("failed to compute consumption for user %d: %w", userId, err)
				return
			}

			results[i] = *consumption
		}(i, userId)
	}

	wg.Wait()
	close(errCh)

	if len(errCh) > 0 {
		errs := make([]error, 0, len(errCh))
		for err := range errCh {
			errs = append(errs, err)
		}
		return nil, errors.Join(errs...)
	}

	return results, nil
}

// SetLimit is the concrete implementation of the interface method which
// stores a per-user limit override, gated on the admin identity.
func (e *engine) SetLimit(ctx context.Context, token string, userId int64, limit int64) error {

	if !e.authorizer.IsAdmin(token) {
		return fmt.Errorf("setting a storage limit requires the admin identity: %w", api.ErrUnauthorized)
	}

	if userId <= 0 || limit <= 0 {
		return fmt.Errorf("user id and limit must be positive: %w", api.ErrInvalidArgument)
	}

	if err := e.limits.Save(ctx, userId, limit); err != nil {
		return fmt.Errorf("failed to save storage limit for user %d: %v", userId, err)
	}

	e.logger.Info(fmt.Sprintf("storage limit for user %d set to %d bytes", userId, limit))

	return nil
}

// backfillSize loads both blob variants of a picture, sums their actual
// lengths, and persists the size back to the picture record.
func (e *engine) backfillSize(ctx context.Context, pic api.Picture) (int64, error) {

	original, err := e.blobs.Find(ctx, pic.OriginalKey)
	if err != nil {
		return 0, fmt.Errorf("failed to load original blob for picture %d: %v", pic.Id, err)
	}

	size := int64(len(original))

	if pic.OptimizedKey != "" {
		optimized, err := e.blobs.Find(ctx, pic.OptimizedKey)
		if err != nil {
			return 0, fmt.Errorf("failed to load optimized blob for picture %d: %v", pic.Id, err)
		}
		size += int64(len(optimized))
	}

	// persist so the next consumption call skips the blob reads
	pic.Size = size
	if err := e.pictures.Update(ctx, pic); err != nil {
		return 0, fmt.Errorf("failed to persist backfilled size for picture %d: %v", pic.Id, err)
	}

	return size, nil
}

// effectiveLimit returns the user's stored override if one exists, else the
// configured default.
func (e *engine) effectiveLimit(ctx context.Context, userId int64) (int64, error) {

	limit, ok, err := e.limits.Find(ctx, userId)
	if err != nil {
		return 0, fmt.Errorf("failed to load storage limit for user %d: %v", userId, err)
	}

	if ok {
		return limit, nil
	}

	return e.defaultLimit, nil
}
