package gallery

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lumapix/lumapix/internal/access"
	"github.com/lumapix/lumapix/internal/album"
	"github.com/lumapix/lumapix/internal/auth"
	"github.com/lumapix/lumapix/internal/config"
	"github.com/lumapix/lumapix/internal/picture"
	"github.com/lumapix/lumapix/internal/quota"
	"github.com/lumapix/lumapix/internal/storage"
	"github.com/lumapix/lumapix/internal/store"
	"github.com/lumapix/lumapix/internal/util"
)

// Gallery is the assembled orchestration core. The (external) http layer
// consumes the orchestrators it exposes and maps failure kinds to status
// codes per pkg/api.
type Gallery interface {

	// Pictures returns the picture lifecycle orchestrator.
	Pictures() picture.Service

	// Albums returns the album lifecycle orchestrator.
	Albums() album.Service

	// Quota returns the storage quota engine.
	Quota() quota.Engine

	// Authorizer returns the token authorizer for the upstream layer.
	Authorizer() auth.Authorizer

	// Run logs readiness; request handling lives upstream.
	Run() error

	// CloseDb closes the database connection.
	CloseDb() error
}

// New wires the full service from config: database, object storage,
// authorizer, stores and orchestrators, injected constructor-style so tests
// can substitute in-memory implementations.
func New(cfg *config.Config) (Gallery, error) {

	db, err := sql.Open("mysql", cfg.Database.Dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %v", err)
	}

	blobs, err := storage.NewMinioBlobStore(storage.Config{
		Endpoint:  cfg.ObjectStorage.Endpoint,
		AccessKey: cfg.ObjectStorage.AccessKey,
		SecretKey: cfg.ObjectStorage.SecretKey,
		Bucket:    cfg.ObjectStorage.Bucket,
		UseTls:    cfg.ObjectStorage.UseTls,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create blob store: %v", err)
	}

	pictureStore := store.NewMySqlPictureStore(db)
	albumStore := store.NewMySqlAlbumStore(db)
	limitStore := store.NewMySqlLimitStore(db)

	authorizer := auth.NewJwtAuthorizer([]byte(cfg.Auth.JwtSecret), cfg.Auth.AdminUserId)
	gate := access.NewGate(albumStore)
	quotas := quota.NewEngine(pictureStore, limitStore, blobs, authorizer, cfg.Quota.DefaultLimit)

	pictures := picture.NewService(pictureStore, albumStore, blobs, gate, quotas)
	albums := album.NewService(albumStore, pictureStore, pictures, blobs)

	return &gallery{
		db:         db,
		pictures:   pictures,
		albums:     albums,
		quotas:     quotas,
		authorizer: authorizer,

		logger: slog.Default().
			With(slog.String(util.PackageKey, util.PackageGallery)).
			With(slog.String(util.ComponentKey, util.ComponentGallery)),
	}, nil
}

var _ Gallery = (*gallery)(nil)

// gallery is the concrete implementation of the Gallery interface.
type gallery struct {
	db         *sql.DB
	pictures   picture.Service
	albums     album.Service
	quotas     quota.Engine
	authorizer auth.Authorizer

	logger *slog.Logger
}

func (g *gallery) Pictures() picture.Service  { return g.pictures }
func (g *gallery) Albums() album.Service      { return g.albums }
func (g *gallery) Quota() quota.Engine        { return g.quotas }
func (g *gallery) Authorizer() auth.Authorizer { return g.authorizer }

// Run logs readiness; request handling lives upstream.
func (g *gallery) Run() error {

	if err := g.db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %v", err)
	}

	g.logger.Info(fmt.Sprintf("%s orchestration core ready", util.ServiceGallery))

	return nil
}

// CloseDb closes the database connection.
func (g *gallery) CloseDb() error {
	return g.db.Close()
}
