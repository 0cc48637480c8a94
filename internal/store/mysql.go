package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/lumapix/lumapix/pkg/api"
)

// NewMySqlPictureStore creates a PictureStore backed by the picture table.
func NewMySqlPictureStore(db *sql.DB) PictureStore {
	return &mysqlPictureStore{db: db}
}

var _ PictureStore = (*mysqlPictureStore)(nil)

type mysqlPictureStore struct {
	db *sql.DB
}

const pictureColumns = `
	id,
	user_id,
	album_id,
	size,
	original_key,
	optimized_key,
	download_code,
	captured_at,
	uploaded_at,
	last_modified`

// Save persists a new picture record under the next id and returns that id.
func (s *mysqlPictureStore) Save(ctx context.Context, record api.Picture) (int64, error) {

	id, err := nextId(ctx, s.db, "picture")
	if err != nil {
		return 0, fmt.Errorf("failed to derive next picture id: %v", err)
	}

	qry := `
		INSERT INTO picture (` + pictureColumns + `
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if _, err := s.db.ExecContext(
		ctx,
		qry,
		id,
		record.UserId,
		record.AlbumId,
		record.Size,
		record.OriginalKey,
		record.OptimizedKey,
		record.DownloadCode,
		record.CapturedAt,
		record.UploadedAt,
		record.LastModified,
	); err != nil {
		return 0, fmt.Errorf("failed to insert picture record: %v", err)
	}

	return id, nil
}

// Find retrieves a picture record by id, nil if absent.
func (s *mysqlPictureStore) Find(ctx context.Context, id int64) (*api.Picture, error) {

	qry := `
		SELECT ` + pictureColumns + `
		FROM picture
		WHERE id = ?`

	row := s.db.QueryRowContext(ctx, qry, id)

	record, err := scanPicture(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to select picture record id %d: %v", id, err)
	}

	return record, nil
}

// FindByUser retrieves all picture records owned by the given user.
func (s *mysqlPictureStore) FindByUser(ctx context.Context, userId int64) ([]api.Picture, error) {

	qry := `
		SELECT ` + pictureColumns + `
		FROM picture
		WHERE user_id = ?`

	return s.selectPictures(ctx, qry, userId)
}

// FindByAlbum retrieves all picture records filed in the given album.
func (s *mysqlPictureStore) FindByAlbum(ctx context.Context, albumId int64) ([]api.Picture, error) {

	qry := `
		SELECT ` + pictureColumns + `
		FROM picture
		WHERE album_id = ?`

	return s.selectPictures(ctx, qry, albumId)
}

// Update replaces the stored record's mutable fields, matched by id.
func (s *mysqlPictureStore) Update(ctx context.Context, record api.Picture) error {

	qry := `
		UPDATE picture SET
			user_id = ?,
			album_id = ?,
			size = ?,
			original_key = ?,
			optimized_key = ?,
			download_code = ?,
			captured_at = ?,
			uploaded_at = ?,
			last_modified = ?
		WHERE id = ?`

	if _, err := s.db.ExecContext(
		ctx,
		qry,
		record.UserId,
		record.AlbumId,
		record.Size,
		record.OriginalKey,
		record.OptimizedKey,
		record.DownloadCode,
		record.CapturedAt,
		record.UploadedAt,
		record.LastModified,
		record.Id,
	); err != nil {
		return fmt.Errorf("failed to update picture record id %d: %v", record.Id, err)
	}

	return nil
}

// Delete removes the picture record by id.
func (s *mysqlPictureStore) Delete(ctx context.Context, id int64) error {

	qry := `
		DELETE FROM picture
		WHERE id = ?`

	if _, err := s.db.ExecContext(ctx, qry, id); err != nil {
		return fmt.Errorf("failed to delete picture record id %d: %v", id, err)
	}

	return nil
}

// selectPictures runs a picture select query and scans all rows.
func (s *mysqlPictureStore) selectPictures(ctx context.Context, qry string, args ...interface{}) ([]api.Picture, error) {

	rows, err := s.db.QueryContext(ctx, qry, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select picture records: %v", err)
	}
	defer rows.Close()

	var records []api.Picture
	for rows.Next() {
		record, err := scanPicture(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan picture record: %v", err)
		}
		records = append(records, *record)
	}

	return records, rows.Err()
}

// scannable covers both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...interface{}) error
}

func scanPicture(row scannable) (*api.Picture, error) {

	var record api.Picture
	if err := row.Scan(
		&record.Id,
		&record.UserId,
		&record.AlbumId,
		&record.Size,
		&record.OriginalKey,
		&record.OptimizedKey,
		&record.DownloadCode,
		&record.CapturedAt,
		&record.UploadedAt,
		&record.LastModified,
	); err != nil {
		return nil, err
	}

	return &record, nil
}

// nextId derives the next record id for a table as max(existing id) + 1,
// starting at 1 when the table is empty.
func nextId(ctx context.Context, db *sql.DB, table string) (int64, error) {

	qry := fmt.Sprintf(`
		SELECT COALESCE(MAX(id), 0) + 1
		FROM %s`, table)

	var id int64
	if err := db.QueryRowContext(ctx, qry).Scan(&id); err != nil {
		return 0, err
	}

	return id, nil
}

// NewMySqlAlbumStore creates an AlbumStore backed by the album and
// album_share tables.
func NewMySqlAlbumStore(db *sql.DB) AlbumStore {
	return &mysqlAlbumStore{db: db}
}

var _ AlbumStore = (*mysqlAlbumStore)(nil)

type mysqlAlbumStore struct {
	db *sql.DB
}

// Save persists a new album record under the next id and returns that id.
func (s *mysqlAlbumStore) Save(ctx context.Context, record api.Album) (int64, error) {

	id, err := nextId(ctx, s.db, "album")
	if err != nil {
		return 0, fmt.Errorf("failed to derive next album id: %v", err)
	}

	qry := `
		INSERT INTO album (
			id,
			user_id,
			name,
			chronological,
			download_code
		) VALUES (?, ?, ?, ?, ?)`

	if _, err := s.db.ExecContext(
		ctx,
		qry,
		id,
		record.UserId,
		record.Name,
		record.Chronological,
		record.DownloadCode,
	); err != nil {
		return 0, fmt.Errorf("failed to insert album record: %v", err)
	}

	if err := s.replaceShares(ctx, id, record.SharedUsers); err != nil {
		return 0, err
	}

	return id, nil
}

// Find retrieves an album record by id, nil if absent.
func (s *mysqlAlbumStore) Find(ctx context.Context, id int64) (*api.Album, error) {

	qry := `
		SELECT
			id,
			user_id,
			name,
			chronological,
			download_code
		FROM album
		WHERE id = ?`

	var record api.Album
	if err := s.db.QueryRowContext(ctx, qry, id).Scan(
		&record.Id,
		&record.UserId,
		&record.Name,
		&record.Chronological,
		&record.DownloadCode,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to select album record id %d: %v", id, err)
	}

	shared, err := s.selectShares(ctx, id)
	if err != nil {
		return nil, err
	}
	record.SharedUsers = shared

	return &record, nil
}

// FindByUser retrieves all albums the user owns or is shared into.
func (s *mysqlAlbumStore) FindByUser(ctx context.Context, userId int64) ([]api.Album, error) {

	qry := `
		SELECT DISTINCT
			a.id,
			a.user_id,
			a.name,
			a.chronological,
			a.download_code
		FROM album a
			LEFT OUTER JOIN album_share s ON a.id = s.album_id
		WHERE a.user_id = ?
			OR s.user_id = ?`

	rows, err := s.db.QueryContext(ctx, qry, userId, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to select album records for user %d: %v", userId, err)
	}
	defer rows.Close()

	var records []api.Album
	for rows.Next() {
		var record api.Album
		if err := rows.Scan(
			&record.Id,
			&record.UserId,
			&record.Name,
			&record.Chronological,
			&record.DownloadCode,
		); err != nil {
			return nil, fmt.Errorf("failed to scan album record: %v", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range records {
		shared, err := s.selectShares(ctx, records[i].Id)
		if err != nil {
			return nil, err
		}
		records[i].SharedUsers = shared
	}

	return records, nil
}

// Update replaces the stored record's mutable fields, matched by id.
func (s *mysqlAlbumStore) Update(ctx context.Context, record api.Album) error {

	qry := `
		UPDATE album SET
			user_id = ?,
			name = ?,
			chronological = ?,
			download_code = ?
		WHERE id = ?`

	if _, err := s.db.ExecContext(
		ctx,
		qry,
		record.UserId,
		record.Name,
		record.Chronological,
		record.DownloadCode,
		record.Id,
	); err != nil {
		return fmt.Errorf("failed to update album record id %d: %v", record.Id, err)
	}

	return s.replaceShares(ctx, record.Id, record.SharedUsers)
}

// Delete removes the album record and its share rows by id.
func (s *mysqlAlbumStore) Delete(ctx context.Context, id int64) error {

	if _, err := s.db.ExecContext(ctx, `DELETE FROM album_share WHERE album_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete album share records for album id %d: %v", id, err)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM album WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete album record id %d: %v", id, err)
	}

	return nil
}

// selectShares retrieves the shared user ids for an album.
func (s *mysqlAlbumStore) selectShares(ctx context.Context, albumId int64) ([]int64, error) {

	qry := `
		SELECT user_id
		FROM album_share
		WHERE album_id = ?`

	rows, err := s.db.QueryContext(ctx, qry, albumId)
	if err != nil {
		return nil, fmt.Errorf("failed to select album share records for album id %d: %v", albumId, err)
	}
	defer rows.Close()

	shared := make([]int64, 0)
	for rows.Next() {
		var userId int64
		if err := rows.Scan(&userId); err != nil {
			return nil, fmt.Errorf("failed to scan album share record: %v", err)
		}
		shared = append(shared, userId)
	}

	return shared, rows.Err()
}

// replaceShares rewrites the share rows for an album to match the given set.
func (s *mysqlAlbumStore) replaceShares(ctx context.Context, albumId int64, shared []int64) error {

	if _, err := s.db.ExecContext(ctx, `DELETE FROM album_share WHERE album_id = ?`, albumId); err != nil {
		return fmt.Errorf("failed to clear album share records for album id %d: %v", albumId, err)
	}

	for _, userId := range shared {
		if _, err := s.db.ExecContext(
			ctx,
			`INSERT INTO album_share (album_id, user_id) VALUES (?, ?)`,
			albumId,
			userId,
		); err != nil {
			return fmt.Errorf("failed to insert album share record for album id %d: %v", albumId, err)
		}
	}

	return nil
}

// NewMySqlLimitStore creates a LimitStore backed by the storage_limit table.
func NewMySqlLimitStore(db *sql.DB) LimitStore {
	return &mysqlLimitStore{db: db}
}

var _ LimitStore = (*mysqlLimitStore)(nil)

type mysqlLimitStore struct {
	db *sql.DB
}

// Find returns the stored limit for the user and whether one exists.
func (s *mysqlLimitStore) Find(ctx context.Context, userId int64) (int64, bool, error) {

	qry := `
		SELECT bytes
		FROM storage_limit
		WHERE user_id = ?`

	var limit int64
	if err := s.db.QueryRowContext(ctx, qry, userId).Scan(&limit); err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to select storage limit for user %d: %v", userId, err)
	}

	return limit, true, nil
}

// Save stores (or replaces) the limit for the user.
func (s *mysqlLimitStore) Save(ctx context.Context, userId int64, limit int64) error {

	qry := `
		INSERT INTO storage_limit (user_id, bytes)
		VALUES (?, ?)
		ON DUPLICATE KEY UPDATE bytes = ?`

	if _, err := s.db.ExecContext(ctx, qry, userId, limit, limit); err != nil {
		return fmt.Errorf("failed to save storage limit for user %d: %v", userId, err)
	}

	return nil
}
