package store

import (
	"context"
	"sync"

	"github.com/lumapix/lumapix/pkg/api"
)

// In-memory store implementations. They back the orchestrator tests and are
// useful for local development without a database; the id scheme matches the
// mysql implementations (max existing id + 1, starting at 1).

// NewMemoryPictureStore creates an in-memory PictureStore.
func NewMemoryPictureStore() PictureStore {
	return &memoryPictureStore{
		records: make(map[int64]api.Picture),
	}
}

var _ PictureStore = (*memoryPictureStore)(nil)

type memoryPictureStore struct {
	mu      sync.RWMutex
	records map[int64]api.Picture
}

func (s *memoryPictureStore) Save(_ context.Context, record api.Picture) (int64, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	var max int64
	for id := range s.records {
		if id > max {
			max = id
		}
	}

	record.Id = max + 1
	s.records[record.Id] = record

	return record.Id, nil
}

func (s *memoryPictureStore) Find(_ context.Context, id int64) (*api.Picture, error) {

	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, nil
	}

	return &record, nil
}

func (s *memoryPictureStore) FindByUser(_ context.Context, userId int64) ([]api.Picture, error) {

	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []api.Picture
	for _, record := range s.records {
		if record.UserId == userId {
			records = append(records, record)
		}
	}

	return records, nil
}

func (s *memoryPictureStore) FindByAlbum(_ context.Context, albumId int64) ([]api.Picture, error) {

	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []api.Picture
	for _, record := range s.records {
		if record.AlbumId == albumId {
			records = append(records, record)
		}
	}

	return records, nil
}

func (s *memoryPictureStore) Update(_ context.Context, record api.Picture) error {

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.Id] = record
	return nil
}

func (s *memoryPictureStore) Delete(_ context.Context, id int64) error {

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, id)
	return nil
}

// NewMemoryAlbumStore creates an in-memory AlbumStore.
func NewMemoryAlbumStore() AlbumStore {
	return &memoryAlbumStore{
		records: make(map[int64]api.Album),
	}
}

var _ AlbumStore = (*memoryAlbumStore)(nil)

type memoryAlbumStore struct {
	mu      sync.RWMutex
	records map[int64]api.Album
}

func (s *memoryAlbumStore) Save(_ context.Context, record api.Album) (int64, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	var max int64
	for id := range s.records {
		if id > max {
			max = id
		}
	}

	record.Id = max + 1
	s.records[record.Id] = record

	return record.Id, nil
}

func (s *memoryAlbumStore) Find(_ context.Context, id int64) (*api.Album, error) {

	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, nil
	}

	// copy the shared user slice so callers cannot mutate stored state
	record.SharedUsers = append([]int64(nil), record.SharedUsers...)

	return &record, nil
}

func (s *memoryAlbumStore) FindByUser(_ context.Context, userId int64) ([]api.Album, error) {

	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []api.Album
	for _, record := range s.records {
		if record.UserId == userId || record.SharedWith(userId) {
			record.SharedUsers = append([]int64(nil), record.SharedUsers...)
			records = append(records, record)
		}
	}

	return records, nil
}

func (s *memoryAlbumStore) Update(_ context.Context, record api.Album) error {

	s.mu.Lock()
	defer s.mu.Unlock()

	record.SharedUsers = append([]int64(nil), record.SharedUsers...)
	s.records[record.Id] = record
	return nil
}

func (s *memoryAlbumStore) Delete(_ context.Context, id int64) error {

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, id)
	return nil
}

// NewMemoryLimitStore creates an in-memory LimitStore.
func NewMemoryLimitStore() LimitStore {
	return &memoryLimitStore{
		limits: make(map[int64]int64),
	}
}

var _ LimitStore = (*memoryLimitStore)(nil)

type memoryLimitStore struct {
	mu     sync.RWMutex
	limits map[int64]int64
}

func (s *memoryLimitStore) Find(_ context.Context, userId int64) (int64, bool, error) {

	s.mu.RLock()
	defer s.mu.RUnlock()

	limit, ok := s.limits[userId]
	return limit, ok, nil
}

func (s *memoryLimitStore) Save(_ context.Context, userId int64, limit int64) error {

	s.mu.Lock()
	defer s.mu.Unlock()

	s.limits[userId] = limit
	return nil
}
