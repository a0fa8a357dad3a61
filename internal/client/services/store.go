package services

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/photovault/internal/client/models"
)

// Store is the single owner of the upload item list. All mutation goes
// through it, and every successful mutation publishes an immutable
// snapshot on the events channel, so UI layers re-render from copies and
// never touch live state.
type Store struct {
	mu     sync.Mutex
	items  []*models.UploadItem
	index  map[string]*models.UploadItem
	events chan []models.UploadItem
}

func NewStore() *Store {
	return &Store{
		index:  make(map[string]*models.UploadItem),
		events: make(chan []models.UploadItem, 64),
	}
}

// Add accepts a selected file into the pipeline and returns a copy of the
// created item.
func (s *Store) Add(file models.SelectedFile) models.UploadItem {
	s.mu.Lock()
	item := &models.UploadItem{
		Id:     uuid.NewString(),
		File:   file,
		Status: models.StatusIdle,
	}
	s.items = append(s.items, item)
	s.index[item.Id] = item
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(snap)
	return *item
}

// Update applies fn to the item under the store lock and publishes a
// snapshot when fn succeeds. fn must not retain the item pointer.
func (s *Store) Update(id string, fn func(*models.UploadItem) error) error {
	s.mu.Lock()
	item, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("unknown upload item %s", id)
	}
	err := fn(item)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.emit(snap)
	return nil
}

// Get returns a copy of the item with the given id.
func (s *Store) Get(id string) (models.UploadItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.index[id]
	if !ok {
		return models.UploadItem{}, false
	}
	return *item, true
}

// Items returns a snapshot of all items in insertion order.
func (s *Store) Items() []models.UploadItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// PendingIDs lists the ids of items still waiting to be processed, in
// insertion order.
func (s *Store) PendingIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for _, item := range s.items {
		if item.Status == models.StatusIdle {
			ids = append(ids, item.Id)
		}
	}
	return ids
}

// Stats aggregates item states for the progress UI.
func (s *Store) Stats() models.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := models.Stats{Total: len(s.items)}
	for _, item := range s.items {
		switch {
		case item.Status == models.StatusIdle:
			stats.Pending++
		case item.Status == models.StatusDone:
			stats.Done++
		case item.Status == models.StatusError:
			stats.Error++
		default:
			stats.Uploading++
		}
	}
	return stats
}

// Clear discards the whole session.
func (s *Store) Clear() {
	s.mu.Lock()
	s.items = nil
	s.index = make(map[string]*models.UploadItem)
	s.mu.Unlock()

	s.emit(nil)
}

// Events exposes the snapshot stream. Snapshots are dropped, not
// blocked on, when the consumer lags.
func (s *Store) Events() <-chan []models.UploadItem {
	return s.events
}

func (s *Store) snapshotLocked() []models.UploadItem {
	snap := make([]models.UploadItem, 0, len(s.items))
	for _, item := range s.items {
		snap = append(snap, *item)
	}
	return snap
}

func (s *Store) emit(snap []models.UploadItem) {
	select {
	case s.events <- snap:
	default:
	}
}
