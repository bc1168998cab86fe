package roster

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/entrhq/grimnote/pkg/logging"
)

// StorageKey is the single key under which the roster array is persisted.
const StorageKey = "known_players"

// Store owns the id → Record mapping plus the derived friend/blocked
// id-sets. Every mutation recomputes the derived sets and rewrites the
// persisted array wholesale; the in-memory map is always authoritative
// for reads within a session.
type Store struct {
	mu      sync.RWMutex
	storage Storage
	logger  *logging.Logger

	records map[string]Record
	friends map[string]struct{}
	blocked map[string]struct{}
}

// NewStore creates a roster store backed by the given storage.
// The logger may be nil. Call Load before first use.
func NewStore(storage Storage, logger *logging.Logger) *Store {
	return &Store{
		storage: storage,
		logger:  logger,
		records: make(map[string]Record),
		friends: make(map[string]struct{}),
		blocked: make(map[string]struct{}),
	}
}

// Load reads the persisted roster array. A missing key or malformed
// payload yields an empty roster rather than an error; the host must
// start even when the stored data is unusable.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, found, err := s.storage.Read(StorageKey)
	if err != nil {
		return fmt.Errorf("failed to read roster: %w", err)
	}

	s.records = make(map[string]Record)
	if found {
		var list []Record
		if err := json.Unmarshal(data, &list); err != nil {
			s.warnf("discarding malformed roster data: %v", err)
		} else {
			for _, rec := range list {
				if rec.ID == "" || rec.IsEmpty() {
					continue
				}
				s.records[rec.ID] = rec
			}
		}
	}

	s.recompute()
	return nil
}

// Get returns the stored record for id, or a transient record carrying
// the fallback name. Transient records are not persisted until mutated
// through Add, ToggleFriend, ToggleBlocked, or SetNote.
func (s *Store) Get(id, fallbackName string) Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rec, ok := s.records[id]; ok {
		return rec
	}
	rec := Record{ID: id}
	if fallbackName != "" {
		name := fallbackName
		rec.Name = &name
	}
	return rec
}

// Add upserts the record by id, recomputes the derived sets, and
// persists the full roster.
func (s *Store) Add(rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record has no id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[rec.ID] = rec
	s.recompute()
	return s.persist()
}

// Prune removes the id only if its current record is empty; a record
// still carrying status or notes is left untouched.
func (s *Store) Prune(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok || !rec.IsEmpty() {
		return nil
	}

	delete(s.records, id)
	s.recompute()
	return s.persist()
}

// IsFriend reports membership in the derived friend id-set.
func (s *Store) IsFriend(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.friends[id]
	return ok
}

// IsBlocked reports membership in the derived blocked id-set.
func (s *Store) IsBlocked(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blocked[id]
	return ok
}

// GetNotes returns the note text for id, "" when absent or unset.
func (s *Store) GetNotes(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rec, ok := s.records[id]; ok {
		return rec.NoteText()
	}
	return ""
}

// ToggleFriend flips the record's status to friend, or clears it when
// already friend. Status is a single field, so setting friend while
// blocked clears blocked. Returns the record as stored (or pruned).
func (s *Store) ToggleFriend(rec Record) (Record, error) {
	return s.toggle(rec, StatusFriend)
}

// ToggleBlocked flips the record's status to blocked, or clears it when
// already blocked.
func (s *Store) ToggleBlocked(rec Record) (Record, error) {
	return s.toggle(rec, StatusBlocked)
}

func (s *Store) toggle(rec Record, target Status) (Record, error) {
	if rec.ID == "" {
		return rec, fmt.Errorf("record has no id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Prefer the stored copy: the caller may hold a stale transient.
	if stored, ok := s.records[rec.ID]; ok {
		stored.Name = rec.Name
		rec = stored
	}

	if rec.Status == target {
		rec.Status = StatusNone
	} else {
		rec.Status = target
	}

	return rec, s.commit(rec)
}

// SetNote replaces the record's note. A nil note clears it; an explicit
// empty string is a real note and keeps the record persisted.
func (s *Store) SetNote(rec Record, note *string) (Record, error) {
	if rec.ID == "" {
		return rec, fmt.Errorf("record has no id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if stored, ok := s.records[rec.ID]; ok {
		stored.Name = rec.Name
		rec = stored
	}

	rec.Notes = note
	return rec, s.commit(rec)
}

// commit applies the empty-pruning invariant: empty records are removed,
// everything else is upserted. Callers must hold the write lock.
func (s *Store) commit(rec Record) error {
	if rec.IsEmpty() {
		delete(s.records, rec.ID)
	} else {
		s.records[rec.ID] = rec
	}
	s.recompute()
	return s.persist()
}

// All returns a snapshot of the stored records, ordered by id.
func (s *Store) All() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// recompute rebuilds the derived id-sets from the record map. Callers
// must hold the write lock.
func (s *Store) recompute() {
	s.friends = make(map[string]struct{})
	s.blocked = make(map[string]struct{})
	for id, rec := range s.records {
		switch rec.Status {
		case StatusFriend:
			s.friends[id] = struct{}{}
		case StatusBlocked:
			s.blocked[id] = struct{}{}
		}
	}
}

// persist rewrites the full roster array. Callers must hold the lock.
func (s *Store) persist() error {
	data, err := json.Marshal(s.snapshot())
	if err != nil {
		return fmt.Errorf("failed to encode roster: %w", err)
	}
	if err := s.storage.Write(StorageKey, data); err != nil {
		return fmt.Errorf("failed to persist roster: %w", err)
	}
	return nil
}

func (s *Store) snapshot() []Record {
	list := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		list = append(list, rec)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func (s *Store) warnf(format string, v ...interface{}) {
	if s.logger != nil {
		s.logger.Warnf(format, v...)
	}
}
