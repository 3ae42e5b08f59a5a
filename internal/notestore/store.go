// Package notestore owns the persisted per-unit note collection and its
// change notification. It is the single write path for unified notes: every
// caller goes through this service instead of touching storage directly, and
// storage failures degrade to logged empty results rather than errors, so the
// display layer always receives a well-formed (possibly empty) collection.
package notestore

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fixturelab/plumbline/internal/report"
	"github.com/fixturelab/plumbline/internal/storage"
)

// Storage is the persistence surface the service needs.
type Storage interface {
	ListNotes() ([]storage.Note, error)
	ReplaceNotes(notes []storage.Note) error
	GetNoteByUnit(unit string) (storage.Note, error)
	DeleteAllNotes() error
}

// Service mediates all reads and writes of the stored note collection.
type Service struct {
	store  Storage
	logger *slog.Logger

	mu     sync.Mutex
	nextID int
	subs   map[int]func([]storage.Note)
}

// New creates a Service backed by store.
func New(store Storage) *Service {
	return &Service{
		store:  store,
		logger: slog.Default(),
		subs:   make(map[int]func([]storage.Note)),
	}
}

// Load returns the persisted note collection, or an empty collection on any
// storage failure.
func (s *Service) Load() []storage.Note {
	notes, err := s.store.ListNotes()
	if err != nil {
		s.logger.Warn("loading notes failed, treating as empty", "error", err)
		return []storage.Note{}
	}
	if notes == nil {
		notes = []storage.Note{}
	}
	return notes
}

// Save persists the collection after dropping entries whose content is empty
// or carries a placeholder token, then notifies subscribers with the written
// collection before returning. Write failures are logged and swallowed; no
// notification is dispatched for a failed write.
func (s *Service) Save(notes []storage.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveLocked(notes)
}

func (s *Service) saveLocked(notes []storage.Note) {
	filtered := make([]storage.Note, 0, len(notes))
	for _, n := range notes {
		n.Unit = strings.TrimSpace(n.Unit)
		content := strings.TrimSpace(n.Content)
		if n.Unit == "" || content == "" || report.ContainsPlaceholder(content) {
			continue
		}
		if n.ID == "" {
			n.ID = uuid.New().String()
		}
		if n.UpdatedAt.IsZero() {
			n.UpdatedAt = time.Now().UTC()
		}
		filtered = append(filtered, n)
	}

	if err := s.store.ReplaceNotes(filtered); err != nil {
		s.logger.Error("saving notes failed", "error", err)
		return
	}

	for _, fn := range s.subs {
		fn(filtered)
	}
}

// Get returns the stored content for a single unit.
func (s *Service) Get(unit string) (string, bool) {
	n, err := s.store.GetNoteByUnit(strings.TrimSpace(unit))
	if errors.Is(err, storage.ErrNotFound) {
		return "", false
	}
	if err != nil {
		s.logger.Warn("reading note failed", "unit", unit, "error", err)
		return "", false
	}
	return n.Content, true
}

// Update overwrites the unit's stored content, inserting a new entry when
// none exists, then saves the full collection. An edit replaces the unit's
// whole stored note; the other compilation sources are untouched.
func (s *Service) Update(unit, content string) {
	unit = strings.TrimSpace(unit)
	if unit == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	notes, err := s.store.ListNotes()
	if err != nil {
		s.logger.Warn("loading notes for update failed, starting empty", "error", err)
		notes = nil
	}

	found := false
	for i := range notes {
		if strings.TrimSpace(notes[i].Unit) == unit {
			notes[i].Content = content
			notes[i].UpdatedAt = time.Now().UTC()
			found = true
			break
		}
	}
	if !found {
		notes = append(notes, storage.Note{
			ID:        uuid.New().String(),
			Unit:      unit,
			Content:   content,
			UpdatedAt: time.Now().UTC(),
		})
	}

	s.saveLocked(notes)
}

// ClearAll removes the entire collection. No notification is dispatched.
func (s *Service) ClearAll() {
	if err := s.store.DeleteAllNotes(); err != nil {
		s.logger.Error("clearing notes failed", "error", err)
	}
}

// Subscribe registers fn to run synchronously after every successful Save,
// with the newly written collection. The returned function removes the
// subscription.
func (s *Service) Subscribe(fn func([]storage.Note)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// StoredByUnit flattens the collection into the unit -> content mapping the
// compiler consumes.
func StoredByUnit(notes []storage.Note) map[string]string {
	m := make(map[string]string, len(notes))
	for _, n := range notes {
		m[strings.TrimSpace(n.Unit)] = n.Content
	}
	return m
}
