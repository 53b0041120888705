// Package memory holds in-process repositories for tests and local tooling.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/irgordon/locker/api/internal/core/domain"
)

// EntryRepository is an owner-scoped in-memory domain.EntryRepository.
type EntryRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]domain.EntryRecord
}

func NewEntryRepository() *EntryRepository {
	return &EntryRepository{records: make(map[uuid.UUID]domain.EntryRecord)}
}

func (r *EntryRepository) Create(_ context.Context, rec *domain.EntryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[rec.ID]; exists {
		return domain.ErrConflict
	}
	r.records[rec.ID] = cloneRecord(*rec)
	return nil
}

func (r *EntryRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.EntryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.EntryRecord, 0)
	for _, rec := range r.records {
		if rec.UserID == userID {
			out = append(out, cloneRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *EntryRepository) GetByID(_ context.Context, id uuid.UUID, userID uuid.UUID) (*domain.EntryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok || rec.UserID != userID {
		return nil, domain.ErrNotFound
	}
	out := cloneRecord(rec)
	return &out, nil
}

func (r *EntryRepository) Update(_ context.Context, rec *domain.EntryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.records[rec.ID]
	if !ok || existing.UserID != rec.UserID {
		return domain.ErrNotFound
	}
	r.records[rec.ID] = cloneRecord(*rec)
	return nil
}

func (r *EntryRepository) Delete(_ context.Context, id uuid.UUID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok || rec.UserID != userID {
		return domain.ErrNotFound
	}
	delete(r.records, id)
	return nil
}

func cloneRecord(rec domain.EntryRecord) domain.EntryRecord {
	if rec.NotesCiphertext != nil {
		notes := *rec.NotesCiphertext
		rec.NotesCiphertext = &notes
	}
	return rec
}

// UserRepository is an in-memory domain.UserRepository with unique emails.
type UserRepository struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]domain.User
	email map[string]uuid.UUID
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:  make(map[uuid.UUID]domain.User),
		email: make(map[string]uuid.UUID),
	}
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.email[user.Email]; taken {
		return domain.ErrConflict
	}
	r.byID[user.ID] = *user
	r.email[user.Email] = user.ID
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.email[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	u := r.byID[id]
	return &u, nil
}

// SetActive flips an account's active flag. Unknown IDs return ErrNotFound.
func (r *UserRepository) SetActive(id uuid.UUID, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.IsActive = active
	r.byID[id] = u
	return nil
}
