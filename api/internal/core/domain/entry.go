package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry is one stored credential. EncryptedPassword is an opaque sealed blob
// produced on the client; the server never inspects its bytes.
type Entry struct {
	ID                uuid.UUID `json:"id"`
	UserID            uuid.UUID `json:"userId"`
	Title             string    `json:"title"`
	Username          string    `json:"username"`
	EncryptedPassword string    `json:"encryptedPassword"`
	Notes             string    `json:"notes,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// EntryInput carries the mutable fields of an Entry.
type EntryInput struct {
	Title             string
	Username          string
	EncryptedPassword string
	Notes             string
}

// EntryRecord is the persisted form: notes are sealed at rest.
type EntryRecord struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	Title             string
	Username          string
	EncryptedPassword string
	NotesCiphertext   *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// EntryRepository defines the platform-agnostic contract.
// Every lookup is scoped to the owning user to prevent IDOR.
type EntryRepository interface {
	Create(ctx context.Context, rec *EntryRecord) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]EntryRecord, error)
	GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*EntryRecord, error)
	Update(ctx context.Context, rec *EntryRecord) error
	Delete(ctx context.Context, id uuid.UUID, userID uuid.UUID) error
}

type EntryService interface {
	List(ctx context.Context, userID uuid.UUID) ([]Entry, error)
	Get(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*Entry, error)
	Create(ctx context.Context, userID uuid.UUID, in EntryInput) (*Entry, error)
	Update(ctx context.Context, id uuid.UUID, userID uuid.UUID, in EntryInput) (*Entry, error)
	Delete(ctx context.Context, id uuid.UUID, userID uuid.UUID) error
}

// EntryEvent is broadcast to a user's live sessions when their vault changes.
// It names the entry only; clients refetch to see contents.
type EntryEvent struct {
	Type    string    `json:"type"` // entry.created, entry.updated, entry.deleted
	EntryID uuid.UUID `json:"entryId"`
	At      time.Time `json:"at"`
}

const (
	EventEntryCreated = "entry.created"
	EventEntryUpdated = "entry.updated"
	EventEntryDeleted = "entry.deleted"
)

// EventPublisher fans vault change events out to subscribers.
type EventPublisher interface {
	Publish(userID uuid.UUID, event EntryEvent)
}
