package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/irgordon/locker/api/internal/core/domain"
	"github.com/irgordon/locker/api/internal/infrastructure/crypto"
)

// EntryService owns vault entry CRUD. Passwords arrive already sealed by the
// client and are stored as opaque blobs; only notes are encrypted here, with
// the server master key bound to the entry ID.
type EntryService struct {
	repo      domain.EntryRepository
	atRest    domain.CryptoService
	publisher domain.EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewEntryService(
	repo domain.EntryRepository,
	atRest domain.CryptoService,
	publisher domain.EventPublisher,
	logger *slog.Logger,
) *EntryService {
	return &EntryService{
		repo:      repo,
		atRest:    atRest,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *EntryService) List(ctx context.Context, userID uuid.UUID) ([]domain.Entry, error) {
	records, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}

	entries := make([]domain.Entry, 0, len(records))
	for i := range records {
		entry, err := s.toEntry(ctx, &records[i])
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

func (s *EntryService) Get(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*domain.Entry, error) {
	rec, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return s.toEntry(ctx, rec)
}

func (s *EntryService) Create(ctx context.Context, userID uuid.UUID, in domain.EntryInput) (*domain.Entry, error) {
	// 🛡️ Shape check only: the server holds no key that could open the blob
	if err := crypto.ValidateBlob(in.EncryptedPassword); err != nil {
		return nil, domain.ErrInvalidBlob
	}

	now := s.now()
	rec := &domain.EntryRecord{
		ID:                uuid.New(),
		UserID:            userID,
		Title:             in.Title,
		Username:          in.Username,
		EncryptedPassword: in.EncryptedPassword,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.sealNotes(ctx, rec, in.Notes); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to create entry: %w", err)
	}

	s.logger.Info("Entry created",
		slog.String("entry_id", rec.ID.String()),
		slog.String("user_id", userID.String()))
	s.publish(userID, domain.EventEntryCreated, rec.ID)

	return s.toEntry(ctx, rec)
}

// Update replaces the mutable fields. A new password means a new blob; the
// old blob is discarded, never modified.
func (s *EntryService) Update(ctx context.Context, id uuid.UUID, userID uuid.UUID, in domain.EntryInput) (*domain.Entry, error) {
	if err := crypto.ValidateBlob(in.EncryptedPassword); err != nil {
		return nil, domain.ErrInvalidBlob
	}

	// 1. Ownership check (Zero-Trust IDOR protection)
	rec, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	// 2. Apply intent
	rec.Title = in.Title
	rec.Username = in.Username
	rec.EncryptedPassword = in.EncryptedPassword
	rec.UpdatedAt = s.now()
	if err := s.sealNotes(ctx, rec, in.Notes); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to update entry: %w", err)
	}

	s.logger.Info("Entry updated",
		slog.String("entry_id", rec.ID.String()),
		slog.String("user_id", userID.String()))
	s.publish(userID, domain.EventEntryUpdated, rec.ID)

	return s.toEntry(ctx, rec)
}

func (s *EntryService) Delete(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return err
	}

	s.logger.Info("Entry deleted",
		slog.String("entry_id", id.String()),
		slog.String("user_id", userID.String()))
	s.publish(userID, domain.EventEntryDeleted, id)
	return nil
}

func (s *EntryService) sealNotes(ctx context.Context, rec *domain.EntryRecord, notes string) error {
	if notes == "" {
		rec.NotesCiphertext = nil
		return nil
	}

	ciphertext, err := s.atRest.Encrypt(ctx, []byte(notes), rec.ID[:])
	if err != nil {
		s.logger.Error("Encryption failure", slog.String("entry_id", rec.ID.String()))
		return fmt.Errorf("cryptographic failure")
	}
	rec.NotesCiphertext = &ciphertext
	return nil
}

func (s *EntryService) toEntry(ctx context.Context, rec *domain.EntryRecord) (*domain.Entry, error) {
	entry := &domain.Entry{
		ID:                rec.ID,
		UserID:            rec.UserID,
		Title:             rec.Title,
		Username:          rec.Username,
		EncryptedPassword: rec.EncryptedPassword,
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
	}

	if rec.NotesCiphertext != nil {
		// 🛡️ Decrypt with the same EntryID binding
		notes, err := s.atRest.Decrypt(ctx, *rec.NotesCiphertext, rec.ID[:])
		if err != nil {
			s.logger.Error("Integrity violation on stored notes", slog.String("entry_id", rec.ID.String()))
			return nil, fmt.Errorf("integrity violation: failed to decrypt notes")
		}
		entry.Notes = string(notes)
	}
	return entry, nil
}

func (s *EntryService) publish(userID uuid.UUID, eventType string, entryID uuid.UUID) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(userID, domain.EntryEvent{Type: eventType, EntryID: entryID, At: s.now()})
}
