package services_test

import (
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/irgordon/locker/api/internal/core/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.EntryEvent
}

func (p *recordingPublisher) Publish(userID uuid.UUID, event domain.EntryEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
