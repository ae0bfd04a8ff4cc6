package memory

import (
	"context"
	"sync"
	"time"

	"github.com/rryowa/weq_api/internal/models"
	"github.com/rryowa/weq_api/internal/storage"
)

type NoteRepository struct {
	mu    sync.RWMutex
	notes []models.Note
}

func NewNoteRepository() *NoteRepository {
	return &NoteRepository{}
}

func (m *NoteRepository) CreateNote(_ context.Context, note models.Note) (*models.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	note.ID = int64(len(m.notes) + 1)
	note.CreatedAt = time.Now().UTC()
	m.notes = append(m.notes, note)
	return &note, nil
}

func (m *NoteRepository) ListNotes(_ context.Context, offset, limit int) ([]models.Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if offset >= len(m.notes) {
		return []models.Note{}, nil
	}
	end := offset + limit
	if end > len(m.notes) {
		end = len(m.notes)
	}
	out := make([]models.Note, end-offset)
	copy(out, m.notes[offset:end])
	return out, nil
}

func (m *NoteRepository) GetNote(_ context.Context, id int64) (*models.Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if id < 1 || id > int64(len(m.notes)) {
		return nil, storage.ErrNoteNotFound
	}
	n := m.notes[id-1]
	return &n, nil
}
