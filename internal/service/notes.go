package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rryowa/weq_api/internal/models"
	"github.com/rryowa/weq_api/internal/storage"
)

const (
	DefaultNotesLimit = 10
	MaxNotesLimit     = 1000
)

type NoteService struct {
	repo storage.NoteRepository
}

func NewNoteService(repo storage.NoteRepository) *NoteService {
	return &NoteService{repo: repo}
}

func (s *NoteService) Create(ctx context.Context, req models.NoteCreateRequest) (*models.Note, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title must not be empty", ErrValidation)
	}

	note, err := s.repo.CreateNote(ctx, models.Note{Title: title, Content: req.Content})
	if err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return note, nil
}

func (s *NoteService) List(ctx context.Context, skip, limit int) ([]models.Note, error) {
	if skip < 0 || limit < 1 || limit > MaxNotesLimit {
		return nil, fmt.Errorf("%w: skip must be >= 0 and limit within 1..%d", ErrValidation, MaxNotesLimit)
	}

	notes, err := s.repo.ListNotes(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	if notes == nil {
		notes = []models.Note{}
	}
	return notes, nil
}

func (s *NoteService) Get(ctx context.Context, id int64) (*models.Note, error) {
	note, err := s.repo.GetNote(ctx, id)
	if errors.Is(err, storage.ErrNoteNotFound) {
		return nil, ErrNoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	return note, nil
}
