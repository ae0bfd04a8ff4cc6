package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rryowa/weq_api/internal/models"
	"github.com/rryowa/weq_api/internal/storage"
)

type NoteRepository struct {
	db storage.DBTX
}

func NewNoteRepository(db storage.DBTX) *NoteRepository {
	return &NoteRepository{db: db}
}

func (r *NoteRepository) CreateNote(ctx context.Context, note models.Note) (*models.Note, error) {
	query := `INSERT INTO notes (title, content) VALUES ($1, $2) RETURNING id, created_at`
	if err := r.db.QueryRowContext(ctx, query, note.Title, note.Content).Scan(&note.ID, &note.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	return &note, nil
}

func (r *NoteRepository) ListNotes(ctx context.Context, offset, limit int) ([]models.Note, error) {
	query := `SELECT id, title, content, created_at FROM notes ORDER BY id LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := make([]models.Note, 0, limit)
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

func (r *NoteRepository) GetNote(ctx context.Context, id int64) (*models.Note, error) {
	query := `SELECT id, title, content, created_at FROM notes WHERE id = $1`
	var n models.Note
	err := r.db.QueryRowContext(ctx, query, id).Scan(&n.ID, &n.Title, &n.Content, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNoteNotFound
		}
		return nil, fmt.Errorf("get note: %w", err)
	}
	return &n, nil
}
