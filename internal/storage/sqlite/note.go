package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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
	createdAt := unixNow()
	query := `INSERT INTO notes (title, content, created_at) VALUES (?, ?, ?) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, note.Title, note.Content, createdAt).Scan(&note.ID); err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	note.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &note, nil
}

func (r *NoteRepository) ListNotes(ctx context.Context, offset, limit int) ([]models.Note, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, title, content, created_at FROM notes ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := make([]models.Note, 0, limit)
	for rows.Next() {
		var (
			n         models.Note
			createdAt int64
		)
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		n.CreatedAt = time.Unix(createdAt, 0).UTC()
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

func (r *NoteRepository) GetNote(ctx context.Context, id int64) (*models.Note, error) {
	var (
		n         models.Note
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx, `SELECT id, title, content, created_at FROM notes WHERE id = ?`, id).
		Scan(&n.ID, &n.Title, &n.Content, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNoteNotFound
		}
		return nil, fmt.Errorf("get note: %w", err)
	}
	n.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &n, nil
}
