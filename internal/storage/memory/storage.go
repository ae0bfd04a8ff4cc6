// Package memory keeps everything in process memory. It is meant for tests
// and local development (DB_ADAPTER=memory); nothing survives a restart.
package memory

import (
	"context"

	"go.uber.org/zap"

	"github.com/rryowa/weq_api/internal/models"
	"github.com/rryowa/weq_api/internal/storage"
)

type Storage struct {
	*UserRepository
	*RevokedTokenRepository
	*NoteRepository
}

func NewStorage(log *zap.SugaredLogger) *Storage {
	return &Storage{
		UserRepository:         NewUserRepository(log),
		RevokedTokenRepository: NewRevokedTokenRepository(),
		NoteRepository:         NewNoteRepository(),
	}
}

func (s *Storage) Ping(_ context.Context) error { return nil }

var _ storage.Storage = (*Storage)(nil)

// RegisterUser is atomic because the check and insert share the user lock.
func (s *Storage) RegisterUser(ctx context.Context, user models.User) (*models.User, error) {
	return s.UserRepository.CreateUser(ctx, user)
}
