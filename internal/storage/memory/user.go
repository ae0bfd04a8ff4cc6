package memory

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rryowa/weq_api/internal/models"
	"github.com/rryowa/weq_api/internal/storage"
)

type UserRepository struct {
	mu      sync.RWMutex
	seq     int64
	byID    map[int64]models.User
	byName  map[string]int64
	byEmail map[string]int64
	log     *zap.SugaredLogger
}

func NewUserRepository(log *zap.SugaredLogger) *UserRepository {
	return &UserRepository{
		byID:    make(map[int64]models.User),
		byName:  make(map[string]int64),
		byEmail: make(map[string]int64),
		log:     log,
	}
}

func (m *UserRepository) CreateUser(_ context.Context, user models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byEmail[user.Email]; ok {
		return nil, storage.ErrUserExists
	}
	if _, ok := m.byName[user.Username]; ok {
		return nil, storage.ErrUserExists
	}

	m.seq++
	user.ID = m.seq
	user.CreatedAt = time.Now().UTC()
	m.byID[user.ID] = user
	m.byName[user.Username] = user.ID
	m.byEmail[user.Email] = user.ID
	m.log.Debugw("User created", "userID", user.ID)

	return &user, nil
}

func (m *UserRepository) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.lookup(m.byName, username)
}

func (m *UserRepository) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.lookup(m.byEmail, email)
}

func (m *UserRepository) lookup(index map[string]int64, key string) (*models.User, error) {
	id, ok := index[key]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	user := m.byID[id]
	return &user, nil
}
