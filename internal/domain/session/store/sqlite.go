package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"vetrina-server-go/internal/domain/session/model"
	"vetrina-server-go/internal/platform/storage"
)

type sqliteStore struct {
	db *gorm.DB
}

// NewSQLite builds a database-backed session store.
func NewSQLite(db *gorm.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite store requires database handle")
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Save(ctx context.Context, session model.Session) error {
	record := &storage.Session{
		Token:         session.Token,
		ClientAddress: session.ClientAddress,
		IssuedAt:      session.IssuedAt,
		ExpiresAt:     session.ExpiresAt,
	}
	return s.db.WithContext(ctx).Create(record).Error
}

func (s *sqliteStore) Get(ctx context.Context, token string) (model.Session, error) {
	var record storage.Session
	err := s.db.WithContext(ctx).Where("token = ?", token).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Session{}, ErrNotFound
	}
	if err != nil {
		return model.Session{}, err
	}
	session := model.Session{
		Token:         record.Token,
		ClientAddress: record.ClientAddress,
		IssuedAt:      record.IssuedAt,
		ExpiresAt:     record.ExpiresAt,
	}
	// Expired rows are rejected lazily; the sweep removes them later.
	if session.Expired(time.Now()) {
		return model.Session{}, ErrNotFound
	}
	return session, nil
}

func (s *sqliteStore) Delete(ctx context.Context, token string) error {
	return s.db.WithContext(ctx).Where("token = ?", token).Delete(&storage.Session{}).Error
}

func (s *sqliteStore) CleanupExpired(ctx context.Context) error {
	return s.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&storage.Session{}).
		Error
}

func (s *sqliteStore) Stats(ctx context.Context) (map[string]any, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&storage.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}
	var active int64
	if err := s.db.WithContext(ctx).Model(&storage.Session{}).
		Where("expires_at >= ?", time.Now()).Count(&active).Error; err != nil {
		return nil, err
	}
	return map[string]any{
		"type":   "sqlite",
		"total":  total,
		"active": active,
	}, nil
}

func (s *sqliteStore) Close(context.Context) error {
	return nil
}
