package repository

import (
	"context"
	"errors"

	"github.com/kentsubra71/keystone/internal/mail/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ThreadRepository interface {
	FindByThreadID(ctx context.Context, threadID string) (*domain.ThreadRecord, error)
	// Upsert inserts rec or overwrites the record with the same thread id.
	Upsert(ctx context.Context, rec *domain.ThreadRecord) error
}

type threadRepository struct {
	db *gorm.DB
}

func NewThreadRepository(db *gorm.DB) ThreadRepository {
	return &threadRepository{db: db}
}

func (r *threadRepository) FindByThreadID(ctx context.Context, threadID string) (*domain.ThreadRecord, error) {
	var rec domain.ThreadRecord
	if err := r.db.WithContext(ctx).Where("thread_id = ?", threadID).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *threadRepository) Upsert(ctx context.Context, rec *domain.ThreadRecord) error {
	existing, err := r.FindByThreadID(ctx, rec.ThreadID)
	if err != nil {
		return err
	}
	if existing == nil {
		if rec.ID == "" {
			rec.ID = uuid.New().String()
		}
		return r.db.WithContext(ctx).Create(rec).Error
	}

	rec.ID = existing.ID
	rec.CreatedAt = existing.CreatedAt
	return r.db.WithContext(ctx).Save(rec).Error
}
