package repository

import (
	"context"
	"time"

	"github.com/kentsubra71/keystone/internal/nudge/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NudgeRepository interface {
	// ListSentSince returns nudges sent at or after since.
	ListSentSince(ctx context.Context, since time.Time) ([]*domain.Nudge, error)
	Create(ctx context.Context, n *domain.Nudge) error
	Dismiss(ctx context.Context, id string, at time.Time) error
	// ListActive returns undismissed nudges created at or after since, with item titles.
	ListActive(ctx context.Context, since time.Time) ([]*domain.Nudge, error)
}

type nudgeRepository struct {
	db *gorm.DB
}

func NewNudgeRepository(db *gorm.DB) NudgeRepository {
	return &nudgeRepository{db: db}
}

func (r *nudgeRepository) ListSentSince(ctx context.Context, since time.Time) ([]*domain.Nudge, error) {
	var nudges []*domain.Nudge
	err := r.db.WithContext(ctx).
		Where("sent_at IS NOT NULL AND sent_at >= ?", since).
		Order("sent_at ASC").
		Find(&nudges).Error
	return nudges, err
}

func (r *nudgeRepository) Create(ctx context.Context, n *domain.Nudge) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *nudgeRepository) Dismiss(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Nudge{}).
		Where("id = ?", id).
		Update("dismissed_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNudgeNotFound
	}
	return nil
}

func (r *nudgeRepository) ListActive(ctx context.Context, since time.Time) ([]*domain.Nudge, error) {
	var nudges []*domain.Nudge
	err := r.db.WithContext(ctx).
		Model(&domain.Nudge{}).
		Select("nudges.*, action_items.title AS item_title").
		Joins("JOIN action_items ON action_items.id = nudges.item_id").
		Where("nudges.dismissed_at IS NULL AND nudges.created_at >= ?", since).
		Order("nudges.created_at DESC").
		Find(&nudges).Error
	return nudges, err
}
