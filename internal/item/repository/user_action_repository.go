package repository

import (
	"context"
	"time"

	"github.com/kentsubra71/keystone/internal/item/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserActionRepository is append-only: there is no update or delete.
type UserActionRepository interface {
	Append(ctx context.Context, action *domain.UserAction) error
	ListByItem(ctx context.Context, itemID string) ([]*domain.UserAction, error)
}

type userActionRepository struct {
	db *gorm.DB
}

func NewUserActionRepository(db *gorm.DB) UserActionRepository {
	return &userActionRepository{db: db}
}

func (r *userActionRepository) Append(ctx context.Context, action *domain.UserAction) error {
	if action.ID == "" {
		action.ID = uuid.New().String()
	}
	if action.CreatedAt.IsZero() {
		action.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(action).Error
}

func (r *userActionRepository) ListByItem(ctx context.Context, itemID string) ([]*domain.UserAction, error) {
	var actions []*domain.UserAction
	err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("created_at DESC").
		Find(&actions).Error
	return actions, err
}
