package repository

import (
	"context"
	"errors"
	"time"

	"github.com/kentsubra71/keystone/internal/brief/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BriefRepository interface {
	Create(ctx context.Context, b *domain.Brief) error
	// Latest returns the newest brief, or nil when none exists.
	Latest(ctx context.Context) (*domain.Brief, error)
}

type briefRepository struct {
	db *gorm.DB
}

func NewBriefRepository(db *gorm.DB) BriefRepository {
	return &briefRepository{db: db}
}

func (r *briefRepository) Create(ctx context.Context, b *domain.Brief) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	b.CreatedAt = time.Now()
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *briefRepository) Latest(ctx context.Context) (*domain.Brief, error) {
	var b domain.Brief
	err := r.db.WithContext(ctx).Order("generated_at DESC").First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}
