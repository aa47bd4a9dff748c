package repository

import (
	"context"
	"errors"

	"github.com/kentsubra71/keystone/internal/sheet/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OwnerRepository interface {
	List(ctx context.Context) ([]*domain.OwnerDirectoryEntry, error)
	FindByID(ctx context.Context, id string) (*domain.OwnerDirectoryEntry, error)
	FindByEmail(ctx context.Context, email string) (*domain.OwnerDirectoryEntry, error)
	Create(ctx context.Context, entry *domain.OwnerDirectoryEntry) error
	Update(ctx context.Context, entry *domain.OwnerDirectoryEntry) error
	Delete(ctx context.Context, id string) error
}

type ownerRepository struct {
	db *gorm.DB
}

func NewOwnerRepository(db *gorm.DB) OwnerRepository {
	return &ownerRepository{db: db}
}

func (r *ownerRepository) List(ctx context.Context) ([]*domain.OwnerDirectoryEntry, error) {
	var entries []*domain.OwnerDirectoryEntry
	err := r.db.WithContext(ctx).Order("display_name ASC").Find(&entries).Error
	return entries, err
}

func (r *ownerRepository) FindByID(ctx context.Context, id string) (*domain.OwnerDirectoryEntry, error) {
	var entry domain.OwnerDirectoryEntry
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *ownerRepository) FindByEmail(ctx context.Context, email string) (*domain.OwnerDirectoryEntry, error) {
	var entry domain.OwnerDirectoryEntry
	if err := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *ownerRepository) Create(ctx context.Context, entry *domain.OwnerDirectoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *ownerRepository) Update(ctx context.Context, entry *domain.OwnerDirectoryEntry) error {
	result := r.db.WithContext(ctx).Model(&domain.OwnerDirectoryEntry{}).
		Where("id = ?", entry.ID).
		Updates(map[string]interface{}{
			"display_name": entry.DisplayName,
			"email":        entry.Email,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrOwnerNotFound
	}
	return nil
}

func (r *ownerRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.OwnerDirectoryEntry{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrOwnerNotFound
	}
	return nil
}
