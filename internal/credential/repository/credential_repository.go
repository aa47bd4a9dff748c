package repository

import (
	"context"
	"errors"
	"time"

	"github.com/kentsubra71/keystone/internal/credential/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CredentialRepository interface {
	// Get returns the stored credential, or nil when none was seeded.
	Get(ctx context.Context) (*domain.Credential, error)
	Save(ctx context.Context, cred *domain.Credential) error
}

type credentialRepository struct {
	db *gorm.DB
}

func NewCredentialRepository(db *gorm.DB) CredentialRepository {
	return &credentialRepository{db: db}
}

func (r *credentialRepository) Get(ctx context.Context) (*domain.Credential, error) {
	var cred domain.Credential
	err := r.db.WithContext(ctx).Where("id = ?", domain.DefaultID).First(&cred).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cred, nil
}

func (r *credentialRepository) Save(ctx context.Context, cred *domain.Credential) error {
	cred.ID = domain.DefaultID
	cred.UpdatedAt = time.Now()
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = cred.UpdatedAt
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"refresh_token", "access_token", "expires_at", "owner_email", "updated_at"}),
	}).Create(cred).Error
}
