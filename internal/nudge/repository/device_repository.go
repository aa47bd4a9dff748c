package repository

import (
	"context"
	"time"

	"github.com/kentsubra71/keystone/internal/nudge/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeviceRepository stores FCM registration tokens.
type DeviceRepository interface {
	Save(ctx context.Context, token, deviceInfo string) error
	ListTokens(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, tokens ...string) error
}

type deviceRepository struct {
	db *gorm.DB
}

func NewDeviceRepository(db *gorm.DB) DeviceRepository {
	return &deviceRepository{db: db}
}

// Save registers a token, refreshing its device info if it is already known.
func (r *deviceRepository) Save(ctx context.Context, token, deviceInfo string) error {
	now := time.Now()
	device := &domain.DeviceToken{
		ID:         uuid.New().String(),
		Token:      token,
		DeviceInfo: deviceInfo,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// INSERT ... ON CONFLICT (token) DO UPDATE
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"device_info", "updated_at"}),
	}).Create(device).Error
}

func (r *deviceRepository) ListTokens(ctx context.Context) ([]string, error) {
	var tokens []string
	err := r.db.WithContext(ctx).Model(&domain.DeviceToken{}).Order("created_at ASC").Pluck("token", &tokens).Error
	return tokens, err
}

func (r *deviceRepository) Delete(ctx context.Context, tokens ...string) error {
	if len(tokens) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("token IN ?", tokens).Delete(&domain.DeviceToken{}).Error
}
