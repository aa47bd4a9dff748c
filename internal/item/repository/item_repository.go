package repository

import (
	"context"
	"errors"
	"time"

	"github.com/kentsubra71/keystone/internal/item/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ItemRepository defines data access for canonical action items.
type ItemRepository interface {
	FindByID(ctx context.Context, id string) (*domain.ActionItem, error)
	// FindBySourceIDs returns the items for a source keyed by source id.
	FindBySourceIDs(ctx context.Context, source domain.Source, sourceIDs []string) (map[string]*domain.ActionItem, error)
	Create(ctx context.Context, item *domain.ActionItem) error
	// UpdateClassification refreshes pipeline-owned fields only. Status is never touched.
	UpdateClassification(ctx context.Context, id string, upd domain.ClassificationUpdate) error
	UpdateStatus(ctx context.Context, id string, status domain.Status, changedAt time.Time, snoozedUntil *time.Time) error
	List(ctx context.Context, filter domain.Filter) ([]*domain.ActionItem, error)
}

type itemRepository struct {
	db *gorm.DB
}

func NewItemRepository(db *gorm.DB) ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) FindByID(ctx context.Context, id string) (*domain.ActionItem, error) {
	var item domain.ActionItem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *itemRepository) FindBySourceIDs(ctx context.Context, source domain.Source, sourceIDs []string) (map[string]*domain.ActionItem, error) {
	result := make(map[string]*domain.ActionItem, len(sourceIDs))
	if len(sourceIDs) == 0 {
		return result, nil
	}

	var items []*domain.ActionItem
	err := r.db.WithContext(ctx).
		Where("source = ? AND source_id IN ?", source, sourceIDs).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		result[item.SourceID] = item
	}
	return result, nil
}

func (r *itemRepository) Create(ctx context.Context, item *domain.ActionItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	now := time.Now()
	if item.StatusChangedAt.IsZero() {
		item.StatusChangedAt = now
	}
	if item.LastSeenAt.IsZero() {
		item.LastSeenAt = now
	}
	if item.FirstSeenAt.IsZero() {
		item.FirstSeenAt = now
	}
	if item.Status == "" {
		item.Status = domain.StatusNotStarted
	}
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *itemRepository) UpdateClassification(ctx context.Context, id string, upd domain.ClassificationUpdate) error {
	updates := map[string]interface{}{
		"confidence_score": upd.ConfidenceScore,
		"rationale":        upd.Rationale,
		"last_seen_at":     upd.LastSeenAt,
		"updated_at":       time.Now(),
	}
	// Empty values from the classifier keep what we already know.
	if upd.BlockingWho != nil && *upd.BlockingWho != "" {
		updates["blocking_who"] = *upd.BlockingWho
	}
	if upd.SuggestedAction != nil && *upd.SuggestedAction != "" {
		updates["suggested_action"] = *upd.SuggestedAction
	}
	return r.db.WithContext(ctx).Model(&domain.ActionItem{}).Where("id = ?", id).Updates(updates).Error
}

func (r *itemRepository) UpdateStatus(ctx context.Context, id string, status domain.Status, changedAt time.Time, snoozedUntil *time.Time) error {
	res := r.db.WithContext(ctx).Model(&domain.ActionItem{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":            status,
			"status_changed_at": changedAt,
			"snoozed_until":     snoozedUntil,
			"updated_at":        time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (r *itemRepository) List(ctx context.Context, filter domain.Filter) ([]*domain.ActionItem, error) {
	query := r.db.WithContext(ctx).Model(&domain.ActionItem{})

	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if len(filter.ExcludeStatuses) > 0 {
		query = query.Where("status NOT IN ?", filter.ExcludeStatuses)
	}
	if len(filter.Types) > 0 {
		query = query.Where("type IN ?", filter.Types)
	}
	if filter.Source != nil {
		query = query.Where("source = ?", *filter.Source)
	}
	if filter.OwnerEmail != nil {
		query = query.Where("LOWER(owner_email) = LOWER(?)", *filter.OwnerEmail)
	}
	if filter.BlockingOnly {
		query = query.Where("blocking_who IS NOT NULL AND blocking_who <> ''")
	}

	var items []*domain.ActionItem
	err := query.Order("first_seen_at ASC").Find(&items).Error
	return items, err
}
