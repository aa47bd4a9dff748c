package repository

import (
	"context"
	"time"

	itemdomain "github.com/kentsubra71/keystone/internal/item/domain"
	"github.com/kentsubra71/keystone/internal/sheet/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RowRepository defines data access for stored spreadsheet rows.
type RowRepository interface {
	ListAll(ctx context.Context) ([]*domain.SourceRow, error)
	Create(ctx context.Context, row *domain.SourceRow) error
	Save(ctx context.Context, row *domain.SourceRow) error
	// Touch records a sighting of an unchanged row and refreshes time-derived flags.
	Touch(ctx context.Context, id string, seenAt time.Time, overdue, atRisk bool) error
	// MarkMissing flags rows absent from a sync cycle. Already flagged rows keep their timestamp.
	MarkMissing(ctx context.Context, ids []string, at time.Time) error
	List(ctx context.Context, filter domain.RowFilter) ([]*domain.SourceRow, error)
	// ListWaitingOn returns open rows owned by someone other than accountOwner.
	ListWaitingOn(ctx context.Context, accountOwner string) ([]*domain.SourceRow, error)
	// ListSlipping returns open rows that are overdue or at risk, soonest due first.
	ListSlipping(ctx context.Context, limit int) ([]*domain.SourceRow, error)
}

type rowRepository struct {
	db *gorm.DB
}

func NewRowRepository(db *gorm.DB) RowRepository {
	return &rowRepository{db: db}
}

// ListAll returns every stored row, oldest first, so duplicate row numbers resolve the same way each cycle.
func (r *rowRepository) ListAll(ctx context.Context) ([]*domain.SourceRow, error) {
	var rows []*domain.SourceRow
	err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&rows).Error
	return rows, err
}

func (r *rowRepository) Create(ctx context.Context, row *domain.SourceRow) error {
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	if row.Status == "" {
		row.Status = itemdomain.StatusNotStarted
	}
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *rowRepository) Save(ctx context.Context, row *domain.SourceRow) error {
	return r.db.WithContext(ctx).Save(row).Error
}

func (r *rowRepository) Touch(ctx context.Context, id string, seenAt time.Time, overdue, atRisk bool) error {
	return r.db.WithContext(ctx).Model(&domain.SourceRow{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_seen_at":   seenAt,
			"last_synced_at": seenAt,
			"is_overdue":     overdue,
			"is_at_risk":     atRisk,
			"missing_since":  nil,
		}).Error
}

func (r *rowRepository) MarkMissing(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&domain.SourceRow{}).
		Where("id IN ? AND missing_since IS NULL", ids).
		Update("missing_since", at).Error
}

func (r *rowRepository) List(ctx context.Context, filter domain.RowFilter) ([]*domain.SourceRow, error) {
	query := r.db.WithContext(ctx).Model(&domain.SourceRow{})

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.NeedsOwnerMapping != nil {
		query = query.Where("needs_owner_mapping = ?", *filter.NeedsOwnerMapping)
	}
	if filter.IsOverdue != nil {
		query = query.Where("is_overdue = ?", *filter.IsOverdue)
	}
	if filter.Unassigned {
		query = query.Where("owner_email IS NULL")
	} else if filter.OwnerEmail != nil {
		query = query.Where("LOWER(owner_email) = LOWER(?)", *filter.OwnerEmail)
	}
	if !filter.IncludeMissing {
		query = query.Where("missing_since IS NULL")
	}

	var rows []*domain.SourceRow
	err := query.Order("due_date ASC NULLS LAST").Order("row_number ASC").Find(&rows).Error
	return rows, err
}

func (r *rowRepository) ListWaitingOn(ctx context.Context, accountOwner string) ([]*domain.SourceRow, error) {
	var rows []*domain.SourceRow
	err := r.db.WithContext(ctx).
		Where("owner_email IS NOT NULL AND LOWER(owner_email) <> LOWER(?)", accountOwner).
		Where("status <> ?", itemdomain.StatusDone).
		Where("missing_since IS NULL").
		Order("due_date ASC NULLS LAST").
		Find(&rows).Error
	return rows, err
}

func (r *rowRepository) ListSlipping(ctx context.Context, limit int) ([]*domain.SourceRow, error) {
	var rows []*domain.SourceRow
	err := r.db.WithContext(ctx).
		Where("status <> ?", itemdomain.StatusDone).
		Where("is_overdue = ? OR is_at_risk = ?", true, true).
		Where("missing_since IS NULL").
		Order("due_date ASC NULLS LAST").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
