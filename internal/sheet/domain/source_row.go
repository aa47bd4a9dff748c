package domain

import (
	"context"
	"errors"
	"time"

	itemdomain "github.com/kentsubra71/keystone/internal/item/domain"
)

var (
	ErrOwnerNotFound  = errors.New("owner directory entry not found")
	ErrNotConfigured  = errors.New("sheet source not configured")
	ErrDuplicateOwner = errors.New("owner email already exists")
)

// AtRiskWindow is how close a due date must be before a row counts as at risk.
const AtRiskWindow = 3 * 24 * time.Hour

// SourceRow is the stored copy of one commitment row in the spreadsheet.
type SourceRow struct {
	ID                string            `json:"id" gorm:"primaryKey"`
	Commitment        string            `json:"commitment" gorm:"type:text;not null"`
	OwnerLabel        *string           `json:"owner_label,omitempty"`
	OwnerEmail        *string           `json:"owner_email,omitempty" gorm:"index"`
	DueDate           *time.Time        `json:"due_date,omitempty"`
	Status            itemdomain.Status `json:"status" gorm:"not null;default:not_started;index"`
	RawStatus         *string           `json:"raw_status,omitempty"`
	NeedsReview       bool              `json:"needs_review" gorm:"not null;default:false"`
	Comments          *string           `json:"comments,omitempty" gorm:"type:text"`
	RowNumber         *int              `json:"row_number,omitempty" gorm:"index"`
	Fingerprint       string            `json:"fingerprint" gorm:"not null;index"`
	FirstSeenAt       time.Time         `json:"first_seen_at" gorm:"not null"`
	LastSeenAt        time.Time         `json:"last_seen_at" gorm:"not null"`
	LastSyncedAt      time.Time         `json:"last_synced_at" gorm:"not null"`
	NeedsOwnerMapping bool              `json:"needs_owner_mapping" gorm:"not null;default:false"`
	IsOverdue         bool              `json:"is_overdue" gorm:"not null;default:false"`
	IsAtRisk          bool              `json:"is_at_risk" gorm:"not null;default:false"`
	MissingSince      *time.Time        `json:"missing_since,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

func (SourceRow) TableName() string { return "source_rows" }

// DueFlags computes the overdue and at-risk flags for a due date.
func DueFlags(due *time.Time, now time.Time) (overdue, atRisk bool) {
	if due == nil {
		return false, false
	}
	if due.Before(now) {
		return true, false
	}
	return false, due.Sub(now) < AtRiskWindow
}

// RowFilter narrows row queries. Zero values mean "no constraint".
type RowFilter struct {
	Status            *itemdomain.Status
	NeedsOwnerMapping *bool
	IsOverdue         *bool
	OwnerEmail        *string
	Unassigned        bool
	IncludeMissing    bool
}

// RowSource reads raw cell values from the spreadsheet. Each inner slice is one row.
type RowSource interface {
	GetValues(ctx context.Context, spreadsheetID, readRange string) ([][]*string, error)
}
