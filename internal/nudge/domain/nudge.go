package domain

import (
	"errors"
	"time"
)

var (
	ErrNudgeNotFound = errors.New("nudge not found")
	ErrInvalidToken  = errors.New("device token is required")
)

type NudgeType string

const (
	TypeBlockingOthers  NudgeType = "blocking_others"
	TypeOverdue         NudgeType = "overdue"
	TypeCriticalDueSoon NudgeType = "critical_due_soon"
)

func (t NudgeType) Valid() bool {
	switch t {
	case TypeBlockingOthers, TypeOverdue, TypeCriticalDueSoon:
		return true
	}
	return false
}

// Nudge is one reminder about an action item.
type Nudge struct {
	ID          string     `json:"id" gorm:"primaryKey"`
	Type        NudgeType  `json:"type" gorm:"not null"`
	ItemID      string     `json:"itemId" gorm:"not null;index"`
	Reason      string     `json:"reason" gorm:"type:text;not null"`
	SentAt      *time.Time `json:"sentAt,omitempty" gorm:"index"`
	DismissedAt *time.Time `json:"dismissedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`

	// Filled by joins with action_items.
	ItemTitle string `json:"itemTitle" gorm:"->;-:migration"`
}

func (Nudge) TableName() string { return "nudges" }

// DeviceToken is an FCM registration token nudges are pushed to.
type DeviceToken struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	Token      string    `json:"-" gorm:"uniqueIndex;not null"`
	DeviceInfo string    `json:"device_info"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (DeviceToken) TableName() string { return "device_tokens" }

// StartOfDay is local midnight of t's calendar day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
