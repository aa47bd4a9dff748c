package domain

import "time"

// ActionType names a user-initiated transition recorded for later learning.
type ActionType string

const (
	ActionDone             ActionType = "done"
	ActionSnooze           ActionType = "snooze"
	ActionDelegate         ActionType = "delegate"
	ActionIgnore           ActionType = "ignore"
	ActionPriorityOverride ActionType = "priority_override"
)

// UserAction is an append-only audit record.
type UserAction struct {
	ID            string     `json:"id" gorm:"primaryKey"`
	ItemID        string     `json:"item_id" gorm:"not null;index"`
	ItemSource    Source     `json:"item_source" gorm:"not null"`
	Action        ActionType `json:"action" gorm:"not null"`
	PreviousValue *string    `json:"previous_value,omitempty"`
	NewValue      *string    `json:"new_value,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (UserAction) TableName() string { return "user_actions" }
