package domain

import "time"

// OwnerDirectoryEntry maps a display name used in the sheet to an email address.
type OwnerDirectoryEntry struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	DisplayName string    `json:"display_name" gorm:"not null"`
	Email       string    `json:"email" gorm:"uniqueIndex;not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (OwnerDirectoryEntry) TableName() string { return "owner_directory" }

// OwnerSuggestion is a directory entry ranked by edit distance to an unmapped label.
type OwnerSuggestion struct {
	Entry    *OwnerDirectoryEntry `json:"entry"`
	Distance int                  `json:"distance"`
}
