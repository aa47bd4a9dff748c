package domain

import (
	"errors"
	"time"
)

var ErrNoBrief = errors.New("no brief generated yet")

type BriefItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Type      string `json:"type"`
	AgingDays int    `json:"agingDays"`
	Rationale string `json:"rationale,omitempty"`
}

type SlippingCommitment struct {
	ID         string     `json:"id"`
	Commitment string     `json:"commitment"`
	OwnerEmail *string    `json:"ownerEmail"`
	DueDate    *time.Time `json:"dueDate"`
	IsOverdue  bool       `json:"isOverdue"`
}

// Content is the rendered morning summary.
type Content struct {
	TopDueItems         []BriefItem          `json:"topDueItems"`
	OverdueItems        []BriefItem          `json:"overdueItems"`
	SlippingCommitments []SlippingCommitment `json:"slippingCommitments"`
	GeneratedAt         time.Time            `json:"generatedAt"`
}

type Brief struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	GeneratedAt time.Time `json:"generated_at" gorm:"not null;index"`
	Content     Content   `json:"content" gorm:"type:text;serializer:json"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Brief) TableName() string { return "briefs" }
