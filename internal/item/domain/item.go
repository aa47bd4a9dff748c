package domain

import (
	"errors"
	"strings"
	"time"
)

var ErrItemNotFound = errors.New("item not found")

// ItemType is the kind of obligation the owner has.
type ItemType string

const (
	TypeReply    ItemType = "reply"
	TypeApproval ItemType = "approval"
	TypeDecision ItemType = "decision"
	TypeFollowUp ItemType = "follow_up"
)

func (t ItemType) Valid() bool {
	switch t {
	case TypeReply, TypeApproval, TypeDecision, TypeFollowUp:
		return true
	}
	return false
}

// Label renders the type for human-readable text ("follow up").
func (t ItemType) Label() string {
	return strings.ReplaceAll(string(t), "_", " ")
}

// SuggestedAction is the canonical next step for a type.
func (t ItemType) SuggestedAction() string {
	switch t {
	case TypeReply:
		return "Send a response"
	case TypeApproval:
		return "Review and approve/reject"
	case TypeDecision:
		return "Make a decision"
	case TypeFollowUp:
		return "Complete your commitment"
	}
	return ""
}

// Status is the canonical workflow status shared by items and sheet rows.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusDone       Status = "done"
	StatusDeferred   Status = "deferred"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusBlocked, StatusDone, StatusDeferred:
		return true
	}
	return false
}

// IsTerminal reports statuses set by the user that the pipeline must not revisit.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDone, StatusDeferred:
		return true
	case StatusNotStarted, StatusInProgress, StatusBlocked:
		return false
	}
	return false
}

// Source identifies where an item originated.
type Source string

const (
	SourceMail     Source = "mail"
	SourceSheet    Source = "sheet"
	SourceCalendar Source = "calendar"
)

func (s Source) Valid() bool {
	switch s {
	case SourceMail, SourceSheet, SourceCalendar:
		return true
	}
	return false
}

// ActionItem is the canonical record of one thing the owner owes someone.
type ActionItem struct {
	ID              string     `json:"id" gorm:"primaryKey"`
	Type            ItemType   `json:"type" gorm:"not null"`
	Status          Status     `json:"status" gorm:"not null;default:not_started;index"`
	Title           string     `json:"title" gorm:"not null"`
	Source          Source     `json:"source" gorm:"not null;uniqueIndex:idx_action_items_source_ref"`
	SourceID        string     `json:"source_id" gorm:"not null;uniqueIndex:idx_action_items_source_ref"`
	BlockingWho     *string    `json:"blocking_who,omitempty"`
	OwnerEmail      *string    `json:"owner_email,omitempty" gorm:"index"`
	FirstSeenAt     time.Time  `json:"first_seen_at" gorm:"not null"`
	LastSeenAt      time.Time  `json:"last_seen_at" gorm:"not null"`
	StatusChangedAt time.Time  `json:"status_changed_at" gorm:"not null"`
	SnoozedUntil    *time.Time `json:"snoozed_until,omitempty"`
	ConfidenceScore int        `json:"confidence_score" gorm:"not null;default:0"`
	Rationale       string     `json:"rationale" gorm:"not null"`
	SuggestedAction *string    `json:"suggested_action,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// Computed at read time, never stored.
	AgingDays           int `json:"aging_days" gorm:"-"`
	DaysInCurrentStatus int `json:"days_in_current_status" gorm:"-"`
}

func (ActionItem) TableName() string { return "action_items" }

// WithAging fills the read-time aging fields relative to now.
func (i *ActionItem) WithAging(now time.Time) *ActionItem {
	i.AgingDays = DaysBetween(i.FirstSeenAt, now)
	i.DaysInCurrentStatus = DaysBetween(i.StatusChangedAt, now)
	return i
}

// IsBlockingSomeone reports whether a named person is waiting on this item.
func (i *ActionItem) IsBlockingSomeone() bool {
	return i.BlockingWho != nil && strings.TrimSpace(*i.BlockingWho) != ""
}

// DaysBetween returns the number of whole days elapsed from -> now, never negative.
func DaysBetween(from, now time.Time) int {
	if from.IsZero() || now.Before(from) {
		return 0
	}
	return int(now.Sub(from) / (24 * time.Hour))
}

// ClassificationUpdate carries the only fields the pipeline may refresh on an existing item.
type ClassificationUpdate struct {
	ConfidenceScore int
	Rationale       string
	BlockingWho     *string
	SuggestedAction *string
	LastSeenAt      time.Time
}

// View selects a preset slice of items for read accessors.
type View string

const (
	ViewAll      View = "all"
	ViewDue      View = "due"
	ViewBlocking View = "blocking"
)

// Filter narrows item queries. Zero values mean "no constraint".
type Filter struct {
	Statuses        []Status
	ExcludeStatuses []Status
	Types           []ItemType
	Source          *Source
	OwnerEmail      *string
	BlockingOnly    bool
}

// FilterForView expands a view into a concrete filter.
func FilterForView(v View) Filter {
	switch v {
	case ViewDue:
		return Filter{ExcludeStatuses: []Status{StatusDone, StatusDeferred}}
	case ViewBlocking:
		return Filter{ExcludeStatuses: []Status{StatusDone, StatusDeferred}, BlockingOnly: true}
	}
	return Filter{}
}
