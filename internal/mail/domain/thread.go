package domain

import (
	"context"
	"strings"
	"time"
)

// Labels that mark a thread as not worth classifying.
var SkipLabels = []string{"CATEGORY_PROMOTIONS", "CATEGORY_FORUMS", "CATEGORY_UPDATES", "SPAM", "TRASH"}

// Message is one parsed message of a thread. Addresses are bare and lower-cased.
type Message struct {
	ID          string
	From        string // raw From header, display name included
	FromAddress string
	To          []string
	CC          []string
	ReceivedAt  time.Time
	Body        string // plain text
}

// Thread is a fetched inbox conversation, messages oldest first.
type Thread struct {
	ID            string
	Subject       string
	Snippet       string
	Messages      []Message
	Labels        []string
	IsMailingList bool
}

// LastMessage returns the newest message, or nil for an empty thread.
func (t *Thread) LastMessage() *Message {
	if len(t.Messages) == 0 {
		return nil
	}
	return &t.Messages[len(t.Messages)-1]
}

// LastInbound returns the newest message not sent by owner, or nil.
func (t *Thread) LastInbound(owner string) *Message {
	owner = strings.ToLower(owner)
	for i := len(t.Messages) - 1; i >= 0; i-- {
		if t.Messages[i].FromAddress != owner {
			return &t.Messages[i]
		}
	}
	return nil
}

// HasSkipLabel reports whether any label excludes the thread from classification.
func (t *Thread) HasSkipLabel() bool {
	for _, l := range t.Labels {
		for _, skip := range SkipLabels {
			if l == skip {
				return true
			}
		}
	}
	return false
}

// OwnerInTo reports whether owner is a direct To recipient of any message. Cc does not count.
func (t *Thread) OwnerInTo(owner string) bool {
	owner = strings.ToLower(owner)
	for _, m := range t.Messages {
		for _, addr := range m.To {
			if addr == owner {
				return true
			}
		}
	}
	return false
}

// ThreadSource reads threads from one authenticated mailbox.
type ThreadSource interface {
	// ListThreadIDs pages through ids matching query, stopping at max.
	ListThreadIDs(ctx context.Context, query string, max int) ([]string, error)
	GetThread(ctx context.Context, id string) (*Thread, error)
}

// Connector opens a ThreadSource for an access token.
type Connector interface {
	Connect(ctx context.Context, accessToken string) (ThreadSource, error)
}
