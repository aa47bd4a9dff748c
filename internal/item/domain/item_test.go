package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDaysBetween(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, DaysBetween(now.Add(-23*time.Hour), now))
	assert.Equal(t, 1, DaysBetween(now.Add(-25*time.Hour), now))
	assert.Equal(t, 3, DaysBetween(now.Add(-72*time.Hour), now))
	assert.Equal(t, 0, DaysBetween(now.Add(time.Hour), now))
	assert.Equal(t, 0, DaysBetween(time.Time{}, now))
}

func TestStatusIsTerminal(t *testing.T) {
	assert.True(t, StatusDone.IsTerminal())
	assert.True(t, StatusDeferred.IsTerminal())
	assert.False(t, StatusNotStarted.IsTerminal())
	assert.False(t, StatusInProgress.IsTerminal())
	assert.False(t, StatusBlocked.IsTerminal())
}

func TestItemTypeHelpers(t *testing.T) {
	assert.Equal(t, "follow up", TypeFollowUp.Label())
	assert.Equal(t, "Review and approve/reject", TypeApproval.SuggestedAction())
	assert.True(t, TypeDecision.Valid())
	assert.False(t, ItemType("fyi").Valid())
}

func TestWithAging(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	item := &ActionItem{
		FirstSeenAt:     now.Add(-5 * 24 * time.Hour),
		StatusChangedAt: now.Add(-2 * 24 * time.Hour),
	}

	item.WithAging(now)

	assert.Equal(t, 5, item.AgingDays)
	assert.Equal(t, 2, item.DaysInCurrentStatus)
}

func TestFilterForView(t *testing.T) {
	assert.Empty(t, FilterForView(ViewAll).ExcludeStatuses)
	assert.ElementsMatch(t, []Status{StatusDone, StatusDeferred}, FilterForView(ViewDue).ExcludeStatuses)
	assert.True(t, FilterForView(ViewBlocking).BlockingOnly)
}
