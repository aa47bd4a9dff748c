package normalize

import (
	"strings"

	itemdomain "github.com/kentsubra71/keystone/internal/item/domain"
)

var statusSynonyms = map[string]itemdomain.Status{
	"not started": itemdomain.StatusNotStarted,
	"new":         itemdomain.StatusNotStarted,
	"pending":     itemdomain.StatusNotStarted,
	"to do":       itemdomain.StatusNotStarted,
	"todo":        itemdomain.StatusNotStarted,
	"open":        itemdomain.StatusNotStarted,

	"in progress": itemdomain.StatusInProgress,
	"in-progress": itemdomain.StatusInProgress,
	"wip":         itemdomain.StatusInProgress,
	"working":     itemdomain.StatusInProgress,
	"started":     itemdomain.StatusInProgress,
	"ongoing":     itemdomain.StatusInProgress,

	"blocked": itemdomain.StatusBlocked,
	"on hold": itemdomain.StatusBlocked,
	"waiting": itemdomain.StatusBlocked,
	"stuck":   itemdomain.StatusBlocked,

	"done":      itemdomain.StatusDone,
	"complete":  itemdomain.StatusDone,
	"completed": itemdomain.StatusDone,
	"finished":  itemdomain.StatusDone,
	"closed":    itemdomain.StatusDone,
	"resolved":  itemdomain.StatusDone,

	"deferred":  itemdomain.StatusDeferred,
	"postponed": itemdomain.StatusDeferred,
	"later":     itemdomain.StatusDeferred,
	"backlog":   itemdomain.StatusDeferred,
}

// NormalizeStatus maps free-text status to a canonical status.
// needsReview is true only when the input was present but unrecognized.
func NormalizeStatus(raw *string) (status itemdomain.Status, needsReview bool) {
	if raw == nil {
		return itemdomain.StatusNotStarted, false
	}
	key := strings.ToLower(strings.TrimSpace(*raw))
	if key == "" {
		return itemdomain.StatusNotStarted, false
	}
	if s, ok := statusSynonyms[key]; ok {
		return s, false
	}
	return itemdomain.StatusNotStarted, true
}
