package classifier

import (
	"fmt"
	"regexp"
	"strings"

	itemdomain "github.com/kentsubra71/keystone/internal/item/domain"
	maildomain "github.com/kentsubra71/keystone/internal/mail/domain"
)

type rule struct {
	itemType   itemdomain.ItemType
	pattern    *regexp.Regexp
	confidence int
}

// Checked in order; the first match wins.
var fallbackRules = []rule{
	{
		itemType:   itemdomain.TypeApproval,
		pattern:    regexp.MustCompile(`please\s+approve|need(s?)?\s+(your\s+)?approval|sign[\s-]?off|for\s+(your\s+)?approval`),
		confidence: 60,
	},
	{
		itemType:   itemdomain.TypeDecision,
		pattern:    regexp.MustCompile(`please\s+(decide|choose)|which\s+option|need\s+(your\s+)?(decision|input)`),
		confidence: 55,
	},
	{
		itemType:   itemdomain.TypeFollowUp,
		pattern:    regexp.MustCompile(`following\s+up|any\s+update|you\s+(said|mentioned)\s+you('d|\s+would)|circling\s+back`),
		confidence: 45,
	},
	{
		itemType:   itemdomain.TypeReply,
		pattern:    regexp.MustCompile(`please\s+(reply|respond)|waiting\s+(for|on)\s+(your|a)\s+(reply|response)|could\s+you\s+(please\s+)?(confirm|clarify)`),
		confidence: 50,
	},
}

// Fallback is the rule-based classifier used when inference is unavailable or untrustworthy.
func Fallback(thread *maildomain.Thread, ownerEmail string) Result {
	last := thread.LastMessage()
	if last == nil {
		return Result{Rationale: "No messages in thread", Method: MethodFallback}
	}
	if last.FromAddress == strings.ToLower(ownerEmail) {
		return Result{Rationale: "User sent the last message", Method: MethodFallback}
	}

	text := strings.ToLower(thread.Subject + " " + last.Body)
	for _, r := range fallbackRules {
		if !r.pattern.MatchString(text) {
			continue
		}
		t := r.itemType
		who := last.From
		action := t.SuggestedAction()
		return Result{
			Type:            &t,
			Confidence:      r.confidence,
			Rationale:       fmt.Sprintf("Fallback: detected %s language (LLM unavailable)", t.Label()),
			BlockingWho:     &who,
			SuggestedAction: &action,
			Method:          MethodFallback,
		}
	}

	return Result{Rationale: "No Due-From-Me indicators detected", Method: MethodFallback}
}
