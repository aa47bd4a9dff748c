package classifier

import (
	"fmt"
	"strings"
	"time"

	maildomain "github.com/kentsubra71/keystone/internal/mail/domain"
)

const maxBodyChars = 2000

const systemPrompt = `You are an executive assistant analyzing email threads to determine if the user has an outstanding action item.

An item is "Due From Me" ONLY if:
- The user is the last required dependency, AND
- Someone else cannot proceed until the user acts

There are exactly 4 types of Due-From-Me items:

1. REPLY - someone explicitly requested a response from the user
2. APPROVAL - someone needs a yes/no or sign-off from the user
3. DECISION - someone needs the user to choose between options
4. FOLLOW_UP - the user themselves committed to an action (e.g., "I'll check", "I'll get back to you") and hasn't fulfilled it yet

Important rules:
- Only flag items where the USER specifically needs to act. If the request is to a group or someone else, it's NOT due from the user.
- For FOLLOW_UP: only flag if the USER (identified by their email) made the commitment, not someone else.
- Newsletters, automated notifications, marketing emails, and FYI-only messages are NEVER due-from-me items.
- If the user has already replied to the request in a later message in the thread, it is NOT due from them anymore.
- Be conservative: when in doubt, classify as null (not actionable). A false negative is better than a false positive.

Respond with JSON only:
{
  "isDueFromMe": boolean,
  "type": "reply" | "approval" | "decision" | "follow_up" | null,
  "confidence": number (0-100),
  "rationale": string (1-2 sentences explaining why),
  "blockingWho": string | null (name or email of who is waiting on the user),
  "suggestedAction": string | null (one sentence: what the user should do)
}`

// formatThread renders a thread as the user prompt.
func formatThread(thread *maildomain.Thread, ownerEmail string) string {
	owner := strings.ToLower(ownerEmail)

	var b strings.Builder
	fmt.Fprintf(&b, "Subject: %s\n", thread.Subject)
	fmt.Fprintf(&b, "User's email: %s\n", ownerEmail)
	fmt.Fprintf(&b, "Thread has %d message(s).\n\n", len(thread.Messages))

	for i, msg := range thread.Messages {
		marker := ""
		if msg.FromAddress == owner {
			marker = " (FROM USER)"
		}
		fmt.Fprintf(&b, "--- Message %d%s ---\n", i+1, marker)
		fmt.Fprintf(&b, "From: %s\n", msg.From)
		fmt.Fprintf(&b, "To: %s\n", strings.Join(msg.To, ", "))
		if len(msg.CC) > 0 {
			fmt.Fprintf(&b, "CC: %s\n", strings.Join(msg.CC, ", "))
		}
		fmt.Fprintf(&b, "Date: %s\n", msg.ReceivedAt.UTC().Format(time.RFC3339))
		fmt.Fprintf(&b, "Body:\n%s\n\n", truncateBody(msg.Body))
	}
	return b.String()
}

func truncateBody(body string) string {
	r := []rune(body)
	if len(r) <= maxBodyChars {
		return body
	}
	return string(r[:maxBodyChars]) + "\n[...truncated]"
}
