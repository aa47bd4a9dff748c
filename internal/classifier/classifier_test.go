package classifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	itemdomain "github.com/kentsubra71/keystone/internal/item/domain"
	maildomain "github.com/kentsubra71/keystone/internal/mail/domain"
	"github.com/kentsubra71/keystone/pkg/ai"
	"github.com/kentsubra71/keystone/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const owner = "me@example.com"

type stubProvider struct {
	complete func(ctx context.Context, req ai.Request) (string, error)
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Complete(ctx context.Context, req ai.Request) (string, error) {
	return p.complete(ctx, req)
}

func replying(out string) *stubProvider {
	return &stubProvider{complete: func(context.Context, ai.Request) (string, error) { return out, nil }}
}

func newTestService(t *testing.T, p ai.Provider) *Service {
	t.Helper()
	svc, err := NewService(p, 4, logger.Discard())
	require.NoError(t, err)
	return svc
}

func thread(id, subject, from, body string) *maildomain.Thread {
	return &maildomain.Thread{
		ID:      id,
		Subject: subject,
		Messages: []maildomain.Message{{
			ID:          id + "-1",
			From:        "Dana <" + from + ">",
			FromAddress: from,
			To:          []string{owner},
			ReceivedAt:  time.Date(2024, 1, 19, 15, 0, 0, 0, time.UTC),
			Body:        body,
		}},
	}
}

func TestFallback(t *testing.T) {
	t.Run("empty thread", func(t *testing.T) {
		res := Fallback(&maildomain.Thread{ID: "t"}, owner)
		assert.Nil(t, res.Type)
		assert.Equal(t, "No messages in thread", res.Rationale)
		assert.Equal(t, MethodFallback, res.Method)
	})

	t.Run("owner sent last message", func(t *testing.T) {
		res := Fallback(thread("t", "Please approve", owner, "please approve"), "ME@example.com")
		assert.Nil(t, res.Type)
		assert.Equal(t, "User sent the last message", res.Rationale)
	})

	t.Run("approval wins over reply", func(t *testing.T) {
		res := Fallback(thread("t", "Budget", "dana@corp.com", "Please approve this, and please reply soon."), owner)
		require.NotNil(t, res.Type)
		assert.Equal(t, itemdomain.TypeApproval, *res.Type)
		assert.Equal(t, 60, res.Confidence)
		assert.Equal(t, "Fallback: detected approval language (LLM unavailable)", res.Rationale)
		require.NotNil(t, res.BlockingWho)
		assert.Equal(t, "Dana <dana@corp.com>", *res.BlockingWho)
		require.NotNil(t, res.SuggestedAction)
		assert.Equal(t, "Review and approve/reject", *res.SuggestedAction)
	})

	t.Run("follow up", func(t *testing.T) {
		res := Fallback(thread("t", "Q3 plan", "dana@corp.com", "Just following up on this."), owner)
		require.NotNil(t, res.Type)
		assert.Equal(t, itemdomain.TypeFollowUp, *res.Type)
		assert.Equal(t, "Fallback: detected follow up language (LLM unavailable)", res.Rationale)
	})

	t.Run("no indicators", func(t *testing.T) {
		res := Fallback(thread("t", "Lunch", "dana@corp.com", "FYI the cafe is closed."), owner)
		assert.Nil(t, res.Type)
		assert.Equal(t, 0, res.Confidence)
		assert.Equal(t, "No Due-From-Me indicators detected", res.Rationale)
	})
}

func TestClassify_NoProviderUsesFallback(t *testing.T) {
	svc := newTestService(t, nil)

	res := svc.Classify(context.Background(), thread("t", "Contract", "dana@corp.com", "Please approve the contract"), owner)

	require.NotNil(t, res.Type)
	assert.Equal(t, itemdomain.TypeApproval, *res.Type)
	assert.Equal(t, MethodFallback, res.Method)
}

func TestClassify_LLMResult(t *testing.T) {
	var seen ai.Request
	p := &stubProvider{complete: func(_ context.Context, req ai.Request) (string, error) {
		seen = req
		return "Here you go:\n```json\n" +
			`{"isDueFromMe": true, "type": "decision", "confidence": 130, "rationale": " Needs a pick. ", "blockingWho": "Dana", "suggestedAction": null}` +
			"\n```", nil
	}}
	svc := newTestService(t, p)

	res := svc.Classify(context.Background(), thread("t", "Vendors", "dana@corp.com", "A or B?"), owner)

	require.NotNil(t, res.Type)
	assert.Equal(t, itemdomain.TypeDecision, *res.Type)
	assert.Equal(t, 100, res.Confidence)
	assert.Equal(t, "Needs a pick.", res.Rationale)
	assert.Equal(t, "Dana", *res.BlockingWho)
	assert.Equal(t, "Make a decision", *res.SuggestedAction)
	assert.Equal(t, MethodLLM, res.Method)

	assert.True(t, seen.JSON)
	assert.Equal(t, systemPrompt, seen.System)
	assert.Contains(t, seen.Prompt, "Subject: Vendors")
	assert.Contains(t, seen.Prompt, "Date: 2024-01-19T15:00:00Z")
}

func TestClassify_NotDueFromMe(t *testing.T) {
	svc := newTestService(t, replying(`{"isDueFromMe": false, "type": "reply", "confidence": -5, "rationale": "FYI only"}`))

	res := svc.Classify(context.Background(), thread("t", "News", "dana@corp.com", "Please reply"), owner)

	assert.Nil(t, res.Type)
	assert.Equal(t, 0, res.Confidence)
	assert.Equal(t, "FYI only", res.Rationale)
	assert.Equal(t, MethodLLM, res.Method)
}

func TestClassify_FallsBackOnBadReplies(t *testing.T) {
	cases := map[string]*stubProvider{
		"provider error": {complete: func(context.Context, ai.Request) (string, error) {
			return "", errors.New("503 unavailable")
		}},
		"not json":           replying("I think this is a reply."),
		"schema violation":   replying(`{"isDueFromMe": true, "type": "urgent", "confidence": 90, "rationale": "x"}`),
		"missing field":      replying(`{"isDueFromMe": true, "type": "reply", "confidence": 90}`),
		"confidence as text": replying(`{"isDueFromMe": true, "type": "reply", "confidence": "high", "rationale": "x"}`),
		"panic": {complete: func(context.Context, ai.Request) (string, error) {
			panic("boom")
		}},
	}

	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			svc := newTestService(t, p)

			res := svc.Classify(context.Background(), thread("t", "Sign-off", "dana@corp.com", "please approve"), owner)

			assert.Equal(t, MethodFallback, res.Method)
			require.NotNil(t, res.Type)
			assert.Equal(t, itemdomain.TypeApproval, *res.Type)
		})
	}
}

func TestClassify_TimesOut(t *testing.T) {
	p := &stubProvider{complete: func(ctx context.Context, _ ai.Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	svc := newTestService(t, p)
	svc.callTimeout = 10 * time.Millisecond

	res := svc.Classify(context.Background(), thread("t", "Hi", "dana@corp.com", "please respond"), owner)

	assert.Equal(t, MethodFallback, res.Method)
	require.NotNil(t, res.Type)
	assert.Equal(t, itemdomain.TypeReply, *res.Type)
}

func TestClassifyMany_IsolatesFailures(t *testing.T) {
	p := &stubProvider{complete: func(_ context.Context, req ai.Request) (string, error) {
		switch {
		case strings.Contains(req.Prompt, "Subject: explode"):
			panic("provider bug")
		case strings.Contains(req.Prompt, "Subject: broken"):
			return "", errors.New("connection refused")
		}
		return `{"isDueFromMe": true, "type": "reply", "confidence": 80, "rationale": "Asked directly"}`, nil
	}}
	svc := newTestService(t, p)

	threads := []*maildomain.Thread{
		thread("a", "hello", "x@corp.com", "can you answer?"),
		thread("b", "explode", "x@corp.com", "please approve"),
		thread("c", "broken", "x@corp.com", "nothing here"),
		thread("d", "again", "x@corp.com", "another question"),
	}

	results := svc.ClassifyMany(context.Background(), threads, owner)

	require.Len(t, results, 4)
	assert.Equal(t, MethodLLM, results["a"].Method)
	assert.Equal(t, MethodLLM, results["d"].Method)

	assert.Equal(t, MethodFallback, results["b"].Method)
	require.NotNil(t, results["b"].Type)
	assert.Equal(t, itemdomain.TypeApproval, *results["b"].Type)

	assert.Equal(t, MethodFallback, results["c"].Method)
	assert.Nil(t, results["c"].Type)
}

func TestFormatThread(t *testing.T) {
	th := thread("t", "Status", "dana@corp.com", strings.Repeat("é", maxBodyChars+5))
	th.Messages = append(th.Messages, maildomain.Message{
		From:        "Me <me@example.com>",
		FromAddress: owner,
		To:          []string{"dana@corp.com"},
		CC:          []string{"boss@corp.com"},
		ReceivedAt:  time.Date(2024, 1, 19, 16, 0, 0, 0, time.FixedZone("EST", -5*3600)),
		Body:        "On it.",
	})

	out := formatThread(th, owner)

	assert.Contains(t, out, "Thread has 2 message(s).")
	assert.Contains(t, out, "--- Message 1 ---")
	assert.Contains(t, out, "--- Message 2 (FROM USER) ---")
	assert.Contains(t, out, "CC: boss@corp.com")
	assert.Contains(t, out, "Date: 2024-01-19T21:00:00Z")
	assert.Contains(t, out, "\n[...truncated]")
	assert.Equal(t, 1, strings.Count(out, "CC:"))
}
