// Package classifier decides whether a mail thread is something the account owner owes a response on.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	itemdomain "github.com/kentsubra71/keystone/internal/item/domain"
	maildomain "github.com/kentsubra71/keystone/internal/mail/domain"
	"github.com/kentsubra71/keystone/pkg/ai"

	"github.com/charmbracelet/log"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultConcurrency = 10
	defaultCallTimeout = 30 * time.Second
)

// Method records which path produced a Result.
type Method string

const (
	MethodLLM      Method = "llm"
	MethodFallback Method = "fallback"
)

// Result is the outcome for one thread. Type is nil when nothing is owed.
type Result struct {
	Type            *itemdomain.ItemType `json:"type"`
	Confidence      int                  `json:"confidence"`
	Rationale       string               `json:"rationale"`
	BlockingWho     *string              `json:"blockingWho"`
	SuggestedAction *string              `json:"suggestedAction"`
	Method          Method               `json:"method"`
}

type Service struct {
	provider    ai.Provider // nil disables inference
	schema      *jsonschema.Schema
	concurrency int
	callTimeout time.Duration
	logger      *log.Logger
}

func NewService(provider ai.Provider, concurrency int, logger *log.Logger) (*Service, error) {
	schema, err := compileSchema()
	if err != nil {
		return nil, err
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Service{
		provider:    provider,
		schema:      schema,
		concurrency: concurrency,
		callTimeout: defaultCallTimeout,
		logger:      logger.WithPrefix("Classifier"),
	}, nil
}

// Classify never fails: any inference problem routes to Fallback.
func (s *Service) Classify(ctx context.Context, thread *maildomain.Thread, ownerEmail string) (res Result) {
	if s.provider == nil || len(thread.Messages) == 0 {
		return Fallback(thread, ownerEmail)
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("classification panicked, using fallback", "thread", thread.ID, "panic", r)
			res = Fallback(thread, ownerEmail)
		}
	}()

	out, err := s.classifyWithProvider(ctx, thread, ownerEmail)
	if err != nil {
		s.logger.Warn("LLM classification failed, using fallback", "thread", thread.ID, "err", err)
		return Fallback(thread, ownerEmail)
	}
	return out
}

func (s *Service) classifyWithProvider(ctx context.Context, thread *maildomain.Thread, ownerEmail string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	reply, err := s.provider.Complete(ctx, ai.Request{
		System:      systemPrompt,
		Prompt:      formatThread(thread, ownerEmail),
		JSON:        true,
		MaxTokens:   300,
		Temperature: 0.1,
	})
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", s.provider.Name(), err)
	}

	raw, err := ai.ExtractJSON(reply)
	if err != nil {
		return Result{}, err
	}
	parsed, err := parseResponse(s.schema, raw)
	if err != nil {
		return Result{}, err
	}
	return toResult(parsed)
}

func toResult(p *llmResponse) (Result, error) {
	rationale := strings.TrimSpace(p.Rationale)

	if !p.IsDueFromMe || p.Type == nil {
		if rationale == "" {
			rationale = "Not a Due-From-Me item"
		}
		return Result{Confidence: clampConfidence(p.Confidence), Rationale: rationale, Method: MethodLLM}, nil
	}

	t := itemdomain.ItemType(*p.Type)
	if !t.Valid() {
		return Result{}, errors.New("unknown item type " + *p.Type)
	}
	if rationale == "" {
		rationale = "Classified by AI"
	}

	action := t.SuggestedAction()
	if p.SuggestedAction != nil && strings.TrimSpace(*p.SuggestedAction) != "" {
		action = strings.TrimSpace(*p.SuggestedAction)
	}

	var who *string
	if p.BlockingWho != nil && strings.TrimSpace(*p.BlockingWho) != "" {
		w := strings.TrimSpace(*p.BlockingWho)
		who = &w
	}

	return Result{
		Type:            &t,
		Confidence:      clampConfidence(p.Confidence),
		Rationale:       rationale,
		BlockingWho:     who,
		SuggestedAction: &action,
		Method:          MethodLLM,
	}, nil
}

func clampConfidence(c float64) int {
	switch {
	case c < 0:
		return 0
	case c > 100:
		return 100
	}
	return int(c + 0.5)
}

// ClassifyMany classifies threads with bounded concurrency. Results are keyed by thread id.
func (s *Service) ClassifyMany(ctx context.Context, threads []*maildomain.Thread, ownerEmail string) map[string]Result {
	results := make(map[string]Result, len(threads))
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)

	for _, thread := range threads {
		g.Go(func() error {
			res := s.Classify(ctx, thread, ownerEmail)
			mu.Lock()
			results[thread.ID] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}
