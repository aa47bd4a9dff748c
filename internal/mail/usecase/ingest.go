package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kentsubra71/keystone/internal/classifier"
	itemdomain "github.com/kentsubra71/keystone/internal/item/domain"
	itemrepo "github.com/kentsubra71/keystone/internal/item/repository"
	"github.com/kentsubra71/keystone/internal/mail/domain"
	"github.com/kentsubra71/keystone/internal/mail/repository"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

const (
	inboxQuery       = "in:inbox newer_than:7d"
	maxThreads       = 500
	fetchConcurrency = 10
)

// IngestResult summarizes one ingestion cycle.
type IngestResult struct {
	Success          bool     `json:"success"`
	ThreadsFetched   int      `json:"threadsFetched"`
	ThreadsProcessed int      `json:"threadsProcessed"`
	ThreadsSkipped   int      `json:"threadsSkipped"`
	ItemsCreated     int      `json:"itemsCreated"`
	ItemsUpdated     int      `json:"itemsUpdated"`
	Errors           []string `json:"errors"`
}

// Classifier is the subset of classifier.Service the ingester needs.
type Classifier interface {
	ClassifyMany(ctx context.Context, threads []*domain.Thread, ownerEmail string) map[string]classifier.Result
}

type Ingester struct {
	connector  domain.Connector
	threads    repository.ThreadRepository
	items      itemrepo.ItemRepository
	classifier Classifier
	logger     *log.Logger
	now        func() time.Time
}

func NewIngester(connector domain.Connector, threads repository.ThreadRepository, items itemrepo.ItemRepository, classifier Classifier, logger *log.Logger) *Ingester {
	return &Ingester{
		connector:  connector,
		threads:    threads,
		items:      items,
		classifier: classifier,
		logger:     logger.WithPrefix("GmailSync"),
		now:        time.Now,
	}
}

// Ingest pulls recent inbox threads, classifies the relevant ones and merges them into the item store.
// The returned error is set only when the cycle could not run at all.
func (u *Ingester) Ingest(ctx context.Context, accessToken, ownerEmail string) (*IngestResult, error) {
	result := &IngestResult{Errors: []string{}}
	fail := func(err error) (*IngestResult, error) {
		result.Errors = append(result.Errors, err.Error())
		u.logger.Error("sync failed", "err", err)
		return result, err
	}

	if u.connector == nil {
		return fail(fmt.Errorf("gmail connector not configured"))
	}
	source, err := u.connector.Connect(ctx, accessToken)
	if err != nil {
		return fail(fmt.Errorf("connect gmail: %w", err))
	}

	ids, err := source.ListThreadIDs(ctx, inboxQuery, maxThreads)
	if err != nil {
		return fail(fmt.Errorf("list threads: %w", err))
	}

	fetched := u.fetchThreads(ctx, source, ids, result)
	result.ThreadsFetched = len(fetched)

	candidates := make([]*domain.Thread, 0, len(fetched))
	for _, t := range fetched {
		if shouldProcess(t, ownerEmail) {
			candidates = append(candidates, t)
		}
	}
	result.ThreadsSkipped = len(fetched) - len(candidates)

	if len(candidates) == 0 {
		result.Success = true
		u.logger.Info("no threads to classify", "fetched", result.ThreadsFetched, "skipped", result.ThreadsSkipped)
		return result, nil
	}

	threadIDs := make([]string, len(candidates))
	for i, t := range candidates {
		threadIDs[i] = t.ID
	}
	existing, err := u.items.FindBySourceIDs(ctx, itemdomain.SourceMail, threadIDs)
	if err != nil {
		// Without the stored items a status could be overwritten, so nothing in this batch is persisted.
		u.logger.Warn("failed to load existing items", "threads", len(threadIDs), "err", err)
		result.Errors = append(result.Errors, fmt.Sprintf("Load existing items: %v", err))
		result.Success = true
		return result, nil
	}

	// Threads the user already closed out are not reclassified.
	toClassify := make([]*domain.Thread, 0, len(candidates))
	for _, t := range candidates {
		if item, ok := existing[t.ID]; ok && item.Status.IsTerminal() {
			continue
		}
		toClassify = append(toClassify, t)
	}

	classifications := u.classifier.ClassifyMany(ctx, toClassify, ownerEmail)
	result.ThreadsProcessed = len(toClassify)

	now := u.now()
	for _, t := range toClassify {
		res, ok := classifications[t.ID]
		if !ok {
			continue
		}
		created, updated, err := u.persist(ctx, t, res, existing[t.ID], ownerEmail, now)
		if err != nil {
			u.logger.Warn("failed to process thread", "thread", t.ID, "err", err)
			result.Errors = append(result.Errors, fmt.Sprintf("Thread %s: %v", t.ID, err))
			continue
		}
		if created {
			result.ItemsCreated++
		}
		if updated {
			result.ItemsUpdated++
		}
	}

	result.Success = true
	u.logger.Info("sync complete",
		"fetched", result.ThreadsFetched,
		"processed", result.ThreadsProcessed,
		"skipped", result.ThreadsSkipped,
		"created", result.ItemsCreated,
		"updated", result.ItemsUpdated,
		"errors", len(result.Errors))
	return result, nil
}

// fetchThreads loads thread details with bounded concurrency, preserving list order.
// Threads that fail to load are recorded in result and left out.
func (u *Ingester) fetchThreads(ctx context.Context, source domain.ThreadSource, ids []string, result *IngestResult) []*domain.Thread {
	slots := make([]*domain.Thread, len(ids))
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(fetchConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			t, err := source.GetThread(ctx, id)
			if err != nil {
				mu.Lock()
				result.Errors = append(result.Errors, fmt.Sprintf("Fetch %s: %v", id, err))
				mu.Unlock()
				return nil
			}
			if t == nil {
				t = &domain.Thread{ID: id}
			}
			slots[i] = t
			return nil
		})
	}
	_ = g.Wait()

	threads := make([]*domain.Thread, 0, len(ids))
	for _, t := range slots {
		if t != nil {
			threads = append(threads, t)
		}
	}
	return threads
}

func shouldProcess(t *domain.Thread, ownerEmail string) bool {
	if len(t.Messages) == 0 || t.IsMailingList || t.HasSkipLabel() {
		return false
	}
	return t.OwnerInTo(ownerEmail)
}

func (u *Ingester) persist(ctx context.Context, t *domain.Thread, res classifier.Result, existing *itemdomain.ActionItem, ownerEmail string, now time.Time) (created, updated bool, err error) {
	last := t.LastMessage()

	rec := &domain.ThreadRecord{
		ThreadID:         t.ID,
		MessageID:        last.ID,
		Subject:          t.Subject,
		Snippet:          t.Snippet,
		FromAddress:      last.FromAddress,
		ToAddresses:      domain.StringArray(last.To),
		CCAddresses:      domain.StringArray(last.CC),
		ReceivedAt:       last.ReceivedAt,
		Labels:           domain.StringArray(t.Labels),
		IsMailingList:    t.IsMailingList,
		ConfidenceScore:  res.Confidence,
		Rationale:        res.Rationale,
		ClassifierMethod: string(res.Method),
		IsProcessed:      true,
	}
	if res.Type != nil {
		typ := string(*res.Type)
		rec.ClassifiedType = &typ
	}
	if err := u.threads.Upsert(ctx, rec); err != nil {
		return false, false, fmt.Errorf("upsert thread record: %w", err)
	}

	if res.Type == nil {
		return false, false, nil
	}

	if existing == nil {
		item := &itemdomain.ActionItem{
			Type:            *res.Type,
			Status:          itemdomain.StatusNotStarted,
			Title:           t.Subject,
			Source:          itemdomain.SourceMail,
			SourceID:        t.ID,
			BlockingWho:     blockingWho(res, last),
			OwnerEmail:      &ownerEmail,
			FirstSeenAt:     requestTime(t, ownerEmail, now),
			LastSeenAt:      now,
			StatusChangedAt: now,
			ConfidenceScore: res.Confidence,
			Rationale:       res.Rationale,
			SuggestedAction: suggestedAction(res),
		}
		if err := u.items.Create(ctx, item); err != nil {
			return false, false, fmt.Errorf("create item: %w", err)
		}
		return true, false, nil
	}

	// Status belongs to the user; only classification fields are refreshed.
	upd := itemdomain.ClassificationUpdate{
		ConfidenceScore: res.Confidence,
		Rationale:       res.Rationale,
		BlockingWho:     res.BlockingWho,
		SuggestedAction: res.SuggestedAction,
		LastSeenAt:      now,
	}
	if err := u.items.UpdateClassification(ctx, existing.ID, upd); err != nil {
		return false, false, fmt.Errorf("update item: %w", err)
	}
	return false, true, nil
}

func blockingWho(res classifier.Result, last *domain.Message) *string {
	if res.BlockingWho != nil && strings.TrimSpace(*res.BlockingWho) != "" {
		return res.BlockingWho
	}
	if last == nil || last.FromAddress == "" {
		return nil
	}
	who := last.FromAddress
	return &who
}

func suggestedAction(res classifier.Result) *string {
	if res.SuggestedAction != nil {
		return res.SuggestedAction
	}
	action := res.Type.SuggestedAction()
	return &action
}

// requestTime is when the owner was last asked for something: the newest inbound message,
// else the newest message, else now.
func requestTime(t *domain.Thread, ownerEmail string, now time.Time) time.Time {
	if m := t.LastInbound(ownerEmail); m != nil && !m.ReceivedAt.IsZero() {
		return m.ReceivedAt
	}
	if m := t.LastMessage(); m != nil && !m.ReceivedAt.IsZero() {
		return m.ReceivedAt
	}
	return now
}
