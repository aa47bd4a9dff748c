package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kentsubra71/keystone/internal/brief/domain"
	"github.com/kentsubra71/keystone/internal/brief/repository"
	itemdomain "github.com/kentsubra71/keystone/internal/item/domain"
	itemrepo "github.com/kentsubra71/keystone/internal/item/repository"
	sheetdomain "github.com/kentsubra71/keystone/internal/sheet/domain"

	"github.com/charmbracelet/log"
)

const (
	topItemsLimit  = 5
	slippingLimit  = 10
	overdueAgeDays = 3
)

// SlippingRows lists commitments that are overdue or close to it.
type SlippingRows interface {
	ListSlipping(ctx context.Context, limit int) ([]*sheetdomain.SourceRow, error)
}

type BriefUsecase interface {
	Generate(ctx context.Context) (*domain.Brief, error)
	Latest(ctx context.Context) (*domain.Brief, error)
}

type briefUsecase struct {
	items  itemrepo.ItemRepository
	rows   SlippingRows
	briefs repository.BriefRepository
	logger *log.Logger
	now    func() time.Time
}

func NewBriefUsecase(items itemrepo.ItemRepository, rows SlippingRows, briefs repository.BriefRepository, logger *log.Logger) BriefUsecase {
	return &briefUsecase{
		items:  items,
		rows:   rows,
		briefs: briefs,
		logger: logger.WithPrefix("Brief"),
		now:    time.Now,
	}
}

func (u *briefUsecase) Generate(ctx context.Context) (*domain.Brief, error) {
	now := u.now()

	open, err := u.items.List(ctx, itemdomain.Filter{
		ExcludeStatuses: []itemdomain.Status{itemdomain.StatusDone, itemdomain.StatusDeferred},
	})
	if err != nil {
		return nil, fmt.Errorf("load open items: %w", err)
	}
	sort.SliceStable(open, func(i, j int) bool { return open[i].FirstSeenAt.Before(open[j].FirstSeenAt) })

	content := domain.Content{
		TopDueItems:         []domain.BriefItem{},
		OverdueItems:        []domain.BriefItem{},
		SlippingCommitments: []domain.SlippingCommitment{},
		GeneratedAt:         now,
	}

	for _, item := range open {
		age := itemdomain.DaysBetween(item.FirstSeenAt, now)
		if len(content.TopDueItems) < topItemsLimit {
			content.TopDueItems = append(content.TopDueItems, domain.BriefItem{
				ID:        item.ID,
				Title:     item.Title,
				Type:      string(item.Type),
				AgingDays: age,
				Rationale: item.Rationale,
			})
		}
		if (item.Type == itemdomain.TypeReply || item.Type == itemdomain.TypeApproval) && age > overdueAgeDays {
			content.OverdueItems = append(content.OverdueItems, domain.BriefItem{
				ID:        item.ID,
				Title:     item.Title,
				Type:      string(item.Type),
				AgingDays: age,
			})
		}
	}

	rows, err := u.rows.ListSlipping(ctx, slippingLimit)
	if err != nil {
		return nil, fmt.Errorf("load slipping commitments: %w", err)
	}
	for _, row := range rows {
		content.SlippingCommitments = append(content.SlippingCommitments, domain.SlippingCommitment{
			ID:         row.ID,
			Commitment: row.Commitment,
			OwnerEmail: row.OwnerEmail,
			DueDate:    row.DueDate,
			IsOverdue:  row.IsOverdue,
		})
	}

	brief := &domain.Brief{GeneratedAt: now, Content: content}
	if err := u.briefs.Create(ctx, brief); err != nil {
		return nil, fmt.Errorf("save brief: %w", err)
	}

	u.logger.Info("brief generated",
		"top", len(content.TopDueItems),
		"overdue", len(content.OverdueItems),
		"slipping", len(content.SlippingCommitments))
	return brief, nil
}

func (u *briefUsecase) Latest(ctx context.Context) (*domain.Brief, error) {
	b, err := u.briefs.Latest(ctx)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, domain.ErrNoBrief
	}
	return b, nil
}
