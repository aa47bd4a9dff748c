package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	itemdomain "github.com/kentsubra71/keystone/internal/item/domain"
	itemrepo "github.com/kentsubra71/keystone/internal/item/repository"
	"github.com/kentsubra71/keystone/internal/nudge/domain"
	"github.com/kentsubra71/keystone/internal/nudge/repository"
	"github.com/kentsubra71/keystone/pkg/fcm"

	"github.com/charmbracelet/log"
)

const (
	blockingMinAge = 1
	overdueMinAge  = 3
)

// Pusher delivers notifications to devices. *fcm.Client satisfies it.
type Pusher interface {
	SendToDevices(ctx context.Context, tokens []string, n fcm.NotificationData) ([]string, error)
}

type NudgeUsecase interface {
	Generate(ctx context.Context) ([]*domain.Nudge, error)
	Dismiss(ctx context.Context, id string) error
	Active(ctx context.Context) ([]*domain.Nudge, error)
	RegisterDevice(ctx context.Context, token, deviceInfo string) error
	UnregisterDevice(ctx context.Context, token string) error
}

type nudgeUsecase struct {
	nudges   repository.NudgeRepository
	devices  repository.DeviceRepository
	items    itemrepo.ItemRepository
	pusher   Pusher
	dailyCap int
	logger   *log.Logger
	now      func() time.Time

	// Held for a whole Generate so overlapping calls cannot both pass the cap check.
	mu sync.Mutex
}

// NewNudgeUsecase builds the generator. pusher may be nil to disable push delivery.
// A dailyCap of zero disables nudge generation.
func NewNudgeUsecase(nudges repository.NudgeRepository, devices repository.DeviceRepository, items itemrepo.ItemRepository, pusher Pusher, dailyCap int, logger *log.Logger) NudgeUsecase {
	if dailyCap < 0 {
		dailyCap = 0
	}
	return &nudgeUsecase{
		nudges:   nudges,
		devices:  devices,
		items:    items,
		pusher:   pusher,
		dailyCap: dailyCap,
		logger:   logger.WithPrefix("Nudges"),
		now:      time.Now,
	}
}

type candidate struct {
	item *itemdomain.ActionItem
	age  int
}

// Generate creates up to the remaining daily allowance of nudges, blocking-others first.
func (u *nudgeUsecase) Generate(ctx context.Context) ([]*domain.Nudge, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	created := []*domain.Nudge{}
	if u.dailyCap == 0 {
		u.logger.Debug("nudges disabled")
		return created, nil
	}

	now := u.now()
	today, err := u.nudges.ListSentSince(ctx, domain.StartOfDay(now))
	if err != nil {
		return nil, fmt.Errorf("load today's nudges: %w", err)
	}

	remaining := u.dailyCap - len(today)
	if remaining <= 0 {
		u.logger.Info("daily cap reached", "sent", len(today), "cap", u.dailyCap)
		return created, nil
	}

	nudged := make(map[string]bool, len(today))
	for _, n := range today {
		nudged[n.ItemID] = true
	}

	open, err := u.items.List(ctx, itemdomain.Filter{
		ExcludeStatuses: []itemdomain.Status{itemdomain.StatusDone, itemdomain.StatusDeferred},
	})
	if err != nil {
		return nil, fmt.Errorf("load open items: %w", err)
	}

	var blocking, overdue []candidate
	for _, item := range open {
		age := itemdomain.DaysBetween(item.FirstSeenAt, now)
		if item.IsBlockingSomeone() && age >= blockingMinAge {
			blocking = append(blocking, candidate{item, age})
		}
		if (item.Type == itemdomain.TypeReply || item.Type == itemdomain.TypeApproval) && age >= overdueMinAge {
			overdue = append(overdue, candidate{item, age})
		}
	}
	byAgeDesc(blocking)
	byAgeDesc(overdue)

	tiers := []struct {
		typ        domain.NudgeType
		candidates []candidate
		reason     func(c candidate) string
	}{
		{domain.TypeBlockingOthers, blocking, func(c candidate) string {
			return fmt.Sprintf("You are blocking %s - this %s has been waiting %d days", *c.item.BlockingWho, c.item.Type.Label(), c.age)
		}},
		{domain.TypeOverdue, overdue, func(c candidate) string {
			return fmt.Sprintf("This %s is overdue by %d days", c.item.Type.Label(), c.age)
		}},
	}

	for _, tier := range tiers {
		for _, c := range tier.candidates {
			if len(created) >= remaining {
				break
			}
			if nudged[c.item.ID] {
				continue
			}
			sentAt := now
			n := &domain.Nudge{
				Type:      tier.typ,
				ItemID:    c.item.ID,
				Reason:    tier.reason(c),
				SentAt:    &sentAt,
				CreatedAt: now,
			}
			if err := u.nudges.Create(ctx, n); err != nil {
				return created, fmt.Errorf("create nudge: %w", err)
			}
			n.ItemTitle = c.item.Title
			nudged[c.item.ID] = true
			created = append(created, n)
		}
	}

	u.logger.Info("nudges generated", "created", len(created), "sentToday", len(today)+len(created))
	u.push(ctx, created)
	return created, nil
}

func byAgeDesc(cs []candidate) {
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].age > cs[j].age })
}

// push is best effort: failures are logged and dead tokens dropped.
func (u *nudgeUsecase) push(ctx context.Context, nudges []*domain.Nudge) {
	if u.pusher == nil || len(nudges) == 0 {
		return
	}
	tokens, err := u.devices.ListTokens(ctx)
	if err != nil {
		u.logger.Warn("failed to load device tokens", "err", err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	for _, n := range nudges {
		failed, err := u.pusher.SendToDevices(ctx, tokens, fcm.NotificationData{
			Title: n.ItemTitle,
			Body:  n.Reason,
			Data:  map[string]string{"nudgeId": n.ID, "itemId": n.ItemID, "type": string(n.Type)},
			Link:  "/today",
		})
		if err != nil {
			u.logger.Warn("push failed", "nudge", n.ID, "err", err)
			continue
		}
		if len(failed) == 0 {
			continue
		}
		if err := u.devices.Delete(ctx, failed...); err != nil {
			u.logger.Warn("failed to remove dead tokens", "count", len(failed), "err", err)
		}
		tokens = without(tokens, failed)
		if len(tokens) == 0 {
			return
		}
	}
}

func without(tokens, drop []string) []string {
	skip := make(map[string]bool, len(drop))
	for _, t := range drop {
		skip[t] = true
	}
	out := tokens[:0:0]
	for _, t := range tokens {
		if !skip[t] {
			out = append(out, t)
		}
	}
	return out
}

func (u *nudgeUsecase) Dismiss(ctx context.Context, id string) error {
	if err := u.nudges.Dismiss(ctx, id, u.now()); err != nil {
		if errors.Is(err, domain.ErrNudgeNotFound) {
			return err
		}
		return fmt.Errorf("dismiss nudge: %w", err)
	}
	return nil
}

func (u *nudgeUsecase) Active(ctx context.Context) ([]*domain.Nudge, error) {
	nudges, err := u.nudges.ListActive(ctx, domain.StartOfDay(u.now()))
	if err != nil {
		return nil, err
	}
	if nudges == nil {
		nudges = []*domain.Nudge{}
	}
	return nudges, nil
}

func (u *nudgeUsecase) RegisterDevice(ctx context.Context, token, deviceInfo string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrInvalidToken
	}
	return u.devices.Save(ctx, token, deviceInfo)
}

func (u *nudgeUsecase) UnregisterDevice(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrInvalidToken
	}
	return u.devices.Delete(ctx, token)
}
