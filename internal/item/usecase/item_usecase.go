package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kentsubra71/keystone/internal/item/domain"
	"github.com/kentsubra71/keystone/internal/item/repository"

	"github.com/charmbracelet/log"
)

const (
	DefaultSnoozeDays = 1
	MaxSnoozeDays     = 90
)

var ErrInvalidSnooze = errors.New("snooze days must be between 1 and 90")

// ListQuery is what the presentation layer asks for.
type ListQuery struct {
	View       domain.View
	Status     *domain.Status
	OwnerEmail *string
	Source     *domain.Source
}

// ItemUsecase exposes item reads and the user-driven status transitions.
type ItemUsecase interface {
	ListItems(ctx context.Context, q ListQuery) ([]*domain.ActionItem, error)
	GetItem(ctx context.Context, id string) (*domain.ActionItem, error)
	MarkDone(ctx context.Context, id string) error
	Snooze(ctx context.Context, id string, days int) error
	Ignore(ctx context.Context, id string) error
	History(ctx context.Context, id string) ([]*domain.UserAction, error)
}

type itemUsecase struct {
	items   repository.ItemRepository
	actions repository.UserActionRepository
	logger  *log.Logger
	now     func() time.Time
}

func NewItemUsecase(items repository.ItemRepository, actions repository.UserActionRepository, logger *log.Logger) ItemUsecase {
	return &itemUsecase{
		items:   items,
		actions: actions,
		logger:  logger.WithPrefix("Items"),
		now:     time.Now,
	}
}

func (u *itemUsecase) ListItems(ctx context.Context, q ListQuery) ([]*domain.ActionItem, error) {
	filter := domain.FilterForView(q.View)
	if q.Status != nil {
		filter.Statuses = []domain.Status{*q.Status}
	}
	filter.OwnerEmail = q.OwnerEmail
	filter.Source = q.Source

	items, err := u.items.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	now := u.now()
	for _, item := range items {
		item.WithAging(now)
	}
	return items, nil
}

func (u *itemUsecase) GetItem(ctx context.Context, id string) (*domain.ActionItem, error) {
	item, err := u.items.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find item: %w", err)
	}
	if item == nil {
		return nil, domain.ErrItemNotFound
	}
	return item.WithAging(u.now()), nil
}

func (u *itemUsecase) MarkDone(ctx context.Context, id string) error {
	item, err := u.GetItem(ctx, id)
	if err != nil {
		return err
	}

	prev := string(item.Status)
	next := string(domain.StatusDone)
	if err := u.record(ctx, item, domain.ActionDone, &prev, &next); err != nil {
		return err
	}
	return u.transition(ctx, item, domain.StatusDone, nil)
}

func (u *itemUsecase) Snooze(ctx context.Context, id string, days int) error {
	if days == 0 {
		days = DefaultSnoozeDays
	}
	if days < 1 || days > MaxSnoozeDays {
		return ErrInvalidSnooze
	}

	item, err := u.GetItem(ctx, id)
	if err != nil {
		return err
	}

	next := fmt.Sprintf("%d days", days)
	if err := u.record(ctx, item, domain.ActionSnooze, nil, &next); err != nil {
		return err
	}

	until := u.now().AddDate(0, 0, days)
	return u.transition(ctx, item, domain.StatusDeferred, &until)
}

// Ignore closes the item but keeps the distinct action in the log.
func (u *itemUsecase) Ignore(ctx context.Context, id string) error {
	item, err := u.GetItem(ctx, id)
	if err != nil {
		return err
	}

	if err := u.record(ctx, item, domain.ActionIgnore, nil, nil); err != nil {
		return err
	}
	return u.transition(ctx, item, domain.StatusDone, nil)
}

func (u *itemUsecase) History(ctx context.Context, id string) ([]*domain.UserAction, error) {
	if _, err := u.GetItem(ctx, id); err != nil {
		return nil, err
	}
	actions, err := u.actions.ListByItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	return actions, nil
}

func (u *itemUsecase) record(ctx context.Context, item *domain.ActionItem, action domain.ActionType, prev, next *string) error {
	err := u.actions.Append(ctx, &domain.UserAction{
		ItemID:        item.ID,
		ItemSource:    item.Source,
		Action:        action,
		PreviousValue: prev,
		NewValue:      next,
	})
	if err != nil {
		return fmt.Errorf("record %s action: %w", action, err)
	}
	return nil
}

func (u *itemUsecase) transition(ctx context.Context, item *domain.ActionItem, status domain.Status, snoozedUntil *time.Time) error {
	if err := u.items.UpdateStatus(ctx, item.ID, status, u.now(), snoozedUntil); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	u.logger.Info("item status changed", "item", item.ID, "from", item.Status, "to", status)
	return nil
}
