package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kentsubra71/keystone/internal/sheet/domain"
	"github.com/kentsubra71/keystone/internal/sheet/repository"
	"github.com/kentsubra71/keystone/pkg/fuzzy"

	"github.com/charmbracelet/log"
	"github.com/emersion/go-message/mail"
)

const maxOwnerSuggestions = 5

// ErrInvalidOwner is returned for blank names or malformed addresses.
var ErrInvalidOwner = errors.New("display name and a valid email are required")

// SheetUsecase exposes stored rows and the owner directory.
type SheetUsecase interface {
	ListRows(ctx context.Context, filter domain.RowFilter) ([]*domain.SourceRow, error)
	WaitingOn(ctx context.Context) ([]*domain.SourceRow, error)

	ListOwners(ctx context.Context) ([]*domain.OwnerDirectoryEntry, error)
	CreateOwner(ctx context.Context, displayName, email string) (*domain.OwnerDirectoryEntry, error)
	UpdateOwner(ctx context.Context, id, displayName, email string) (*domain.OwnerDirectoryEntry, error)
	DeleteOwner(ctx context.Context, id string) error
	SuggestOwners(ctx context.Context, label string) ([]domain.OwnerSuggestion, error)
}

type sheetUsecase struct {
	rows         repository.RowRepository
	owners       repository.OwnerRepository
	accountOwner string
	logger       *log.Logger
}

// NewSheetUsecase builds the read side. accountOwner is the address treated as "me" for waiting-on queries.
func NewSheetUsecase(rows repository.RowRepository, owners repository.OwnerRepository, accountOwner string, logger *log.Logger) SheetUsecase {
	return &sheetUsecase{
		rows:         rows,
		owners:       owners,
		accountOwner: accountOwner,
		logger:       logger.WithPrefix("Sheet"),
	}
}

func (u *sheetUsecase) ListRows(ctx context.Context, filter domain.RowFilter) ([]*domain.SourceRow, error) {
	return u.rows.List(ctx, filter)
}

func (u *sheetUsecase) WaitingOn(ctx context.Context) ([]*domain.SourceRow, error) {
	return u.rows.ListWaitingOn(ctx, u.accountOwner)
}

func (u *sheetUsecase) ListOwners(ctx context.Context) ([]*domain.OwnerDirectoryEntry, error) {
	return u.owners.List(ctx)
}

func (u *sheetUsecase) CreateOwner(ctx context.Context, displayName, email string) (*domain.OwnerDirectoryEntry, error) {
	displayName, email, err := validateOwner(displayName, email)
	if err != nil {
		return nil, err
	}

	existing, err := u.owners.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicateOwner
	}

	entry := &domain.OwnerDirectoryEntry{DisplayName: displayName, Email: email}
	if err := u.owners.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("create owner: %w", err)
	}
	u.logger.Info("owner added", "name", displayName)
	return entry, nil
}

func (u *sheetUsecase) UpdateOwner(ctx context.Context, id, displayName, email string) (*domain.OwnerDirectoryEntry, error) {
	displayName, email, err := validateOwner(displayName, email)
	if err != nil {
		return nil, err
	}

	existing, err := u.owners.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.ID != id {
		return nil, domain.ErrDuplicateOwner
	}

	entry := &domain.OwnerDirectoryEntry{ID: id, DisplayName: displayName, Email: email}
	if err := u.owners.Update(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (u *sheetUsecase) DeleteOwner(ctx context.Context, id string) error {
	return u.owners.Delete(ctx, id)
}

// SuggestOwners ranks directory entries whose display name is close to an unmapped sheet label.
func (u *sheetUsecase) SuggestOwners(ctx context.Context, label string) ([]domain.OwnerSuggestion, error) {
	entries, err := u.owners.List(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.DisplayName
	}

	matches := fuzzy.Rank(label, names, fuzzy.Threshold(label))
	if len(matches) > maxOwnerSuggestions {
		matches = matches[:maxOwnerSuggestions]
	}

	suggestions := make([]domain.OwnerSuggestion, 0, len(matches))
	for _, m := range matches {
		suggestions = append(suggestions, domain.OwnerSuggestion{Entry: entries[m.Index], Distance: m.Distance})
	}
	return suggestions, nil
}

func validateOwner(displayName, email string) (string, string, error) {
	displayName = strings.TrimSpace(displayName)
	email = strings.ToLower(strings.TrimSpace(email))
	if displayName == "" || email == "" {
		return "", "", ErrInvalidOwner
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidOwner, err)
	}
	return displayName, email, nil
}
