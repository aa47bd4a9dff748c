//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	itemdomain "github.com/kentsubra71/keystone/internal/item/domain"
	itemrepo "github.com/kentsubra71/keystone/internal/item/repository"
	"github.com/kentsubra71/keystone/internal/nudge/domain"
	"github.com/kentsubra71/keystone/internal/testhelper"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNudgeRepository_ActiveJoinsItemTitle(t *testing.T) {
	db := testhelper.SetupTestDB(t)
	ctx := context.Background()
	items := itemrepo.NewItemRepository(db)
	repo := NewNudgeRepository(db)

	item := &itemdomain.ActionItem{Type: itemdomain.TypeReply, Title: "Budget", Source: itemdomain.SourceMail, SourceID: "t1", Rationale: "r"}
	require.NoError(t, items.Create(ctx, item))

	now := time.Now()
	keep := &domain.Nudge{Type: domain.TypeOverdue, ItemID: item.ID, Reason: "overdue", SentAt: &now}
	gone := &domain.Nudge{Type: domain.TypeOverdue, ItemID: item.ID, Reason: "dismissed", SentAt: &now}
	require.NoError(t, repo.Create(ctx, keep))
	require.NoError(t, repo.Create(ctx, gone))
	require.NoError(t, repo.Dismiss(ctx, gone.ID, now))

	active, err := repo.ListActive(ctx, domain.StartOfDay(now))
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, keep.ID, active[0].ID)
	assert.Equal(t, "Budget", active[0].ItemTitle)

	sent, err := repo.ListSentSince(ctx, domain.StartOfDay(now))
	require.NoError(t, err)
	assert.Len(t, sent, 2)

	assert.ErrorIs(t, repo.Dismiss(ctx, "missing", now), domain.ErrNudgeNotFound)
}

func TestDeviceRepository_SaveIsIdempotent(t *testing.T) {
	repo := NewDeviceRepository(testhelper.SetupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "tok-a", "phone"))
	require.NoError(t, repo.Save(ctx, "tok-a", "phone v2"))
	require.NoError(t, repo.Save(ctx, "tok-b", "laptop"))

	tokens, err := repo.ListTokens(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"tok-a", "tok-b"}, tokens)

	require.NoError(t, repo.Delete(ctx, "tok-a"))
	tokens, err = repo.ListTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"tok-b"}, tokens)
}
