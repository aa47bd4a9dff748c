package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kentsubra71/keystone/internal/brief/domain"
	itemdomain "github.com/kentsubra71/keystone/internal/item/domain"
	sheetdomain "github.com/kentsubra71/keystone/internal/sheet/domain"
	"github.com/kentsubra71/keystone/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC)

type fakeItems struct {
	items []*itemdomain.ActionItem
	err   error
}

func (f *fakeItems) FindByID(context.Context, string) (*itemdomain.ActionItem, error) { return nil, nil }

func (f *fakeItems) FindBySourceIDs(context.Context, itemdomain.Source, []string) (map[string]*itemdomain.ActionItem, error) {
	return nil, nil
}

func (f *fakeItems) Create(context.Context, *itemdomain.ActionItem) error { return nil }

func (f *fakeItems) UpdateClassification(context.Context, string, itemdomain.ClassificationUpdate) error {
	return nil
}

func (f *fakeItems) UpdateStatus(context.Context, string, itemdomain.Status, time.Time, *time.Time) error {
	return nil
}

func (f *fakeItems) List(_ context.Context, filter itemdomain.Filter) ([]*itemdomain.ActionItem, error) {
	excluded := map[itemdomain.Status]bool{}
	for _, s := range filter.ExcludeStatuses {
		excluded[s] = true
	}
	var out []*itemdomain.ActionItem
	for _, it := range f.items {
		if !excluded[it.Status] {
			out = append(out, it)
		}
	}
	return out, f.err
}

type fakeRows struct {
	rows  []*sheetdomain.SourceRow
	limit int
}

func (f *fakeRows) ListSlipping(_ context.Context, limit int) ([]*sheetdomain.SourceRow, error) {
	f.limit = limit
	return f.rows, nil
}

type fakeBriefs struct {
	saved []*domain.Brief
}

func (f *fakeBriefs) Create(_ context.Context, b *domain.Brief) error {
	b.ID = fmt.Sprintf("b%d", len(f.saved)+1)
	f.saved = append(f.saved, b)
	return nil
}

func (f *fakeBriefs) Latest(context.Context) (*domain.Brief, error) {
	if len(f.saved) == 0 {
		return nil, nil
	}
	return f.saved[len(f.saved)-1], nil
}

func aged(id string, typ itemdomain.ItemType, days int, status itemdomain.Status) *itemdomain.ActionItem {
	return &itemdomain.ActionItem{
		ID:          id,
		Type:        typ,
		Status:      status,
		Title:       "Title " + id,
		Rationale:   "why " + id,
		FirstSeenAt: fixedNow.Add(-time.Duration(days)*24*time.Hour - time.Minute),
	}
}

func newTestUsecase(items *fakeItems, rows *fakeRows, briefs *fakeBriefs) *briefUsecase {
	uc := NewBriefUsecase(items, rows, briefs, logger.Discard()).(*briefUsecase)
	uc.now = func() time.Time { return fixedNow }
	return uc
}

func TestGenerate(t *testing.T) {
	items := &fakeItems{items: []*itemdomain.ActionItem{
		aged("r1", itemdomain.TypeReply, 1, itemdomain.StatusNotStarted),
		aged("a6", itemdomain.TypeApproval, 6, itemdomain.StatusInProgress),
		aged("r3", itemdomain.TypeReply, 3, itemdomain.StatusNotStarted),
		aged("d9", itemdomain.TypeDecision, 9, itemdomain.StatusBlocked),
		aged("done", itemdomain.TypeReply, 20, itemdomain.StatusDone),
		aged("f2", itemdomain.TypeFollowUp, 2, itemdomain.StatusNotStarted),
		aged("r4", itemdomain.TypeReply, 4, itemdomain.StatusNotStarted),
		aged("snz", itemdomain.TypeApproval, 12, itemdomain.StatusDeferred),
	}}
	due := fixedNow.Add(-48 * time.Hour)
	rows := &fakeRows{rows: []*sheetdomain.SourceRow{{ID: "s1", Commitment: "Renew lease", DueDate: &due, IsOverdue: true}}}
	briefs := &fakeBriefs{}

	b, err := newTestUsecase(items, rows, briefs).Generate(context.Background())

	require.NoError(t, err)
	require.Len(t, briefs.saved, 1)
	assert.Equal(t, fixedNow, b.GeneratedAt)

	c := b.Content
	var top []string
	for _, it := range c.TopDueItems {
		top = append(top, it.ID)
	}
	assert.Equal(t, []string{"d9", "a6", "r4", "r3", "f2"}, top)
	assert.Equal(t, 9, c.TopDueItems[0].AgingDays)
	assert.Equal(t, "why d9", c.TopDueItems[0].Rationale)

	var overdue []string
	for _, it := range c.OverdueItems {
		overdue = append(overdue, it.ID)
	}
	assert.Equal(t, []string{"a6", "r4"}, overdue, "age must exceed three days")

	assert.Equal(t, 10, rows.limit)
	require.Len(t, c.SlippingCommitments, 1)
	assert.Equal(t, "Renew lease", c.SlippingCommitments[0].Commitment)
	assert.True(t, c.SlippingCommitments[0].IsOverdue)
}

func TestGenerate_EmptyListsAreNotNil(t *testing.T) {
	b, err := newTestUsecase(&fakeItems{}, &fakeRows{}, &fakeBriefs{}).Generate(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, b.Content.TopDueItems)
	assert.NotNil(t, b.Content.OverdueItems)
	assert.NotNil(t, b.Content.SlippingCommitments)
}

func TestGenerate_ItemError(t *testing.T) {
	_, err := newTestUsecase(&fakeItems{err: errors.New("db down")}, &fakeRows{}, &fakeBriefs{}).Generate(context.Background())
	assert.Error(t, err)
}

func TestLatest(t *testing.T) {
	briefs := &fakeBriefs{}
	uc := newTestUsecase(&fakeItems{}, &fakeRows{}, briefs)

	_, err := uc.Latest(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoBrief)

	_, err = uc.Generate(context.Background())
	require.NoError(t, err)

	b, err := uc.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b1", b.ID)
}
