package delivery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kentsubra71/keystone/internal/item/domain"
	"github.com/kentsubra71/keystone/internal/item/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUsecase struct {
	calls     []string
	snoozed   int
	lastQuery usecase.ListQuery
	err       error
}

func (s *stubUsecase) ListItems(_ context.Context, q usecase.ListQuery) ([]*domain.ActionItem, error) {
	s.lastQuery = q
	return []*domain.ActionItem{{ID: "a"}}, s.err
}

func (s *stubUsecase) GetItem(_ context.Context, id string) (*domain.ActionItem, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.ActionItem{ID: id}, nil
}

func (s *stubUsecase) MarkDone(context.Context, string) error {
	s.calls = append(s.calls, "done")
	return s.err
}

func (s *stubUsecase) Snooze(_ context.Context, _ string, days int) error {
	s.calls = append(s.calls, "snooze")
	s.snoozed = days
	return s.err
}

func (s *stubUsecase) Ignore(context.Context, string) error {
	s.calls = append(s.calls, "ignore")
	return s.err
}

func (s *stubUsecase) History(context.Context, string) ([]*domain.UserAction, error) {
	return nil, s.err
}

func newRouter(uc usecase.ItemUsecase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewItemHandler(uc)
	r.GET("/items", h.GetItems)
	r.GET("/items/:id", h.GetItemByID)
	r.POST("/items/:id/action", h.ApplyAction)
	return r
}

func TestApplyAction_Snooze(t *testing.T) {
	uc := &stubUsecase{}
	r := newRouter(uc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/items/a/action", strings.NewReader(`{"action":"snooze","snoozeDays":2}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"snooze"}, uc.calls)
	assert.Equal(t, 2, uc.snoozed)
}

func TestApplyAction_RejectsUnknownAction(t *testing.T) {
	uc := &stubUsecase{}
	r := newRouter(uc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/items/a/action", strings.NewReader(`{"action":"delegate"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, uc.calls)
}

func TestApplyAction_NotFound(t *testing.T) {
	uc := &stubUsecase{err: domain.ErrItemNotFound}
	r := newRouter(uc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/items/zzz/action", strings.NewReader(`{"action":"done"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetItems_ParsesFilters(t *testing.T) {
	uc := &stubUsecase{}
	r := newRouter(uc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items?filter=blocking&status=blocked&source=mail", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.ViewBlocking, uc.lastQuery.View)
	require.NotNil(t, uc.lastQuery.Status)
	assert.Equal(t, domain.StatusBlocked, *uc.lastQuery.Status)
	require.NotNil(t, uc.lastQuery.Source)
	assert.Equal(t, domain.SourceMail, *uc.lastQuery.Source)
}

func TestGetItems_InvalidStatus(t *testing.T) {
	r := newRouter(&stubUsecase{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items?status=someday", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
