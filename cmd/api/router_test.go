package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	authUsecase "github.com/kentsubra71/keystone/internal/auth/usecase"
	briefDelivery "github.com/kentsubra71/keystone/internal/brief/delivery"
	briefdomain "github.com/kentsubra71/keystone/internal/brief/domain"
	mailusecase "github.com/kentsubra71/keystone/internal/mail/usecase"
	nudgedomain "github.com/kentsubra71/keystone/internal/nudge/domain"
	sheetusecase "github.com/kentsubra71/keystone/internal/sheet/usecase"
	"github.com/kentsubra71/keystone/pkg/ai"
	"github.com/kentsubra71/keystone/pkg/config"
	"github.com/kentsubra71/keystone/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJobs struct {
	mailErr error
	calls   []string
}

func (s *stubJobs) SyncSheet(context.Context) (*sheetusecase.ReconcileResult, error) {
	s.calls = append(s.calls, "sheet")
	return &sheetusecase.ReconcileResult{Success: true, Added: 2}, nil
}

func (s *stubJobs) SyncMail(context.Context) (*mailusecase.IngestResult, error) {
	s.calls = append(s.calls, "gmail")
	if s.mailErr != nil {
		return &mailusecase.IngestResult{Errors: []string{s.mailErr.Error()}}, s.mailErr
	}
	return &mailusecase.IngestResult{Success: true, ItemsCreated: 1}, nil
}

func (s *stubJobs) GenerateNudges(context.Context) ([]*nudgedomain.Nudge, error) {
	s.calls = append(s.calls, "nudges")
	return []*nudgedomain.Nudge{{ID: "n1"}}, nil
}

func (s *stubJobs) GenerateBrief(context.Context) (*briefdomain.Brief, error) {
	s.calls = append(s.calls, "brief")
	return &briefdomain.Brief{ID: "b1"}, nil
}

type stubBriefs struct{ brief *briefdomain.Brief }

func (s *stubBriefs) Generate(context.Context) (*briefdomain.Brief, error) { return s.brief, nil }

func (s *stubBriefs) Latest(context.Context) (*briefdomain.Brief, error) {
	if s.brief == nil {
		return nil, briefdomain.ErrNoBrief
	}
	return s.brief, nil
}

const testSecret = "cron-secret"

func setupRouter(t *testing.T, jobs *stubJobs, briefs *stubBriefs) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{CronSecret: testSecret}
	tokens := authUsecase.NewTokenUsecase("jwt-secret", time.Hour, "me@x.com")
	token, err := tokens.IssueToken("me@x.com")
	require.NoError(t, err)

	h := NewHandler(cfg, tokens, Handlers{
		Jobs:     NewJobsHandler(jobs),
		Briefs:   briefDelivery.NewBriefHandler(briefs),
		Settings: NewSettingsHandler(ai.NewOllamaSettings("http://ollama:11434", "llama3")),
	}, logger.Discard())
	return h.Engine(), token
}

func do(r http.Handler, method, path, auth, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _ := setupRouter(t, &stubJobs{}, &stubBriefs{})
	w := do(r, http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCronRoutes_RequireSecret(t *testing.T) {
	jobs := &stubJobs{}
	r, token := setupRouter(t, jobs, &stubBriefs{})

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/api/cron/sheet", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/api/cron/sheet", "Bearer wrong", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/api/cron/sheet", "Bearer "+token, "").Code)
	assert.Empty(t, jobs.calls)
}

func TestCronRoutes_RunJobs(t *testing.T) {
	jobs := &stubJobs{}
	r, _ := setupRouter(t, jobs, &stubBriefs{})
	auth := "Bearer " + testSecret

	w := do(r, http.MethodPost, "/api/cron/sheet", auth, "")
	require.Equal(t, http.StatusOK, w.Code)
	var res sheetusecase.ReconcileResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 2, res.Added)

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/cron/gmail", auth, "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/cron/nudges", auth, "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/cron/brief", auth, "").Code)
	assert.Equal(t, []string{"sheet", "gmail", "nudges", "brief"}, jobs.calls)
}

func TestCronGmail_FailureReturnsResult(t *testing.T) {
	jobs := &stubJobs{mailErr: errors.New("no credential")}
	r, _ := setupRouter(t, jobs, &stubBriefs{})

	w := do(r, http.MethodPost, "/api/cron/gmail", "Bearer "+testSecret, "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var res mailusecase.IngestResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.False(t, res.Success)
	assert.Equal(t, []string{"no credential"}, res.Errors)
}

func TestAuthedRoutes(t *testing.T) {
	jobs := &stubJobs{}
	r, token := setupRouter(t, jobs, &stubBriefs{})

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/brief", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/api/sync/sheet", "Bearer "+testSecret, "").Code)

	w := do(r, http.MethodPost, "/api/sync/sheet", "Bearer "+token, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"sheet"}, jobs.calls)
}

func TestBrief_NoneYet(t *testing.T) {
	r, token := setupRouter(t, &stubJobs{}, &stubBriefs{})

	w := do(r, http.MethodGet, "/api/brief", "Bearer "+token, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"brief":null}`, w.Body.String())
}

func TestBrief_Latest(t *testing.T) {
	generated := time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC)
	briefs := &stubBriefs{brief: &briefdomain.Brief{
		ID:          "b1",
		GeneratedAt: generated,
		Content: briefdomain.Content{
			TopDueItems: []briefdomain.BriefItem{{ID: "i1", Title: "Budget", Type: "approval", AgingDays: 4}},
			GeneratedAt: generated,
		},
	}}
	r, token := setupRouter(t, &stubJobs{}, briefs)

	w := do(r, http.MethodGet, "/api/brief", "Bearer "+token, "")

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Brief briefdomain.Content `json:"brief"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Brief.TopDueItems, 1)
	assert.Equal(t, "Budget", body.Brief.TopDueItems[0].Title)
}

func TestOllamaSettings(t *testing.T) {
	r, token := setupRouter(t, &stubJobs{}, &stubBriefs{})
	auth := "Bearer " + token

	w := do(r, http.MethodGet, "/api/settings/ollama", auth, "")
	assert.JSONEq(t, `{"ollama_base_url":"http://ollama:11434","ollama_model":"llama3"}`, w.Body.String())

	w = do(r, http.MethodPut, "/api/settings/ollama", auth, `{"ollama_base_url":"http://gpu:11434","ollama_model":"mistral"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/settings/ollama", auth, "")
	assert.JSONEq(t, `{"ollama_base_url":"http://gpu:11434","ollama_model":"mistral"}`, w.Body.String())

	w = do(r, http.MethodPut, "/api/settings/ollama", auth, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOllamaConnection(t *testing.T) {
	ollama := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3"}]}`))
	}))
	defer ollama.Close()

	r, token := setupRouter(t, &stubJobs{}, &stubBriefs{})

	w := do(r, http.MethodPost, "/api/settings/ollama/test", "Bearer "+token, `{"ollama_base_url":"`+ollama.URL+`"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"connected":true`)

	w = do(r, http.MethodPost, "/api/settings/ollama/test", "Bearer "+token, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(r, http.MethodPost, "/api/settings/ollama/test", "Bearer "+token, `{"ollama_base_url":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotContains(t, w.Body.String(), "connected")
}
