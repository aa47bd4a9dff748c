package delivery

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kentsubra71/keystone/internal/auth/domain"
	"github.com/kentsubra71/keystone/internal/auth/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", mw, func(c *gin.Context) {
		email := ""
		if p, ok := c.Get(PrincipalKey); ok {
			email = p.(*domain.Principal).Email
		}
		c.JSON(http.StatusOK, gin.H{"email": email})
	})
	return r
}

func get(r *gin.Engine, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCronMiddleware(t *testing.T) {
	r := newRouter(CronMiddleware("cron-secret"))

	assert.Equal(t, http.StatusOK, get(r, "Bearer cron-secret").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer cron-secre").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer cron-secret ").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "cron-secret").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
}

func TestCronMiddleware_UnsetSecretRejectsAll(t *testing.T) {
	r := newRouter(CronMiddleware(""))

	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer ").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
}

func TestAuthMiddleware(t *testing.T) {
	tokens := usecase.NewTokenUsecase("s3cret", time.Hour, "me@example.com")
	r := newRouter(AuthMiddleware(tokens))

	good, err := tokens.IssueToken("me@example.com")
	require.NoError(t, err)
	w := get(r, "Bearer "+good)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "me@example.com")

	other, err := usecase.NewTokenUsecase("s3cret", time.Hour, "").IssueToken("x@example.com")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, get(r, "Bearer "+other).Code)

	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Token "+good).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer nope").Code)
}
