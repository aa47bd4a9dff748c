package usecase

import (
	"testing"
	"time"

	"github.com/kentsubra71/keystone/internal/auth/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	uc := NewTokenUsecase("s3cret", time.Hour, "Me@Example.com")

	tok, err := uc.IssueToken("me@example.com")
	require.NoError(t, err)

	p, err := uc.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", p.Email)
}

func TestIssueToken_RejectsOtherAccounts(t *testing.T) {
	uc := NewTokenUsecase("s3cret", time.Hour, "me@example.com")
	_, err := uc.IssueToken("someone@else.com")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = NewTokenUsecase("", time.Hour, "").IssueToken("me@example.com")
	assert.Error(t, err)
}

func TestValidateToken_Failures(t *testing.T) {
	open := NewTokenUsecase("s3cret", time.Hour, "")
	strict := NewTokenUsecase("s3cret", time.Hour, "me@example.com")

	other, err := open.IssueToken("intruder@example.com")
	require.NoError(t, err)
	_, err = strict.ValidateToken(other)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	wrongKey, err := NewTokenUsecase("different", time.Hour, "").IssueToken("me@example.com")
	require.NoError(t, err)
	_, err = strict.ValidateToken(wrongKey)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	expiredUC := NewTokenUsecase("s3cret", time.Hour, "").(*tokenUsecase)
	expiredUC.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiredUC.IssueToken("me@example.com")
	require.NoError(t, err)
	_, err = strict.ValidateToken(expired)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"email": "me@example.com"}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = strict.ValidateToken(noExp)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = strict.ValidateToken("garbage")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}
