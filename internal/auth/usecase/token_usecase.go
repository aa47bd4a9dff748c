package usecase

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kentsubra71/keystone/internal/auth/domain"

	"github.com/golang-jwt/jwt/v5"
)

type TokenUsecase interface {
	// IssueToken signs an API token for email.
	IssueToken(email string) (string, error)
	ValidateToken(tokenString string) (*domain.Principal, error)
}

type tokenUsecase struct {
	secret       []byte
	expiry       time.Duration
	allowedEmail string
	now          func() time.Time
}

// NewTokenUsecase builds HS256 token handling. When allowedEmail is set only that account is accepted.
func NewTokenUsecase(secret string, expiry time.Duration, allowedEmail string) TokenUsecase {
	return &tokenUsecase{
		secret:       []byte(secret),
		expiry:       expiry,
		allowedEmail: strings.ToLower(strings.TrimSpace(allowedEmail)),
		now:          time.Now,
	}
}

func (u *tokenUsecase) IssueToken(email string) (string, error) {
	if len(u.secret) == 0 {
		return "", errors.New("JWT_SECRET is not set")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", errors.New("email is required")
	}
	if u.allowedEmail != "" && email != u.allowedEmail {
		return "", domain.ErrForbidden
	}

	now := u.now()
	claims := jwt.MapClaims{
		"email": email,
		"iat":   now.Unix(),
		"exp":   now.Add(u.expiry).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(u.secret)
}

func (u *tokenUsecase) ValidateToken(tokenString string) (*domain.Principal, error) {
	if len(u.secret) == 0 {
		return nil, domain.ErrInvalidToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return u.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(u.now),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, domain.ErrInvalidToken
	}
	email, _ := claims["email"].(string)
	email = strings.ToLower(email)
	if email == "" {
		return nil, domain.ErrInvalidToken
	}
	if u.allowedEmail != "" && email != u.allowedEmail {
		return nil, domain.ErrForbidden
	}

	return &domain.Principal{Email: email}, nil
}
