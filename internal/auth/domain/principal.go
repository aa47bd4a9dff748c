package domain

import "errors"

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrForbidden    = errors.New("account is not allowed")
)

// Principal is the authenticated caller of the API.
type Principal struct {
	Email string `json:"email"`
}
