package models

import (
	"time"

	id "agencyops/pkg/domain"
)

// Code is a single-use verification code scoped by (email, purpose).
// Several outstanding codes may exist for the same scope.
type Code struct {
	ID          id.CodeID
	Email       string
	Code        string
	Purpose     string
	CandidateID id.ContactID
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UsedAt      *time.Time
}

// IsExpired reports whether the code has lapsed. A code is valid only while
// now is strictly before ExpiresAt.
func (c *Code) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// CandidateView is the contact projection returned by a successful validation.
type CandidateView struct {
	ID    id.ContactID `json:"id"`
	Name  string       `json:"name"`
	Email string       `json:"email"`
	Phone string       `json:"phone"`
}

// RequestCodeRequest asks for a code to be issued and delivered.
type RequestCodeRequest struct {
	Email   string `json:"email" validate:"required,email,max=254"`
	Purpose string `json:"purpose" validate:"max=64"`
}

// VerifyCodeRequest presents a code for validation.
type VerifyCodeRequest struct {
	Email   string `json:"email" validate:"required,max=254"`
	Code    string `json:"code" validate:"required,max=32"`
	Purpose string `json:"purpose" validate:"max=64"`
}
