package models

import (
	"time"

	id "agencyops/pkg/domain"
)

// Method is the route used to establish a right to work.
type Method string

const (
	MethodShareCode   Method = "share_code"
	MethodVideoCall   Method = "video_call"
	MethodYotiDigital Method = "yoti_digital"
)

func (m Method) IsValid() bool {
	switch m {
	case MethodShareCode, MethodVideoCall, MethodYotiDigital:
		return true
	}
	return false
}

// InitialStatus is derived from the method alone: video calls start
// scheduled, everything else starts pending.
func (m Method) InitialStatus() Status {
	if m == MethodVideoCall {
		return StatusScheduled
	}
	return StatusPending
}

// NextSteps is advisory text for the candidate. It does not change state.
func (m Method) NextSteps() string {
	switch m {
	case MethodYotiDigital:
		return "We will email you a link to complete your digital identity check."
	case MethodVideoCall:
		return "A member of our team will contact you to schedule a video call to review your documents."
	case MethodShareCode:
		return "We will verify your share code with the Home Office and confirm the outcome."
	default:
		return ""
	}
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusScheduled Status = "scheduled"
	StatusVerified  Status = "verified"
	StatusFailed    Status = "failed"
)

// IsFinal reports whether the check has an outcome.
func (s Status) IsFinal() bool {
	return s == StatusVerified || s == StatusFailed
}

// Check is one right-to-work verification attempt for a contact.
//
// Invariants:
//   - Status starts at Method.InitialStatus()
//   - Status only leaves its initial value through RecordOutcome, once
//   - StatutoryExcuse is true only for a verified check
type Check struct {
	ID                  id.RtwCheckID `json:"id"`
	ContactID           id.ContactID  `json:"candidateId"`
	Method              Method        `json:"method"`
	NationalityCategory string        `json:"nationalityCategory"`
	Status              Status        `json:"status"`
	ShareCode           string        `json:"shareCode,omitempty"`
	DateOfBirth         *time.Time    `json:"dateOfBirth,omitempty"`
	StatutoryExcuse     bool          `json:"statutoryExcuse"`
	OutcomeNotes        string        `json:"outcomeNotes,omitempty"`
	CreatedAt           time.Time     `json:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt"`
}

// Created is returned when a check is opened.
type Created struct {
	Check     *Check
	NextSteps string
}
