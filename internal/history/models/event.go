package models

import (
	"time"

	id "agencyops/pkg/domain"
)

// Event types and actions recorded on a client's timeline.
const (
	TypeContract  = "contract"
	TypeRtw       = "rtw"
	TypeTimesheet = "timesheet"

	ActionCreated  = "created"
	ActionSent     = "sent"
	ActionSigned   = "signed"
	ActionExpired  = "expired"
	ActionApproved = "approved"
	ActionVerified = "verified"
	ActionFailed   = "failed"
)

// Event is an append-only timeline entry. Events are never updated.
type Event struct {
	ID          id.EventID     `json:"id"`
	ClientID    id.ContactID   `json:"clientId"`
	Type        string         `json:"eventType"`
	Action      string         `json:"eventAction"`
	Date        time.Time      `json:"eventDate"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}
