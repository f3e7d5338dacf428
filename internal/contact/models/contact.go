package models

import (
	"strings"
	"time"

	id "agencyops/pkg/domain"
	dErrors "agencyops/pkg/domain-errors"
)

// Kind distinguishes the roles a contact plays for the agency.
type Kind string

const (
	KindCandidate Kind = "candidate"
	KindClient    Kind = "client"
	KindProspect  Kind = "prospect"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindCandidate, KindClient, KindProspect:
		return true
	}
	return false
}

// Contact is the record every workflow reads or denormalizes status onto.
//
// Invariants:
//   - Kind is one of candidate, client, prospect
//   - Email is stored lower-cased and is not unique
//   - ContractToken, when set, identifies exactly one contact
type Contact struct {
	ID          id.ContactID `json:"id"`
	Kind        Kind         `json:"kind"`
	FirstName   string       `json:"firstName"`
	LastName    string       `json:"lastName"`
	CompanyName string       `json:"companyName,omitempty"`
	Email       string       `json:"email"`
	Phone       string       `json:"phone"`

	RtwStatus           string        `json:"rtwStatus,omitempty"`
	RtwCheckID          id.RtwCheckID `json:"rtwCheckId"`
	NationalityCategory string        `json:"nationalityCategory,omitempty"`
	RtwLastCheckedAt    *time.Time    `json:"rtwLastCheckedAt,omitempty"`

	ContractID     id.ContractID `json:"contractId"`
	ContractStatus string        `json:"contractStatus,omitempty"`
	ContractToken  string        `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewContact validates and builds a contact.
func NewContact(contactID id.ContactID, kind Kind, firstName, lastName, companyName, email, phone string, now time.Time) (*Contact, error) {
	if !kind.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "kind must be one of candidate, client, prospect")
	}
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	companyName = strings.TrimSpace(companyName)
	if firstName == "" && lastName == "" && companyName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "a name or company name is required")
	}
	return &Contact{
		ID:          contactID,
		Kind:        kind,
		FirstName:   firstName,
		LastName:    lastName,
		CompanyName: companyName,
		Email:       NormalizeEmail(email),
		Phone:       strings.TrimSpace(phone),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// FullName joins first and last name, falling back to the company name.
func (c *Contact) FullName() string {
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	if name == "" {
		return c.CompanyName
	}
	return name
}

// NormalizeEmail is the canonical form used for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RtwUpdate is the denormalized right-to-work state written onto a contact.
type RtwUpdate struct {
	Status              string
	CheckID             id.RtwCheckID
	NationalityCategory string
	CheckedAt           time.Time
}

// ContractAttachment is the denormalized contract state written onto a client
// contact when a contract is created.
type ContractAttachment struct {
	ContractID id.ContractID
	Status     string
	Token      string
	At         time.Time
}
