package models

import (
	"encoding/json"
	"time"

	id "agencyops/pkg/domain"
)

type Type string

const (
	TypeTemp Type = "temp"
	TypePerm Type = "perm"
)

func (t Type) IsValid() bool {
	return t == TypeTemp || t == TypePerm
}

type Status string

const (
	StatusDraft   Status = "draft"
	StatusSent    Status = "sent"
	StatusSigned  Status = "signed"
	StatusExpired Status = "expired"
)

// transitions lists, for each target status, the statuses it may be reached
// from. Status only moves forward: draft -> sent -> signed | expired.
var transitions = map[Status][]Status{
	StatusSent:    {StatusDraft},
	StatusSigned:  {StatusSent},
	StatusExpired: {StatusSent},
}

// AllowedFrom returns the source statuses for a move to target.
func AllowedFrom(target Status) []Status {
	return transitions[target]
}

// CanTransition reports whether from -> to is a forward move.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[to] {
		if s == from {
			return true
		}
	}
	return false
}

// Contract holds agreed terms between the agency and a client.
//
// Invariants:
//   - Status never moves backward (see AllowedFrom)
//   - Terms is a JSON object, stored opaquely
//   - SentDate is set once the contract leaves draft
type Contract struct {
	ID             id.ContractID   `json:"id"`
	ClientID       id.ContactID    `json:"clientId"`
	Type           Type            `json:"contractType"`
	Status         Status          `json:"status"`
	SignerName     string          `json:"signerName,omitempty"`
	SignerPosition string          `json:"signerPosition,omitempty"`
	SignerCompany  string          `json:"signerCompany,omitempty"`
	Terms          json.RawMessage `json:"terms"`
	SentDate       *time.Time      `json:"sentDate,omitempty"`
	SignedDate     *time.Time      `json:"signedDate,omitempty"`
	ExpiredDate    *time.Time      `json:"expiredDate,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Signer identifies who signed on the client's behalf.
type Signer struct {
	Name     string
	Position string
	Company  string
}

// Apply stamps the transition onto c. Callers check CanTransition first.
func (c *Contract) Apply(to Status, at time.Time, signer *Signer) {
	c.Status = to
	c.UpdatedAt = at
	switch to {
	case StatusSent:
		c.SentDate = &at
	case StatusSigned:
		c.SignedDate = &at
		if signer != nil {
			c.SignerName = signer.Name
			c.SignerPosition = signer.Position
			c.SignerCompany = signer.Company
		}
	case StatusExpired:
		c.ExpiredDate = &at
	}
}

// View is what a token holder sees when fetching a contract.
type View struct {
	ID            id.ContractID   `json:"id"`
	ProspectName  string          `json:"prospectName"`
	ProspectEmail string          `json:"prospectEmail"`
	ContractType  Type            `json:"contractType"`
	Status        Status          `json:"status"`
	SentDate      *time.Time      `json:"sentDate"`
	ContractData  json.RawMessage `json:"contractData"`
}

// Created is returned to the caller that created a contract.
type Created struct {
	Contract *Contract
	Token    string
}
