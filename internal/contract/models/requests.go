package models

import "encoding/json"

type CreateContractRequest struct {
	ClientID     string          `json:"clientId" validate:"required,uuid"`
	ContractType string          `json:"contractType" validate:"required,oneof=temp perm"`
	Terms        json.RawMessage `json:"terms"`
	Status       string          `json:"status" validate:"omitempty,oneof=draft sent"`
}

type SignContractRequest struct {
	Token          string `json:"id" validate:"required,max=128"`
	SignerName     string `json:"signerName" validate:"required,max=200"`
	SignerPosition string `json:"signerPosition" validate:"max=200"`
	SignerCompany  string `json:"signerCompany" validate:"max=200"`
}
