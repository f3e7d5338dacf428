package models

import "github.com/shopspring/decimal"

// DateLayout is the accepted calendar date format.
const DateLayout = "2006-01-02"

type CreateTimesheetRequest struct {
	ClientID     string         `json:"clientId" validate:"required,uuid"`
	WeekStarting string         `json:"weekStarting" validate:"required,datetime=2006-01-02"`
	WeekEnding   string         `json:"weekEnding" validate:"omitempty,datetime=2006-01-02"`
	Entries      []EntryRequest `json:"entries" validate:"required,min=1,max=500,dive"`
}

type EntryRequest struct {
	WorkerID   string          `json:"workerId" validate:"required,uuid"`
	WorkerName string          `json:"workerName" validate:"required,max=200"`
	WorkDate   string          `json:"workDate" validate:"required,datetime=2006-01-02"`
	Hours      decimal.Decimal `json:"hours"`
	ChargeRate decimal.Decimal `json:"chargeRate"`
}

type ApproveTimesheetRequest struct {
	Token        string `json:"token" validate:"required,max=128"`
	ApproverName string `json:"approverName" validate:"required,max=200"`
}
