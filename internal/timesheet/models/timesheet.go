package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	id "agencyops/pkg/domain"
)

type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
)

// Timesheet is one client's billing week. Totals are never stored; they are
// recomputed from entries whenever they are read.
type Timesheet struct {
	ID           id.TimesheetID `json:"id"`
	ClientID     id.ContactID   `json:"clientId"`
	WeekStarting time.Time      `json:"weekStarting"`
	WeekEnding   time.Time      `json:"weekEnding"`
	Status       Status         `json:"status"`
	ApprovedBy   string         `json:"approvedBy,omitempty"`
	ApprovedAt   *time.Time     `json:"approvedAt,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// Entry is hours one worker logged on one day at one charge rate.
type Entry struct {
	ID          uuid.UUID       `json:"id"`
	TimesheetID id.TimesheetID  `json:"timesheetId"`
	WorkerID    id.ContactID    `json:"workerId"`
	WorkerName  string          `json:"workerName"`
	WorkDate    time.Time       `json:"workDate"`
	Hours       decimal.Decimal `json:"hours"`
	ChargeRate  decimal.Decimal `json:"chargeRate"`
}

// Charge is hours multiplied by the charge rate.
func (e Entry) Charge() decimal.Decimal {
	return e.Hours.Mul(e.ChargeRate)
}

type Worker struct {
	ID   id.ContactID `json:"id"`
	Name string       `json:"name"`
}

// View is what a token holder sees: the timesheet, its client's display name
// and the distinct workers on it. Entries are fetched separately.
type View struct {
	Timesheet
	ClientName string   `json:"clientName"`
	Workers    []Worker `json:"workers"`
}

type WorkerTotal struct {
	WorkerID    id.ContactID    `json:"workerId"`
	WorkerName  string          `json:"workerName"`
	TotalHours  decimal.Decimal `json:"totalHours"`
	TotalCharge decimal.Decimal `json:"totalCharge"`
}

type Summary struct {
	View
	Entries      []Entry         `json:"entries"`
	WorkerTotals []WorkerTotal   `json:"workerTotals"`
	TotalHours   decimal.Decimal `json:"totalHours"`
	TotalCharge  decimal.Decimal `json:"totalCharge"`
}

// Created is returned when a timesheet is submitted.
type Created struct {
	Timesheet *Timesheet
	Token     string
}

// DistinctWorkers returns each (worker id, name) pair once, ordered by name.
func DistinctWorkers(entries []Entry) []Worker {
	seen := make(map[Worker]struct{}, len(entries))
	workers := make([]Worker, 0, len(entries))
	for _, e := range entries {
		w := Worker{ID: e.WorkerID, Name: e.WorkerName}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		workers = append(workers, w)
	}
	sortWorkers(workers)
	return workers
}

func sortWorkers(workers []Worker) {
	sort.Slice(workers, func(i, j int) bool {
		if workers[i].Name != workers[j].Name {
			return workers[i].Name < workers[j].Name
		}
		return workers[i].ID.String() < workers[j].ID.String()
	})
}

// Summarize sums hours and charge per worker and overall.
func Summarize(view View, entries []Entry) Summary {
	totals := make(map[Worker]*WorkerTotal)
	var order []Worker
	hours, charge := decimal.Zero, decimal.Zero
	for _, e := range entries {
		w := Worker{ID: e.WorkerID, Name: e.WorkerName}
		t, ok := totals[w]
		if !ok {
			t = &WorkerTotal{WorkerID: e.WorkerID, WorkerName: e.WorkerName, TotalHours: decimal.Zero, TotalCharge: decimal.Zero}
			totals[w] = t
			order = append(order, w)
		}
		t.TotalHours = t.TotalHours.Add(e.Hours)
		t.TotalCharge = t.TotalCharge.Add(e.Charge())
		hours = hours.Add(e.Hours)
		charge = charge.Add(e.Charge())
	}
	sortWorkers(order)

	out := Summary{View: view, Entries: entries, TotalHours: hours, TotalCharge: charge}
	out.WorkerTotals = make([]WorkerTotal, 0, len(order))
	for _, w := range order {
		out.WorkerTotals = append(out.WorkerTotals, *totals[w])
	}
	if out.Entries == nil {
		out.Entries = []Entry{}
	}
	return out
}
