package domain

import (
	"database/sql/driver"
	"strings"

	"github.com/google/uuid"

	dErrors "agencyops/pkg/domain-errors"
)

// Typed identifiers keep contacts, contracts and checks from being swapped at
// call sites. Construct them with the Parse functions at trust boundaries.
type (
	ContactID   uuid.UUID
	ContractID  uuid.UUID
	RtwCheckID  uuid.UUID
	TimesheetID uuid.UUID
	CodeID      uuid.UUID
	EventID     uuid.UUID
)

func (id ContactID) String() string   { return uuid.UUID(id).String() }
func (id ContractID) String() string  { return uuid.UUID(id).String() }
func (id RtwCheckID) String() string  { return uuid.UUID(id).String() }
func (id TimesheetID) String() string { return uuid.UUID(id).String() }
func (id CodeID) String() string      { return uuid.UUID(id).String() }
func (id EventID) String() string     { return uuid.UUID(id).String() }

func (id ContactID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id ContractID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id RtwCheckID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id TimesheetID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// Text and SQL codecs delegate to uuid.UUID so ids serialize as canonical strings.

func (id ContactID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id *ContactID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id ContactID) Value() (driver.Value, error)  { return uuid.UUID(id).Value() }
func (id *ContactID) Scan(src any) error           { return (*uuid.UUID)(id).Scan(src) }

func (id ContractID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id *ContractID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id ContractID) Value() (driver.Value, error)  { return uuid.UUID(id).Value() }
func (id *ContractID) Scan(src any) error           { return (*uuid.UUID)(id).Scan(src) }

func (id RtwCheckID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id *RtwCheckID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id RtwCheckID) Value() (driver.Value, error)  { return uuid.UUID(id).Value() }
func (id *RtwCheckID) Scan(src any) error           { return (*uuid.UUID)(id).Scan(src) }

func (id TimesheetID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id *TimesheetID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id TimesheetID) Value() (driver.Value, error)  { return uuid.UUID(id).Value() }
func (id *TimesheetID) Scan(src any) error           { return (*uuid.UUID)(id).Scan(src) }

func (id CodeID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id *CodeID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id CodeID) Value() (driver.Value, error)  { return uuid.UUID(id).Value() }
func (id *CodeID) Scan(src any) error           { return (*uuid.UUID)(id).Scan(src) }

func (id EventID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id *EventID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id EventID) Value() (driver.Value, error)  { return uuid.UUID(id).Value() }
func (id *EventID) Scan(src any) error           { return (*uuid.UUID)(id).Scan(src) }

func ParseContactID(s string) (ContactID, error) {
	u, err := parseUUID(s, "contact id")
	return ContactID(u), err
}

func ParseContractID(s string) (ContractID, error) {
	u, err := parseUUID(s, "contract id")
	return ContractID(u), err
}

func ParseRtwCheckID(s string) (RtwCheckID, error) {
	u, err := parseUUID(s, "rtw check id")
	return RtwCheckID(u), err
}

func ParseTimesheetID(s string) (TimesheetID, error) {
	u, err := parseUUID(s, "timesheet id")
	return TimesheetID(u), err
}

// maxIDLength bounds input before it reaches uuid.Parse.
const maxIDLength = 64

func parseUUID(s, label string) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	if len(s) > maxIDLength {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	return u, nil
}
