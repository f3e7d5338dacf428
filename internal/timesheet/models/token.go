package models

import (
	"encoding/base64"
	"strings"

	id "agencyops/pkg/domain"
	dErrors "agencyops/pkg/domain-errors"
)

// EncodeToken renders the link token for a timesheet: the id, base64 URL-safe
// without padding. Possession of the token is the only access check.
func EncodeToken(timesheetID id.TimesheetID) string {
	return base64.RawURLEncoding.EncodeToString([]byte(timesheetID.String()))
}

var tokenEncodings = []*base64.Encoding{
	base64.RawURLEncoding,
	base64.URLEncoding,
	base64.RawStdEncoding,
	base64.StdEncoding,
}

// DecodeToken accepts standard and URL-safe base64, padded or not.
func DecodeToken(token string) (id.TimesheetID, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return id.TimesheetID{}, dErrors.New(dErrors.CodeBadRequest, "timesheet token is required")
	}
	for _, enc := range tokenEncodings {
		raw, err := enc.DecodeString(token)
		if err != nil {
			continue
		}
		timesheetID, err := id.ParseTimesheetID(string(raw))
		if err != nil {
			break
		}
		return timesheetID, nil
	}
	return id.TimesheetID{}, dErrors.New(dErrors.CodeBadRequest, "invalid timesheet token")
}
