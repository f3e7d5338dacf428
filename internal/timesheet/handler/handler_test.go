package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"agencyops/internal/platform/middleware"
	"agencyops/internal/timesheet/handler/mocks"
	"agencyops/internal/timesheet/models"
	id "agencyops/pkg/domain"
	dErrors "agencyops/pkg/domain-errors"
	"agencyops/pkg/testutil"
)

const apiKey = "internal-key"

type TimesheetHandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  http.Handler
}

func TestTimesheetHandlerSuite(t *testing.T) {
	suite.Run(t, new(TimesheetHandlerSuite))
}

func (s *TimesheetHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	New(s.service, logger).Register(r, middleware.RequireAPIKey(apiKey, logger))
	s.router = r
}

func (s *TimesheetHandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *TimesheetHandlerSuite) TestView() {
	s.Run("returns timesheet fields and workers", func() {
		w1, w2 := id.ContactID(uuid.New()), id.ContactID(uuid.New())
		s.service.EXPECT().ResolveByToken(gomock.Any(), "tok").Return(&models.View{
			Timesheet:  models.Timesheet{ID: id.TimesheetID(uuid.New()), Status: models.StatusSubmitted},
			ClientName: "Harbour Logistics",
			Workers:    []models.Worker{{ID: w1, Name: "w1"}, {ID: w2, Name: "w2"}},
		}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/timesheets/view?token=tok"))
		testutil.AssertStatusOK(s.T(), rr)

		body := testutil.UnmarshalResponse[map[string]any](s.T(), rr)
		s.Equal("submitted", (*body)["status"])
		s.Equal("Harbour Logistics", (*body)["clientName"])
		s.Equal([]any{
			map[string]any{"id": w1.String(), "name": "w1"},
			map[string]any{"id": w2.String(), "name": "w2"},
		}, (*body)["workers"])
	})

	s.Run("missing token", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/timesheets/view"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})

	s.Run("bad token", func() {
		s.service.EXPECT().ResolveByToken(gomock.Any(), "zz").Return(nil, dErrors.New(dErrors.CodeBadRequest, "invalid timesheet token"))
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/timesheets/view?token=zz"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})
}

func (s *TimesheetHandlerSuite) TestSummary() {
	w1 := id.ContactID(uuid.New())
	s.service.EXPECT().Summary(gomock.Any(), "tok").Return(&models.Summary{
		View:        models.View{Timesheet: models.Timesheet{Status: models.StatusSubmitted}, Workers: []models.Worker{{ID: w1, Name: "w1"}}},
		Entries:     []models.Entry{},
		TotalHours:  decimal.RequireFromString("23.5"),
		TotalCharge: decimal.NewFromInt(353),
	}, nil)

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/timesheets/summary?token=tok"))
	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "totalHours", "23.5")
	testutil.AssertJSONContains(s.T(), rr, "totalCharge", "353")
}

func (s *TimesheetHandlerSuite) TestCreate() {
	body := map[string]any{
		"clientId":     uuid.NewString(),
		"weekStarting": "2024-06-03",
		"entries": []map[string]any{{
			"workerId":   uuid.NewString(),
			"workerName": "w1",
			"workDate":   "2024-06-03",
			"hours":      7.5,
			"chargeRate": "14.00",
		}},
	}

	s.Run("requires the api key", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/timesheets", body))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
	})

	s.Run("accepts numbers and numeric strings", func() {
		timesheetID := id.TimesheetID(uuid.New())
		s.service.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ any, req *models.CreateTimesheetRequest) (*models.Created, error) {
				s.Require().Len(req.Entries, 1)
				s.True(req.Entries[0].Hours.Equal(decimal.RequireFromString("7.5")))
				s.True(req.Entries[0].ChargeRate.Equal(decimal.NewFromInt(14)))
				return &models.Created{Timesheet: &models.Timesheet{ID: timesheetID}, Token: models.EncodeToken(timesheetID)}, nil
			})

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/timesheets", body)
		req.Header.Set(middleware.APIKeyHeader, apiKey)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		testutil.AssertJSONContains(s.T(), rr, "timesheetId", timesheetID.String())
		testutil.AssertJSONContains(s.T(), rr, "token", models.EncodeToken(timesheetID))
	})

	s.Run("entries are required", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/timesheets", map[string]any{
			"clientId":     uuid.NewString(),
			"weekStarting": "2024-06-03",
		})
		req.Header.Set(middleware.APIKeyHeader, apiKey)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})
}

func (s *TimesheetHandlerSuite) TestApprove() {
	s.Run("approves", func() {
		timesheetID := id.TimesheetID(uuid.New())
		s.service.EXPECT().Approve(gomock.Any(), "tok", "Morgan").Return(&models.Timesheet{ID: timesheetID, Status: models.StatusApproved}, nil)
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/timesheets/approve",
			map[string]any{"token": "tok", "approverName": "Morgan"}))
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "status", "approved")
	})

	s.Run("already approved", func() {
		s.service.EXPECT().Approve(gomock.Any(), "tok", "Morgan").Return(nil, dErrors.New(dErrors.CodeInvalidState, "timesheet already approved"))
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/timesheets/approve",
			map[string]any{"token": "tok", "approverName": "Morgan"}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, string(dErrors.CodeInvalidState))
	})

	s.Run("approver required", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/timesheets/approve",
			map[string]any{"token": "tok"}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})
}
