package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"agencyops/internal/platform/middleware"
	"agencyops/internal/rtw/handler/mocks"
	"agencyops/internal/rtw/models"
	id "agencyops/pkg/domain"
	dErrors "agencyops/pkg/domain-errors"
	"agencyops/pkg/testutil"
)

const apiKey = "internal-key"

type RtwHandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  http.Handler
}

func TestRtwHandlerSuite(t *testing.T) {
	suite.Run(t, new(RtwHandlerSuite))
}

func (s *RtwHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	New(s.service, logger).Register(r, middleware.RequireAPIKey(apiKey, logger))
	s.router = r
}

func (s *RtwHandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *RtwHandlerSuite) TestCreate() {
	candidateID := uuid.NewString()
	body := map[string]any{
		"candidateId":         candidateID,
		"nationalityCategory": "non_uk",
		"rightToWorkMethod":   "video_call",
	}

	s.Run("opens a check without the api key", func() {
		checkID := id.RtwCheckID(uuid.New())
		s.service.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ any, req *models.CreateCheckRequest) (*models.Created, error) {
				s.Equal(candidateID, req.CandidateID)
				s.Equal("video_call", req.Method)
				return &models.Created{
					Check:     &models.Check{ID: checkID, Status: models.StatusScheduled},
					NextSteps: models.MethodVideoCall.NextSteps(),
				}, nil
			})

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/rtw/checks", body))
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)

		resp := testutil.UnmarshalResponse[map[string]any](s.T(), rr)
		s.Equal(true, (*resp)["success"])
		s.Equal(checkID.String(), (*resp)["rtwCheckId"])
		s.Equal("scheduled", (*resp)["status"])
		s.NotEmpty((*resp)["nextSteps"])
	})

	s.Run("unknown method is rejected before the service", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/rtw/checks", map[string]any{
			"candidateId":         candidateID,
			"nationalityCategory": "uk",
			"rightToWorkMethod":   "fax",
		}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	s.Run("malformed date of birth", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/rtw/checks", map[string]any{
			"candidateId":         candidateID,
			"nationalityCategory": "uk",
			"rightToWorkMethod":   "yoti_digital",
			"dateOfBirth":         "14/02/1990",
		}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	s.Run("missing candidate", func() {
		s.service.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, dErrors.New(dErrors.CodeNotFound, "candidate not found"))
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/rtw/checks", body))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, string(dErrors.CodeNotFound))
	})
}

func (s *RtwHandlerSuite) TestOutcome() {
	checkID := id.RtwCheckID(uuid.New())
	path := "/rtw/checks/" + checkID.String() + "/outcome"

	s.Run("requires the api key", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, path, map[string]any{"verified": true}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
	})

	s.Run("records a verified outcome", func() {
		s.service.EXPECT().RecordOutcome(gomock.Any(), checkID, true, "passport seen").
			Return(&models.Check{ID: checkID, Status: models.StatusVerified, StatutoryExcuse: true}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, path, map[string]any{"verified": true, "notes": "passport seen"})
		req.Header.Set(middleware.APIKeyHeader, apiKey)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "status", "verified")
		testutil.AssertJSONContains(s.T(), rr, "statutoryExcuse", true)
	})

	s.Run("verified flag is required", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, path, map[string]any{"notes": "?"})
		req.Header.Set(middleware.APIKeyHeader, apiKey)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	s.Run("second outcome conflicts", func() {
		s.service.EXPECT().RecordOutcome(gomock.Any(), checkID, false, "").
			Return(nil, dErrors.New(dErrors.CodeInvalidState, "rtw check already has an outcome"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, path, map[string]any{"verified": false})
		req.Header.Set(middleware.APIKeyHeader, apiKey)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, string(dErrors.CodeInvalidState))
	})
}

func (s *RtwHandlerSuite) TestGet() {
	s.Run("bad id", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/rtw/checks/xyz")
		req.Header.Set(middleware.APIKeyHeader, apiKey)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeInvalidInput))
	})

	s.Run("returns the check", func() {
		checkID := id.RtwCheckID(uuid.New())
		s.service.EXPECT().Get(gomock.Any(), checkID).Return(&models.Check{ID: checkID, Status: models.StatusPending, Method: models.MethodShareCode}, nil)

		req := testutil.NewRequest(s.T(), http.MethodGet, "/rtw/checks/"+checkID.String())
		req.Header.Set(middleware.APIKeyHeader, apiKey)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)

		resp := testutil.UnmarshalResponse[map[string]any](s.T(), rr)
		check := (*resp)["check"].(map[string]any)
		s.Equal("pending", check["status"])
		s.Equal("share_code", check["method"])
	})
}
