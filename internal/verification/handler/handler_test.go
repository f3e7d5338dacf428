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

	"agencyops/internal/verification/handler/mocks"
	"agencyops/internal/verification/models"
	id "agencyops/pkg/domain"
	dErrors "agencyops/pkg/domain-errors"
	"agencyops/pkg/testutil"
)

type VerificationHandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  http.Handler
}

func TestVerificationHandlerSuite(t *testing.T) {
	suite.Run(t, new(VerificationHandlerSuite))
}

func (s *VerificationHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	r := chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	s.router = r
}

func (s *VerificationHandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *VerificationHandlerSuite) TestVerify() {
	candidateID := id.ContactID(uuid.New())

	s.Run("success returns candidate projection", func() {
		s.service.EXPECT().
			Validate(gomock.Any(), "alice@example.com", "482913", "holiday_request").
			Return(&models.CandidateView{ID: candidateID, Name: "Alice Smith", Email: "alice@example.com", Phone: "0770"}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/verification/verify", map[string]string{
			"email": "alice@example.com", "code": "482913", "purpose": "holiday_request",
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)

		body := testutil.UnmarshalResponse[struct {
			Success   bool                 `json:"success"`
			Candidate models.CandidateView `json:"candidate"`
		}](s.T(), rr)
		s.True(body.Success)
		s.Equal(candidateID, body.Candidate.ID)
		s.Equal("Alice Smith", body.Candidate.Name)
	})

	s.Run("missing code is rejected before the service", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/verification/verify", map[string]string{"email": "alice@example.com"})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	s.Run("malformed body", func() {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/verification/verify", "{not json")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})

	errorCases := []struct {
		name   string
		err    error
		status int
		code   dErrors.Code
	}{
		{"invalid code", dErrors.New(dErrors.CodeInvalidCode, "invalid verification code"), http.StatusBadRequest, dErrors.CodeInvalidCode},
		{"expired code", dErrors.New(dErrors.CodeExpired, "verification code has expired"), http.StatusBadRequest, dErrors.CodeExpired},
		{"candidate missing", dErrors.New(dErrors.CodeNotFound, "candidate not found"), http.StatusNotFound, dErrors.CodeNotFound},
		{"store failure", dErrors.Wrap(io.ErrUnexpectedEOF, dErrors.CodeInternal, "failed to validate code"), http.StatusInternalServerError, dErrors.CodeInternal},
	}
	for _, tc := range errorCases {
		s.Run(tc.name, func() {
			s.service.EXPECT().Validate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, tc.err)
			req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/verification/verify", map[string]string{
				"email": "alice@example.com", "code": "000000",
			})
			rr := testutil.DoRequest(s.router, req)
			testutil.AssertStatusAndError(s.T(), rr, tc.status, string(tc.code))
		})
	}
}

func (s *VerificationHandlerSuite) TestRequestCode() {

	s.Run("success", func() {
		s.service.EXPECT().RequestCode(gomock.Any(), "alice@example.com", "").Return(nil)
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/verification/request", map[string]string{"email": "alice@example.com"})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "success", true)
	})

	s.Run("invalid email", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/verification/request", map[string]string{"email": "nope"})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	s.Run("rate limited", func() {
		s.service.EXPECT().RequestCode(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(dErrors.New(dErrors.CodeRateLimited, "slow down"))
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/verification/request", map[string]string{"email": "alice@example.com"})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusTooManyRequests, string(dErrors.CodeRateLimited))
	})
}
