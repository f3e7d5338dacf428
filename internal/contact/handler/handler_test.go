package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agencyops/internal/contact/models"
	"agencyops/internal/contact/service"
	"agencyops/internal/contact/store"
	"agencyops/internal/platform/middleware"
	"agencyops/pkg/testutil"
)

const apiKey = "internal-key"

func newContactRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := service.New(store.NewInMemory(), service.WithLogger(logger))
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	New(svc, logger).Register(r, middleware.RequireAPIKey(apiKey, logger))
	return r
}

func TestContactEndpointsRequireAPIKey(t *testing.T) {
	router := newContactRouter(t)
	req := testutil.NewJSONRequest(t, http.MethodPost, "/contacts", map[string]string{"kind": "candidate", "firstName": "Alice"})
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
}

func TestCreateAndGetContact(t *testing.T) {
	router := newContactRouter(t)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/contacts", map[string]string{
		"kind":      "candidate",
		"firstName": "Alice",
		"lastName":  "Smith",
		"email":     "Alice@Example.com",
		"phone":     "07700900000",
	})
	req.Header.Set(middleware.APIKeyHeader, apiKey)
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)

	created := testutil.UnmarshalResponse[struct {
		Success bool           `json:"success"`
		Contact models.Contact `json:"contact"`
	}](t, rr)
	require.True(t, created.Success)
	assert.Equal(t, "alice@example.com", created.Contact.Email)

	getReq := testutil.NewRequest(t, http.MethodGet, "/contacts/"+created.Contact.ID.String())
	getReq.Header.Set(middleware.APIKeyHeader, apiKey)
	getRR := testutil.DoRequest(router, getReq)
	testutil.AssertStatusOK(t, getRR)
}

func TestCreateContactValidation(t *testing.T) {
	router := newContactRouter(t)
	tests := []struct {
		name string
		body map[string]string
	}{
		{"unknown kind", map[string]string{"kind": "supplier", "firstName": "A"}},
		{"bad email", map[string]string{"kind": "candidate", "firstName": "A", "email": "nope"}},
		{"no name at all", map[string]string{"kind": "candidate"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.NewJSONRequest(t, http.MethodPost, "/contacts", tc.body)
			req.Header.Set(middleware.APIKeyHeader, apiKey)
			rr := testutil.DoRequest(router, req)
			testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
		})
	}
}

func TestGetContactNotFound(t *testing.T) {
	router := newContactRouter(t)
	req := testutil.NewRequest(t, http.MethodGet, "/contacts/"+uuid.NewString())
	req.Header.Set(middleware.APIKeyHeader, apiKey)
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}
