package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agencyops/internal/contact/models"
	id "agencyops/pkg/domain"
	"agencyops/pkg/platform/sentinel"
)

func newCandidate(t *testing.T, email string, createdAt time.Time) *models.Contact {
	t.Helper()
	c, err := models.NewContact(id.ContactID(uuid.New()), models.KindCandidate, "Alice", "Smith", "", email, "07700900000", createdAt)
	require.NoError(t, err)
	return c
}

func TestInMemoryStore_FindLatestCandidateByEmail(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	now := time.Now()

	older := newCandidate(t, "Alice@Example.com", now.Add(-time.Hour))
	newer := newCandidate(t, "alice@example.com", now)
	require.NoError(t, s.Create(ctx, older))
	require.NoError(t, s.Create(ctx, newer))

	got, err := s.FindLatestCandidateByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)

	_, err = s.FindLatestCandidateByEmail(ctx, "bob@example.com")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	c := newCandidate(t, "alice@example.com", time.Now())
	require.NoError(t, s.Create(ctx, c))

	got, err := s.FindByID(ctx, c.ID)
	require.NoError(t, err)
	got.FirstName = "Mallory"

	again, err := s.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", again.FirstName)
}

func TestInMemoryStore_ContractAttachment(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	c := newCandidate(t, "client@example.com", time.Now())
	require.NoError(t, s.Create(ctx, c))

	contractID := id.ContractID(uuid.New())
	require.NoError(t, s.AttachContract(ctx, c.ID, models.ContractAttachment{
		ContractID: contractID, Status: "draft", Token: "tok", At: time.Now(),
	}))

	byToken, err := s.FindByContractToken(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, c.ID, byToken.ID)
	assert.Equal(t, "draft", byToken.ContractStatus)

	require.NoError(t, s.SetContractStatus(ctx, c.ID, id.ContractID(uuid.New()), "signed", time.Now()))
	unchanged, err := s.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "draft", unchanged.ContractStatus, "status of a different contract must not leak")

	err = s.AttachContract(ctx, id.ContactID(uuid.New()), models.ContractAttachment{})
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryStore_UpdateRtw(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	c := newCandidate(t, "alice@example.com", time.Now())
	require.NoError(t, s.Create(ctx, c))

	checkID := id.RtwCheckID(uuid.New())
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpdateRtw(ctx, c.ID, models.RtwUpdate{
		Status: "pending", CheckID: checkID, NationalityCategory: "uk_irish", CheckedAt: at,
	}))

	got, err := s.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "pending", got.RtwStatus)
	assert.Equal(t, checkID, got.RtwCheckID)
	require.NotNil(t, got.RtwLastCheckedAt)
	assert.True(t, at.Equal(*got.RtwLastCheckedAt))

	err = s.UpdateRtw(ctx, id.ContactID(uuid.New()), models.RtwUpdate{})
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
