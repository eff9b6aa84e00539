package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/dkravchenko/servicehub-backend/internal/models"
)

type mockEscrowRepo struct {
	mock.Mock
}

func (m *mockEscrowRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Escrow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

func (m *mockEscrowRepo) GetByJobID(ctx context.Context, jobID uuid.UUID) (*models.Escrow, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

func (m *mockEscrowRepo) ListByParticipant(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Escrow, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.Escrow), args.Error(1)
}

func TestEscrowService_GetByJob_Participant(t *testing.T) {
	repo := new(mockEscrowRepo)
	svc := NewEscrowService(repo)
	ctx := context.Background()

	jobID := uuid.New()
	clientID := uuid.New()
	escrow := &models.Escrow{JobID: jobID, ClientID: clientID, ProviderID: uuid.New(), Status: models.EscrowStatusHeld}
	repo.On("GetByJobID", ctx, jobID).Return(escrow, nil)

	result, err := svc.GetByJob(ctx, jobID, clientID, models.RoleClient)
	assert.NoError(t, err)
	assert.Equal(t, escrow, result)
}

func TestEscrowService_GetByJob_Stranger(t *testing.T) {
	repo := new(mockEscrowRepo)
	svc := NewEscrowService(repo)
	ctx := context.Background()

	jobID := uuid.New()
	escrow := &models.Escrow{JobID: jobID, ClientID: uuid.New(), ProviderID: uuid.New(), Status: models.EscrowStatusHeld}
	repo.On("GetByJobID", ctx, jobID).Return(escrow, nil)

	_, err := svc.GetByJob(ctx, jobID, uuid.New(), models.RoleProvider)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestEscrowService_GetByJob_Operator(t *testing.T) {
	repo := new(mockEscrowRepo)
	svc := NewEscrowService(repo)
	ctx := context.Background()

	jobID := uuid.New()
	escrow := &models.Escrow{JobID: jobID, ClientID: uuid.New(), ProviderID: uuid.New(), Status: models.EscrowStatusDisputed}
	repo.On("GetByJobID", ctx, jobID).Return(escrow, nil)

	result, err := svc.GetByJob(ctx, jobID, uuid.New(), models.RoleOperator)
	assert.NoError(t, err)
	assert.Equal(t, escrow, result)
}

func TestEscrowService_ListMine_DefaultLimit(t *testing.T) {
	repo := new(mockEscrowRepo)
	svc := NewEscrowService(repo)
	ctx := context.Background()
	userID := uuid.New()

	repo.On("ListByParticipant", ctx, userID, 20, 0).Return([]models.Escrow{}, nil)

	_, err := svc.ListMine(ctx, userID, 0, 0)
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}
