package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/dkravchenko/servicehub-backend/internal/models"
)

// EscrowRepo описывает зависимости EscrowService от слоя хранилища.
type EscrowRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Escrow, error)
	GetByJobID(ctx context.Context, jobID uuid.UUID) (*models.Escrow, error)
	ListByParticipant(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Escrow, error)
}

// EscrowService предоставляет чтение escrow. Изменения escrow выполняются
// только доменными операциями заявок и споров.
type EscrowService struct {
	repo EscrowRepo
}

// NewEscrowService создаёт сервис escrow.
func NewEscrowService(repo EscrowRepo) *EscrowService {
	return &EscrowService{repo: repo}
}

// GetByJob возвращает escrow заявки. Доступ только участникам и оператору.
func (s *EscrowService) GetByJob(ctx context.Context, jobID, userID uuid.UUID, role string) (*models.Escrow, error) {
	escrow, err := s.repo.GetByJobID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleOperator && escrow.ClientID != userID && escrow.ProviderID != userID {
		return nil, ErrNotParticipant
	}
	return escrow, nil
}

// ListMine возвращает escrow пользователя.
func (s *EscrowService) ListMine(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Escrow, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByParticipant(ctx, userID, limit, offset)
}
