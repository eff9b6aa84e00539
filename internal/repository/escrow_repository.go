package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dkravchenko/servicehub-backend/internal/models"
	"github.com/dkravchenko/servicehub-backend/internal/repository/common"
)

var (
	ErrEscrowNotFound = errors.New("escrow not found")

	// ErrEscrowAlreadyFinalized возвращается при повторной попытке
	// release/refund либо при попытке изменить escrow, уже покинувший
	// ожидаемое состояние.
	ErrEscrowAlreadyFinalized = errors.New("escrow already finalized")
)

// EscrowRepository предоставляет чтение escrow. Все записи escrow меняются
// только внутри составных транзакций JobRepository, привязанных к переходу
// статуса заявки.
type EscrowRepository struct {
	db *sqlx.DB
}

// NewEscrowRepository создаёт новый экземпляр.
func NewEscrowRepository(db *sqlx.DB) *EscrowRepository {
	return &EscrowRepository{db: db}
}

// GetByID возвращает escrow по идентификатору.
func (r *EscrowRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Escrow, error) {
	return common.GetByID[models.Escrow](ctx, r.db, "escrow", id, ErrEscrowNotFound)
}

// GetByJobID возвращает escrow по заявке.
func (r *EscrowRepository) GetByJobID(ctx context.Context, jobID uuid.UUID) (*models.Escrow, error) {
	return common.GetByField[models.Escrow](ctx, r.db, "escrow", "job_id", jobID, ErrEscrowNotFound)
}

// ListByParticipant возвращает escrow, где пользователь — заказчик либо
// исполнитель.
func (r *EscrowRepository) ListByParticipant(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Escrow, error) {
	var escrows []models.Escrow
	err := r.db.SelectContext(ctx, &escrows, `
		SELECT * FROM escrow
		WHERE client_id = $1 OR provider_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("escrow repository: list by participant %w", err)
	}
	return escrows, nil
}
