package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dkravchenko/servicehub-backend/internal/models"
	"github.com/dkravchenko/servicehub-backend/internal/repository/common"
)

var (
	ErrDisputeNotFound = errors.New("dispute not found")

	// ErrDisputeAlreadyResolved возвращается при повторном разрешении:
	// решение по спору терминально и необратимо.
	ErrDisputeAlreadyResolved = errors.New("dispute already resolved")
)

// DisputeRepository отвечает за чтение споров и журнал сообщений.
// Открытие и разрешение спора выполняются транзакциями JobRepository.
type DisputeRepository struct {
	db *sqlx.DB
}

// NewDisputeRepository создаёт новый экземпляр.
func NewDisputeRepository(db *sqlx.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

// GetByID возвращает спор по идентификатору.
func (r *DisputeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	return common.GetByID[models.Dispute](ctx, r.db, "disputes", id, ErrDisputeNotFound)
}

// GetOpenByJobID возвращает открытый спор по заявке.
func (r *DisputeRepository) GetOpenByJobID(ctx context.Context, jobID uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	err := r.db.GetContext(ctx, &d, `
		SELECT * FROM disputes WHERE job_id = $1 AND status = $2
	`, jobID, models.DisputeStatusOpen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDisputeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("dispute repository: get open by job %w", err)
	}
	return &d, nil
}

// AddMessage добавляет сообщение в журнал спора. Запись допускается только
// пока спор открыт; проверка выполняется в одном запросе, чтобы исключить
// гонку с разрешением спора.
func (r *DisputeRepository) AddMessage(ctx context.Context, msg *models.DisputeMessage) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO dispute_messages (dispute_id, sender_id, text)
		SELECT d.id, $2, $3 FROM disputes d WHERE d.id = $1 AND d.status = $4
		RETURNING id, created_at
	`, msg.DisputeID, msg.SenderID, msg.Text, models.DisputeStatusOpen).Scan(&msg.ID, &msg.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrDisputeAlreadyResolved
	}
	if err != nil {
		return fmt.Errorf("dispute repository: add message %w", err)
	}
	return nil
}

// ListMessages возвращает упорядоченный журнал сообщений спора.
func (r *DisputeRepository) ListMessages(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeMessage, error) {
	var messages []models.DisputeMessage
	err := r.db.SelectContext(ctx, &messages, `
		SELECT * FROM dispute_messages WHERE dispute_id = $1 ORDER BY created_at ASC, id ASC
	`, disputeID)
	if err != nil {
		return nil, fmt.Errorf("dispute repository: list messages %w", err)
	}
	return messages, nil
}

// ListByUser возвращает споры, в которых пользователь — участник escrow.
func (r *DisputeRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.db.SelectContext(ctx, &disputes, `
		SELECT d.* FROM disputes d
		JOIN escrow e ON d.escrow_id = e.id
		WHERE e.client_id = $1 OR e.provider_id = $1
		ORDER BY d.created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("dispute repository: list by user %w", err)
	}
	return disputes, nil
}
