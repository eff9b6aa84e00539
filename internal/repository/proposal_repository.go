package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dkravchenko/servicehub-backend/internal/models"
	"github.com/dkravchenko/servicehub-backend/internal/repository/common"
)

// ProposalRepository отвечает за предложения по обычным заявкам.
type ProposalRepository struct {
	db *sqlx.DB
}

// NewProposalRepository создаёт новый экземпляр.
func NewProposalRepository(db *sqlx.DB) *ProposalRepository {
	return &ProposalRepository{db: db}
}

// Create сохраняет предложение. Повторное действующее предложение того же
// исполнителя на ту же заявку отклоняется уникальным индексом.
func (r *ProposalRepository) Create(ctx context.Context, proposal *models.Proposal) error {
	query := `
		INSERT INTO proposals (job_id, provider_id, price, message, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(
		ctx,
		query,
		proposal.JobID,
		proposal.ProviderID,
		proposal.Price,
		proposal.Message,
		proposal.Status,
	).Scan(&proposal.ID, &proposal.CreatedAt, &proposal.UpdatedAt)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("proposal repository: insert %w", err)
	}
	return nil
}

// GetByID возвращает предложение по идентификатору.
func (r *ProposalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	return common.GetByID[models.Proposal](ctx, r.db, "proposals", id, ErrProposalNotFound)
}

// ListByJob возвращает предложения по заявке в порядке поступления.
func (r *ProposalRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.Proposal, error) {
	var proposals []models.Proposal
	err := r.db.SelectContext(ctx, &proposals, `
		SELECT * FROM proposals WHERE job_id = $1 ORDER BY created_at ASC
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("proposal repository: list by job %w", err)
	}
	return proposals, nil
}

// ListByProvider возвращает предложения исполнителя.
func (r *ProposalRepository) ListByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]models.Proposal, error) {
	var proposals []models.Proposal
	err := r.db.SelectContext(ctx, &proposals, `
		SELECT * FROM proposals WHERE provider_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, providerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("proposal repository: list by provider %w", err)
	}
	return proposals, nil
}

// UpdateStatus обновляет статус предложения (модерация оператором).
func (r *ProposalRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Proposal, error) {
	var proposal models.Proposal
	err := r.db.GetContext(ctx, &proposal, `
		UPDATE proposals SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING *
	`, id, status)
	if err != nil {
		return nil, fmt.Errorf("proposal repository: update status %w", err)
	}
	return &proposal, nil
}
