package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dkravchenko/servicehub-backend/internal/models"
)

// JobHistoryRepository читает журнал переходов заявки. Записи добавляются
// внутри транзакций JobRepository вместе с самим переходом.
type JobHistoryRepository struct {
	db *sqlx.DB
}

// NewJobHistoryRepository создаёт новый экземпляр.
func NewJobHistoryRepository(db *sqlx.DB) *JobHistoryRepository {
	return &JobHistoryRepository{db: db}
}

// ListByJob возвращает журнал заявки в хронологическом порядке.
func (r *JobHistoryRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.JobHistory, error) {
	var entries []models.JobHistory
	err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM job_history WHERE job_id = $1 ORDER BY created_at ASC, id ASC
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("job history repository: list by job %w", err)
	}
	return entries, nil
}
