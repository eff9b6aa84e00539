package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dkravchenko/servicehub-backend/internal/models"
	"github.com/dkravchenko/servicehub-backend/internal/repository/common"
)

var (
	// ErrAuctionClosed возвращается при попытке сделать ставку после
	// окончания аукциона.
	ErrAuctionClosed = errors.New("auction closed")

	// ErrBidNotLowEnough возвращается, когда ставка не ниже текущего
	// минимума. Равные суммы тоже отклоняются.
	ErrBidNotLowEnough = errors.New("bid is not lower than current lowest")
)

// BidRepository отвечает за ставки обратных аукционов.
type BidRepository struct {
	db *sqlx.DB
}

// NewBidRepository создаёт новый экземпляр.
func NewBidRepository(db *sqlx.DB) *BidRepository {
	return &BidRepository{db: db}
}

// InsertIfLowest записывает ставку, только если она строго ниже текущего
// минимума. Проверка минимума и срока выполняется под блокировкой строки
// заявки, поэтому две конкурирующие ставки упорядочиваются корректно.
func (r *BidRepository) InsertIfLowest(ctx context.Context, bid *models.Bid, now time.Time) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var job models.Job
		err := tx.GetContext(ctx, &job, `SELECT * FROM jobs WHERE id = $1 FOR UPDATE`, bid.JobID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrJobNotFound
		}
		if err != nil {
			return fmt.Errorf("bid repository: lock job %w", err)
		}

		var lowest sql.NullFloat64
		if err := tx.GetContext(ctx, &lowest, `
			SELECT MIN(amount) FROM bids WHERE job_id = $1
		`, bid.JobID); err != nil {
			return fmt.Errorf("bid repository: current lowest %w", err)
		}

		var currentLowest *float64
		if lowest.Valid {
			currentLowest = &lowest.Float64
		}
		if err := checkBidAdmissible(&job, currentLowest, bid.Amount, now); err != nil {
			return err
		}

		err = tx.QueryRowxContext(ctx, `
			INSERT INTO bids (job_id, provider_id, amount)
			VALUES ($1, $2, $3)
			RETURNING id, created_at
		`, bid.JobID, bid.ProviderID, bid.Amount).Scan(&bid.ID, &bid.CreatedAt)
		if err != nil {
			if common.IsUniqueViolation(err) {
				return ErrBidNotLowEnough
			}
			return fmt.Errorf("bid repository: insert %w", err)
		}
		return nil
	})
}

// checkBidAdmissible решает, проходит ли ставка: заявка в аукционе, срок
// не истёк, сумма строго ниже текущего минимума. Равенство отклоняется.
func checkBidAdmissible(job *models.Job, currentLowest *float64, amount float64, now time.Time) error {
	if job.Status != models.JobStatusAuction {
		return ErrJobAlreadyDecided
	}
	if job.AuctionClosed(now) {
		return ErrAuctionClosed
	}
	if currentLowest != nil && amount >= *currentLowest {
		return ErrBidNotLowEnough
	}
	return nil
}

// ListByJob возвращает ставки по заявке в порядке поступления.
func (r *BidRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.Bid, error) {
	var bids []models.Bid
	err := r.db.SelectContext(ctx, &bids, `
		SELECT * FROM bids WHERE job_id = $1 ORDER BY created_at ASC
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("bid repository: list by job %w", err)
	}
	return bids, nil
}

// GetLowest возвращает текущую минимальную ставку аукциона.
func (r *BidRepository) GetLowest(ctx context.Context, jobID uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	err := r.db.GetContext(ctx, &bid, `
		SELECT * FROM bids WHERE job_id = $1 ORDER BY amount ASC, created_at ASC LIMIT 1
	`, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBidNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("bid repository: get lowest %w", err)
	}
	return &bid, nil
}
