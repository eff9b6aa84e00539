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

var ErrReviewNotFound = errors.New("review not found")

// ReviewRepository отвечает за отзывы по завершённым заявкам.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository создаёт новый экземпляр.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create сохраняет отзыв. Второй отзыв того же автора по той же заявке
// отклоняется уникальным индексом.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	query := `
		INSERT INTO reviews (job_id, reviewer_id, reviewed_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRowxContext(
		ctx,
		query,
		review.JobID,
		review.ReviewerID,
		review.ReviewedID,
		review.Rating,
		review.Comment,
	).Scan(&review.ID, &review.CreatedAt)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("review repository: insert %w", err)
	}
	return nil
}

// ListByUser возвращает отзывы о пользователе.
func (r *ReviewRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Review, error) {
	var reviews []models.Review
	err := r.db.SelectContext(ctx, &reviews, `
		SELECT * FROM reviews WHERE reviewed_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("review repository: list by user %w", err)
	}
	return reviews, nil
}

// AverageRating возвращает средний рейтинг пользователя и число отзывов.
func (r *ReviewRepository) AverageRating(ctx context.Context, userID uuid.UUID) (float64, int, error) {
	var result struct {
		Avg   *float64 `db:"avg"`
		Count int      `db:"count"`
	}
	err := r.db.GetContext(ctx, &result, `
		SELECT AVG(rating) AS avg, COUNT(*) AS count FROM reviews WHERE reviewed_id = $1
	`, userID)
	if err != nil {
		return 0, 0, fmt.Errorf("review repository: average rating %w", err)
	}
	if result.Avg == nil {
		return 0, 0, nil
	}
	return *result.Avg, result.Count, nil
}
