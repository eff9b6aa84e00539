package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/dkravchenko/servicehub-backend/internal/models"
	"github.com/dkravchenko/servicehub-backend/internal/repository/common"
)

var (
	ErrJobNotCompleted     = errors.New("job is not completed")
	ErrReviewAlreadyExists = errors.New("review already exists for this job")
)

// ReviewRepo описывает зависимости ReviewService от слоя хранилища.
type ReviewRepo interface {
	Create(ctx context.Context, review *models.Review) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Review, error)
	AverageRating(ctx context.Context, userID uuid.UUID) (float64, int, error)
}

// ReviewJobRepo часть JobRepository, нужная сервису отзывов.
type ReviewJobRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
}

// ReviewService инкапсулирует отзывы по завершённым заявкам.
type ReviewService struct {
	repo    ReviewRepo
	jobRepo ReviewJobRepo
}

// NewReviewService создаёт сервис отзывов.
func NewReviewService(repo ReviewRepo, jobRepo ReviewJobRepo) *ReviewService {
	return &ReviewService{repo: repo, jobRepo: jobRepo}
}

// Create сохраняет отзыв. Разрешён только участникам завершённой заявки,
// по одному отзыву на автора.
func (s *ReviewService) Create(ctx context.Context, jobID, reviewerID uuid.UUID, rating int, comment *string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, errors.New("review service: рейтинг должен быть от 1 до 5")
	}

	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusCompleted {
		return nil, ErrJobNotCompleted
	}
	if !isParticipant(job, reviewerID) {
		return nil, ErrNotParticipant
	}

	reviewed := job.ClientID
	if reviewerID == job.ClientID {
		reviewed = *job.ProviderID
	}

	review := &models.Review{
		JobID:      jobID,
		ReviewerID: reviewerID,
		ReviewedID: reviewed,
		Rating:     rating,
		Comment:    comment,
	}
	if err := s.repo.Create(ctx, review); err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, ErrReviewAlreadyExists
		}
		return nil, err
	}
	return review, nil
}

// ListByUser возвращает отзывы о пользователе.
func (s *ReviewService) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// Rating возвращает средний рейтинг пользователя и число отзывов.
func (s *ReviewService) Rating(ctx context.Context, userID uuid.UUID) (float64, int, error) {
	return s.repo.AverageRating(ctx, userID)
}
