package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/dkravchenko/servicehub-backend/internal/models"
	"github.com/dkravchenko/servicehub-backend/internal/repository/common"
)

type mockReviewRepo struct {
	mock.Mock
}

func (m *mockReviewRepo) Create(ctx context.Context, review *models.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Review, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.Review), args.Error(1)
}

func (m *mockReviewRepo) AverageRating(ctx context.Context, userID uuid.UUID) (float64, int, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(float64), args.Int(1), args.Error(2)
}

func completedJob(clientID, providerID uuid.UUID) *models.Job {
	return &models.Job{
		ID:         uuid.New(),
		ClientID:   clientID,
		ProviderID: &providerID,
		Status:     models.JobStatusCompleted,
		Version:    7,
	}
}

func TestReviewService_Create_ClientReviewsProvider(t *testing.T) {
	repo := new(mockReviewRepo)
	jobRepo := new(mockJobRepo)
	svc := NewReviewService(repo, jobRepo)
	ctx := context.Background()

	clientID := uuid.New()
	providerID := uuid.New()
	job := completedJob(clientID, providerID)

	jobRepo.On("GetByID", ctx, job.ID).Return(job, nil)
	repo.On("Create", ctx, mock.MatchedBy(func(r *models.Review) bool {
		return r.ReviewerID == clientID && r.ReviewedID == providerID && r.Rating == 5
	})).Return(nil)

	review, err := svc.Create(ctx, job.ID, clientID, 5, nil)
	assert.NoError(t, err)
	assert.Equal(t, providerID, review.ReviewedID)
	repo.AssertExpectations(t)
}

func TestReviewService_Create_ProviderReviewsClient(t *testing.T) {
	repo := new(mockReviewRepo)
	jobRepo := new(mockJobRepo)
	svc := NewReviewService(repo, jobRepo)
	ctx := context.Background()

	clientID := uuid.New()
	providerID := uuid.New()
	job := completedJob(clientID, providerID)

	jobRepo.On("GetByID", ctx, job.ID).Return(job, nil)
	repo.On("Create", ctx, mock.MatchedBy(func(r *models.Review) bool {
		return r.ReviewerID == providerID && r.ReviewedID == clientID
	})).Return(nil)

	review, err := svc.Create(ctx, job.ID, providerID, 4, nil)
	assert.NoError(t, err)
	assert.Equal(t, clientID, review.ReviewedID)
}

func TestReviewService_Create_JobNotCompleted(t *testing.T) {
	jobRepo := new(mockJobRepo)
	svc := NewReviewService(new(mockReviewRepo), jobRepo)
	ctx := context.Background()

	clientID := uuid.New()
	providerID := uuid.New()
	job := completedJob(clientID, providerID)
	job.Status = models.JobStatusInProgress
	jobRepo.On("GetByID", ctx, job.ID).Return(job, nil)

	_, err := svc.Create(ctx, job.ID, clientID, 5, nil)
	assert.ErrorIs(t, err, ErrJobNotCompleted)
}

func TestReviewService_Create_InvalidRating(t *testing.T) {
	svc := NewReviewService(new(mockReviewRepo), new(mockJobRepo))

	_, err := svc.Create(context.Background(), uuid.New(), uuid.New(), 0, nil)
	assert.Error(t, err)

	_, err = svc.Create(context.Background(), uuid.New(), uuid.New(), 6, nil)
	assert.Error(t, err)
}

func TestReviewService_Create_NotParticipant(t *testing.T) {
	jobRepo := new(mockJobRepo)
	svc := NewReviewService(new(mockReviewRepo), jobRepo)
	ctx := context.Background()

	job := completedJob(uuid.New(), uuid.New())
	jobRepo.On("GetByID", ctx, job.ID).Return(job, nil)

	_, err := svc.Create(ctx, job.ID, uuid.New(), 5, nil)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestReviewService_Create_Duplicate(t *testing.T) {
	repo := new(mockReviewRepo)
	jobRepo := new(mockJobRepo)
	svc := NewReviewService(repo, jobRepo)
	ctx := context.Background()

	clientID := uuid.New()
	job := completedJob(clientID, uuid.New())
	jobRepo.On("GetByID", ctx, job.ID).Return(job, nil)
	repo.On("Create", ctx, mock.Anything).Return(common.ErrAlreadyExists)

	_, err := svc.Create(ctx, job.ID, clientID, 5, nil)
	assert.ErrorIs(t, err, ErrReviewAlreadyExists)
}

func TestReviewService_Rating(t *testing.T) {
	repo := new(mockReviewRepo)
	svc := NewReviewService(repo, new(mockJobRepo))
	ctx := context.Background()
	userID := uuid.New()

	repo.On("AverageRating", ctx, userID).Return(4.5, 12, nil)

	avg, count, err := svc.Rating(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, 4.5, avg)
	assert.Equal(t, 12, count)
}
