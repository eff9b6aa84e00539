package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/dkravchenko/servicehub-backend/internal/models"
	"github.com/dkravchenko/servicehub-backend/internal/repository"
	"github.com/dkravchenko/servicehub-backend/internal/repository/common"
)

type mockBidRepo struct {
	mock.Mock
}

func (m *mockBidRepo) InsertIfLowest(ctx context.Context, bid *models.Bid, now time.Time) error {
	args := m.Called(ctx, bid, now)
	return args.Error(0)
}

func (m *mockBidRepo) ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.Bid, error) {
	args := m.Called(ctx, jobID)
	return args.Get(0).([]models.Bid), args.Error(1)
}

func (m *mockBidRepo) GetLowest(ctx context.Context, jobID uuid.UUID) (*models.Bid, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bid), args.Error(1)
}

func auctionJob(clientID uuid.UUID, endsAt time.Time) *models.Job {
	return &models.Job{
		ID:            uuid.New(),
		ClientID:      clientID,
		Status:        models.JobStatusAuction,
		Mode:          models.JobModeAuction,
		AuctionEndsAt: &endsAt,
		Version:       1,
	}
}

func TestAuctionService_SubmitBid(t *testing.T) {
	bidRepo := new(mockBidRepo)
	jobRepo := new(mockJobRepo)
	svc := NewAuctionService(bidRepo, jobRepo, nil, nil, false)
	ctx := context.Background()
	providerID := uuid.New()

	job := auctionJob(uuid.New(), time.Now().Add(time.Hour))
	jobRepo.On("GetByID", ctx, job.ID).Return(job, nil)
	bidRepo.On("InsertIfLowest", ctx, mock.AnythingOfType("*models.Bid"), mock.AnythingOfType("time.Time")).Return(nil)

	bid, err := svc.SubmitBid(ctx, job.ID, providerID, 120)
	assert.NoError(t, err)
	assert.Equal(t, float64(120), bid.Amount)
	bidRepo.AssertExpectations(t)
}

func TestAuctionService_SubmitBid_OwnJob(t *testing.T) {
	bidRepo := new(mockBidRepo)
	jobRepo := new(mockJobRepo)
	svc := NewAuctionService(bidRepo, jobRepo, nil, nil, false)
	ctx := context.Background()

	clientID := uuid.New()
	job := auctionJob(clientID, time.Now().Add(time.Hour))
	jobRepo.On("GetByID", ctx, job.ID).Return(job, nil)

	_, err := svc.SubmitBid(ctx, job.ID, clientID, 100)
	assert.ErrorIs(t, err, ErrNotParticipant, "заказчик не может ставить на собственную заявку")
	bidRepo.AssertNotCalled(t, "InsertIfLowest")
}

func TestAuctionService_SubmitBid_InvalidAmount(t *testing.T) {
	svc := NewAuctionService(new(mockBidRepo), new(mockJobRepo), nil, nil, false)

	_, err := svc.SubmitBid(context.Background(), uuid.New(), uuid.New(), 0)
	assert.Error(t, err)

	_, err = svc.SubmitBid(context.Background(), uuid.New(), uuid.New(), -50)
	assert.Error(t, err)
}

func TestAuctionService_SubmitBid_NotLowEnough(t *testing.T) {
	bidRepo := new(mockBidRepo)
	jobRepo := new(mockJobRepo)
	svc := NewAuctionService(bidRepo, jobRepo, nil, nil, false)
	ctx := context.Background()

	job := auctionJob(uuid.New(), time.Now().Add(time.Hour))
	jobRepo.On("GetByID", ctx, job.ID).Return(job, nil)
	bidRepo.On("InsertIfLowest", ctx, mock.Anything, mock.Anything).Return(repository.ErrBidNotLowEnough)

	_, err := svc.SubmitBid(ctx, job.ID, uuid.New(), 150)
	assert.ErrorIs(t, err, repository.ErrBidNotLowEnough)
}

func TestAuctionService_SubmitBid_AuctionClosed(t *testing.T) {
	bidRepo := new(mockBidRepo)
	jobRepo := new(mockJobRepo)
	svc := NewAuctionService(bidRepo, jobRepo, nil, nil, false)
	ctx := context.Background()

	job := auctionJob(uuid.New(), time.Now().Add(-time.Minute))
	jobRepo.On("GetByID", ctx, job.ID).Return(job, nil)
	bidRepo.On("InsertIfLowest", ctx, mock.Anything, mock.Anything).Return(repository.ErrAuctionClosed)

	_, err := svc.SubmitBid(ctx, job.ID, uuid.New(), 100)
	assert.ErrorIs(t, err, repository.ErrAuctionClosed)
}

func TestAuctionService_State(t *testing.T) {
	bidRepo := new(mockBidRepo)
	jobRepo := new(mockJobRepo)
	svc := NewAuctionService(bidRepo, jobRepo, nil, nil, false)
	ctx := context.Background()

	now := time.Now()
	svc.now = func() time.Time { return now }

	job := auctionJob(uuid.New(), now.Add(time.Hour))
	providerA := uuid.New()
	providerB := uuid.New()
	bids := []models.Bid{
		{ID: uuid.New(), ProviderID: providerA, Amount: 200, CreatedAt: now.Add(-3 * time.Minute)},
		{ID: uuid.New(), ProviderID: providerB, Amount: 180, CreatedAt: now.Add(-2 * time.Minute)},
		{ID: uuid.New(), ProviderID: providerA, Amount: 150, CreatedAt: now.Add(-time.Minute)},
	}
	jobRepo.On("GetByID", ctx, job.ID).Return(job, nil)
	bidRepo.On("ListByJob", ctx, job.ID).Return(bids, nil)

	state, err := svc.State(ctx, job.ID)
	assert.NoError(t, err)
	assert.False(t, state.Closed)
	assert.Equal(t, int64(3600), state.RemainingSec)
	assert.Equal(t, float64(150), *state.LowestAmount)
	assert.Len(t, state.Bids, 3)
}

func TestAuctionService_State_ClosedAfterDeadline(t *testing.T) {
	bidRepo := new(mockBidRepo)
	jobRepo := new(mockJobRepo)
	svc := NewAuctionService(bidRepo, jobRepo, nil, nil, false)
	ctx := context.Background()

	now := time.Now()
	svc.now = func() time.Time { return now }

	job := auctionJob(uuid.New(), now.Add(-time.Minute))
	jobRepo.On("GetByID", ctx, job.ID).Return(job, nil)
	bidRepo.On("ListByJob", ctx, job.ID).Return([]models.Bid{}, nil)

	state, err := svc.State(ctx, job.ID)
	assert.NoError(t, err)
	assert.True(t, state.Closed)
	assert.Equal(t, int64(0), state.RemainingSec)
	assert.Nil(t, state.LowestAmount)
}

func TestAuctionService_State_NotAuction(t *testing.T) {
	jobRepo := new(mockJobRepo)
	svc := NewAuctionService(new(mockBidRepo), jobRepo, nil, nil, false)
	ctx := context.Background()

	job := &models.Job{ID: uuid.New(), Mode: models.JobModeNormal, Status: models.JobStatusActive}
	jobRepo.On("GetByID", ctx, job.ID).Return(job, nil)

	_, err := svc.State(ctx, job.ID)
	assert.ErrorIs(t, err, ErrNotAuctionJob)
}

func TestAuctionService_ListBidsFull_KeepsProviders(t *testing.T) {
	bidRepo := new(mockBidRepo)
	svc := NewAuctionService(bidRepo, new(mockJobRepo), nil, nil, false)
	ctx := context.Background()
	jobID := uuid.New()

	providerID := uuid.New()
	bids := []models.Bid{
		{ID: uuid.New(), JobID: jobID, ProviderID: providerID, Amount: 500},
		{ID: uuid.New(), JobID: jobID, ProviderID: uuid.New(), Amount: 400},
	}
	bidRepo.On("ListByJob", ctx, jobID).Return(bids, nil)

	full, err := svc.ListBidsFull(ctx, jobID)
	assert.NoError(t, err)
	assert.Equal(t, bids, full)
	assert.Equal(t, providerID, full[0].ProviderID, "операторский список не анонимизируется")
}

func TestAuctionService_AcceptLowest_BeforeDeadline(t *testing.T) {
	bidRepo := new(mockBidRepo)
	jobRepo := new(mockJobRepo)
	processor := new(mockProcessor)
	svc := NewAuctionService(bidRepo, jobRepo, processor, nil, false)
	ctx := context.Background()

	now := time.Now()
	svc.now = func() time.Time { return now }

	clientID := uuid.New()
	job := auctionJob(clientID, now.Add(time.Hour))
	jobRepo.On("GetByID", ctx, job.ID).Return(job, nil)

	_, _, _, err := svc.AcceptLowest(ctx, job.ID, clientID, 1)
	assert.ErrorIs(t, err, ErrAuctionStillOpen)
	processor.AssertNotCalled(t, "Hold")
}

func TestAuctionService_AcceptLowest_EarlyAcceptEnabled(t *testing.T) {
	bidRepo := new(mockBidRepo)
	jobRepo := new(mockJobRepo)
	processor := new(mockProcessor)
	svc := NewAuctionService(bidRepo, jobRepo, processor, nil, true)
	ctx := context.Background()

	now := time.Now()
	svc.now = func() time.Time { return now }

	clientID := uuid.New()
	providerID := uuid.New()
	job := auctionJob(clientID, now.Add(time.Hour))
	lowest := &models.Bid{ID: uuid.New(), JobID: job.ID, ProviderID: providerID, Amount: 90}
	updated := &models.Job{ID: job.ID, ClientID: clientID, ProviderID: &providerID, Status: models.JobStatusProposalAccept, Version: 2}
	escrow := &models.Escrow{ID: uuid.New(), JobID: job.ID, Status: models.EscrowStatusHeld, CustodyID: "cust-7"}

	jobRepo.On("GetByID", ctx, job.ID).Return(job, nil)
	bidRepo.On("GetLowest", ctx, job.ID).Return(lowest, nil)
	processor.On("Hold", ctx, job.ID, clientID, float64(90)).Return("cust-7", nil)
	jobRepo.On("AcceptBid", ctx, mock.MatchedBy(func(p repository.AcceptBidParams) bool {
		return p.JobID == job.ID && p.BidID == lowest.ID && p.CustodyID == "cust-7" && p.Version == 1
	})).Return(updated, escrow, lowest, nil)

	resultJob, resultEscrow, winner, err := svc.AcceptLowest(ctx, job.ID, clientID, 1)
	assert.NoError(t, err)
	assert.Equal(t, models.JobStatusProposalAccept, resultJob.Status)
	assert.Equal(t, models.EscrowStatusHeld, resultEscrow.Status)
	assert.Equal(t, float64(90), winner.Amount)
	processor.AssertExpectations(t)
}

func TestAuctionService_AcceptLowest_AfterDeadline(t *testing.T) {
	bidRepo := new(mockBidRepo)
	jobRepo := new(mockJobRepo)
	processor := new(mockProcessor)
	svc := NewAuctionService(bidRepo, jobRepo, processor, nil, false)
	ctx := context.Background()

	now := time.Now()
	svc.now = func() time.Time { return now }

	clientID := uuid.New()
	providerID := uuid.New()
	job := auctionJob(clientID, now.Add(-time.Minute))
	lowest := &models.Bid{ID: uuid.New(), JobID: job.ID, ProviderID: providerID, Amount: 110}
	updated := &models.Job{ID: job.ID, ClientID: clientID, ProviderID: &providerID, Status: models.JobStatusProposalAccept, Version: 2}
	escrow := &models.Escrow{ID: uuid.New(), JobID: job.ID, Status: models.EscrowStatusHeld, CustodyID: "cust-8"}

	jobRepo.On("GetByID", ctx, job.ID).Return(job, nil)
	bidRepo.On("GetLowest", ctx, job.ID).Return(lowest, nil)
	processor.On("Hold", ctx, job.ID, clientID, float64(110)).Return("cust-8", nil)
	jobRepo.On("AcceptBid", ctx, mock.Anything).Return(updated, escrow, lowest, nil)

	_, _, _, err := svc.AcceptLowest(ctx, job.ID, clientID, 1)
	assert.NoError(t, err)
}

func TestAuctionService_AcceptLowest_AlreadyDecided(t *testing.T) {
	jobRepo := new(mockJobRepo)
	processor := new(mockProcessor)
	svc := NewAuctionService(new(mockBidRepo), jobRepo, processor, nil, true)
	ctx := context.Background()

	clientID := uuid.New()
	job := &models.Job{ID: uuid.New(), ClientID: clientID, Mode: models.JobModeAuction, Status: models.JobStatusProposalAccept, Version: 2}
	jobRepo.On("GetByID", ctx, job.ID).Return(job, nil)

	_, _, _, err := svc.AcceptLowest(ctx, job.ID, clientID, 2)
	assert.ErrorIs(t, err, repository.ErrJobAlreadyDecided)
	processor.AssertNotCalled(t, "Hold")
}

func TestAuctionService_AcceptLowest_CompensatesHoldOnFailure(t *testing.T) {
	bidRepo := new(mockBidRepo)
	jobRepo := new(mockJobRepo)
	processor := new(mockProcessor)
	svc := NewAuctionService(bidRepo, jobRepo, processor, nil, true)
	ctx := context.Background()

	now := time.Now()
	svc.now = func() time.Time { return now }

	clientID := uuid.New()
	job := auctionJob(clientID, now.Add(time.Hour))
	lowest := &models.Bid{ID: uuid.New(), JobID: job.ID, ProviderID: uuid.New(), Amount: 95}

	jobRepo.On("GetByID", ctx, job.ID).Return(job, nil)
	bidRepo.On("GetLowest", ctx, job.ID).Return(lowest, nil)
	processor.On("Hold", ctx, job.ID, clientID, float64(95)).Return("cust-9", nil)
	jobRepo.On("AcceptBid", ctx, mock.Anything).Return(nil, nil, nil, common.ErrConcurrentModification)
	processor.On("Refund", ctx, "cust-9").Return(nil)

	_, _, _, err := svc.AcceptLowest(ctx, job.ID, clientID, 1)
	assert.ErrorIs(t, err, common.ErrConcurrentModification)
	processor.AssertCalled(t, "Refund", ctx, "cust-9")
}

func TestAuctionService_AcceptLowest_LowestChangedAfterHold(t *testing.T) {
	bidRepo := new(mockBidRepo)
	jobRepo := new(mockJobRepo)
	processor := new(mockProcessor)
	svc := NewAuctionService(bidRepo, jobRepo, processor, nil, true)
	ctx := context.Background()

	now := time.Now()
	svc.now = func() time.Time { return now }

	clientID := uuid.New()
	job := auctionJob(clientID, now.Add(time.Hour))
	lowest := &models.Bid{ID: uuid.New(), JobID: job.ID, ProviderID: uuid.New(), Amount: 400}

	jobRepo.On("GetByID", ctx, job.ID).Return(job, nil)
	bidRepo.On("GetLowest", ctx, job.ID).Return(lowest, nil)
	processor.On("Hold", ctx, job.ID, clientID, float64(400)).Return("cust-11", nil)
	// Между удержанием и транзакцией прошла более низкая ставка:
	// репозиторий сверяет BidID под блокировкой и отклоняет принятие.
	jobRepo.On("AcceptBid", ctx, mock.MatchedBy(func(p repository.AcceptBidParams) bool {
		return p.BidID == lowest.ID
	})).Return(nil, nil, nil, common.ErrConcurrentModification)
	processor.On("Refund", ctx, "cust-11").Return(nil)

	_, _, _, err := svc.AcceptLowest(ctx, job.ID, clientID, 1)
	assert.ErrorIs(t, err, common.ErrConcurrentModification, "escrow не создаётся на сумму, отличную от удержанной")
	processor.AssertCalled(t, "Refund", ctx, "cust-11")
}

func TestAnonymizeBids_LabelsByFirstBidOrder(t *testing.T) {
	providerA := uuid.New()
	providerB := uuid.New()
	base := time.Now()

	bids := []models.Bid{
		{ID: uuid.New(), ProviderID: providerA, Amount: 200, CreatedAt: base},
		{ID: uuid.New(), ProviderID: providerB, Amount: 180, CreatedAt: base.Add(time.Minute)},
		{ID: uuid.New(), ProviderID: providerA, Amount: 160, CreatedAt: base.Add(2 * time.Minute)},
		{ID: uuid.New(), ProviderID: providerB, Amount: 140, CreatedAt: base.Add(3 * time.Minute)},
	}

	anon := AnonymizeBids(bids)
	assert.Len(t, anon, 4)
	assert.Equal(t, "Provider A", anon[0].Label)
	assert.Equal(t, "Provider B", anon[1].Label)
	assert.Equal(t, "Provider A", anon[2].Label, "повторная ставка сохраняет метку")
	assert.Equal(t, "Provider B", anon[3].Label)
}

func TestAnonymizeBids_Deterministic(t *testing.T) {
	bids := []models.Bid{
		{ID: uuid.New(), ProviderID: uuid.New(), Amount: 300},
		{ID: uuid.New(), ProviderID: uuid.New(), Amount: 280},
		{ID: uuid.New(), ProviderID: uuid.New(), Amount: 260},
	}

	first := AnonymizeBids(bids)
	second := AnonymizeBids(bids)
	assert.Equal(t, first, second, "один и тот же вход даёт одни и те же метки")
}

func TestAnonymizeBids_Empty(t *testing.T) {
	assert.Empty(t, AnonymizeBids(nil))
	assert.Empty(t, AnonymizeBids([]models.Bid{}))
}

func TestAlphaLabel(t *testing.T) {
	assert.Equal(t, "A", alphaLabel(0))
	assert.Equal(t, "B", alphaLabel(1))
	assert.Equal(t, "Z", alphaLabel(25))
	assert.Equal(t, "AA", alphaLabel(26))
	assert.Equal(t, "AB", alphaLabel(27))
	assert.Equal(t, "AZ", alphaLabel(51))
	assert.Equal(t, "BA", alphaLabel(52))
}
