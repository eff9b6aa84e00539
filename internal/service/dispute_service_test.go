package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/dkravchenko/servicehub-backend/internal/custody"
	"github.com/dkravchenko/servicehub-backend/internal/models"
	"github.com/dkravchenko/servicehub-backend/internal/repository"
	"github.com/dkravchenko/servicehub-backend/internal/repository/common"
)

type mockDisputeRepo struct {
	mock.Mock
}

func (m *mockDisputeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) GetOpenByJobID(ctx context.Context, jobID uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) AddMessage(ctx context.Context, msg *models.DisputeMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *mockDisputeRepo) ListMessages(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeMessage, error) {
	args := m.Called(ctx, disputeID)
	return args.Get(0).([]models.DisputeMessage), args.Error(1)
}

func (m *mockDisputeRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.Dispute), args.Error(1)
}

func TestDisputeService_Open_Success(t *testing.T) {
	repo := new(mockDisputeRepo)
	jobRepo := new(mockJobRepo)
	svc := NewDisputeService(repo, jobRepo, nil, nil, nil)
	ctx := context.Background()

	jobID := uuid.New()
	clientID := uuid.New()
	providerID := uuid.New()
	job := &models.Job{ID: jobID, ClientID: clientID, ProviderID: &providerID, Status: models.JobStatusInProgress, Version: 4}

	jobRepo.On("GetByID", ctx, jobID).Return(job, nil)
	jobRepo.On("OpenDispute", ctx, mock.AnythingOfType("*models.Dispute"), 4).Return(job, nil)

	dispute, err := svc.Open(ctx, jobID, clientID, "работы выполнены не полностью", 4)
	assert.NoError(t, err)
	assert.Equal(t, models.DisputeStatusOpen, dispute.Status)
	jobRepo.AssertExpectations(t)
}

func TestDisputeService_Open_NotDisputable(t *testing.T) {
	jobRepo := new(mockJobRepo)
	svc := NewDisputeService(new(mockDisputeRepo), jobRepo, nil, nil, nil)
	ctx := context.Background()

	jobID := uuid.New()
	clientID := uuid.New()
	job := &models.Job{ID: jobID, ClientID: clientID, Status: models.JobStatusActive, Version: 1}
	jobRepo.On("GetByID", ctx, jobID).Return(job, nil)

	_, err := svc.Open(ctx, jobID, clientID, "передумал", 1)
	assert.ErrorIs(t, err, ErrJobNotDisputable)
	jobRepo.AssertNotCalled(t, "OpenDispute")
}

func TestDisputeService_Open_Completed(t *testing.T) {
	jobRepo := new(mockJobRepo)
	svc := NewDisputeService(new(mockDisputeRepo), jobRepo, nil, nil, nil)
	ctx := context.Background()

	jobID := uuid.New()
	clientID := uuid.New()
	job := &models.Job{ID: jobID, ClientID: clientID, Status: models.JobStatusCompleted, Version: 8}
	jobRepo.On("GetByID", ctx, jobID).Return(job, nil)

	_, err := svc.Open(ctx, jobID, clientID, "нашёл дефект после приёмки", 8)
	assert.ErrorIs(t, err, ErrJobNotDisputable)
}

func TestDisputeService_Open_AlreadyOpen(t *testing.T) {
	jobRepo := new(mockJobRepo)
	svc := NewDisputeService(new(mockDisputeRepo), jobRepo, nil, nil, nil)
	ctx := context.Background()

	jobID := uuid.New()
	clientID := uuid.New()
	job := &models.Job{ID: jobID, ClientID: clientID, Status: models.JobStatusInProgress, Version: 4}
	jobRepo.On("GetByID", ctx, jobID).Return(job, nil)
	jobRepo.On("OpenDispute", ctx, mock.Anything, 4).Return(nil, common.ErrAlreadyExists)

	_, err := svc.Open(ctx, jobID, clientID, "повторная жалоба", 4)
	assert.ErrorIs(t, err, ErrDisputeAlreadyOpen)
}

func TestDisputeService_Open_NotParticipant(t *testing.T) {
	jobRepo := new(mockJobRepo)
	svc := NewDisputeService(new(mockDisputeRepo), jobRepo, nil, nil, nil)
	ctx := context.Background()

	jobID := uuid.New()
	job := &models.Job{ID: jobID, ClientID: uuid.New(), Status: models.JobStatusInProgress, Version: 4}
	jobRepo.On("GetByID", ctx, jobID).Return(job, nil)

	_, err := svc.Open(ctx, jobID, uuid.New(), "посторонняя жалоба", 4)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestDisputeService_PostMessage_Participant(t *testing.T) {
	repo := new(mockDisputeRepo)
	jobRepo := new(mockJobRepo)
	svc := NewDisputeService(repo, jobRepo, nil, nil, nil)
	ctx := context.Background()

	disputeID := uuid.New()
	jobID := uuid.New()
	clientID := uuid.New()
	dispute := &models.Dispute{ID: disputeID, JobID: jobID, Status: models.DisputeStatusOpen}
	job := &models.Job{ID: jobID, ClientID: clientID, Status: models.JobStatusInDispute, Version: 5}

	repo.On("GetByID", ctx, disputeID).Return(dispute, nil)
	jobRepo.On("GetByID", ctx, jobID).Return(job, nil)
	repo.On("AddMessage", ctx, mock.AnythingOfType("*models.DisputeMessage")).Return(nil)

	msg, err := svc.PostMessage(ctx, disputeID, clientID, models.RoleClient, "прошу вернуть оплату")
	assert.NoError(t, err)
	assert.Equal(t, "прошу вернуть оплату", msg.Text)
}

func TestDisputeService_PostMessage_OperatorBypassesParticipantCheck(t *testing.T) {
	repo := new(mockDisputeRepo)
	jobRepo := new(mockJobRepo)
	svc := NewDisputeService(repo, jobRepo, nil, nil, nil)
	ctx := context.Background()

	disputeID := uuid.New()
	dispute := &models.Dispute{ID: disputeID, JobID: uuid.New(), Status: models.DisputeStatusOpen}
	repo.On("GetByID", ctx, disputeID).Return(dispute, nil)
	repo.On("AddMessage", ctx, mock.Anything).Return(nil)

	_, err := svc.PostMessage(ctx, disputeID, uuid.New(), models.RoleOperator, "запрошены фотографии работ")
	assert.NoError(t, err)
	jobRepo.AssertNotCalled(t, "GetByID")
}

func TestDisputeService_PostMessage_ResolvedDispute(t *testing.T) {
	repo := new(mockDisputeRepo)
	jobRepo := new(mockJobRepo)
	svc := NewDisputeService(repo, jobRepo, nil, nil, nil)
	ctx := context.Background()

	disputeID := uuid.New()
	jobID := uuid.New()
	clientID := uuid.New()
	dispute := &models.Dispute{ID: disputeID, JobID: jobID, Status: models.DisputeStatusResolved}
	job := &models.Job{ID: jobID, ClientID: clientID, Status: models.JobStatusCompleted, Version: 7}

	repo.On("GetByID", ctx, disputeID).Return(dispute, nil)
	jobRepo.On("GetByID", ctx, jobID).Return(job, nil)
	repo.On("AddMessage", ctx, mock.Anything).Return(repository.ErrDisputeAlreadyResolved)

	_, err := svc.PostMessage(ctx, disputeID, clientID, models.RoleClient, "ещё одно сообщение")
	assert.ErrorIs(t, err, repository.ErrDisputeAlreadyResolved)
}

func resolveFixture() (*models.Dispute, *models.Job, *models.Escrow) {
	jobID := uuid.New()
	clientID := uuid.New()
	providerID := uuid.New()
	dispute := &models.Dispute{ID: uuid.New(), JobID: jobID, InitiatorID: clientID, Status: models.DisputeStatusOpen}
	job := &models.Job{ID: jobID, ClientID: clientID, ProviderID: &providerID, Status: models.JobStatusInDispute, Version: 5}
	escrow := &models.Escrow{ID: uuid.New(), JobID: jobID, ClientID: clientID, ProviderID: providerID, Amount: 400, Status: models.EscrowStatusDisputed, CustodyID: "cust-d1"}
	return dispute, job, escrow
}

func TestDisputeService_Resolve_RefundByOperator(t *testing.T) {
	repo := new(mockDisputeRepo)
	jobRepo := new(mockJobRepo)
	escrowRepo := new(mockEscrowReader)
	processor := new(mockProcessor)
	svc := NewDisputeService(repo, jobRepo, escrowRepo, processor, nil)
	ctx := context.Background()

	dispute, job, escrow := resolveFixture()
	operatorID := uuid.New()
	resolved := &models.Dispute{ID: dispute.ID, JobID: dispute.JobID, Status: models.DisputeStatusResolved}

	repo.On("GetByID", ctx, dispute.ID).Return(dispute, nil)
	jobRepo.On("GetByID", ctx, dispute.JobID).Return(job, nil)
	escrowRepo.On("GetByJobID", ctx, dispute.JobID).Return(escrow, nil)
	processor.On("Refund", ctx, "cust-d1").Return(nil)
	jobRepo.On("ResolveDispute", ctx, mock.MatchedBy(func(p repository.ResolveDisputeParams) bool {
		return p.DisputeID == dispute.ID && p.Outcome == models.DisputeOutcomeRefundRequester && p.JobVersion == 5
	})).Return(job, escrow, resolved, nil)

	result, err := svc.Resolve(ctx, ResolveInput{
		DisputeID:     dispute.ID,
		ResolverID:    operatorID,
		ResolverRole:  models.RoleOperator,
		DecidedBy:     models.DisputeDecidedByOperator,
		Outcome:       models.DisputeOutcomeRefundRequester,
		Justification: "исполнитель не завершил работы",
		JobVersion:    5,
	})
	assert.NoError(t, err)
	assert.Equal(t, models.DisputeStatusResolved, result.Status)
	processor.AssertCalled(t, "Refund", ctx, "cust-d1")
	processor.AssertNotCalled(t, "Release")
}

func TestDisputeService_Resolve_ReleaseByMutualAgreement(t *testing.T) {
	repo := new(mockDisputeRepo)
	jobRepo := new(mockJobRepo)
	escrowRepo := new(mockEscrowReader)
	processor := new(mockProcessor)
	svc := NewDisputeService(repo, jobRepo, escrowRepo, processor, nil)
	ctx := context.Background()

	dispute, job, escrow := resolveFixture()
	resolved := &models.Dispute{ID: dispute.ID, JobID: dispute.JobID, Status: models.DisputeStatusResolved}

	repo.On("GetByID", ctx, dispute.ID).Return(dispute, nil)
	jobRepo.On("GetByID", ctx, dispute.JobID).Return(job, nil)
	escrowRepo.On("GetByJobID", ctx, dispute.JobID).Return(escrow, nil)
	processor.On("Release", ctx, "cust-d1").Return(nil)
	jobRepo.On("ResolveDispute", ctx, mock.Anything).Return(job, escrow, resolved, nil)

	_, err := svc.Resolve(ctx, ResolveInput{
		DisputeID:     dispute.ID,
		ResolverID:    job.ClientID,
		ResolverRole:  models.RoleClient,
		DecidedBy:     models.DisputeDecidedByMutual,
		Outcome:       models.DisputeOutcomeReleaseProvider,
		Justification: "стороны договорились",
		JobVersion:    5,
	})
	assert.NoError(t, err)
	processor.AssertCalled(t, "Release", ctx, "cust-d1")
	processor.AssertNotCalled(t, "Refund")
}

func TestDisputeService_Resolve_OperatorRoleRequired(t *testing.T) {
	repo := new(mockDisputeRepo)
	jobRepo := new(mockJobRepo)
	processor := new(mockProcessor)
	svc := NewDisputeService(repo, jobRepo, new(mockEscrowReader), processor, nil)
	ctx := context.Background()

	dispute, job, _ := resolveFixture()
	repo.On("GetByID", ctx, dispute.ID).Return(dispute, nil)
	jobRepo.On("GetByID", ctx, dispute.JobID).Return(job, nil)

	_, err := svc.Resolve(ctx, ResolveInput{
		DisputeID:     dispute.ID,
		ResolverID:    job.ClientID,
		ResolverRole:  models.RoleClient,
		DecidedBy:     models.DisputeDecidedByOperator,
		Outcome:       models.DisputeOutcomeRefundRequester,
		Justification: "попытка выдать себя за оператора",
		JobVersion:    5,
	})
	assert.ErrorIs(t, err, ErrOperatorOnly)
	processor.AssertNotCalled(t, "Refund")
}

func TestDisputeService_Resolve_AlreadyResolved(t *testing.T) {
	repo := new(mockDisputeRepo)
	processor := new(mockProcessor)
	svc := NewDisputeService(repo, new(mockJobRepo), new(mockEscrowReader), processor, nil)
	ctx := context.Background()

	dispute := &models.Dispute{ID: uuid.New(), JobID: uuid.New(), Status: models.DisputeStatusResolved}
	repo.On("GetByID", ctx, dispute.ID).Return(dispute, nil)

	_, err := svc.Resolve(ctx, ResolveInput{
		DisputeID:     dispute.ID,
		ResolverID:    uuid.New(),
		ResolverRole:  models.RoleOperator,
		DecidedBy:     models.DisputeDecidedByOperator,
		Outcome:       models.DisputeOutcomeRefundRequester,
		Justification: "повторное решение",
		JobVersion:    6,
	})
	assert.ErrorIs(t, err, repository.ErrDisputeAlreadyResolved)
	processor.AssertNotCalled(t, "Refund")
	processor.AssertNotCalled(t, "Release")
}

func TestDisputeService_Resolve_EscrowNotDisputed(t *testing.T) {
	repo := new(mockDisputeRepo)
	jobRepo := new(mockJobRepo)
	escrowRepo := new(mockEscrowReader)
	processor := new(mockProcessor)
	svc := NewDisputeService(repo, jobRepo, escrowRepo, processor, nil)
	ctx := context.Background()

	dispute, job, escrow := resolveFixture()
	escrow.Status = models.EscrowStatusReleased

	repo.On("GetByID", ctx, dispute.ID).Return(dispute, nil)
	jobRepo.On("GetByID", ctx, dispute.JobID).Return(job, nil)
	escrowRepo.On("GetByJobID", ctx, dispute.JobID).Return(escrow, nil)

	_, err := svc.Resolve(ctx, ResolveInput{
		DisputeID:     dispute.ID,
		ResolverID:    uuid.New(),
		ResolverRole:  models.RoleOperator,
		DecidedBy:     models.DisputeDecidedByOperator,
		Outcome:       models.DisputeOutcomeReleaseProvider,
		Justification: "средства уже выплачены",
		JobVersion:    5,
	})
	assert.ErrorIs(t, err, repository.ErrEscrowAlreadyFinalized)
	processor.AssertNotCalled(t, "Release")
}

func TestDisputeService_Resolve_UnknownOutcome(t *testing.T) {
	svc := NewDisputeService(new(mockDisputeRepo), new(mockJobRepo), new(mockEscrowReader), new(mockProcessor), nil)

	_, err := svc.Resolve(context.Background(), ResolveInput{
		DisputeID:     uuid.New(),
		ResolverID:    uuid.New(),
		ResolverRole:  models.RoleOperator,
		DecidedBy:     models.DisputeDecidedByOperator,
		Outcome:       "split_50_50",
		Justification: "компромисс",
		JobVersion:    5,
	})
	assert.Error(t, err)
}

func TestDisputeService_Resolve_CustodyFailureLeavesStateUntouched(t *testing.T) {
	repo := new(mockDisputeRepo)
	jobRepo := new(mockJobRepo)
	escrowRepo := new(mockEscrowReader)
	processor := new(mockProcessor)
	svc := NewDisputeService(repo, jobRepo, escrowRepo, processor, nil)
	ctx := context.Background()

	dispute, job, escrow := resolveFixture()
	repo.On("GetByID", ctx, dispute.ID).Return(dispute, nil)
	jobRepo.On("GetByID", ctx, dispute.JobID).Return(job, nil)
	escrowRepo.On("GetByJobID", ctx, dispute.JobID).Return(escrow, nil)
	processor.On("Refund", ctx, "cust-d1").Return(custody.ErrCustodyOperationFailed)

	_, err := svc.Resolve(ctx, ResolveInput{
		DisputeID:     dispute.ID,
		ResolverID:    uuid.New(),
		ResolverRole:  models.RoleOperator,
		DecidedBy:     models.DisputeDecidedByOperator,
		Outcome:       models.DisputeOutcomeRefundRequester,
		Justification: "возврат заказчику",
		JobVersion:    5,
	})
	assert.ErrorIs(t, err, custody.ErrCustodyOperationFailed)
	jobRepo.AssertNotCalled(t, "ResolveDispute")
}
