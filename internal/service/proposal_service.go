package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/dkravchenko/servicehub-backend/internal/custody"
	"github.com/dkravchenko/servicehub-backend/internal/logger"
	"github.com/dkravchenko/servicehub-backend/internal/models"
	"github.com/dkravchenko/servicehub-backend/internal/repository"
	"github.com/dkravchenko/servicehub-backend/internal/repository/common"
)

var (
	// ErrJobNotAcceptingProposals возвращается при отклике на заявку вне
	// состояния приёма предложений.
	ErrJobNotAcceptingProposals = errors.New("job is not accepting proposals")

	ErrProposalAlreadyExists = errors.New("provider already has an active proposal for this job")
	ErrProposalNotPending    = errors.New("proposal is not pending")
)

// ProposalRepo описывает зависимости ProposalService от слоя хранилища.
type ProposalRepo interface {
	Create(ctx context.Context, proposal *models.Proposal) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error)
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.Proposal, error)
	ListByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]models.Proposal, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Proposal, error)
}

// ProposalJobRepo часть JobRepository, нужная сервису предложений.
type ProposalJobRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	AcceptProposal(ctx context.Context, p repository.AcceptProposalParams) (*models.Job, *models.Escrow, error)
}

// ProposalService инкапсулирует отклики и выбор исполнителя.
type ProposalService struct {
	repo      ProposalRepo
	jobRepo   ProposalJobRepo
	processor custody.Processor
	notifier  Notifier
}

// NewProposalService создаёт сервис предложений.
func NewProposalService(repo ProposalRepo, jobRepo ProposalJobRepo, processor custody.Processor, notifier Notifier) *ProposalService {
	return &ProposalService{
		repo:      repo,
		jobRepo:   jobRepo,
		processor: processor,
		notifier:  notifier,
	}
}

// Submit создаёт отклик исполнителя на заявку с фиксированным режимом.
func (s *ProposalService) Submit(ctx context.Context, jobID, providerID uuid.UUID, price float64, message string) (*models.Proposal, error) {
	if price <= 0 {
		return nil, errors.New("proposal service: цена должна быть положительной")
	}

	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusActive {
		return nil, ErrJobNotAcceptingProposals
	}
	if job.ClientID == providerID {
		return nil, ErrNotParticipant
	}

	proposal := &models.Proposal{
		JobID:      jobID,
		ProviderID: providerID,
		Price:      price,
		Message:    message,
		Status:     models.ProposalStatusPending,
	}
	if err := s.repo.Create(ctx, proposal); err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, ErrProposalAlreadyExists
		}
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Notify(job.ClientID, "proposal_received", map[string]any{
			"job_id":      jobID,
			"proposal_id": proposal.ID,
		})
	}
	return proposal, nil
}

// Accept принимает предложение. Сначала средства блокируются у процессора,
// локальная фиксация выполняется только после его подтверждения. Если
// фиксация не прошла, блокировка снимается компенсирующим refund.
func (s *ProposalService) Accept(ctx context.Context, jobID, proposalID, clientID uuid.UUID, version int) (*models.Job, *models.Escrow, error) {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	if job.ClientID != clientID {
		return nil, nil, ErrNotParticipant
	}
	if job.Status != models.JobStatusActive {
		return nil, nil, repository.ErrJobAlreadyDecided
	}

	proposal, err := s.repo.GetByID(ctx, proposalID)
	if err != nil {
		return nil, nil, err
	}
	if proposal.JobID != jobID {
		return nil, nil, repository.ErrProposalNotFound
	}
	if proposal.Status != models.ProposalStatusPending {
		return nil, nil, ErrProposalNotPending
	}

	custodyID, err := s.processor.Hold(ctx, jobID, clientID, proposal.Price)
	if err != nil {
		return nil, nil, err
	}

	updated, escrow, err := s.jobRepo.AcceptProposal(ctx, repository.AcceptProposalParams{
		JobID:      jobID,
		ProposalID: proposalID,
		ClientID:   clientID,
		CustodyID:  custodyID,
		Version:    version,
	})
	if err != nil {
		compensateHold(ctx, s.processor, custodyID, jobID)
		return nil, nil, err
	}

	if s.notifier != nil {
		s.notifier.Notify(proposal.ProviderID, "proposal_accepted", map[string]any{
			"job_id":      jobID,
			"proposal_id": proposalID,
		})
	}
	return updated, escrow, nil
}

// ListByJob возвращает отклики по заявке.
func (s *ProposalService) ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.Proposal, error) {
	return s.repo.ListByJob(ctx, jobID)
}

// Block блокирует предложение решением оператора. Блокировке подлежат
// только ожидающие предложения.
func (s *ProposalService) Block(ctx context.Context, proposalID uuid.UUID) (*models.Proposal, error) {
	proposal, err := s.repo.GetByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.Status != models.ProposalStatusPending {
		return nil, ErrProposalNotPending
	}
	return s.repo.UpdateStatus(ctx, proposalID, models.ProposalStatusBlocked)
}

// ListByProvider возвращает отклики исполнителя.
func (s *ProposalService) ListByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]models.Proposal, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByProvider(ctx, providerID, limit, offset)
}

// compensateHold снимает блокировку средств после неудавшейся локальной
// фиксации. Неуспех компенсации только логируется: средства остаются
// удержанными у процессора и требуют ручного вмешательства.
func compensateHold(ctx context.Context, processor custody.Processor, custodyID string, jobID uuid.UUID) {
	if err := processor.Refund(ctx, custodyID); err != nil {
		logger.Log.WithFields(map[string]interface{}{
			"job_id":     jobID,
			"custody_id": custodyID,
			"error":      err.Error(),
		}).Error("proposal service: компенсирующий refund не прошёл")
	}
}
