package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dkravchenko/servicehub-backend/internal/custody"
	"github.com/dkravchenko/servicehub-backend/internal/logger"
	"github.com/dkravchenko/servicehub-backend/internal/models"
	"github.com/dkravchenko/servicehub-backend/internal/repository"
	"github.com/dkravchenko/servicehub-backend/internal/repository/common"
)

var (
	// ErrJobNotDisputable возвращается при попытке открыть спор по заявке
	// вне исполняемых состояний (agendado..pagamento_pendente).
	ErrJobNotDisputable = errors.New("job is not disputable")

	// ErrDisputeAlreadyOpen возвращается, когда по заявке уже есть
	// открытый спор.
	ErrDisputeAlreadyOpen = errors.New("dispute already open for this job")
)

// DisputeRepo описывает зависимости DisputeService от слоя хранилища споров.
type DisputeRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	GetOpenByJobID(ctx context.Context, jobID uuid.UUID) (*models.Dispute, error)
	AddMessage(ctx context.Context, msg *models.DisputeMessage) error
	ListMessages(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeMessage, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error)
}

// DisputeJobRepo часть JobRepository, нужная сервису споров.
type DisputeJobRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	OpenDispute(ctx context.Context, d *models.Dispute, version int) (*models.Job, error)
	ResolveDispute(ctx context.Context, p repository.ResolveDisputeParams) (*models.Job, *models.Escrow, *models.Dispute, error)
}

// DisputeService инкапсулирует споры: открытие, переписку и разрешение.
type DisputeService struct {
	repo       DisputeRepo
	jobRepo    DisputeJobRepo
	escrowRepo EscrowReader
	processor  custody.Processor
	notifier   Notifier
}

// NewDisputeService создаёт сервис споров.
func NewDisputeService(repo DisputeRepo, jobRepo DisputeJobRepo, escrowRepo EscrowReader, processor custody.Processor, notifier Notifier) *DisputeService {
	return &DisputeService{
		repo:       repo,
		jobRepo:    jobRepo,
		escrowRepo: escrowRepo,
		processor:  processor,
		notifier:   notifier,
	}
}

// Open открывает спор. Заявка должна быть в исполняемом состоянии, инициатор
// — её участником. Escrow замораживается в той же транзакции.
func (s *DisputeService) Open(ctx context.Context, jobID, initiatorID uuid.UUID, reason string, version int) (*models.Dispute, error) {
	if reason == "" {
		return nil, errors.New("dispute service: причина спора обязательна")
	}

	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !isParticipant(job, initiatorID) {
		return nil, ErrNotParticipant
	}
	if !models.IsJobDisputable(job.Status) {
		return nil, ErrJobNotDisputable
	}

	d := &models.Dispute{
		JobID:       jobID,
		InitiatorID: initiatorID,
		Reason:      reason,
		Status:      models.DisputeStatusOpen,
	}
	if _, err := s.jobRepo.OpenDispute(ctx, d, version); err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, ErrDisputeAlreadyOpen
		}
		return nil, err
	}

	if s.notifier != nil {
		other := job.ClientID
		if other == initiatorID && job.ProviderID != nil {
			other = *job.ProviderID
		}
		s.notifier.Notify(other, "dispute_opened", map[string]any{
			"job_id":     jobID,
			"dispute_id": d.ID,
		})
	}
	return d, nil
}

// PostMessage добавляет сообщение в журнал спора. Писать могут участники
// заявки и оператор, и только пока спор открыт.
func (s *DisputeService) PostMessage(ctx context.Context, disputeID, senderID uuid.UUID, senderRole, text string) (*models.DisputeMessage, error) {
	if text == "" {
		return nil, errors.New("dispute service: пустое сообщение")
	}

	dispute, err := s.repo.GetByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if senderRole != models.RoleOperator {
		job, err := s.jobRepo.GetByID(ctx, dispute.JobID)
		if err != nil {
			return nil, err
		}
		if !isParticipant(job, senderID) {
			return nil, ErrNotParticipant
		}
	}

	msg := &models.DisputeMessage{
		DisputeID: disputeID,
		SenderID:  senderID,
		Text:      text,
	}
	if err := s.repo.AddMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// ResolveInput параметры разрешения спора.
type ResolveInput struct {
	DisputeID     uuid.UUID
	ResolverID    uuid.UUID
	ResolverRole  string
	DecidedBy     string
	Outcome       string
	Justification string
	JobVersion    int
}

// Resolve разрешает спор: refund_requester возвращает средства заказчику и
// отменяет заявку, release_provider переводит средства исполнителю и
// завершает её. Решение оператора требует роли оператора; обоюдное согласие
// фиксирует любой участник. Сначала подтверждение процессора, затем
// локальная фиксация.
func (s *DisputeService) Resolve(ctx context.Context, in ResolveInput) (*models.Dispute, error) {
	if _, ok := models.ValidDisputeOutcomes[in.Outcome]; !ok {
		return nil, fmt.Errorf("dispute service: неизвестный исход %q", in.Outcome)
	}
	if _, ok := models.ValidDisputeDeciders[in.DecidedBy]; !ok {
		return nil, fmt.Errorf("dispute service: неизвестный способ решения %q", in.DecidedBy)
	}
	if in.Justification == "" {
		return nil, errors.New("dispute service: обоснование решения обязательно")
	}

	dispute, err := s.repo.GetByID(ctx, in.DisputeID)
	if err != nil {
		return nil, err
	}
	if dispute.Status != models.DisputeStatusOpen {
		return nil, repository.ErrDisputeAlreadyResolved
	}

	job, err := s.jobRepo.GetByID(ctx, dispute.JobID)
	if err != nil {
		return nil, err
	}
	switch in.DecidedBy {
	case models.DisputeDecidedByOperator:
		if in.ResolverRole != models.RoleOperator {
			return nil, ErrOperatorOnly
		}
	case models.DisputeDecidedByMutual:
		if !isParticipant(job, in.ResolverID) {
			return nil, ErrNotParticipant
		}
	}

	escrow, err := s.escrowRepo.GetByJobID(ctx, dispute.JobID)
	if err != nil {
		return nil, err
	}
	if escrow.Status != models.EscrowStatusDisputed {
		return nil, repository.ErrEscrowAlreadyFinalized
	}

	if in.Outcome == models.DisputeOutcomeRefundRequester {
		err = s.processor.Refund(ctx, escrow.CustodyID)
	} else {
		err = s.processor.Release(ctx, escrow.CustodyID)
	}
	if err != nil {
		return nil, err
	}

	_, _, resolved, err := s.jobRepo.ResolveDispute(ctx, repository.ResolveDisputeParams{
		DisputeID:     in.DisputeID,
		DecidedBy:     in.DecidedBy,
		Outcome:       in.Outcome,
		Justification: in.Justification,
		ResolvedBy:    in.ResolverID,
		JobVersion:    in.JobVersion,
	})
	if err != nil {
		// Средства уже перемещены процессором, локальное состояние отстало.
		logger.Log.WithFields(map[string]interface{}{
			"dispute_id": in.DisputeID,
			"custody_id": escrow.CustodyID,
			"outcome":    in.Outcome,
			"error":      err.Error(),
		}).Error("dispute service: custody операция подтверждена, но локальная фиксация не прошла")
		return nil, err
	}

	if s.notifier != nil {
		payload := map[string]any{
			"job_id":     dispute.JobID,
			"dispute_id": resolved.ID,
			"outcome":    in.Outcome,
		}
		s.notifier.Notify(escrow.ClientID, "dispute_resolved", payload)
		s.notifier.Notify(escrow.ProviderID, "dispute_resolved", payload)
	}
	return resolved, nil
}

// GetDispute возвращает спор по идентификатору.
func (s *DisputeService) GetDispute(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	return s.repo.GetByID(ctx, id)
}

// ListMessages возвращает журнал сообщений спора.
func (s *DisputeService) ListMessages(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeMessage, error) {
	return s.repo.ListMessages(ctx, disputeID)
}

// ListUserDisputes возвращает споры пользователя.
func (s *DisputeService) ListUserDisputes(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}
