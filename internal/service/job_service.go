package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dkravchenko/servicehub-backend/internal/custody"
	"github.com/dkravchenko/servicehub-backend/internal/logger"
	"github.com/dkravchenko/servicehub-backend/internal/models"
	"github.com/dkravchenko/servicehub-backend/internal/repository"
)

var (
	// ErrInvalidStateTransition возвращается при запросе перехода,
	// отсутствующего в таблице переходов жизненного цикла заявки.
	ErrInvalidStateTransition = errors.New("invalid job state transition")

	ErrNotParticipant = errors.New("user is not a participant of this job")
	ErrOperatorOnly   = errors.New("operation requires operator role")
)

// JobRepo описывает зависимости JobService от слоя хранилища.
type JobRepo interface {
	Create(ctx context.Context, job *models.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	List(ctx context.Context, params repository.JobFilterParams) ([]models.Job, error)
	Transition(ctx context.Context, p repository.TransitionParams) (*models.Job, error)
	Complete(ctx context.Context, jobID, clientID uuid.UUID, version int) (*models.Job, *models.Escrow, error)
}

// EscrowReader читает escrow для проверок перед внешними вызовами.
type EscrowReader interface {
	GetByJobID(ctx context.Context, jobID uuid.UUID) (*models.Escrow, error)
}

// Notifier доставляет уведомления участникам. Доставка best-effort и
// никогда не влияет на исход доменной операции.
type Notifier interface {
	Notify(userID uuid.UUID, event string, payload any)
}

// JobService инкапсулирует жизненный цикл заявки.
type JobService struct {
	repo       JobRepo
	escrowRepo EscrowReader
	processor  custody.Processor
	notifier   Notifier

	defaultAuctionWindow time.Duration
}

// NewJobService создаёт сервис заявок.
func NewJobService(repo JobRepo, escrowRepo EscrowReader, processor custody.Processor, notifier Notifier, defaultAuctionWindow time.Duration) *JobService {
	if defaultAuctionWindow <= 0 {
		defaultAuctionWindow = 24 * time.Hour
	}
	return &JobService{
		repo:                 repo,
		escrowRepo:           escrowRepo,
		processor:            processor,
		notifier:             notifier,
		defaultAuctionWindow: defaultAuctionWindow,
	}
}

// CreateJobInput содержит данные новой заявки.
type CreateJobInput struct {
	ClientID    uuid.UUID
	Category    string
	Description string
	ServiceType string
	Urgency     string
	Mode        string
	FixedPrice  *float64
	AuctionFor  time.Duration
}

// CreateJob публикует заявку. Режим с фиксированной ценой стартует в ativo,
// аукционный — в em_leilao с заданным сроком окончания.
func (s *JobService) CreateJob(ctx context.Context, in CreateJobInput) (*models.Job, error) {
	if in.Mode != models.JobModeNormal && in.Mode != models.JobModeAuction {
		return nil, fmt.Errorf("job service: неизвестный режим %q", in.Mode)
	}
	if in.ServiceType != "" {
		if _, ok := models.ValidServiceTypes[in.ServiceType]; !ok {
			return nil, fmt.Errorf("job service: неизвестный тип услуги %q", in.ServiceType)
		}
	}
	if in.Urgency != "" {
		if _, ok := models.ValidUrgencyTiers[in.Urgency]; !ok {
			return nil, fmt.Errorf("job service: неизвестная срочность %q", in.Urgency)
		}
	}

	job := &models.Job{
		ClientID:    in.ClientID,
		Category:    in.Category,
		Description: in.Description,
		ServiceType: in.ServiceType,
		Urgency:     in.Urgency,
		Mode:        in.Mode,
	}

	switch in.Mode {
	case models.JobModeNormal:
		if in.FixedPrice == nil || *in.FixedPrice <= 0 {
			return nil, fmt.Errorf("job service: фиксированная цена должна быть положительной")
		}
		job.Status = models.JobStatusActive
		job.FixedPrice = in.FixedPrice
	case models.JobModeAuction:
		window := in.AuctionFor
		if window <= 0 {
			window = s.defaultAuctionWindow
		}
		endsAt := time.Now().Add(window)
		job.Status = models.JobStatusAuction
		job.AuctionEndsAt = &endsAt
	}

	if err := s.repo.Create(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// GetJob возвращает заявку.
func (s *JobService) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return s.repo.GetByID(ctx, id)
}

// ListJobs возвращает заявки по фильтру.
func (s *JobService) ListJobs(ctx context.Context, params repository.JobFilterParams) ([]models.Job, error) {
	return s.repo.List(ctx, params)
}

// Schedule назначает дату визита: proposta_aceita → agendado.
func (s *JobService) Schedule(ctx context.Context, jobID, actorID uuid.UUID, scheduledAt time.Time, version int) (*models.Job, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !isParticipant(job, actorID) {
		return nil, ErrNotParticipant
	}
	return s.transit(ctx, job, actorID, models.JobStatusScheduled, version, &scheduledAt)
}

// MarkEnRoute фиксирует выезд исполнителя: agendado → a_caminho.
func (s *JobService) MarkEnRoute(ctx context.Context, jobID, providerID uuid.UUID, version int) (*models.Job, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.ProviderID == nil || *job.ProviderID != providerID {
		return nil, ErrNotParticipant
	}
	return s.transit(ctx, job, providerID, models.JobStatusEnRoute, version, nil)
}

// StartProgress фиксирует начало работ: a_caminho → em_progresso.
func (s *JobService) StartProgress(ctx context.Context, jobID, providerID uuid.UUID, version int) (*models.Job, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.ProviderID == nil || *job.ProviderID != providerID {
		return nil, ErrNotParticipant
	}
	return s.transit(ctx, job, providerID, models.JobStatusInProgress, version, nil)
}

// RequestPayment фиксирует окончание работ со стороны исполнителя:
// em_progresso → pagamento_pendente. Средства остаются удержанными до
// подтверждения заказчика.
func (s *JobService) RequestPayment(ctx context.Context, jobID, providerID uuid.UUID, version int) (*models.Job, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.ProviderID == nil || *job.ProviderID != providerID {
		return nil, ErrNotParticipant
	}
	updated, err := s.transit(ctx, job, providerID, models.JobStatusPaymentPending, version, nil)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.Notify(job.ClientID, "payment_requested", map[string]any{"job_id": job.ID})
	}
	return updated, nil
}

// Cancel отменяет заявку до выбора исполнителя: ativo|em_leilao → cancelado.
// После создания escrow отмена возможна только через разрешение спора.
func (s *JobService) Cancel(ctx context.Context, jobID, clientID uuid.UUID, version int) (*models.Job, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.ClientID != clientID {
		return nil, ErrNotParticipant
	}
	if job.EscrowID != nil {
		return nil, ErrInvalidStateTransition
	}
	return s.transit(ctx, job, clientID, models.JobStatusCancelled, version, nil)
}

// Complete подтверждает выполнение и переводит средства исполнителю:
// заявка pagamento_pendente → concluido, escrow held → released.
// Сначала подтверждение процессора, затем локальная фиксация.
func (s *JobService) Complete(ctx context.Context, jobID, clientID uuid.UUID, version int) (*models.Job, *models.Escrow, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	if job.ClientID != clientID {
		return nil, nil, ErrNotParticipant
	}
	if !models.CanTransitJobStatus(job.Status, models.JobStatusCompleted) || job.Status != models.JobStatusPaymentPending {
		return nil, nil, ErrInvalidStateTransition
	}

	escrow, err := s.escrowRepo.GetByJobID(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	if escrow.Status != models.EscrowStatusHeld {
		return nil, nil, repository.ErrEscrowAlreadyFinalized
	}

	if err := s.processor.Release(ctx, escrow.CustodyID); err != nil {
		return nil, nil, err
	}

	updated, finalized, err := s.repo.Complete(ctx, jobID, clientID, version)
	if err != nil {
		// Средства уже переведены исполнителю, локальное состояние отстало.
		logger.Log.WithFields(map[string]interface{}{
			"job_id":     jobID,
			"custody_id": escrow.CustodyID,
			"error":      err.Error(),
		}).Error("job service: custody release подтверждён, но локальная фиксация не прошла")
		return nil, nil, err
	}

	if s.notifier != nil && updated.ProviderID != nil {
		s.notifier.Notify(*updated.ProviderID, "job_completed", map[string]any{"job_id": updated.ID})
	}
	return updated, finalized, nil
}

// transit проверяет допустимость перехода по таблице и выполняет его.
func (s *JobService) transit(ctx context.Context, job *models.Job, actorID uuid.UUID, toStatus string, version int, scheduledAt *time.Time) (*models.Job, error) {
	if !models.CanTransitJobStatus(job.Status, toStatus) {
		return nil, ErrInvalidStateTransition
	}
	return s.repo.Transition(ctx, repository.TransitionParams{
		JobID:       job.ID,
		ActorID:     &actorID,
		FromStatus:  job.Status,
		ToStatus:    toStatus,
		Version:     version,
		ScheduledAt: scheduledAt,
	})
}

func isParticipant(job *models.Job, userID uuid.UUID) bool {
	if job.ClientID == userID {
		return true
	}
	return job.ProviderID != nil && *job.ProviderID == userID
}
