package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dkravchenko/servicehub-backend/internal/custody"
	"github.com/dkravchenko/servicehub-backend/internal/models"
	"github.com/dkravchenko/servicehub-backend/internal/repository"
)

var (
	// ErrAuctionStillOpen возвращается при попытке принять минимальную
	// ставку до окончания аукциона, когда ранний выбор отключён.
	ErrAuctionStillOpen = errors.New("auction is still open")

	ErrNotAuctionJob = errors.New("job is not in auction mode")
)

// BidRepo описывает зависимости AuctionService от слоя хранилища ставок.
type BidRepo interface {
	InsertIfLowest(ctx context.Context, bid *models.Bid, now time.Time) error
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.Bid, error)
	GetLowest(ctx context.Context, jobID uuid.UUID) (*models.Bid, error)
}

// AuctionJobRepo часть JobRepository, нужная сервису аукционов.
type AuctionJobRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	AcceptBid(ctx context.Context, p repository.AcceptBidParams) (*models.Job, *models.Escrow, *models.Bid, error)
}

// AuctionService инкапсулирует обратные аукционы: ставки, анонимизацию
// и выбор победителя. Окончание аукциона нигде не отслеживается фоновым
// процессом: срок сверяется с текущим временем в момент каждой операции.
type AuctionService struct {
	bidRepo   BidRepo
	jobRepo   AuctionJobRepo
	processor custody.Processor
	notifier  Notifier

	// earlyAccept разрешает заказчику принять текущую минимальную ставку
	// до истечения срока аукциона.
	earlyAccept bool

	now func() time.Time
}

// NewAuctionService создаёт сервис аукционов.
func NewAuctionService(bidRepo BidRepo, jobRepo AuctionJobRepo, processor custody.Processor, notifier Notifier, earlyAccept bool) *AuctionService {
	return &AuctionService{
		bidRepo:     bidRepo,
		jobRepo:     jobRepo,
		processor:   processor,
		notifier:    notifier,
		earlyAccept: earlyAccept,
		now:         time.Now,
	}
}

// SubmitBid регистрирует ставку. Ставка проходит, только если аукцион ещё
// открыт и сумма строго ниже текущего минимума.
func (s *AuctionService) SubmitBid(ctx context.Context, jobID, providerID uuid.UUID, amount float64) (*models.Bid, error) {
	if amount <= 0 {
		return nil, errors.New("auction service: сумма ставки должна быть положительной")
	}

	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.ClientID == providerID {
		return nil, ErrNotParticipant
	}

	bid := &models.Bid{
		JobID:      jobID,
		ProviderID: providerID,
		Amount:     amount,
	}
	if err := s.bidRepo.InsertIfLowest(ctx, bid, s.now()); err != nil {
		return nil, err
	}
	return bid, nil
}

// AuctionState сводка аукциона для заказчика.
type AuctionState struct {
	JobID        uuid.UUID            `json:"job_id"`
	Closed       bool                 `json:"closed"`
	EndsAt       *time.Time           `json:"ends_at,omitempty"`
	RemainingSec int64                `json:"remaining_sec"`
	LowestAmount *float64             `json:"lowest_amount,omitempty"`
	Bids         []models.AnonymousBid `json:"bids"`
}

// State возвращает текущее состояние аукциона: обратный отсчёт, минимальную
// сумму и анонимизированный список ставок.
func (s *AuctionService) State(ctx context.Context, jobID uuid.UUID) (*AuctionState, error) {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.IsAuction() {
		return nil, ErrNotAuctionJob
	}

	bids, err := s.bidRepo.ListByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	state := &AuctionState{
		JobID:        jobID,
		Closed:       job.Status != models.JobStatusAuction || job.AuctionClosed(now),
		EndsAt:       job.AuctionEndsAt,
		RemainingSec: int64(job.AuctionRemaining(now) / time.Second),
		Bids:         AnonymizeBids(bids),
	}
	for _, b := range bids {
		if state.LowestAmount == nil || b.Amount < *state.LowestAmount {
			amount := b.Amount
			state.LowestAmount = &amount
		}
	}
	return state, nil
}

// AcceptLowest завершает аукцион принятием минимальной ставки. До истечения
// срока вызов допускается только при включённом раннем выборе. Средства
// блокируются у процессора до локальной фиксации.
func (s *AuctionService) AcceptLowest(ctx context.Context, jobID, clientID uuid.UUID, version int) (*models.Job, *models.Escrow, *models.Bid, error) {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, nil, nil, err
	}
	if job.ClientID != clientID {
		return nil, nil, nil, ErrNotParticipant
	}
	if job.Status != models.JobStatusAuction {
		return nil, nil, nil, repository.ErrJobAlreadyDecided
	}
	if !s.earlyAccept && !job.AuctionClosed(s.now()) {
		return nil, nil, nil, ErrAuctionStillOpen
	}

	lowest, err := s.bidRepo.GetLowest(ctx, jobID)
	if err != nil {
		return nil, nil, nil, err
	}

	custodyID, err := s.processor.Hold(ctx, jobID, clientID, lowest.Amount)
	if err != nil {
		return nil, nil, nil, err
	}

	updated, escrow, winner, err := s.jobRepo.AcceptBid(ctx, repository.AcceptBidParams{
		JobID:     jobID,
		BidID:     lowest.ID,
		ClientID:  clientID,
		CustodyID: custodyID,
		Version:   version,
	})
	if err != nil {
		compensateHold(ctx, s.processor, custodyID, jobID)
		return nil, nil, nil, err
	}

	if s.notifier != nil {
		s.notifier.Notify(winner.ProviderID, "bid_accepted", map[string]any{
			"job_id": jobID,
			"bid_id": winner.ID,
		})
	}
	return updated, escrow, winner, nil
}

// ListBids возвращает анонимизированные ставки по заявке.
func (s *AuctionService) ListBids(ctx context.Context, jobID uuid.UUID) ([]models.AnonymousBid, error) {
	bids, err := s.bidRepo.ListByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return AnonymizeBids(bids), nil
}

// ListBidsFull возвращает ставки без анонимизации. Только для оператора.
func (s *AuctionService) ListBidsFull(ctx context.Context, jobID uuid.UUID) ([]models.Bid, error) {
	return s.bidRepo.ListByJob(ctx, jobID)
}

// AnonymizeBids присваивает исполнителям стабильные анонимные метки.
// Метка определяется порядком первой ставки исполнителя: первый сделавший
// ставку становится "Provider A", следующий — "Provider B" и так далее.
// Отображение нигде не хранится и детерминированно пересчитывается из
// упорядоченной истории ставок.
func AnonymizeBids(bids []models.Bid) []models.AnonymousBid {
	labels := make(map[uuid.UUID]string, len(bids))
	result := make([]models.AnonymousBid, 0, len(bids))

	for _, b := range bids {
		label, ok := labels[b.ProviderID]
		if !ok {
			label = "Provider " + alphaLabel(len(labels))
			labels[b.ProviderID] = label
		}
		result = append(result, models.AnonymousBid{
			ID:        b.ID,
			Label:     label,
			Amount:    b.Amount,
			CreatedAt: b.CreatedAt,
		})
	}
	return result
}

// alphaLabel превращает порядковый номер в буквенную метку: A..Z, AA, AB...
func alphaLabel(n int) string {
	label := ""
	for {
		label = string(rune('A'+n%26)) + label
		n = n/26 - 1
		if n < 0 {
			break
		}
	}
	return label
}
