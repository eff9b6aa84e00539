package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus константы статусов заявок. Значения соответствуют
// историческому wire-формату и не подлежат изменению.
const (
	JobStatusActive         = "ativo"
	JobStatusAuction        = "em_leilao"
	JobStatusProposalAccept = "proposta_aceita"
	JobStatusScheduled      = "agendado"
	JobStatusEnRoute        = "a_caminho"
	JobStatusInProgress     = "em_progresso"
	JobStatusPaymentPending = "pagamento_pendente"
	JobStatusCompleted      = "concluido"
	JobStatusInDispute      = "em_disputa"
	JobStatusCancelled      = "cancelado"
)

// JobMode режимы размещения заявки.
const (
	JobModeNormal  = "normal"
	JobModeAuction = "reverse_auction"
)

// ServiceType типы услуги.
const (
	ServiceTypeFixedPrice    = "fixed_price"
	ServiceTypeCustomQuote   = "custom_quote"
	ServiceTypePaidDiagnosis = "paid_diagnosis"
)

// UrgencyTier уровни срочности.
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// ValidJobStatuses список валидных статусов заявок.
var ValidJobStatuses = map[string]struct{}{
	JobStatusActive:         {},
	JobStatusAuction:        {},
	JobStatusProposalAccept: {},
	JobStatusScheduled:      {},
	JobStatusEnRoute:        {},
	JobStatusInProgress:     {},
	JobStatusPaymentPending: {},
	JobStatusCompleted:      {},
	JobStatusInDispute:      {},
	JobStatusCancelled:      {},
}

// ValidServiceTypes список валидных типов услуги.
var ValidServiceTypes = map[string]struct{}{
	ServiceTypeFixedPrice:    {},
	ServiceTypeCustomQuote:   {},
	ServiceTypePaidDiagnosis: {},
}

// ValidUrgencyTiers список валидных уровней срочности.
var ValidUrgencyTiers = map[string]struct{}{
	UrgencyLow:    {},
	UrgencyMedium: {},
	UrgencyHigh:   {},
}

// jobTransitions единственная авторитетная таблица переходов статусов.
// Любой переход, отсутствующий здесь, отклоняется.
var jobTransitions = map[string][]string{
	JobStatusActive:         {JobStatusProposalAccept, JobStatusCancelled},
	JobStatusAuction:        {JobStatusProposalAccept, JobStatusCancelled},
	JobStatusProposalAccept: {JobStatusScheduled},
	JobStatusScheduled:      {JobStatusEnRoute, JobStatusInDispute},
	JobStatusEnRoute:        {JobStatusInProgress, JobStatusInDispute},
	JobStatusInProgress:     {JobStatusPaymentPending, JobStatusInDispute},
	JobStatusPaymentPending: {JobStatusCompleted, JobStatusInDispute},
	JobStatusInDispute:      {JobStatusCompleted, JobStatusCancelled},
	JobStatusCompleted:      {},
	JobStatusCancelled:      {},
}

// CanTransitJobStatus проверяет допустимость перехода по таблице.
func CanTransitJobStatus(from, to string) bool {
	for _, next := range jobTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// DisputableJobStatuses статусы, из которых можно открыть спор.
var DisputableJobStatuses = map[string]struct{}{
	JobStatusScheduled:      {},
	JobStatusEnRoute:        {},
	JobStatusInProgress:     {},
	JobStatusPaymentPending: {},
}

// IsJobDisputable сообщает, допускает ли статус открытие спора.
func IsJobDisputable(status string) bool {
	_, ok := DisputableJobStatuses[status]
	return ok
}

// IsJobTerminal сообщает, является ли статус терминальным.
func IsJobTerminal(status string) bool {
	return status == JobStatusCompleted || status == JobStatusCancelled
}

// Job описывает заявку на услугу.
type Job struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	ClientID      uuid.UUID  `db:"client_id" json:"client_id"`
	ProviderID    *uuid.UUID `db:"provider_id" json:"provider_id,omitempty"`
	Category      string     `db:"category" json:"category"`
	Description   string     `db:"description" json:"description"`
	Status        string     `db:"status" json:"status"`
	ServiceType   string     `db:"service_type" json:"service_type"`
	Urgency       string     `db:"urgency" json:"urgency"`
	Mode          string     `db:"mode" json:"mode"`
	FixedPrice    *float64   `db:"fixed_price" json:"fixed_price,omitempty"`
	AuctionEndsAt *time.Time `db:"auction_ends_at" json:"auction_ends_at,omitempty"`
	ScheduledAt   *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	EscrowID      *uuid.UUID `db:"escrow_id" json:"escrow_id,omitempty"`
	DisputeID     *uuid.UUID `db:"dispute_id" json:"dispute_id,omitempty"`
	Version       int        `db:"version" json:"version"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// IsAuction сообщает, размещена ли заявка в режиме обратного аукциона.
func (j *Job) IsAuction() bool {
	return j.Mode == JobModeAuction
}

// AuctionRemaining возвращает оставшееся время аукциона относительно now.
// Вычисляется заново при каждом вызове, скрытого состояния таймера нет.
func (j *Job) AuctionRemaining(now time.Time) time.Duration {
	if j.AuctionEndsAt == nil {
		return 0
	}
	remaining := j.AuctionEndsAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// AuctionClosed сообщает, истёк ли срок аукциона на момент now.
func (j *Job) AuctionClosed(now time.Time) bool {
	return j.AuctionEndsAt != nil && now.After(*j.AuctionEndsAt)
}
