package models

import (
	"time"

	"github.com/google/uuid"
)

// ProposalStatus константы статусов предложений.
const (
	ProposalStatusPending  = "pending"
	ProposalStatusAccepted = "accepted"
	ProposalStatusRejected = "rejected"
	ProposalStatusBlocked  = "blocked"
)

// ValidProposalStatuses список валидных статусов предложений.
var ValidProposalStatuses = map[string]struct{}{
	ProposalStatusPending:  {},
	ProposalStatusAccepted: {},
	ProposalStatusRejected: {},
	ProposalStatusBlocked:  {},
}

// Proposal представляет отклик исполнителя на обычную (не аукционную) заявку.
type Proposal struct {
	ID         uuid.UUID `db:"id" json:"id"`
	JobID      uuid.UUID `db:"job_id" json:"job_id"`
	ProviderID uuid.UUID `db:"provider_id" json:"provider_id"`
	Price      float64   `db:"price" json:"price"`
	Message    string    `db:"message" json:"message"`
	Status     string    `db:"status" json:"status"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Bid представляет ставку исполнителя в обратном аукционе.
// Ставки неизменяемы после записи; личность исполнителя заказчику
// не раскрывается.
type Bid struct {
	ID         uuid.UUID `db:"id" json:"id"`
	JobID      uuid.UUID `db:"job_id" json:"job_id"`
	ProviderID uuid.UUID `db:"provider_id" json:"provider_id"`
	Amount     float64   `db:"amount" json:"amount"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AnonymousBid представление ставки для заказчика: вместо идентификатора
// исполнителя используется стабильная анонимная метка.
type AnonymousBid struct {
	ID        uuid.UUID `json:"id"`
	Label     string    `json:"label"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}
