package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы escrow.
const (
	EscrowStatusHeld     = "held"
	EscrowStatusReleased = "released"
	EscrowStatusRefunded = "refunded"
	EscrowStatusDisputed = "disputed"
)

// escrowTransitions допустимые переходы статусов escrow.
// held → released, held → disputed, disputed → released, disputed → refunded.
var escrowTransitions = map[string][]string{
	EscrowStatusHeld:     {EscrowStatusReleased, EscrowStatusDisputed},
	EscrowStatusDisputed: {EscrowStatusReleased, EscrowStatusRefunded},
	EscrowStatusReleased: {},
	EscrowStatusRefunded: {},
}

// CanTransitEscrowStatus проверяет допустимость перехода escrow.
func CanTransitEscrowStatus(from, to string) bool {
	for _, next := range escrowTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsEscrowFinal сообщает, является ли статус escrow терминальным.
func IsEscrowFinal(status string) bool {
	return status == EscrowStatusReleased || status == EscrowStatusRefunded
}

// Escrow представляет запись о средствах, удерживаемых под одну принятую
// сделку. Сумма фиксируется при создании и не изменяется.
type Escrow struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	JobID      uuid.UUID  `db:"job_id" json:"job_id"`
	ClientID   uuid.UUID  `db:"client_id" json:"client_id"`
	ProviderID uuid.UUID  `db:"provider_id" json:"provider_id"`
	Amount     float64    `db:"amount" json:"amount"`
	Status     string     `db:"status" json:"status"`
	CustodyID  string     `db:"custody_id" json:"-"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ReleasedAt *time.Time `db:"released_at" json:"released_at,omitempty"`
}
