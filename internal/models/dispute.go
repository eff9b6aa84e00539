package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы споров.
const (
	DisputeStatusOpen     = "open"
	DisputeStatusResolved = "resolved"
)

// Кем принято решение по спору.
const (
	DisputeDecidedByOperator = "operator"
	DisputeDecidedByMutual   = "mutual_agreement"
)

// Исходы спора.
const (
	DisputeOutcomeRefundRequester = "refund_requester"
	DisputeOutcomeReleaseProvider = "release_provider"
)

// ValidDisputeOutcomes список валидных исходов спора.
var ValidDisputeOutcomes = map[string]struct{}{
	DisputeOutcomeRefundRequester: {},
	DisputeOutcomeReleaseProvider: {},
}

// ValidDisputeDeciders список валидных значений decided_by.
var ValidDisputeDeciders = map[string]struct{}{
	DisputeDecidedByOperator: {},
	DisputeDecidedByMutual:   {},
}

// Dispute представляет спор по заявке. Пока спор открыт, escrow заморожен;
// разрешение спора — единственная операция, выводящая escrow из disputed.
type Dispute struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	JobID         uuid.UUID  `db:"job_id" json:"job_id"`
	EscrowID      uuid.UUID  `db:"escrow_id" json:"escrow_id"`
	InitiatorID   uuid.UUID  `db:"initiator_id" json:"initiator_id"`
	Reason        string     `db:"reason" json:"reason"`
	Status        string     `db:"status" json:"status"`
	DecidedBy     *string    `db:"decided_by" json:"decided_by,omitempty"`
	Outcome       *string    `db:"outcome" json:"outcome,omitempty"`
	Justification *string    `db:"justification" json:"justification,omitempty"`
	ResolvedBy    *uuid.UUID `db:"resolved_by" json:"resolved_by,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	ResolvedAt    *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}

// DisputeMessage сообщение в упорядоченном журнале спора.
type DisputeMessage struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DisputeID uuid.UUID `db:"dispute_id" json:"dispute_id"`
	SenderID  uuid.UUID `db:"sender_id" json:"sender_id"`
	Text      string    `db:"text" json:"text"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
