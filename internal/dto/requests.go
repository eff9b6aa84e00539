package dto

import "time"

// RegisterRequest запрос регистрации.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// LoginRequest запрос входа.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest запрос обновления токенов.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// CreateJobRequest запрос публикации заявки.
type CreateJobRequest struct {
	Category    string   `json:"category" binding:"required"`
	Description string   `json:"description" binding:"required"`
	ServiceType string   `json:"service_type"`
	Urgency     string   `json:"urgency"`
	Mode        string   `json:"mode" binding:"required"`
	FixedPrice  *float64 `json:"fixed_price"`
	AuctionFor  string   `json:"auction_for"`
}

// ScheduleJobRequest запрос назначения даты визита.
type ScheduleJobRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
	Version     int       `json:"version" binding:"min=1"`
}

// TransitionRequest запрос простого перехода статуса с версией для
// оптимистической блокировки.
type TransitionRequest struct {
	Version int `json:"version" binding:"min=1"`
}

// CreateProposalRequest запрос отклика исполнителя.
type CreateProposalRequest struct {
	Price   float64 `json:"price" binding:"required"`
	Message string  `json:"message"`
}

// AcceptProposalRequest запрос принятия предложения.
type AcceptProposalRequest struct {
	Version int `json:"version" binding:"min=1"`
}

// CreateBidRequest запрос ставки в обратном аукционе.
type CreateBidRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

// OpenDisputeRequest запрос открытия спора.
type OpenDisputeRequest struct {
	Reason  string `json:"reason" binding:"required"`
	Version int    `json:"version" binding:"min=1"`
}

// DisputeMessageRequest запрос сообщения в журнал спора.
type DisputeMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// ResolveDisputeRequest запрос разрешения спора.
type ResolveDisputeRequest struct {
	DecidedBy     string `json:"decided_by" binding:"required"`
	Outcome       string `json:"outcome" binding:"required"`
	Justification string `json:"justification" binding:"required"`
	JobVersion    int    `json:"job_version" binding:"min=1"`
}

// CreateReviewRequest запрос отзыва по завершённой заявке.
type CreateReviewRequest struct {
	Rating  int     `json:"rating" binding:"required,min=1,max=5"`
	Comment *string `json:"comment"`
}
