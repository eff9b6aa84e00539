package dto

import (
	"github.com/dkravchenko/servicehub-backend/internal/models"
)

// ErrorResponse стандартный ответ с ошибкой.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse стандартный ответ с данными.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// AuthResponse ответ регистрации и входа.
type AuthResponse struct {
	User   *models.User `json:"user"`
	Tokens interface{}  `json:"tokens"`
}

// AcceptResponse ответ на принятие предложения или ставки.
type AcceptResponse struct {
	Job    *models.Job    `json:"job"`
	Escrow *models.Escrow `json:"escrow"`
	Bid    *models.Bid    `json:"bid,omitempty"`
}

// PaginatedJobsResponse постраничный список заявок.
type PaginatedJobsResponse struct {
	Jobs   []models.Job `json:"jobs"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// RatingResponse сводка рейтинга пользователя.
type RatingResponse struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// UnreadCountResponse количество непрочитанных уведомлений.
type UnreadCountResponse struct {
	Count int `json:"count"`
}
