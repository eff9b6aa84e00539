package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden     ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeConflict      ErrorCode = "CONFLICT"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"

	// Доменные коды жизненного цикла заявок.
	ErrCodeInvalidStateTransition   ErrorCode = "INVALID_STATE_TRANSITION"
	ErrCodeConcurrentModification   ErrorCode = "CONCURRENT_MODIFICATION"
	ErrCodeJobAlreadyDecided        ErrorCode = "JOB_ALREADY_DECIDED"
	ErrCodeJobNotAcceptingProposals ErrorCode = "JOB_NOT_ACCEPTING_PROPOSALS"
	ErrCodeJobNotDisputable         ErrorCode = "JOB_NOT_DISPUTABLE"
	ErrCodeDisputeAlreadyOpen       ErrorCode = "DISPUTE_ALREADY_OPEN"
	ErrCodeEscrowAlreadyFinalized   ErrorCode = "ESCROW_ALREADY_FINALIZED"
	ErrCodeAuctionClosed            ErrorCode = "AUCTION_CLOSED"
	ErrCodeAuctionStillOpen         ErrorCode = "AUCTION_STILL_OPEN"
	ErrCodeBidNotLowEnough          ErrorCode = "BID_NOT_LOW_ENOUGH"
	ErrCodeCustodyOperationFailed   ErrorCode = "CUSTODY_OPERATION_FAILED"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict,
		ErrCodeInvalidStateTransition,
		ErrCodeConcurrentModification,
		ErrCodeJobAlreadyDecided,
		ErrCodeJobNotAcceptingProposals,
		ErrCodeJobNotDisputable,
		ErrCodeDisputeAlreadyOpen,
		ErrCodeEscrowAlreadyFinalized,
		ErrCodeAuctionClosed,
		ErrCodeAuctionStillOpen,
		ErrCodeBidNotLowEnough:
		return http.StatusConflict
	case ErrCodeCustodyOperationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeNotFound
}

func IsForbidden(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeForbidden
}

func IsValidation(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeValidation
}

var (
	ErrJobNotFound      = New(ErrCodeNotFound, "заявка не найдена")
	ErrProposalNotFound = New(ErrCodeNotFound, "предложение не найдено")
	ErrDisputeNotFound  = New(ErrCodeNotFound, "спор не найден")
	ErrEscrowNotFound   = New(ErrCodeNotFound, "escrow не найден")
	ErrUserNotFound     = New(ErrCodeNotFound, "пользователь не найден")
	ErrUnauthorized     = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden        = New(ErrCodeForbidden, "недостаточно прав")
)
