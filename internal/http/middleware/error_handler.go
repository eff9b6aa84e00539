package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/dkravchenko/servicehub-backend/internal/custody"
	"github.com/dkravchenko/servicehub-backend/internal/logger"
	"github.com/dkravchenko/servicehub-backend/internal/pkg/apperror"
	"github.com/dkravchenko/servicehub-backend/internal/repository"
	"github.com/dkravchenko/servicehub-backend/internal/repository/common"
	"github.com/dkravchenko/servicehub-backend/internal/service"
)

// errorMapping переводит доменную ошибку в код ответа.
type errorMapping struct {
	sentinel error
	code     apperror.ErrorCode
	message  string
}

// Порядок важен: первое совпадение по errors.Is выигрывает.
var errorMappings = []errorMapping{
	{service.ErrInvalidStateTransition, apperror.ErrCodeInvalidStateTransition, "недопустимый переход статуса заявки"},
	{common.ErrConcurrentModification, apperror.ErrCodeConcurrentModification, "запись изменена параллельным запросом, повторите с актуальной версией"},
	{repository.ErrJobAlreadyDecided, apperror.ErrCodeJobAlreadyDecided, "исполнитель по заявке уже выбран"},
	{service.ErrJobNotAcceptingProposals, apperror.ErrCodeJobNotAcceptingProposals, "заявка не принимает предложения"},
	{service.ErrJobNotDisputable, apperror.ErrCodeJobNotDisputable, "по заявке нельзя открыть спор в текущем статусе"},
	{service.ErrDisputeAlreadyOpen, apperror.ErrCodeDisputeAlreadyOpen, "по заявке уже открыт спор"},
	{repository.ErrDisputeAlreadyResolved, apperror.ErrCodeConflict, "спор уже разрешён"},
	{repository.ErrEscrowAlreadyFinalized, apperror.ErrCodeEscrowAlreadyFinalized, "escrow уже финализирован"},
	{repository.ErrAuctionClosed, apperror.ErrCodeAuctionClosed, "аукцион завершён"},
	{service.ErrAuctionStillOpen, apperror.ErrCodeAuctionStillOpen, "аукцион ещё не завершён"},
	{repository.ErrBidNotLowEnough, apperror.ErrCodeBidNotLowEnough, "ставка должна быть строго ниже текущего минимума"},
	{custody.ErrCustodyOperationFailed, apperror.ErrCodeCustodyOperationFailed, "операция с удержанием средств не подтверждена"},
	{service.ErrProposalAlreadyExists, apperror.ErrCodeConflict, "у исполнителя уже есть действующее предложение"},
	{service.ErrProposalNotPending, apperror.ErrCodeConflict, "предложение уже рассмотрено"},
	{service.ErrReviewAlreadyExists, apperror.ErrCodeConflict, "отзыв уже оставлен"},
	{service.ErrJobNotCompleted, apperror.ErrCodeConflict, "заявка ещё не завершена"},
	{service.ErrNotAuctionJob, apperror.ErrCodeBadRequest, "заявка не в аукционном режиме"},
	{service.ErrNotParticipant, apperror.ErrCodeForbidden, "доступ только участникам заявки"},
	{service.ErrOperatorOnly, apperror.ErrCodeForbidden, "операция доступна только оператору"},
	{repository.ErrJobNotFound, apperror.ErrCodeNotFound, "заявка не найдена"},
	{repository.ErrProposalNotFound, apperror.ErrCodeNotFound, "предложение не найдено"},
	{repository.ErrBidNotFound, apperror.ErrCodeNotFound, "ставка не найдена"},
	{repository.ErrEscrowNotFound, apperror.ErrCodeNotFound, "escrow не найден"},
	{repository.ErrDisputeNotFound, apperror.ErrCodeNotFound, "спор не найден"},
	{repository.ErrUserNotFound, apperror.ErrCodeNotFound, "пользователь не найден"},
	{repository.ErrNotificationNotFound, apperror.ErrCodeNotFound, "уведомление не найдено"},
}

// ErrorHandler обрабатывает ошибки централизованно: доменные ошибки
// переводятся в стабильные коды, внутренние маскируются.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		logger.Log.WithFields(logrus.Fields{
			"error":  err.Error(),
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		}).Error("Request error")

		for _, m := range errorMappings {
			if errors.Is(err, m.sentinel) {
				appErr := apperror.New(m.code, m.message)
				c.JSON(appErr.HTTPStatus, gin.H{
					"error": appErr.Message,
					"code":  appErr.Code,
				})
				return
			}
		}

		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			c.JSON(appErr.HTTPStatus, gin.H{
				"error": appErr.Message,
				"code":  appErr.Code,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "внутренняя ошибка сервера",
			"code":  apperror.ErrCodeInternal,
		})
	}
}
