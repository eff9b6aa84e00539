package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dkravchenko/servicehub-backend/internal/dto"
	"github.com/dkravchenko/servicehub-backend/internal/models"
	"github.com/dkravchenko/servicehub-backend/internal/http/handlers/common"
	"github.com/dkravchenko/servicehub-backend/internal/repository"
	"github.com/dkravchenko/servicehub-backend/internal/service"
	"github.com/dkravchenko/servicehub-backend/internal/validation"
)

// JobHandler обрабатывает жизненный цикл заявок.
type JobHandler struct {
	svc         *service.JobService
	historyRepo *repository.JobHistoryRepository
}

// NewJobHandler создаёт новый хэндлер.
func NewJobHandler(s *service.JobService, historyRepo *repository.JobHistoryRepository) *JobHandler {
	return &JobHandler{svc: s, historyRepo: historyRepo}
}

// Create POST /jobs
func (h *JobHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	if err := validation.ValidateCategory(req.Category); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	if err := validation.ValidateJobDescription(req.Description); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var auctionFor time.Duration
	if req.AuctionFor != "" {
		auctionFor, err = time.ParseDuration(req.AuctionFor)
		if err != nil {
			common.RespondBadRequest(c, "некорректный формат auction_for")
			return
		}
	}

	job, err := h.svc.CreateJob(c.Request.Context(), service.CreateJobInput{
		ClientID:    userID,
		Category:    req.Category,
		Description: req.Description,
		ServiceType: req.ServiceType,
		Urgency:     req.Urgency,
		Mode:        req.Mode,
		FixedPrice:  req.FixedPrice,
		AuctionFor:  auctionFor,
	})
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	c.JSON(http.StatusCreated, job)
}

// Get GET /jobs/:id
func (h *JobHandler) Get(c *gin.Context) {
	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	job, err := h.svc.GetJob(c.Request.Context(), jobID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// List GET /jobs
func (h *JobHandler) List(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	params := repository.JobFilterParams{
		Status:   c.Query("status"),
		Category: c.Query("category"),
		Mode:     c.Query("mode"),
		Limit:    limit,
		Offset:   offset,
	}

	if c.Query("mine") == "true" {
		userID, err := common.CurrentUserID(c)
		if err != nil {
			common.RespondUnauthorized(c, err.Error())
			return
		}
		params.ParticipantID = &userID
	}

	jobs, err := h.svc.ListJobs(c.Request.Context(), params)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.PaginatedJobsResponse{Jobs: jobs, Limit: limit, Offset: offset})
}

// Schedule POST /jobs/:id/schedule
func (h *JobHandler) Schedule(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.ScheduleJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	job, err := h.svc.Schedule(c.Request.Context(), jobID, userID, req.ScheduledAt, req.Version)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// EnRoute POST /jobs/:id/en-route
func (h *JobHandler) EnRoute(c *gin.Context) {
	h.transition(c, h.svc.MarkEnRoute)
}

// Start POST /jobs/:id/start
func (h *JobHandler) Start(c *gin.Context) {
	h.transition(c, h.svc.StartProgress)
}

// RequestPayment POST /jobs/:id/request-payment
func (h *JobHandler) RequestPayment(c *gin.Context) {
	h.transition(c, h.svc.RequestPayment)
}

// Cancel POST /jobs/:id/cancel
func (h *JobHandler) Cancel(c *gin.Context) {
	h.transition(c, h.svc.Cancel)
}

// Complete POST /jobs/:id/complete
func (h *JobHandler) Complete(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	job, escrow, err := h.svc.Complete(c.Request.Context(), jobID, userID, req.Version)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.AcceptResponse{Job: job, Escrow: escrow})
}

// History GET /jobs/:id/history
func (h *JobHandler) History(c *gin.Context) {
	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	entries, err := h.historyRepo.ListByJob(c.Request.Context(), jobID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// transition общий каркас простых переходов статуса: извлекает
// пользователя, заявку и версию, доменные ошибки уходят в
// централизованный обработчик.
func (h *JobHandler) transition(c *gin.Context, fn func(ctx context.Context, jobID, userID uuid.UUID, version int) (*models.Job, error)) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	job, err := fn(c.Request.Context(), jobID, userID, req.Version)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, job)
}
