package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dkravchenko/servicehub-backend/internal/dto"
	"github.com/dkravchenko/servicehub-backend/internal/http/handlers/common"
	"github.com/dkravchenko/servicehub-backend/internal/service"
	"github.com/dkravchenko/servicehub-backend/internal/validation"
)

// ProposalHandler обрабатывает отклики исполнителей.
type ProposalHandler struct {
	svc *service.ProposalService
}

// NewProposalHandler создаёт новый хэндлер.
func NewProposalHandler(s *service.ProposalService) *ProposalHandler {
	return &ProposalHandler{svc: s}
}

// Submit POST /jobs/:id/proposals
func (h *ProposalHandler) Submit(c *gin.Context) {
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

	var req dto.CreateProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	if err := validation.ValidatePrice("цена предложения", req.Price); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	proposal, err := h.svc.Submit(c.Request.Context(), jobID, userID, req.Price, req.Message)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, proposal)
}

// ListByJob GET /jobs/:id/proposals
func (h *ProposalHandler) ListByJob(c *gin.Context) {
	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	proposals, err := h.svc.ListByJob(c.Request.Context(), jobID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, proposals)
}

// ListMine GET /proposals/mine
func (h *ProposalHandler) ListMine(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	proposals, err := h.svc.ListByProvider(c.Request.Context(), userID, limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, proposals)
}

// Block POST /operator/proposals/:id/block — модерация оператором.
func (h *ProposalHandler) Block(c *gin.Context) {
	proposalID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	proposal, err := h.svc.Block(c.Request.Context(), proposalID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, proposal)
}

// Accept POST /jobs/:id/proposals/:proposalId/accept
func (h *ProposalHandler) Accept(c *gin.Context) {
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

	proposalID, err := common.ParseUUIDParam(c, "proposalId")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.AcceptProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	job, escrow, err := h.svc.Accept(c.Request.Context(), jobID, proposalID, userID, req.Version)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.AcceptResponse{Job: job, Escrow: escrow})
}
