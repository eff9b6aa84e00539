package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dkravchenko/servicehub-backend/internal/dto"
	"github.com/dkravchenko/servicehub-backend/internal/http/handlers/common"
	"github.com/dkravchenko/servicehub-backend/internal/service"
	"github.com/dkravchenko/servicehub-backend/internal/validation"
)

// AuctionHandler обрабатывает обратный аукцион.
type AuctionHandler struct {
	svc *service.AuctionService
}

// NewAuctionHandler создаёт новый хэндлер.
func NewAuctionHandler(s *service.AuctionService) *AuctionHandler {
	return &AuctionHandler{svc: s}
}

// SubmitBid POST /jobs/:id/bids
func (h *AuctionHandler) SubmitBid(c *gin.Context) {
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

	var req dto.CreateBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	if err := validation.ValidatePrice("сумма ставки", req.Amount); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	bid, err := h.svc.SubmitBid(c.Request.Context(), jobID, userID, req.Amount)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, bid)
}

// State GET /jobs/:id/auction
func (h *AuctionHandler) State(c *gin.Context) {
	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	state, err := h.svc.State(c.Request.Context(), jobID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// ListBids GET /jobs/:id/bids
func (h *AuctionHandler) ListBids(c *gin.Context) {
	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	bids, err := h.svc.ListBids(c.Request.Context(), jobID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, bids)
}

// ListBidsFull GET /operator/jobs/:id/bids — ставки с исполнителями.
func (h *AuctionHandler) ListBidsFull(c *gin.Context) {
	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	bids, err := h.svc.ListBidsFull(c.Request.Context(), jobID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, bids)
}

// AcceptLowest POST /jobs/:id/auction/accept
func (h *AuctionHandler) AcceptLowest(c *gin.Context) {
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

	job, escrow, bid, err := h.svc.AcceptLowest(c.Request.Context(), jobID, userID, req.Version)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.AcceptResponse{Job: job, Escrow: escrow, Bid: bid})
}
