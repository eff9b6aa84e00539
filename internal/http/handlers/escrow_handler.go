package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dkravchenko/servicehub-backend/internal/http/handlers/common"
	"github.com/dkravchenko/servicehub-backend/internal/service"
)

// EscrowHandler предоставляет чтение эскроу-счетов.
type EscrowHandler struct {
	svc *service.EscrowService
}

// NewEscrowHandler создаёт новый хэндлер.
func NewEscrowHandler(s *service.EscrowService) *EscrowHandler {
	return &EscrowHandler{svc: s}
}

// GetByJob GET /jobs/:id/escrow
func (h *EscrowHandler) GetByJob(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, err := common.CurrentUserRole(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	escrow, err := h.svc.GetByJob(c.Request.Context(), jobID, userID, role)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, escrow)
}

// ListMine GET /escrow/mine
func (h *EscrowHandler) ListMine(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	escrows, err := h.svc.ListMine(c.Request.Context(), userID, limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, escrows)
}
