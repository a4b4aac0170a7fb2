package handler

import (
	"time"

	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// LimitHandler reports daily spend against a user's ceilings.
type LimitHandler struct {
	limits ports.LimitEnforcer
	now    func() time.Time
}

// NewLimitHandler creates a new LimitHandler.
func NewLimitHandler(limits ports.LimitEnforcer) *LimitHandler {
	return &LimitHandler{limits: limits, now: time.Now}
}

// Get handles GET /api/v1/users/:id/limits.
func (h *LimitHandler) Get(c *gin.Context) {
	userID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	limit, err := h.limits.Status(c.Request.Context(), userID, domain.LimitDay(h.now()))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewLimitResponse(limit))
}
