package handler

import (
	"context"
	"strings"

	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// WalletHandler serves wallet lifecycle, PIN, integrity and direct
// balance movement endpoints.
type WalletHandler struct {
	wallets   ports.WalletService
	ledger    ports.LedgerEngine
	pins      ports.PinGuard
	integrity ports.IntegrityService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(wallets ports.WalletService, ledger ports.LedgerEngine, pins ports.PinGuard, integrity ports.IntegrityService) *WalletHandler {
	return &WalletHandler{
		wallets:   wallets,
		ledger:    ledger,
		pins:      pins,
		integrity: integrity,
	}
}

// Create handles POST /api/v1/wallets.
func (h *WalletHandler) Create(c *gin.Context) {
	var req dto.CreateWalletRequest
	if !bindJSON(c, &req) {
		return
	}
	dto.SanitizeStruct(&req)

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		response.Error(c, apperror.Validation("user_id must be a UUID"))
		return
	}

	wallet, err := h.wallets.CreateWallet(c.Request.Context(), middleware.ActorFrom(c), ports.CreateWalletRequest{
		UserID:   userID,
		Name:     req.Name,
		Kind:     domain.WalletKind(req.Kind),
		Currency: strings.ToUpper(req.Currency),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, wallet)
}

// Get handles GET /api/v1/wallets/:id.
func (h *WalletHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	wallet, err := h.wallets.GetWallet(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, wallet)
}

// ListByUser handles GET /api/v1/users/:id/wallets.
func (h *WalletHandler) ListByUser(c *gin.Context) {
	userID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	wallets, err := h.wallets.ListWallets(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, wallets)
}

// Entries handles GET /api/v1/wallets/:id/entries.
func (h *WalletHandler) Entries(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	entries, total, err := h.wallets.History(c.Request.Context(), id, q.Page, q.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, size := q.Page, q.PageSize
	if page < 1 {
		page = 1
	}
	switch {
	case size < 1:
		size = defaultPageSize
	case size > maxPageSize:
		size = maxPageSize
	}
	response.OK(c, dto.EntriesResponse{Entries: entries, Total: total, Page: page, PageSize: size})
}

// Integrity handles GET /api/v1/wallets/:id/integrity.
func (h *WalletHandler) Integrity(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	report, err := h.integrity.VerifyWallet(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// Reseal handles POST /api/v1/wallets/:id/reseal.
func (h *WalletHandler) Reseal(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.ResealRequest
	if !bindJSON(c, &req) {
		return
	}
	dto.SanitizeStruct(&req)

	report, err := h.integrity.Reseal(c.Request.Context(), middleware.ActorFrom(c), id, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// Lock handles POST /api/v1/wallets/:id/lock.
func (h *WalletHandler) Lock(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.LockRequest
	if !bindJSON(c, &req) {
		return
	}
	dto.SanitizeStruct(&req)

	wallet, err := h.wallets.LockWallet(c.Request.Context(), middleware.ActorFrom(c), id, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, wallet)
}

// Unlock handles POST /api/v1/wallets/:id/unlock.
func (h *WalletHandler) Unlock(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	wallet, err := h.wallets.UnlockWallet(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, wallet)
}

// Deactivate handles POST /api/v1/wallets/:id/deactivate.
func (h *WalletHandler) Deactivate(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	wallet, err := h.wallets.DeactivateWallet(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, wallet)
}

// SetPIN handles PUT /api/v1/wallets/:id/pin.
func (h *WalletHandler) SetPIN(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.SetPINRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ErrPinFormat())
		return
	}

	if err := h.pins.SetPIN(c.Request.Context(), middleware.ActorFrom(c), id, req.Pin); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"wallet_id": id.String(), "pin_set": true})
}

// VerifyPIN handles POST /api/v1/wallets/:id/pin/verify.
func (h *WalletHandler) VerifyPIN(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.VerifyPINRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.pins.Verify(c.Request.Context(), id, req.Pin); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"wallet_id": id.String(), "verified": true})
}

// Credit handles POST /api/v1/wallets/:id/credit.
func (h *WalletHandler) Credit(c *gin.Context) {
	h.move(c, h.ledger.Credit)
}

// Debit handles POST /api/v1/wallets/:id/debit.
func (h *WalletHandler) Debit(c *gin.Context) {
	h.move(c, h.ledger.Debit)
}

type ledgerMove func(ctx context.Context, walletID uuid.UUID, amount int64, reference, description string) (*domain.BalanceChange, error)

func (h *WalletHandler) move(c *gin.Context, apply ledgerMove) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.AmountRequest
	if !bindJSON(c, &req) {
		return
	}
	dto.SanitizeStruct(&req)

	change, err := apply(c.Request.Context(), id, req.Amount, req.Reference, req.Description)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewBalanceChangeResponse(change))
}
