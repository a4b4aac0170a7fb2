package handler

import (
	"strings"

	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey carries the client-chosen key for a transfer.
const HeaderIdempotencyKey = "Idempotency-Key"

// TransferHandler serves money movement endpoints.
type TransferHandler struct {
	transfers ports.TransferService
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transfers ports.TransferService) *TransferHandler {
	return &TransferHandler{transfers: transfers}
}

// Create handles POST /api/v1/transfers. The Idempotency-Key header is
// optional; a replayed request answers 200 with the original result and the
// Idempotent-Replayed header.
func (h *TransferHandler) Create(c *gin.Context) {
	key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
	if key != "" && !dto.ValidIdempotencyKey(key) {
		response.Error(c, apperror.Validation(HeaderIdempotencyKey+" header has invalid characters"))
		return
	}

	var req dto.TransferRequest
	if !bindJSON(c, &req) {
		return
	}
	dto.SanitizeStruct(&req)

	sender, err := optionalUUID(req.SenderWalletID)
	if err != nil {
		response.Error(c, apperror.Validation("sender_wallet_id must be a UUID"))
		return
	}
	receiver, err := optionalUUID(req.ReceiverWalletID)
	if err != nil {
		response.Error(c, apperror.Validation("receiver_wallet_id must be a UUID"))
		return
	}

	result, err := h.transfers.Transfer(c.Request.Context(), ports.TransferRequest{
		SenderWalletID:   sender,
		ReceiverWalletID: receiver,
		Amount:           req.Amount,
		Currency:         strings.ToUpper(req.Currency),
		Type:             domain.TransactionType(req.Type),
		IdempotencyKey:   key,
		Description:      req.Description,
		Pin:              req.Pin,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if result.Replayed {
		response.Replayed(c, result)
		return
	}
	response.Created(c, result)
}

// Get handles GET /api/v1/transfers/:reference.
func (h *TransferHandler) Get(c *gin.Context) {
	reference := c.Param("reference")
	if reference == "" || !dto.ValidIdempotencyKey(reference) {
		response.Error(c, apperror.Validation("reference is malformed"))
		return
	}

	result, err := h.transfers.GetByReference(c.Request.Context(), reference)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
