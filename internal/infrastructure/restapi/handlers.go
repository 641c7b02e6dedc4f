package restapi

import (
	"context"
	"errors"
	"net/http"

	"multisender/internal/app/port"
	"multisender/internal/app/service"
	"multisender/internal/domain/entity"

	"github.com/gin-gonic/gin"
)

// SessionService is the part of the connection session the API exposes.
type SessionService interface {
	State() entity.SessionState
	DepositAddress() entity.DepositAddress
	SwitchNetwork(ctx context.Context, networkID string) (entity.SessionState, error)
}

// SnapshotSource yields the live balance snapshot.
type SnapshotSource interface {
	Snapshot() entity.BalanceSnapshot
}

// TransferService is the transfer form.
type TransferService interface {
	Edit(text string) string
	View() service.FormView
	Send(ctx context.Context) (entity.TransferTicket, error)
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// TranslationResponse pairs a primary address with its rollup short address.
type TranslationResponse struct {
	Primary      string `json:"primary"`
	ShortAddress string `json:"shortAddress"`
}

type switchNetworkRequest struct {
	Network string `json:"network" binding:"required"`
}

type intentRequest struct {
	Text string `json:"text"`
}

type transferRequest struct {
	Text *string `json:"text"`
}

// Handler serves the multisend API.
type Handler struct {
	session    SessionService
	balances   SnapshotSource
	translator port.AddressTranslator
	form       TransferService
}

// NewHandler creates a new Handler.
func NewHandler(session SessionService, balances SnapshotSource, translator port.AddressTranslator, form TransferService) *Handler {
	return &Handler{
		session:    session,
		balances:   balances,
		translator: translator,
		form:       form,
	}
}

// GetSession returns the active session.
func (h *Handler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.State())
}

// SwitchNetwork moves the session to another network.
func (h *Handler) SwitchNetwork(c *gin.Context) {
	var req switchNetworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	state, err := h.session.SwitchNetwork(c.Request.Context(), req.Network)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// GetBalances returns the live balance snapshot.
func (h *Handler) GetBalances(c *gin.Context) {
	c.JSON(http.StatusOK, h.balances.Snapshot())
}

// GetDepositAddress returns the deposit address of the connected account.
func (h *Handler) GetDepositAddress(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.DepositAddress())
}

// Translate maps a primary address to its short address.
func (h *Handler) Translate(c *gin.Context) {
	primary := c.Param("address")
	short, err := h.translator.ToShortAddress(primary)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, TranslationResponse{Primary: primary, ShortAddress: short.Hex()})
}

// EditIntent replaces the form text and returns the resulting view.
func (h *Handler) EditIntent(c *gin.Context) {
	var req intentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	h.form.Edit(req.Text)
	c.JSON(http.StatusOK, h.form.View())
}

// GetForm returns the form view.
func (h *Handler) GetForm(c *gin.Context) {
	c.JSON(http.StatusOK, h.form.View())
}

// SubmitTransfer sends the form's batch. A text field in the body replaces the form text first.
func (h *Handler) SubmitTransfer(c *gin.Context) {
	var req transferRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
	}
	if req.Text != nil {
		h.form.Edit(*req.Text)
	}
	ticket, err := h.form.Send(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, ticket)
}

// GetCurrentTransfer returns the latest ticket.
func (h *Handler) GetCurrentTransfer(c *gin.Context) {
	c.JSON(http.StatusOK, h.form.View().Ticket)
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), ErrorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrTransferPending):
		return http.StatusConflict
	case errors.Is(err, entity.ErrNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, entity.ErrUnknownNetwork):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrInvalidRecipient),
		errors.Is(err, entity.ErrInvalidAmount),
		errors.Is(err, entity.ErrInvalidAddressFormat):
		return http.StatusUnprocessableEntity
	case errors.Is(err, entity.ErrConnectionUnavailable),
		errors.Is(err, entity.ErrChainMismatch),
		errors.Is(err, entity.ErrSubmissionRejected):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
