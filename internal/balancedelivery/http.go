// Package balancedelivery manages delivery layer of player balances.
package balancedelivery

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-casino/internal/domain"
	"github.com/go-petr/pet-casino/internal/middleware"
	"github.com/go-petr/pet-casino/pkg/errorspkg"
	"github.com/go-petr/pet-casino/pkg/moneypkg"
	"github.com/go-petr/pet-casino/pkg/web"
)

// Service provides service layer interface needed by balance delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package balancedelivery
type Service interface {
	GetBalance(ctx context.Context, id int64) (domain.BalanceView, error)
	Deposit(ctx context.Context, arg domain.MoveFundsParams) (domain.BalanceTxResult, error)
	Withdraw(ctx context.Context, arg domain.MoveFundsParams) (domain.BalanceTxResult, error)
}

// LedgerService provides ledger reads needed by balance delivery layer.
type LedgerService interface {
	List(ctx context.Context, accountID int64, arg domain.ListEntriesParams) (domain.EntryPage, error)
}

// Handler facilitates balance delivery layer logic.
type Handler struct {
	service Service
	ledger  LedgerService
}

// NewHandler returns balance handler.
func NewHandler(bs Service, ls LedgerService) Handler {
	return Handler{service: bs, ledger: ls}
}

type balanceData struct {
	Balance domain.BalanceView `json:"balance"`
}

type movementData struct {
	Balance  domain.BalanceView `json:"balance"`
	Entry    domain.Entry       `json:"entry"`
	Replayed bool               `json:"replayed"`
}

type historyData struct {
	History domain.EntryPage `json:"history"`
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAccountInactive):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrInsufficientAvailableFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrIdempotencyConflict):
		return http.StatusConflict
	case domain.IsBusinessError(err):
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}

func respondError(gctx *gin.Context, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		err = errorspkg.ErrInternal
	}

	gctx.JSON(status, web.Error(err))
}

func bindingError(gctx *gin.Context, err error) {
	zerolog.Ctx(gctx.Request.Context()).Info().Err(err).Send()
	gctx.JSON(http.StatusBadRequest, web.Response{Error: web.ValidationMsg(err)})
}

// GetBalance handles http request to get the balance of the authenticated account.
func (h *Handler) GetBalance(gctx *gin.Context) {
	view, err := h.service.GetBalance(gctx.Request.Context(), middleware.AccountID(gctx))
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: balanceData{view}})
}

type movementRequest struct {
	Amount   string          `json:"amount" binding:"required,amount"`
	Metadata domain.Metadata `json:"metadata"`
}

// Deposit handles http request to credit the authenticated account.
func (h *Handler) Deposit(gctx *gin.Context) {
	h.move(gctx, h.service.Deposit)
}

// Withdraw handles http request to debit the authenticated account.
func (h *Handler) Withdraw(gctx *gin.Context) {
	h.move(gctx, h.service.Withdraw)
}

func (h *Handler) move(gctx *gin.Context, op func(context.Context, domain.MoveFundsParams) (domain.BalanceTxResult, error)) {
	var req movementRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		bindingError(gctx, err)
		return
	}

	amount, err := moneypkg.Parse(req.Amount)
	if err != nil {
		bindingError(gctx, err)
		return
	}

	res, err := op(gctx.Request.Context(), domain.MoveFundsParams{
		AccountID:      middleware.AccountID(gctx),
		Amount:         amount,
		Metadata:       req.Metadata,
		IdempotencyKey: gctx.GetHeader(web.IdempotencyKeyHeader),
	})
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: movementData{
		Balance:  res.Account.View(),
		Entry:    res.Entry,
		Replayed: res.Replayed,
	}})
}

type historyRequest struct {
	Page  int32  `form:"page" binding:"omitempty,min=1"`
	Limit int32  `form:"limit" binding:"omitempty,min=1"`
	Type  string `form:"type" binding:"omitempty,entrytype"`
}

// History handles http request to page through the ledger of the authenticated account.
func (h *Handler) History(gctx *gin.Context) {
	var req historyRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		bindingError(gctx, err)
		return
	}

	arg := domain.ListEntriesParams{Page: req.Page, Limit: req.Limit}
	if req.Type != "" {
		t := domain.EntryType(req.Type)
		arg.Type = &t
	}

	page, err := h.ledger.List(gctx.Request.Context(), middleware.AccountID(gctx), arg)
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: historyData{page}})
}
