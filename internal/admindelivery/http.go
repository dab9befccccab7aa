// Package admindelivery manages delivery layer of the operator API.
package admindelivery

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-casino/internal/domain"
	"github.com/go-petr/pet-casino/pkg/errorspkg"
	"github.com/go-petr/pet-casino/pkg/moneypkg"
	"github.com/go-petr/pet-casino/pkg/web"
)

// AccountService provides account management needed by admin delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package admindelivery
type AccountService interface {
	Create(ctx context.Context, username string) (domain.Account, error)
	Get(ctx context.Context, id int64) (domain.Account, error)
	SetStatus(ctx context.Context, id int64, status domain.AccountStatus) (domain.Account, error)
}

// BalanceService provides manual balance corrections and fund reservations.
type BalanceService interface {
	Adjust(ctx context.Context, arg domain.MoveFundsParams) (domain.BalanceTxResult, error)
	BlockFunds(ctx context.Context, id int64, amount decimal.Decimal) (domain.Account, error)
	UnblockFunds(ctx context.Context, id int64, amount decimal.Decimal) (domain.Account, error)
}

// LedgerService provides ledger audits.
type LedgerService interface {
	Reconcile(ctx context.Context, accountID int64) (domain.Reconciliation, error)
	Report(ctx context.Context, start, end time.Time, typ *domain.EntryType) (domain.Report, error)
}

// Handler facilitates admin delivery layer logic.
type Handler struct {
	accounts AccountService
	balances BalanceService
	ledger   LedgerService
}

// NewHandler returns admin handler.
func NewHandler(as AccountService, bs BalanceService, ls LedgerService) Handler {
	return Handler{accounts: as, balances: bs, ledger: ls}
}

type accountData struct {
	Account domain.Account `json:"account"`
}

type adjustmentData struct {
	Account  domain.Account `json:"account"`
	Entry    domain.Entry   `json:"entry"`
	Replayed bool           `json:"replayed"`
}

type reconciliationData struct {
	Reconciliation domain.Reconciliation `json:"reconciliation"`
}

type reportData struct {
	Start  time.Time     `json:"start"`
	End    time.Time     `json:"end"`
	Report domain.Report `json:"report"`
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUsernameAlreadyExists),
		errors.Is(err, domain.ErrIdempotencyConflict),
		errors.Is(err, domain.ErrReconciliationMismatch):
		return http.StatusConflict
	case errors.Is(err, domain.ErrAccountInactive):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrInsufficientAvailableFunds):
		return http.StatusUnprocessableEntity
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

type accountURI struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}

type createRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
}

// CreateAccount handles http request to register an account with zero balance.
func (h *Handler) CreateAccount(gctx *gin.Context) {
	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		bindingError(gctx, err)
		return
	}

	account, err := h.accounts.Create(gctx.Request.Context(), req.Username)
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusCreated, web.Response{Data: accountData{account}})
}

// GetAccount handles http request to get an account.
func (h *Handler) GetAccount(gctx *gin.Context) {
	var uri accountURI
	if err := gctx.ShouldBindUri(&uri); err != nil {
		bindingError(gctx, err)
		return
	}

	account, err := h.accounts.Get(gctx.Request.Context(), uri.ID)
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: accountData{account}})
}

type statusRequest struct {
	Status string `json:"status" binding:"required,status"`
}

// SetStatus handles http request to change the lifecycle status of an account.
func (h *Handler) SetStatus(gctx *gin.Context) {
	var uri accountURI
	if err := gctx.ShouldBindUri(&uri); err != nil {
		bindingError(gctx, err)
		return
	}

	var req statusRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		bindingError(gctx, err)
		return
	}

	account, err := h.accounts.SetStatus(gctx.Request.Context(), uri.ID, domain.AccountStatus(req.Status))
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: accountData{account}})
}

type adjustRequest struct {
	Amount   string          `json:"amount" binding:"required,signedamount"`
	Metadata domain.Metadata `json:"metadata"`
}

// Adjust handles http request to correct an account balance with an adjustment entry.
func (h *Handler) Adjust(gctx *gin.Context) {
	var uri accountURI
	if err := gctx.ShouldBindUri(&uri); err != nil {
		bindingError(gctx, err)
		return
	}

	var req adjustRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		bindingError(gctx, err)
		return
	}

	amount, err := moneypkg.Parse(req.Amount)
	if err != nil {
		bindingError(gctx, err)
		return
	}

	res, err := h.balances.Adjust(gctx.Request.Context(), domain.MoveFundsParams{
		AccountID:      uri.ID,
		Amount:         amount,
		Metadata:       req.Metadata,
		IdempotencyKey: gctx.GetHeader(web.IdempotencyKeyHeader),
	})
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: adjustmentData{
		Account:  res.Account,
		Entry:    res.Entry,
		Replayed: res.Replayed,
	}})
}

type reserveRequest struct {
	Amount string `json:"amount" binding:"required,amount"`
}

// BlockFunds handles http request to reserve part of an account available balance.
func (h *Handler) BlockFunds(gctx *gin.Context) {
	h.reserve(gctx, h.balances.BlockFunds)
}

// UnblockFunds handles http request to release reserved funds of an account.
func (h *Handler) UnblockFunds(gctx *gin.Context) {
	h.reserve(gctx, h.balances.UnblockFunds)
}

func (h *Handler) reserve(gctx *gin.Context, op func(context.Context, int64, decimal.Decimal) (domain.Account, error)) {
	var uri accountURI
	if err := gctx.ShouldBindUri(&uri); err != nil {
		bindingError(gctx, err)
		return
	}

	var req reserveRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		bindingError(gctx, err)
		return
	}

	amount, err := moneypkg.Parse(req.Amount)
	if err != nil {
		bindingError(gctx, err)
		return
	}

	account, err := op(gctx.Request.Context(), uri.ID, amount)
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: accountData{account}})
}

// Reconcile handles http request to compare an account balance with its ledger.
// A mismatch is reported with 409 and the compared values.
func (h *Handler) Reconcile(gctx *gin.Context) {
	var uri accountURI
	if err := gctx.ShouldBindUri(&uri); err != nil {
		bindingError(gctx, err)
		return
	}

	rec, err := h.ledger.Reconcile(gctx.Request.Context(), uri.ID)
	if errors.Is(err, domain.ErrReconciliationMismatch) {
		gctx.JSON(http.StatusConflict, web.Response{
			Data:  reconciliationData{rec},
			Error: err.Error(),
		})

		return
	}

	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: reconciliationData{rec}})
}

type reportRequest struct {
	Start string `form:"start" binding:"required"`
	End   string `form:"end" binding:"required"`
	Type  string `form:"type" binding:"omitempty,entrytype"`
}

// Report handles http request to aggregate ledger entries by type over [start, end].
// Bounds are RFC 3339 timestamps.
func (h *Handler) Report(gctx *gin.Context) {
	var req reportRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		bindingError(gctx, err)
		return
	}

	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		bindingError(gctx, domain.ErrInvalidTimeRange)
		return
	}

	end, err := time.Parse(time.RFC3339, req.End)
	if err != nil {
		bindingError(gctx, domain.ErrInvalidTimeRange)
		return
	}

	var typ *domain.EntryType
	if req.Type != "" {
		t := domain.EntryType(req.Type)
		typ = &t
	}

	report, err := h.ledger.Report(gctx.Request.Context(), start, end, typ)
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: reportData{Start: start, End: end, Report: report}})
}
