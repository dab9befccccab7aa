package admindelivery

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-casino/internal/domain"
	"github.com/go-petr/pet-casino/internal/integrationtest/helpers"
	"github.com/go-petr/pet-casino/internal/middleware"
	"github.com/go-petr/pet-casino/pkg/errorspkg"
	"github.com/go-petr/pet-casino/pkg/moneypkg"
	"github.com/go-petr/pet-casino/pkg/randompkg"
	"github.com/go-petr/pet-casino/pkg/web"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("amount", moneypkg.ValidAmount)
		_ = v.RegisterValidation("signedamount", moneypkg.ValidSignedAmount)
		_ = v.RegisterValidation("status", ValidStatus)
		_ = v.RegisterValidation("entrytype", func(fl validator.FieldLevel) bool {
			return domain.EntryType(fl.Field().String()).Valid()
		})
	}

	os.Exit(m.Run())
}

type mocks struct {
	accounts *MockAccountService
	balances *MockBalanceService
	ledger   *MockLedgerService
}

func newServer(t *testing.T, key string) (*gin.Engine, mocks) {
	t.Helper()

	ctrl := gomock.NewController(t)
	m := mocks{
		accounts: NewMockAccountService(ctrl),
		balances: NewMockBalanceService(ctrl),
		ledger:   NewMockLedgerService(ctrl),
	}
	h := NewHandler(m.accounts, m.balances, m.ledger)

	server := gin.New()
	admin := server.Group("/admin").Use(middleware.AdminKey(key))
	admin.POST("/accounts", h.CreateAccount)
	admin.GET("/accounts/:id", h.GetAccount)
	admin.PATCH("/accounts/:id/status", h.SetStatus)
	admin.POST("/accounts/:id/adjust", h.Adjust)
	admin.POST("/accounts/:id/block", h.BlockFunds)
	admin.POST("/accounts/:id/unblock", h.UnblockFunds)
	admin.GET("/accounts/:id/reconcile", h.Reconcile)
	admin.GET("/reports/transactions", h.Report)

	return server, m
}

type request struct {
	method string
	path   string
	key    string
	body   any
}

func (r request) do(t *testing.T, server *gin.Engine, data any) (int, web.Response) {
	t.Helper()

	var buf bytes.Buffer
	if r.body != nil {
		if err := json.NewEncoder(&buf).Encode(r.body); err != nil {
			t.Fatalf("Encoding request body error: %v", err)
		}
	}

	req, err := http.NewRequest(r.method, r.path, &buf)
	if err != nil {
		t.Fatalf("Creating request error: %v", err)
	}

	if r.key != "" {
		req.Header.Set(middleware.AdminKeyHeader, r.key)
	}

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)

	res := web.Response{Data: data}
	if err := json.NewDecoder(recorder.Body).Decode(&res); err != nil {
		t.Errorf("Decoding response body error: %v", err)
	}

	return recorder.Code, res
}

func TestAccounts(t *testing.T) {
	key := randompkg.String(32)
	account := helpers.RandomAccount("0", "0")
	frozen := account
	frozen.Status = domain.StatusFrozen

	testCases := []struct {
		name           string
		req            request
		buildStubs     func(m mocks)
		wantStatusCode int
		wantError      string
		wantAccount    domain.Account
	}{
		{
			name: "CreateOK",
			req:  request{http.MethodPost, "/admin/accounts", key, createRequest{Username: account.Username}},
			buildStubs: func(m mocks) {
				m.accounts.EXPECT().Create(gomock.Any(), account.Username).Times(1).Return(account, nil)
			},
			wantStatusCode: http.StatusCreated,
			wantAccount:    account,
		},
		{
			name:           "MissingAdminKey",
			req:            request{http.MethodPost, "/admin/accounts", "", createRequest{Username: account.Username}},
			buildStubs:     func(m mocks) {},
			wantStatusCode: http.StatusForbidden,
			wantError:      middleware.ErrInvalidAdminKey.Error(),
		},
		{
			name:           "WrongAdminKey",
			req:            request{http.MethodGet, "/admin/accounts/1", "wrong", nil},
			buildStubs:     func(m mocks) {},
			wantStatusCode: http.StatusForbidden,
			wantError:      middleware.ErrInvalidAdminKey.Error(),
		},
		{
			name:           "ShortUsername",
			req:            request{http.MethodPost, "/admin/accounts", key, createRequest{Username: "ab"}},
			buildStubs:     func(m mocks) {},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "Username must be at least 3",
		},
		{
			name: "UsernameAlreadyExists",
			req:  request{http.MethodPost, "/admin/accounts", key, createRequest{Username: account.Username}},
			buildStubs: func(m mocks) {
				m.accounts.EXPECT().Create(gomock.Any(), account.Username).Times(1).
					Return(domain.Account{}, domain.ErrUsernameAlreadyExists)
			},
			wantStatusCode: http.StatusConflict,
			wantError:      domain.ErrUsernameAlreadyExists.Error(),
		},
		{
			name: "GetOK",
			req:  request{http.MethodGet, "/admin/accounts/7", key, nil},
			buildStubs: func(m mocks) {
				m.accounts.EXPECT().Get(gomock.Any(), int64(7)).Times(1).Return(account, nil)
			},
			wantStatusCode: http.StatusOK,
			wantAccount:    account,
		},
		{
			name:           "GetZeroID",
			req:            request{http.MethodGet, "/admin/accounts/0", key, nil},
			buildStubs:     func(m mocks) {},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "ID is required",
		},
		{
			name: "GetNotFound",
			req:  request{http.MethodGet, "/admin/accounts/7", key, nil},
			buildStubs: func(m mocks) {
				m.accounts.EXPECT().Get(gomock.Any(), int64(7)).Times(1).
					Return(domain.Account{}, domain.ErrAccountNotFound)
			},
			wantStatusCode: http.StatusNotFound,
			wantError:      domain.ErrAccountNotFound.Error(),
		},
		{
			name: "GetInternalError",
			req:  request{http.MethodGet, "/admin/accounts/7", key, nil},
			buildStubs: func(m mocks) {
				m.accounts.EXPECT().Get(gomock.Any(), int64(7)).Times(1).
					Return(domain.Account{}, errorspkg.ErrInternal)
			},
			wantStatusCode: http.StatusInternalServerError,
			wantError:      errorspkg.ErrInternal.Error(),
		},
		{
			name: "FreezeOK",
			req:  request{http.MethodPatch, "/admin/accounts/7/status", key, statusRequest{Status: "frozen"}},
			buildStubs: func(m mocks) {
				m.accounts.EXPECT().SetStatus(gomock.Any(), int64(7), domain.StatusFrozen).Times(1).Return(frozen, nil)
			},
			wantStatusCode: http.StatusOK,
			wantAccount:    frozen,
		},
		{
			name:           "UnknownStatus",
			req:            request{http.MethodPatch, "/admin/accounts/7/status", key, statusRequest{Status: "closed"}},
			buildStubs:     func(m mocks) {},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "Status is not a supported account status",
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server, m := newServer(t, key)
			tc.buildStubs(m)

			data := &accountData{}
			code, res := tc.req.do(t, server, data)

			if code != tc.wantStatusCode {
				t.Errorf("Status code: got %v, want %v", code, tc.wantStatusCode)
			}

			if res.Error != tc.wantError {
				t.Errorf(`res.Error=%q, want %q`, res.Error, tc.wantError)
			}

			if tc.wantError != "" {
				return
			}

			if diff := cmp.Diff(tc.wantAccount, data.Account, helpers.EquateDecimal); diff != "" {
				t.Errorf("res.Data mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

type amountMatcher struct {
	want decimal.Decimal
}

func amountEq(s string) gomock.Matcher {
	return amountMatcher{want: decimal.RequireFromString(s)}
}

func (m amountMatcher) Matches(x any) bool {
	got, ok := x.(decimal.Decimal)
	return ok && got.Equal(m.want)
}

func (m amountMatcher) String() string {
	return "is equal to " + m.want.String()
}

func TestAdjust(t *testing.T) {
	key := randompkg.String(32)
	account := helpers.RandomAccount("90", "0")
	entry := helpers.RandomEntry(account.ID, 3, domain.EntryAdjustment, "100", "-10")

	type body struct {
		Amount string `json:"amount"`
	}

	testCases := []struct {
		name           string
		amount         string
		buildStubs     func(m mocks)
		wantStatusCode int
		wantError      string
	}{
		{
			name:   "NegativeOK",
			amount: "-10",
			buildStubs: func(m mocks) {
				m.balances.EXPECT().Adjust(gomock.Any(), gomock.Any()).Times(1).
					DoAndReturn(func(_ any, arg domain.MoveFundsParams) (domain.BalanceTxResult, error) {
						if arg.AccountID != account.ID || !arg.Amount.Equal(decimal.NewFromInt(-10)) {
							return domain.BalanceTxResult{}, errorspkg.ErrInternal
						}
						return domain.BalanceTxResult{Account: account, Entry: entry}, nil
					})
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "ZeroAmount",
			amount:         "0",
			buildStubs:     func(m mocks) {},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "Amount must be a non-zero amount with at most 8 decimals",
		},
		{
			name:   "InsufficientFunds",
			amount: "-1000",
			buildStubs: func(m mocks) {
				m.balances.EXPECT().Adjust(gomock.Any(), gomock.Any()).Times(1).
					Return(domain.BalanceTxResult{}, domain.ErrInsufficientFunds)
			},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantError:      domain.ErrInsufficientFunds.Error(),
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server, m := newServer(t, key)
			tc.buildStubs(m)

			path := "/admin/accounts/" + strconv.FormatInt(account.ID, 10) + "/adjust"
			data := &adjustmentData{}
			code, res := request{http.MethodPost, path, key, body{Amount: tc.amount}}.do(t, server, data)

			if code != tc.wantStatusCode {
				t.Errorf("Status code: got %v, want %v", code, tc.wantStatusCode)
			}

			if res.Error != tc.wantError {
				t.Errorf(`res.Error=%q, want %q`, res.Error, tc.wantError)
			}

			if tc.wantError != "" {
				return
			}

			if data.Entry.Type != domain.EntryAdjustment || !data.Entry.Amount.Equal(decimal.NewFromInt(-10)) {
				t.Errorf("res.Data.Entry=%+v, want adjustment of -10", data.Entry)
			}

			if !data.Account.Balance.Equal(decimal.NewFromInt(90)) {
				t.Errorf("res.Data.Account.Balance=%v, want 90", data.Account.Balance)
			}
		})
	}
}

func TestReserveFunds(t *testing.T) {
	key := randompkg.String(32)
	account := helpers.RandomAccount("100", "60")
	accountPath := "/admin/accounts/" + strconv.FormatInt(account.ID, 10)

	type body struct {
		Amount string `json:"amount"`
	}

	testCases := []struct {
		name           string
		path           string
		key            string
		amount         string
		buildStubs     func(m mocks)
		wantStatusCode int
		wantError      string
	}{
		{
			name:   "BlockOK",
			path:   accountPath + "/block",
			key:    key,
			amount: "60",
			buildStubs: func(m mocks) {
				m.balances.EXPECT().BlockFunds(gomock.Any(), account.ID, amountEq("60")).Times(1).Return(account, nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:   "BlockInsufficientAvailable",
			path:   accountPath + "/block",
			key:    key,
			amount: "50",
			buildStubs: func(m mocks) {
				m.balances.EXPECT().BlockFunds(gomock.Any(), account.ID, amountEq("50")).Times(1).
					Return(domain.Account{}, domain.ErrInsufficientAvailableFunds)
			},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantError:      domain.ErrInsufficientAvailableFunds.Error(),
		},
		{
			name:   "UnblockOK",
			path:   accountPath + "/unblock",
			key:    key,
			amount: "1000",
			buildStubs: func(m mocks) {
				m.balances.EXPECT().UnblockFunds(gomock.Any(), account.ID, amountEq("1000")).Times(1).Return(account, nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "UnblockWithoutAdminKey",
			path:           accountPath + "/unblock",
			amount:         "1000",
			buildStubs:     func(m mocks) {},
			wantStatusCode: http.StatusForbidden,
			wantError:      middleware.ErrInvalidAdminKey.Error(),
		},
		{
			name:           "ZeroAmount",
			path:           accountPath + "/unblock",
			key:            key,
			amount:         "0",
			buildStubs:     func(m mocks) {},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "Amount must be a positive amount with at most 8 decimals",
		},
		{
			name:           "InvalidID",
			path:           "/admin/accounts/0/block",
			key:            key,
			amount:         "10",
			buildStubs:     func(m mocks) {},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "ID is required",
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server, m := newServer(t, key)
			tc.buildStubs(m)

			data := &accountData{}
			code, res := request{http.MethodPost, tc.path, tc.key, body{Amount: tc.amount}}.do(t, server, data)

			if code != tc.wantStatusCode {
				t.Errorf("Status code: got %v, want %v", code, tc.wantStatusCode)
			}

			if res.Error != tc.wantError {
				t.Errorf(`res.Error=%q, want %q`, res.Error, tc.wantError)
			}

			if tc.wantError != "" {
				return
			}

			if !data.Account.Available().Equal(decimal.NewFromInt(40)) {
				t.Errorf("available=%v, want 40", data.Account.Available())
			}
		})
	}
}

func TestReconcile(t *testing.T) {
	key := randompkg.String(32)
	consistent := domain.Reconciliation{
		AccountID:  7,
		Balance:    decimal.RequireFromString("10.5"),
		LedgerSum:  decimal.RequireFromString("10.5"),
		Consistent: true,
	}
	broken := domain.Reconciliation{
		AccountID: 7,
		Balance:   decimal.RequireFromString("10.5"),
		LedgerSum: decimal.RequireFromString("9.5"),
	}

	testCases := []struct {
		name           string
		buildStubs     func(m mocks)
		wantStatusCode int
		wantError      string
		want           domain.Reconciliation
	}{
		{
			name: "Consistent",
			buildStubs: func(m mocks) {
				m.ledger.EXPECT().Reconcile(gomock.Any(), int64(7)).Times(1).Return(consistent, nil)
			},
			wantStatusCode: http.StatusOK,
			want:           consistent,
		},
		{
			name: "Mismatch",
			buildStubs: func(m mocks) {
				m.ledger.EXPECT().Reconcile(gomock.Any(), int64(7)).Times(1).
					Return(broken, domain.ErrReconciliationMismatch)
			},
			wantStatusCode: http.StatusConflict,
			wantError:      domain.ErrReconciliationMismatch.Error(),
			want:           broken,
		},
		{
			name: "NotFound",
			buildStubs: func(m mocks) {
				m.ledger.EXPECT().Reconcile(gomock.Any(), int64(7)).Times(1).
					Return(domain.Reconciliation{}, domain.ErrAccountNotFound)
			},
			wantStatusCode: http.StatusNotFound,
			wantError:      domain.ErrAccountNotFound.Error(),
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server, m := newServer(t, key)
			tc.buildStubs(m)

			data := &reconciliationData{}
			code, res := request{http.MethodGet, "/admin/accounts/7/reconcile", key, nil}.do(t, server, data)

			if code != tc.wantStatusCode {
				t.Errorf("Status code: got %v, want %v", code, tc.wantStatusCode)
			}

			if res.Error != tc.wantError {
				t.Errorf(`res.Error=%q, want %q`, res.Error, tc.wantError)
			}

			if diff := cmp.Diff(tc.want, data.Reconciliation, helpers.EquateDecimal); diff != "" {
				t.Errorf("res.Data mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReport(t *testing.T) {
	key := randompkg.String(32)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC)
	bet := domain.EntryBet
	report := domain.Report{
		domain.EntryBet: {TotalAmount: decimal.RequireFromString("-42.5"), Count: 5},
	}

	testCases := []struct {
		name           string
		query          string
		buildStubs     func(m mocks)
		wantStatusCode int
		wantError      string
	}{
		{
			name:  "OK",
			query: "?start=2026-01-01T00:00:00Z&end=2026-01-31T23:59:59Z&type=bet",
			buildStubs: func(m mocks) {
				m.ledger.EXPECT().Report(gomock.Any(), start, end, &bet).Times(1).Return(report, nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "MissingEnd",
			query:          "?start=2026-01-01T00:00:00Z",
			buildStubs:     func(m mocks) {},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "End is required",
		},
		{
			name:           "MalformedStart",
			query:          "?start=yesterday&end=2026-01-31T23:59:59Z",
			buildStubs:     func(m mocks) {},
			wantStatusCode: http.StatusBadRequest,
			wantError:      domain.ErrInvalidTimeRange.Error(),
		},
		{
			name:           "UnknownType",
			query:          "?start=2026-01-01T00:00:00Z&end=2026-01-31T23:59:59Z&type=jackpot",
			buildStubs:     func(m mocks) {},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "Type is not a supported entry type",
		},
		{
			name:  "EndBeforeStart",
			query: "?start=2026-01-31T23:59:59Z&end=2026-01-01T00:00:00Z",
			buildStubs: func(m mocks) {
				m.ledger.EXPECT().Report(gomock.Any(), end, start, nil).Times(1).
					Return(nil, domain.ErrInvalidTimeRange)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      domain.ErrInvalidTimeRange.Error(),
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server, m := newServer(t, key)
			tc.buildStubs(m)

			data := &reportData{}
			code, res := request{http.MethodGet, "/admin/reports/transactions" + tc.query, key, nil}.do(t, server, data)

			if code != tc.wantStatusCode {
				t.Errorf("Status code: got %v, want %v", code, tc.wantStatusCode)
			}

			if res.Error != tc.wantError {
				t.Errorf(`res.Error=%q, want %q`, res.Error, tc.wantError)
			}

			if tc.wantError != "" {
				return
			}

			if diff := cmp.Diff(report, data.Report, helpers.EquateDecimal); diff != "" {
				t.Errorf("res.Data.Report mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
