package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/storage/memory"
)

type apiClient struct {
	t      *testing.T
	server *Server
}

func newTestServer(t *testing.T, opts Options) *apiClient {
	t.Helper()
	store := memory.New()
	tokens, err := auth.NewTokenIssuer("test-secret", "fintrack-test", time.Hour)
	require.NoError(t, err)
	svc := services.Options{}
	deps := Deps{
		Auth:     auth.NewProvider(store, tokens, cache.NewLRUCache[core.User](16, time.Minute)),
		Wallets:  services.NewWalletService(store, svc),
		Expenses: services.NewExpenseService(store, svc),
		Goals:    services.NewGoalService(store, svc),
		Budgets:  services.NewBudgetService(store, svc),
		Store:    store,
	}
	s := NewServer(":0", deps, opts)
	t.Cleanup(func() { s.limiter.Stop() })
	return &apiClient{t: t, server: s}
}

func (c *apiClient) do(method, path, token string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c.server.Handler.ServeHTTP(rec, req)
	return rec
}

// signup registers email and returns a bearer token obtained via the form grant.
func (c *apiClient) signup(email string) string {
	c.t.Helper()
	rec := c.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": email, "password": "hunter22", "full_name": "Test User",
	})
	require.Equal(c.t, http.StatusCreated, rec.Code, rec.Body.String())

	form := url.Values{"username": {email}, "password": {"hunter22"}}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	out := httptest.NewRecorder()
	c.server.Handler.ServeHTTP(out, req)
	require.Equal(c.t, http.StatusOK, out.Code, out.Body.String())

	var tok struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(c.t, json.Unmarshal(out.Body.Bytes(), &tok))
	require.Equal(c.t, "bearer", tok.TokenType)
	require.NotEmpty(c.t, tok.AccessToken)
	return tok.AccessToken
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestHealthAndReady(t *testing.T) {
	c := newTestServer(t, Options{})

	rec := c.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = c.do(http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	c := newTestServer(t, Options{})

	rec := c.do(http.MethodGet, "/api/wallets", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, CodeUnauthenticated, decode[apiError](t, rec).Error.Code)

	rec = c.do(http.MethodGet, "/api/wallets", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterAndLogin(t *testing.T) {
	c := newTestServer(t, Options{})
	token := c.signup("ana@example.com")

	rec := c.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[core.User](t, rec)
	assert.Equal(t, "ana@example.com", me.Email)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = c.do(http.MethodPost, "/api/auth/register", "", map[string]string{"email": "ana@example.com", "password": "x"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, CodeEmailTaken, decode[apiError](t, rec).Error.Code)

	rec = c.do(http.MethodPost, "/api/auth/token", "", map[string]string{"email": "ana@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = c.do(http.MethodPost, "/api/auth/token", "", map[string]string{"username": "ana@example.com", "password": "hunter22"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWalletAndExpenseFlow(t *testing.T) {
	c := newTestServer(t, Options{})
	ana := c.signup("ana@example.com")
	bob := c.signup("bob@example.com")

	rec := c.do(http.MethodPost, "/api/wallets", ana, map[string]any{"name": "Main", "balance": "100.00"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	wallet := decode[core.Wallet](t, rec)
	assert.Equal(t, core.WalletPersonal, wallet.Type)
	assert.Equal(t, "INR", wallet.Currency)
	assert.Equal(t, []string{}, wallet.SharedWith)

	rec = c.do(http.MethodPost, "/api/expenses", ana, map[string]any{
		"amount": 30, "category": "food", "wallet_id": wallet.ID, "date": "2025-03-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	expense := decode[core.Expense](t, rec)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), expense.Date)

	rec = c.do(http.MethodGet, "/api/wallets/"+wallet.ID, ana, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "70.00", decode[core.Wallet](t, rec).Balance.String())

	rec = c.do(http.MethodPut, "/api/expenses/"+expense.ID, ana, map[string]any{"amount": "50.00"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = c.do(http.MethodGet, "/api/wallets/"+wallet.ID, ana, nil)
	assert.Equal(t, "50.00", decode[core.Wallet](t, rec).Balance.String())

	rec = c.do(http.MethodGet, "/api/expenses?wallet_id="+wallet.ID+"&end_date=2025-03-01", ana, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]core.Expense](t, rec), 1)

	rec = c.do(http.MethodGet, "/api/expenses?start_date=yesterday", ana, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodGet, "/api/wallets/"+wallet.ID, bob, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = c.do(http.MethodGet, "/api/expenses/"+expense.ID, bob, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = c.do(http.MethodDelete, "/api/wallets/"+wallet.ID, ana, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, CodeWalletNotEmpty, decode[apiError](t, rec).Error.Code)

	rec = c.do(http.MethodDelete, "/api/expenses/"+expense.ID, ana, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = c.do(http.MethodPost, "/api/wallets/"+wallet.ID+"/add_balance", ana, map[string]any{"amount": "-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeInvalidAmount, decode[apiError](t, rec).Error.Code)

	rec = c.do(http.MethodPost, "/api/wallets/"+wallet.ID+"/add_balance", ana, map[string]any{"amount": "25.50"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "125.50", decode[core.Wallet](t, rec).Balance.String())

	rec = c.do(http.MethodDelete, "/api/wallets/"+wallet.ID, ana, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = c.do(http.MethodGet, "/api/wallets/"+wallet.ID, ana, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGoalFunding(t *testing.T) {
	c := newTestServer(t, Options{})
	ana := c.signup("ana@example.com")

	wallet := decode[core.Wallet](t, c.do(http.MethodPost, "/api/wallets", ana, map[string]any{"name": "Savings", "balance": 60}))

	rec := c.do(http.MethodPost, "/api/goals", ana, map[string]any{
		"name": "Bike", "target_amount": 50, "deadline": "2025-12-31", "is_completed": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	goal := decode[core.Goal](t, rec)
	assert.False(t, goal.IsCompleted)

	rec = c.do(http.MethodPost, "/api/goals/"+goal.ID+"/add_funds", ana, map[string]any{"amount": 40, "wallet_id": wallet.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, decode[core.Goal](t, rec).IsCompleted)

	rec = c.do(http.MethodPost, "/api/goals/"+goal.ID+"/add_funds", ana, map[string]any{"amount": 40, "wallet_id": wallet.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeInsufficientFunds, decode[apiError](t, rec).Error.Code)

	rec = c.do(http.MethodPost, "/api/goals/"+goal.ID+"/add_funds", ana, map[string]any{"amount": 10, "wallet_id": wallet.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[core.Goal](t, rec).IsCompleted)

	rec = c.do(http.MethodPost, "/api/goals/"+goal.ID+"/add_funds", ana, map[string]any{"amount": 1, "wallet_id": wallet.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeInvalidState, decode[apiError](t, rec).Error.Code)

	rec = c.do(http.MethodGet, "/api/wallets/"+wallet.ID, ana, nil)
	assert.Equal(t, "10.00", decode[core.Wallet](t, rec).Balance.String())
}

func TestBudgetStatusRoute(t *testing.T) {
	c := newTestServer(t, Options{})
	ana := c.signup("ana@example.com")
	wallet := decode[core.Wallet](t, c.do(http.MethodPost, "/api/wallets", ana, map[string]any{"name": "Main"}))

	rec := c.do(http.MethodPost, "/api/budgets", ana, map[string]any{
		"category": "food", "amount": 50, "start_date": "2025-03-01", "end_date": "2025-03-31",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	budget := decode[core.Budget](t, rec)

	for _, amount := range []string{"20", "35"} {
		rec = c.do(http.MethodPost, "/api/expenses", ana, map[string]any{
			"amount": amount, "category": "food", "wallet_id": wallet.ID, "date": "2025-03-15",
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec = c.do(http.MethodGet, "/api/budgets/"+budget.ID+"/status", ana, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[core.BudgetStatus](t, rec)
	assert.Equal(t, "55.00", st.Spent.String())
	assert.Equal(t, "-5.00", st.Remaining.String())
	assert.True(t, st.Exceeded)

	rec = c.do(http.MethodPut, "/api/budgets/"+budget.ID, ana, map[string]any{"end_date": "2025-02-01"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimitMutations(t *testing.T) {
	c := newTestServer(t, Options{RateLimitPerMinute: 2})

	for i := 0; i < 2; i++ {
		rec := c.do(http.MethodPost, "/api/auth/register", "", map[string]string{"email": "bad"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
	rec := c.do(http.MethodPost, "/api/auth/register", "", map[string]string{"email": "bad"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, CodeRateLimited, decode[apiError](t, rec).Error.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Reads are never throttled.
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/healthz", "", nil).Code)
}
