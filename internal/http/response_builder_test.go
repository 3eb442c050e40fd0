package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func TestJSONResponseBuilder(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("X-Custom", "value").
		Payload(map[string]int{"n": 1}).
		Write(rec)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "value", rec.Header().Get("X-Custom"))
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"n":1}`, rec.Body.String())
}

func TestJSONResponseBuilder_NoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Payload("ignored").Write(rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{core.ErrUnauthenticated, http.StatusUnauthorized, CodeUnauthenticated},
		{fmt.Errorf("wallet w1: %w", core.ErrForbidden), http.StatusForbidden, CodeForbidden},
		{core.ErrNotFound, http.StatusNotFound, CodeNotFound},
		{core.ErrInvalidAmount, http.StatusBadRequest, CodeInvalidAmount},
		{core.ErrInsufficientFunds, http.StatusBadRequest, CodeInsufficientFunds},
		{core.ErrInvalidState, http.StatusBadRequest, CodeInvalidState},
		{core.ErrInvalidPeriod, http.StatusBadRequest, CodeInvalidInput},
		{core.ErrEmailTaken, http.StatusConflict, CodeEmailTaken},
		{core.ErrWalletNotEmpty, http.StatusConflict, CodeWalletNotEmpty},
		{errors.New("disk on fire"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			status, code := classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestWriteErrorHidesInternalMessage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/wallets", nil)

	rec := httptest.NewRecorder()
	writeError(rec, req, errors.New("pq: connection refused to 10.0.0.5"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body apiError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, CodeInternal, body.Error.Code)
	assert.NotContains(t, body.Error.Message, "10.0.0.5")

	rec = httptest.NewRecorder()
	writeError(rec, req, core.ErrInsufficientFunds)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "insufficient funds", body.Error.Message)
}
