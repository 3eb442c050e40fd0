package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonLogger(buf *bytes.Buffer, level slog.Level) *Logger {
	return New(Config{Level: level, Format: "json", Component: ComponentWallet, Output: buf})
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec), line)
		out = append(out, rec)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := jsonLogger(&buf, slog.LevelInfo)

	logger.Info("Wallet created", FieldWalletID, "w1")
	logger.WithComponent(ComponentExpense).With(FieldUserID, "u1").Warn("Expense rejected")
	logger.Debug("filtered out")

	recs := lines(t, &buf)
	require.Len(t, recs, 2)
	assert.Equal(t, ComponentWallet, recs[0][FieldComponent])
	assert.Equal(t, "w1", recs[0][FieldWalletID])
	assert.Equal(t, ComponentExpense, recs[1][FieldComponent])
	assert.Equal(t, "u1", recs[1][FieldUserID])
	assert.Equal(t, ComponentExpense, logger.WithComponent(ComponentExpense).Component())
}

func TestFromContextFallsBack(t *testing.T) {
	logger := FromContext(context.Background())
	require.NotNil(t, logger)
	assert.Equal(t, "unknown", logger.Component())

	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), jsonLogger(&buf, slog.LevelInfo))
	assert.Equal(t, ComponentWallet, FromContext(ctx).Component())
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := jsonLogger(&buf, slog.LevelInfo)

	h := Middleware(logger)(RequestIDMiddleware(func(r *http.Request) string {
		return r.Header.Get("X-Request-ID")
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).InfoContext(r.Context(), "handled")
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/wallets", nil)
	req.Header.Set("X-Request-ID", "req_123")
	h.ServeHTTP(httptest.NewRecorder(), req)

	recs := lines(t, &buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "req_123", recs[0][FieldRequestID])
}

func TestStructuredLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(jsonLogger(&buf, slog.LevelDebug))
	req := httptest.NewRequest(http.MethodPost, "/api/expenses?x=1", nil)
	ctx := context.Background()

	sl.LogHTTPStart(ctx, req, "r1", "10.0.0.1")
	sl.LogHTTPEnd(ctx, req, "r1", http.StatusCreated, 3, "10.0.0.1")
	sl.LogHTTPEnd(ctx, req, "r1", http.StatusNotFound, 3, "10.0.0.1")
	sl.LogHTTPEnd(ctx, req, "r1", http.StatusBadGateway, 3, "10.0.0.1")
	sl.LogError(ctx, "Publish failed", errors.New("broker down"), OpPublish, nil)

	recs := lines(t, &buf)
	require.Len(t, recs, 5)
	levels := make([]string, 0, len(recs))
	for _, r := range recs {
		levels = append(levels, r["level"].(string))
	}
	assert.Equal(t, []string{"DEBUG", "INFO", "WARN", "ERROR", "ERROR"}, levels)
	assert.Equal(t, "x=1", recs[1][FieldQuery])
	assert.Equal(t, "broker down", recs[4][FieldError])
	assert.Equal(t, OpPublish, recs[4][FieldOperation])
}

func TestLogFieldsSkipEmpty(t *testing.T) {
	f := NewFields().WithRequestID("").WithError(nil).WithExpense("e1", "w1", 1250, "")
	assert.NotContains(t, f, FieldRequestID)
	assert.NotContains(t, f, FieldError)
	assert.NotContains(t, f, FieldCategory)
	assert.Equal(t, int64(1250), f[FieldAmountCents])
	assert.Len(t, f.ToSlice(), 6)
}
