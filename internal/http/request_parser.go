// This file implements utilities for decoding request bodies and query
// parameters into the shapes the services accept.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
)

const maxBodyBytes = 1 << 20

const dateLayout = "2006-01-02"

// Date accepts RFC 3339 timestamps or bare YYYY-MM-DD dates, read as UTC
// midnight.
type Date struct {
	time.Time
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a date (want YYYY-MM-DD or RFC 3339)", core.ErrInvalidInput, s)
	}
	return t, nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: date must be a string", core.ErrInvalidInput)
	}
	t, err := parseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// ptr converts an optional Date into an optional time.
func (d *Date) ptr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

// decodeJSON reads a single JSON object into v. Malformed bodies are
// core.ErrInvalidInput.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		switch {
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: request body is empty", core.ErrInvalidInput)
		case errors.Is(err, core.ErrInvalidInput), errors.Is(err, core.ErrInvalidAmount):
			return err
		default:
			return fmt.Errorf("%w: malformed JSON: %v", core.ErrInvalidInput, err)
		}
	}
	if dec.More() {
		return fmt.Errorf("%w: unexpected data after JSON object", core.ErrInvalidInput)
	}
	return nil
}

// parsePage reads skip and limit, defaulting to 0 and 100.
func parsePage(q url.Values) (core.Page, error) {
	var p core.Page
	var err error
	if p.Skip, err = intParam(q, "skip"); err != nil {
		return p, err
	}
	if p.Limit, err = intParam(q, "limit"); err != nil {
		return p, err
	}
	if p.Skip < 0 || p.Limit < 0 {
		return p, fmt.Errorf("%w: skip and limit must not be negative", core.ErrInvalidInput)
	}
	return p.Normalize(), nil
}

func intParam(q url.Values, name string) (int, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", core.ErrInvalidInput, name)
	}
	return n, nil
}

func dateParam(q url.Values, name string) (time.Time, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return time.Time{}, nil
	}
	t, err := parseDate(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", name, err)
	}
	return t, nil
}

// parseExpenseFilter reads wallet_id, start_date, end_date, category, skip and
// limit. A bare end_date covers that whole day.
func parseExpenseFilter(q url.Values) (core.ExpenseFilter, error) {
	var f core.ExpenseFilter
	var err error
	f.WalletID = strings.TrimSpace(q.Get("wallet_id"))
	f.Category = sanitizeInput(q.Get("category"))
	if f.StartDate, err = dateParam(q, "start_date"); err != nil {
		return f, err
	}
	if f.EndDate, err = dateParam(q, "end_date"); err != nil {
		return f, err
	}
	if !f.EndDate.IsZero() && isBareDate(q.Get("end_date")) {
		f.EndDate = f.EndDate.Add(24*time.Hour - time.Millisecond)
	}
	if f.Page, err = parsePage(q); err != nil {
		return f, err
	}
	return f, nil
}

func isBareDate(s string) bool {
	_, err := time.Parse(dateLayout, strings.TrimSpace(s))
	return err == nil
}
