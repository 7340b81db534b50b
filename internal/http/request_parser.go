package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"shoebox/internal/core"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

type (
	budgetRequest struct {
		Month    int    `json:"month"`
		Year     int    `json:"year"`
		Interval string `json:"interval"`
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	}

	transactionRequest struct {
		Date     core.Date `json:"date"`
		Title    string    `json:"title"`
		Category string    `json:"category"`
		Amount   string    `json:"amount"`
		Currency string    `json:"currency"`
	}

	deleteTransactionsRequest struct {
		IDs []core.TransactionID `json:"ids"`
	}
)

// decodeJSON decodes a single JSON object, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

func (s *Server) currencyOr(v string) (core.Currency, error) {
	if strings.TrimSpace(v) == "" {
		return s.defaultCurrency, nil
	}
	return core.ParseCurrency(v)
}

func (s *Server) toBudgetRule(req budgetRequest) (core.BudgetRule, error) {
	interval, err := core.ParseInterval(req.Interval)
	if err != nil {
		return core.BudgetRule{}, err
	}
	cents, err := core.ParseBudgetAmount(req.Amount)
	if err != nil {
		return core.BudgetRule{}, err
	}
	cur, err := s.currencyOr(req.Currency)
	if err != nil {
		return core.BudgetRule{}, err
	}
	return core.BudgetRule{Month: req.Month, Year: req.Year, Interval: interval, AmountCents: cents, Currency: cur}, nil
}

func (s *Server) toNewTransaction(req transactionRequest) (core.NewTransaction, error) {
	if req.Date.IsZero() {
		return core.NewTransaction{}, badRequest("date is required")
	}
	cents, err := core.ParseAmount(req.Amount)
	if err != nil {
		return core.NewTransaction{}, err
	}
	cur, err := s.currencyOr(req.Currency)
	if err != nil {
		return core.NewTransaction{}, err
	}
	return core.NewTransaction{
		Date:        req.Date,
		Title:       strings.TrimSpace(req.Title),
		Category:    strings.TrimSpace(req.Category),
		AmountCents: cents,
		Currency:    cur,
	}, nil
}

// parseRange reads the optional start and end query parameters.
func parseRange(q url.Values) (core.DateRange, error) {
	var r core.DateRange
	for _, p := range []struct {
		name string
		dst  *core.Date
	}{{"start", &r.Start}, {"end", &r.End}} {
		v := strings.TrimSpace(q.Get(p.name))
		if v == "" {
			continue
		}
		d, err := core.ParseDate(v)
		if err != nil {
			return core.DateRange{}, badRequest("invalid %s: %q", p.name, v)
		}
		*p.dst = d
	}
	return r, r.Validate()
}

// parseGranularity treats "" and "auto" as automatic selection.
func parseGranularity(v string) (core.Granularity, error) {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "auto") {
		return "", nil
	}
	return core.ParseGranularity(v)
}

func parseIntParam(q url.Values, name string, def int) (int, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, badRequest("invalid %s: %q", name, v)
	}
	return n, nil
}

func parseAmountBound(q url.Values, name string) (*int64, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return nil, nil
	}
	cents, err := core.ParseAmountBound(v)
	if err != nil {
		return nil, badRequest("invalid %s: %q", name, v)
	}
	return &cents, nil
}

// parseSearch reads the search filters, order, page size and cursor.
func (s *Server) parseSearch(q url.Values) (core.SearchFilters, core.Order, int, *core.Cursor, error) {
	r, err := parseRange(q)
	if err != nil {
		return core.SearchFilters{}, "", 0, nil, err
	}
	f := core.SearchFilters{
		Title:    strings.TrimSpace(q.Get("title")),
		Category: strings.TrimSpace(q.Get("category")),
		Range:    r,
	}
	if f.MinAmountCents, err = parseAmountBound(q, "min"); err != nil {
		return core.SearchFilters{}, "", 0, nil, err
	}
	if f.MaxAmountCents, err = parseAmountBound(q, "max"); err != nil {
		return core.SearchFilters{}, "", 0, nil, err
	}

	order, err := core.ParseOrder(q.Get("order"))
	if err != nil {
		return core.SearchFilters{}, "", 0, nil, err
	}
	limit, err := parseIntParam(q, "limit", s.pageSize)
	if err != nil {
		return core.SearchFilters{}, "", 0, nil, err
	}
	if limit <= 0 || limit > maxPageSize {
		return core.SearchFilters{}, "", 0, nil, fmt.Errorf("%w: must be between 1 and %d", core.ErrInvalidLimit, maxPageSize)
	}

	var cursor *core.Cursor
	if token := strings.TrimSpace(q.Get("cursor")); token != "" {
		c, err := core.DecodeCursor(token)
		if err != nil {
			return core.SearchFilters{}, "", 0, nil, err
		}
		cursor = &c
	}
	return f, order, limit, cursor, nil
}
