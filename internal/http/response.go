package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"shoebox/internal/budget"
	"shoebox/internal/core"
	"shoebox/internal/graph"
	"shoebox/internal/log"
	"shoebox/internal/services"
	"shoebox/internal/store"
)

type (
	errorResponse struct {
		Error string `json:"error"`
	}

	budgetJSON struct {
		Month       int       `json:"month"`
		Year        int       `json:"year"`
		Interval    string    `json:"interval"`
		AmountCents int64     `json:"amount_cents"`
		Amount      string    `json:"amount"`
		Currency    string    `json:"currency"`
		LastUpdated time.Time `json:"last_updated"`
	}

	transactionJSON struct {
		ID          core.TransactionID `json:"id"`
		Date        core.Date          `json:"date"`
		Title       string             `json:"title"`
		Category    string             `json:"category"`
		AmountCents int64              `json:"amount_cents"`
		Amount      string             `json:"amount"`
		Currency    string             `json:"currency"`
		CreatedAt   time.Time          `json:"created_at"`
	}

	trendsResponse struct {
		Start       core.Date        `json:"start"`
		End         core.Date        `json:"end"`
		Granularity core.Granularity `json:"granularity"`
		Points      []graph.Point    `json:"points"`
	}

	overviewResponse struct {
		Year           int               `json:"year"`
		Month          int               `json:"month"`
		Budget         *budgetJSON       `json:"budget"`
		SpentCents     int64             `json:"spent_cents"`
		RemainingCents int64             `json:"remaining_cents"`
		Recent         []transactionJSON `json:"recent"`
	}

	monthBudgetJSON struct {
		Month  int         `json:"month"`
		Label  string      `json:"label"`
		Budget *budgetJSON `json:"budget"`
	}

	budgetsResponse struct {
		Year   int               `json:"year"`
		Months []monthBudgetJSON `json:"months"`
	}

	searchResponse struct {
		Transactions []transactionJSON `json:"transactions"`
		NextCursor   string            `json:"next_cursor,omitempty"`
	}
)

func toBudgetJSON(r *core.BudgetRule) *budgetJSON {
	if r == nil {
		return nil
	}
	return &budgetJSON{
		Month:       r.Month,
		Year:        r.Year,
		Interval:    string(r.Interval),
		AmountCents: r.AmountCents,
		Amount:      core.FormatAmount(r.AmountCents),
		Currency:    string(r.Currency),
		LastUpdated: r.LastUpdated,
	}
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          t.ID,
		Date:        t.Date,
		Title:       t.Title,
		Category:    t.Category,
		AmountCents: t.AmountCents,
		Amount:      core.FormatAmount(t.AmountCents),
		Currency:    string(t.Currency),
		CreatedAt:   t.CreatedAt,
	}
}

func toTransactionsJSON(txns []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, len(txns))
	for i, t := range txns {
		out[i] = toTransactionJSON(t)
	}
	return out
}

func toTrendsResponse(t services.Trends) trendsResponse {
	points := t.Points
	if points == nil {
		points = []graph.Point{}
	}
	return trendsResponse{Start: t.Range.Start, End: t.Range.End, Granularity: t.Granularity, Points: points}
}

func toBudgetsResponse(year int, buckets []budget.Bucket) budgetsResponse {
	months := make([]monthBudgetJSON, len(buckets))
	for i, b := range buckets {
		months[i] = monthBudgetJSON{Month: b.Tick.Month, Label: b.Tick.String(), Budget: toBudgetJSON(b.Rule)}
	}
	return budgetsResponse{Year: year, Months: months}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// validationErrors are reported to the client as 400 with their message.
var validationErrors = []error{
	errBadRequest,
	core.ErrInvalidRange,
	core.ErrUnboundedRange,
	core.ErrInvalidGranularity,
	core.ErrInvalidMonth,
	core.ErrInvalidYear,
	core.ErrInvalidDay,
	core.ErrInvalidInterval,
	core.ErrInvalidCurrency,
	core.ErrInvalidAmount,
	core.ErrEmptyCategory,
	core.ErrTitleTooLong,
	core.ErrInvalidOrder,
	core.ErrInvalidLimit,
	core.ErrInvalidCursor,
	core.ErrAmountOverflow,
}

func statusFor(err error) int {
	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

// writeError maps err to a status. Internal errors are logged and their
// message is not sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, op, nil)
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg})
}
