package http

import (
	"net/http"

	"shoebox/internal/core"
	"shoebox/internal/log"
	"shoebox/internal/services"
)

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rng, err := parseRange(q)
	if err != nil {
		writeError(w, r, log.OpTrends, err)
		return
	}
	g, err := parseGranularity(q.Get("granularity"))
	if err != nil {
		writeError(w, r, log.OpTrends, err)
		return
	}
	trends, err := s.ledger.Trends(r.Context(), rng, g)
	if err != nil {
		writeError(w, r, log.OpTrends, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrendsResponse(trends))
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	ov, err := s.ledger.MonthOverview(r.Context(), now)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	recent, err := s.ledger.RecentTransactions(r.Context(), now, services.RecentLimit)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, overviewResponse{
		Year:           ov.Year,
		Month:          ov.Month,
		Budget:         toBudgetJSON(ov.Budget),
		SpentCents:     ov.SpentCents,
		RemainingCents: ov.Remaining(),
		Recent:         toTransactionsJSON(recent),
	})
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	year, err := parseIntParam(r.URL.Query(), "year", s.now().Year())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	buckets, err := s.ledger.MonthlyBudgets(r.Context(), year)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetsResponse(year, buckets))
}

func (s *Server) handleUpsertBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, log.OpUpsert, err)
		return
	}
	rule, err := s.toBudgetRule(req)
	if err != nil {
		writeError(w, r, log.OpUpsert, err)
		return
	}
	saved, err := s.ledger.UpsertBudget(r.Context(), rule)
	if err != nil {
		writeError(w, r, log.OpUpsert, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetJSON(&saved))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	month, err := parseIntParam(q, "month", 0)
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	year, err := parseIntParam(q, "year", 0)
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	interval, err := core.ParseInterval(q.Get("interval"))
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	key := core.BudgetKey{Month: month, Year: year, Interval: interval}
	if err := s.ledger.DeleteBudget(r.Context(), key); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	n, err := s.toNewTransaction(req)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	txn, err := s.ledger.AddTransaction(r.Context(), n)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionJSON(txn))
}

func (s *Server) handleDeleteTransactions(w http.ResponseWriter, r *http.Request) {
	var req deleteTransactionsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, r, log.OpDelete, badRequest("ids must not be empty"))
		return
	}
	if err := s.ledger.DeleteTransactions(r.Context(), req.IDs); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSearch serves one page per request. The next_cursor of a full page
// resumes the search; a short page has none.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	filters, order, limit, cursor, err := s.parseSearch(r.URL.Query())
	if err != nil {
		writeError(w, r, log.OpSearch, err)
		return
	}

	p := s.ledger.NewSearch(order)
	p.SetFilters(filters)
	if cursor != nil {
		p.Resume(*cursor)
	}
	if _, err := p.NextPage(r.Context(), limit); err != nil {
		writeError(w, r, log.OpSearch, err)
		return
	}

	resp := searchResponse{Transactions: toTransactionsJSON(p.Results())}
	if !p.Exhausted() {
		if c := p.Cursor(); c != nil {
			resp.NextCursor = c.Encode()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
