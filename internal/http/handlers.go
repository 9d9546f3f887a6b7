package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"contas/internal/core"
	"contas/internal/log"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady reports not ready while the ledger storage is unreachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]string{"storage": "ok"}
	if err := s.ledger.Ping(ctx); err != nil {
		checks["storage"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	NewJSONResponse().Status(code).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics writes counters in plain text, one "name value" per line.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	tm := s.tracer.GetMetrics()
	fmt.Fprintf(w, "http_requests_total %d\n", tm.TotalRequests)
	fmt.Fprintf(w, "http_request_duration_avg_us %d\n", tm.AverageResponseTime)
	fmt.Fprintf(w, "security_suspicious_requests_total %d\n", s.detector.GetMetrics().SuspiciousRequests)
	if s.limiter != nil {
		rm := s.limiter.GetMetrics()
		fmt.Fprintf(w, "rate_limit_hits_total %d\n", rm.TotalHits)
		fmt.Fprintf(w, "rate_limit_clients %d\n", rm.ClientCount)
	}
	if s.listings != nil {
		hits, misses := s.listings.Stats()
		fmt.Fprintf(w, "listing_cache_entries %d\n", s.listings.Size())
		fmt.Fprintf(w, "listing_cache_hits_total %d\n", hits)
		fmt.Fprintf(w, "listing_cache_misses_total %d\n", misses)
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filters, err := ParseFilters(r.URL.Query(), s.ledger.CurrentMonth())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	st, err := s.ledger.Statement(r.Context(), filters)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Body(newStatementJSON(st)).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	d, err := parseDraft(p)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	t, err := s.ledger.Create(r.Context(), d)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", fmt.Sprintf("/api/transactions/%d", t.Base().ID)).
		Body(newTransactionJSON(t)).
		Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	t, err := s.ledger.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(newTransactionJSON(t)).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	d, err := parseDraft(p)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	t, err := s.ledger.Update(r.Context(), id, d)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(newTransactionJSON(t)).Write(w)
}

func (s *Server) handleUpdateDetails(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	d, err := parseDetails(p)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	t, err := s.ledger.UpdateDetails(r.Context(), id, d)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(newTransactionJSON(t)).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.ledger.Delete(r.Context(), id); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleTogglePaymentConfirmation(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, log.OpToggle, err)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, log.OpToggle, err)
		return
	}
	month, err := parsePaymentDate(p)
	if err != nil {
		writeError(w, r, log.OpToggle, err)
		return
	}
	res, err := s.ledger.TogglePaymentConfirmation(r.Context(), id, month)
	if err != nil {
		writeError(w, r, log.OpToggle, err)
		return
	}
	NewJSONResponse().Body(ToggleJSON{
		Action:      string(res.Outcome.Action),
		Month:       res.Outcome.Month,
		Confirmed:   res.Outcome.Confirmed,
		Transaction: newTransactionJSON(res.Transaction),
	}).Write(w)
}

func (s *Server) handleConfirmations(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	months, err := s.ledger.Confirmations(r.Context(), id)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	if months == nil {
		months = []core.Month{}
	}
	NewJSONResponse().Body(ConfirmationsJSON{TransactionID: id, Months: months}).Write(w)
}
