package web

import (
	"errors"
	"net/http"
	"strconv"

	"threeway-match/internal/app"
	"threeway-match/internal/core"

	"github.com/shopspring/decimal"
)

// runMatch handles POST /api/matches/run. With check_payment_eligibility_only
// set it answers from the stored verdict instead of executing the engine.
func (h *Handler) runMatch(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())

	var req struct {
		InvoiceID                   int  `json:"invoice_id"`
		CheckPaymentEligibilityOnly bool `json:"check_payment_eligibility_only"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.InvoiceID < 1 {
		writeError(w, r, "invoice_id is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	if req.CheckPaymentEligibilityOnly {
		elig, err := h.svc.CheckPaymentEligibility(r.Context(), claims.CompanyID, req.InvoiceID)
		if err != nil {
			h.writeMatchError(w, r, err)
			return
		}
		writeJSON(w, elig)
		return
	}

	run, err := h.svc.RunMatch(r.Context(), claims.CompanyID, req.InvoiceID, claims.actor())
	if err != nil {
		h.writeMatchError(w, r, err)
		return
	}

	type response struct {
		MatchResult *core.MatchResult `json:"match_result"`
		Summary     core.MatchSummary `json:"summary"`
	}
	writeJSON(w, response{MatchResult: run.Result, Summary: run.Summary})
}

// listMatches handles GET /api/matches with status/page/page_size query params.
func (h *Handler) listMatches(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())

	status := r.URL.Query().Get("status")
	switch core.MatchStatus(status) {
	case "", core.StatusPending, core.StatusMatched, core.StatusDiscrepancy:
	default:
		writeError(w, r, "invalid status filter", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	result, err := h.svc.ListMatchResults(r.Context(), app.ListMatchesRequest{
		CompanyID: claims.CompanyID,
		Status:    status,
		Page:      queryInt(r, "page", 1),
		PageSize:  queryInt(r, "page_size", 50),
	})
	if err != nil {
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}

	type response struct {
		Results  []core.MatchResultRow `json:"results"`
		Total    int                   `json:"total"`
		Page     int                   `json:"page"`
		PageSize int                   `json:"page_size"`
	}
	writeJSON(w, response{
		Results:  result.Rows,
		Total:    result.Total,
		Page:     result.Page,
		PageSize: result.PageSize,
	})
}

// getMatch handles GET /api/matches/{invoiceID}.
func (h *Handler) getMatch(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())
	invoiceID, ok := urlInt(w, r, "invoiceID")
	if !ok {
		return
	}

	detail, err := h.svc.GetMatchResult(r.Context(), claims.CompanyID, invoiceID)
	if err != nil {
		h.writeMatchError(w, r, err)
		return
	}
	writeJSON(w, detail.Result)
}

// getTolerances handles GET /api/settings/tolerances.
func (h *Handler) getTolerances(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())

	cfg, err := h.svc.GetToleranceConfig(r.Context(), claims.CompanyID)
	if err != nil {
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, cfg)
}

// putTolerances handles PUT /api/settings/tolerances.
func (h *Handler) putTolerances(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())

	var req struct {
		QuantityTolerancePct     decimal.Decimal `json:"quantity_tolerance_pct"`
		PriceTolerancePct        decimal.Decimal `json:"price_tolerance_pct"`
		AllowPaymentWithoutMatch bool            `json:"allow_payment_without_match"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	cfg, err := h.svc.UpdateToleranceConfig(r.Context(), app.UpdateToleranceRequest{
		CompanyID:                claims.CompanyID,
		QuantityTolerancePct:     req.QuantityTolerancePct,
		PriceTolerancePct:        req.PriceTolerancePct,
		AllowPaymentWithoutMatch: req.AllowPaymentWithoutMatch,
	})
	if err != nil {
		writeError(w, r, err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	writeJSON(w, cfg)
}

// writeMatchError maps engine errors onto HTTP statuses.
func (h *Handler) writeMatchError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrInvoiceNotFound):
		writeError(w, r, "invoice not found", "NOT_FOUND", http.StatusNotFound)
	case errors.Is(err, core.ErrNotFound):
		writeError(w, r, "no match result for invoice", "NOT_FOUND", http.StatusNotFound)
	default:
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("match operation failed")
		writeError(w, r, "match operation failed", "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}

// actor renders the audit trail identity for the authenticated user.
func (c *AuthClaims) actor() string {
	if c == nil {
		return ""
	}
	return "user:" + strconv.Itoa(c.UserID)
}
