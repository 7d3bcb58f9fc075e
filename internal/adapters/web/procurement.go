package web

import (
	"errors"
	"net/http"

	"threeway-match/internal/app"
	"threeway-match/internal/core"
)

// listInvoices handles GET /api/invoices.
func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())

	result, err := h.svc.ListInvoices(r.Context(), claims.CompanyID)
	if err != nil {
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, result.Invoices)
}

// getInvoice handles GET /api/invoices/{id}.
func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())
	id, ok := urlInt(w, r, "id")
	if !ok {
		return
	}

	invoice, err := h.svc.GetInvoice(r.Context(), claims.CompanyID, id)
	if err != nil {
		if errors.Is(err, core.ErrInvoiceNotFound) {
			writeError(w, r, "invoice not found", "NOT_FOUND", http.StatusNotFound)
			return
		}
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, invoice)
}

// listPurchaseOrders handles GET /api/purchases/orders with an optional status filter.
func (h *Handler) listPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())

	result, err := h.svc.ListPurchaseOrders(r.Context(), claims.CompanyID, r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, result.Orders)
}

// getPurchaseOrder handles GET /api/purchases/orders/{id}.
func (h *Handler) getPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())
	id, ok := urlInt(w, r, "id")
	if !ok {
		return
	}

	order, err := h.svc.GetPurchaseOrder(r.Context(), claims.CompanyID, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeError(w, r, "purchase order not found", "NOT_FOUND", http.StatusNotFound)
			return
		}
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, order)
}

// listGoodsReceipts handles GET /api/purchases/receipts with an optional status filter.
func (h *Handler) listGoodsReceipts(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())

	result, err := h.svc.ListGoodsReceipts(r.Context(), claims.CompanyID, r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, result.Receipts)
}

// getGoodsReceipt handles GET /api/purchases/receipts/{id}.
func (h *Handler) getGoodsReceipt(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())
	id, ok := urlInt(w, r, "id")
	if !ok {
		return
	}

	receipt, err := h.svc.GetGoodsReceipt(r.Context(), claims.CompanyID, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeError(w, r, "goods receipt not found", "NOT_FOUND", http.StatusNotFound)
			return
		}
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, receipt)
}

// listSuppliers handles GET /api/suppliers.
func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())

	result, err := h.svc.ListSuppliers(r.Context(), claims.CompanyID)
	if err != nil {
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, result.Suppliers)
}

// listAudit handles GET /api/audit with entity/limit/offset query params.
func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())

	result, err := h.svc.ListAuditTrail(r.Context(), app.ListAuditRequest{
		CompanyID: claims.CompanyID,
		Entity:    r.URL.Query().Get("entity"),
		Limit:     queryInt(r, "limit", 100),
		Offset:    queryInt(r, "offset", 0),
	})
	if err != nil {
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, result.Entries)
}
