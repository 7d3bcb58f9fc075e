package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"threeway-match/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc       app.ApplicationService
	router    chi.Router
	jwtSecret string
	log       zerolog.Logger
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins, jwtSecret string, log zerolog.Logger) http.Handler {
	h := &Handler{
		svc:       svc,
		jwtSecret: jwtSecret,
		log:       log.With().Str("component", "web").Logger(),
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(h.log))
	r.Use(Recoverer(h.log))
	r.Use(CORS(allowedOrigins))

	// ── Health (public) ───────────────────────────────────────────────────────
	r.Get("/api/health", h.health)

	// ── Auth (public) ─────────────────────────────────────────────────────────
	r.Post("/api/auth/login", h.login)
	r.Post("/api/auth/logout", h.logout)

	// ── Protected API routes (return 401 JSON if unauthenticated) ────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		r.Get("/api/auth/me", h.me)

		// Matching
		r.Post("/api/matches/run", h.runMatch)
		r.Get("/api/matches", h.listMatches)
		r.Get("/api/matches/{invoiceID}", h.getMatch)

		// Tolerance configuration
		r.Get("/api/settings/tolerances", h.getTolerances)
		r.Put("/api/settings/tolerances", h.putTolerances)

		// Document read projections
		r.Get("/api/invoices", h.listInvoices)
		r.Get("/api/invoices/{id}", h.getInvoice)
		r.Get("/api/purchases/orders", h.listPurchaseOrders)
		r.Get("/api/purchases/orders/{id}", h.getPurchaseOrder)
		r.Get("/api/purchases/receipts", h.listGoodsReceipts)
		r.Get("/api/purchases/receipts/{id}", h.getGoodsReceipt)
		r.Get("/api/suppliers", h.listSuppliers)

		// Audit trail
		r.Get("/api/audit", h.listAudit)
	})

	h.router = r
	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status  string `json:"status"`
		Service string `json:"service"`
	}
	writeJSON(w, response{Status: "ok", Service: "threeway-match"})
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

// urlInt extracts a numeric URL parameter. Returns 0 and writes a 400 when the
// value is not a positive integer.
func urlInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || v < 1 {
		writeError(w, r, "invalid "+name+" parameter", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return v, true
}

// queryInt parses an optional integer query parameter, falling back to def.
func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}
