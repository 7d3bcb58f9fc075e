package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PairOutcome is the result of one pairwise document comparison. It is an
// explicit three-value state so that "document never found" stays
// distinguishable from a comparison that ran and failed.
type PairOutcome string

const (
	OutcomeUnknown PairOutcome = "UNKNOWN"
	OutcomePass    PairOutcome = "PASS"
	OutcomeFail    PairOutcome = "FAIL"
)

// MatchStatus is the overall verdict stored per invoice.
type MatchStatus string

const (
	StatusPending     MatchStatus = "PENDING"
	StatusMatched     MatchStatus = "MATCH_OK"
	StatusDiscrepancy MatchStatus = "DISCREPANCY"
)

// ExceptionKind classifies a single discrepancy found during matching.
type ExceptionKind string

const (
	ExceptionTotalMismatch    ExceptionKind = "TOTAL_MISMATCH"
	ExceptionItemMissing      ExceptionKind = "ITEM_MISSING"
	ExceptionQuantityMismatch ExceptionKind = "QUANTITY_MISMATCH"
	ExceptionPriceMismatch    ExceptionKind = "PRICE_MISMATCH"
	ExceptionNoOrder          ExceptionKind = "NO_ORDER"
	ExceptionNoReceipt        ExceptionKind = "NO_RECEIPT"
)

// MatchException is a typed, field-level discrepancy record. The exception
// set of a result is wholesale-replaced on every run; it is a deterministic
// function of current document state and current tolerances.
type MatchException struct {
	ID              int             `json:"id"`
	ResultID        int             `json:"result_id"`
	Kind            ExceptionKind   `json:"kind"`
	Field           string          `json:"field"`
	Expected        decimal.Decimal `json:"expected"`
	Actual          decimal.Decimal `json:"actual"`
	Difference      decimal.Decimal `json:"difference"`
	PercentDiff     decimal.Decimal `json:"percent_diff"`
	WithinTolerance bool            `json:"within_tolerance"`
}

// MatchResult is the persistent verdict for one invoice. At most one live row
// per invoice per company; created on first run, mutated in place afterwards,
// never deleted by the engine.
type MatchResult struct {
	ID             int              `json:"id"`
	CompanyID      int              `json:"company_id"`
	InvoiceID      int              `json:"invoice_id"`
	OrderID        *int             `json:"order_id,omitempty"`
	ReceiptID      *int             `json:"receipt_id,omitempty"`
	OrderInvoice   PairOutcome      `json:"order_invoice"`
	ReceiptInvoice PairOutcome      `json:"receipt_invoice"`
	OrderReceipt   PairOutcome      `json:"order_receipt"`
	FullyMatched   bool             `json:"fully_matched"`
	Status         MatchStatus      `json:"status"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	Exceptions     []MatchException `json:"exceptions"`
}

// MatchSummary condenses a run for API responses.
type MatchSummary struct {
	OrderInvoice   PairOutcome `json:"order_invoice"`
	ReceiptInvoice PairOutcome `json:"receipt_invoice"`
	OrderReceipt   PairOutcome `json:"order_receipt"`
	FullyMatched   bool        `json:"fully_matched"`
	Status         MatchStatus `json:"status"`
	ExceptionCount int         `json:"exception_count"`
}

// MatchRun is the full outcome of one engine invocation.
type MatchRun struct {
	Result  *MatchResult `json:"match_result"`
	Summary MatchSummary `json:"summary"`
}

// PaymentEligibility is the read-only answer to "may this invoice be paid?".
type PaymentEligibility struct {
	InvoiceID int    `json:"invoice_id"`
	Eligible  bool   `json:"eligible"`
	Reason    string `json:"reason"`
}

// MatchConfig holds per-company tolerance bands. Percentages live in [0, 100).
type MatchConfig struct {
	CompanyID                int             `json:"company_id"`
	QuantityTolerancePct     decimal.Decimal `json:"quantity_tolerance_pct"`
	PriceTolerancePct        decimal.Decimal `json:"price_tolerance_pct"`
	AllowPaymentWithoutMatch bool            `json:"allow_payment_without_match"`
	CreatedAt                time.Time       `json:"created_at"`
	UpdatedAt                time.Time       `json:"updated_at"`
}

// MatchResultRow is one entry of the paginated listing projection: the stored
// verdict joined with document summaries.
type MatchResultRow struct {
	Result         MatchResult     `json:"match_result"`
	InvoiceNumber  string          `json:"invoice_number"`
	DeclaredTotal  decimal.Decimal `json:"declared_total"`
	SupplierName   string          `json:"supplier_name"`
	OrderNumber    *string         `json:"order_number,omitempty"`
	ReceiptNumber  *string         `json:"receipt_number,omitempty"`
	ExceptionCount int             `json:"exception_count"`
}

// ConfigService resolves per-company tolerance configuration.
type ConfigService interface {
	// GetOrCreate returns the company's tolerance config, atomically creating
	// one with defaults on first use. Malformed stored values fall back to
	// defaults rather than propagating.
	GetOrCreate(ctx context.Context, companyID int) (*MatchConfig, error)

	// Update replaces the tolerance percentages and the payment flag.
	Update(ctx context.Context, cfg MatchConfig) (*MatchConfig, error)
}

// MatchService is the three-way match engine's public surface.
type MatchService interface {
	// Run executes the full match for one invoice: loads documents, compares
	// them pairwise, resolves the verdict, upserts the result with a fresh
	// exception set, and auto-links the receipt on a full match. actor is the
	// identity recorded in the audit trail.
	Run(ctx context.Context, companyID, invoiceID int, actor string) (*MatchRun, error)

	// CheckPaymentEligibility answers from the stored verdict and the
	// payment-without-match flag without recomputing anything.
	CheckPaymentEligibility(ctx context.Context, companyID, invoiceID int) (*PaymentEligibility, error)

	// GetResult returns the stored verdict for one invoice, or ErrNotFound.
	GetResult(ctx context.Context, companyID, invoiceID int) (*MatchResult, error)

	// ListResults returns a page of stored verdicts joined with document
	// summaries, optionally filtered by status, plus the total row count.
	ListResults(ctx context.Context, companyID int, status MatchStatus, page, pageSize int) ([]MatchResultRow, int, error)
}

// AuditService appends and reads the immutable audit trail.
type AuditService interface {
	// Append writes one audit entry. Callers on the match path treat failures
	// as non-fatal.
	Append(ctx context.Context, entry AuditEntry) error

	// List returns audit entries for a company, newest first, optionally
	// filtered by entity.
	List(ctx context.Context, companyID int, entity string, limit, offset int) ([]AuditEntry, error)
}
