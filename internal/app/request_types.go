package app

import "github.com/shopspring/decimal"

// ListMatchesRequest is the input for listing stored match verdicts.
type ListMatchesRequest struct {
	CompanyID int
	Status    string // optional: PENDING, MATCH_OK or DISCREPANCY
	Page      int
	PageSize  int
}

// UpdateToleranceRequest is the input for replacing a company's tolerance config.
type UpdateToleranceRequest struct {
	CompanyID                int
	QuantityTolerancePct     decimal.Decimal
	PriceTolerancePct        decimal.Decimal
	AllowPaymentWithoutMatch bool
}

// ListAuditRequest is the input for reading the audit trail.
type ListAuditRequest struct {
	CompanyID int
	Entity    string // optional filter, e.g. "match_result"
	Limit     int
	Offset    int
}
