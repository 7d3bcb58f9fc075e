package app

import "threeway-match/internal/core"

// MatchRunResult is returned by RunMatch.
type MatchRunResult struct {
	Result  *core.MatchResult
	Summary core.MatchSummary
}

// MatchResultDetail is returned by GetMatchResult.
type MatchResultDetail struct {
	Result *core.MatchResult
}

// MatchListResult is one page of stored verdicts.
type MatchListResult struct {
	Rows     []core.MatchResultRow
	Total    int
	Page     int
	PageSize int
}

// InvoiceListResult is returned by ListInvoices.
type InvoiceListResult struct {
	Invoices []core.Invoice
}

// PurchaseOrderListResult is returned by ListPurchaseOrders.
type PurchaseOrderListResult struct {
	Orders []core.PurchaseOrder
}

// GoodsReceiptListResult is returned by ListGoodsReceipts.
type GoodsReceiptListResult struct {
	Receipts []core.GoodsReceipt
}

// SupplierListResult is returned by ListSuppliers.
type SupplierListResult struct {
	Suppliers []core.Supplier
}

// AuditListResult is returned by ListAuditTrail.
type AuditListResult struct {
	Entries []core.AuditEntry
}

// UserSession is returned by AuthenticateUser and feeds the JWT claims.
type UserSession struct {
	UserID    int    `json:"user_id"`
	CompanyID int    `json:"company_id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
}

// UserResult is returned by GetUser.
type UserResult struct {
	UserID      int
	Username    string
	Email       string
	Role        string
	CompanyID   int
	CompanyCode string
}
