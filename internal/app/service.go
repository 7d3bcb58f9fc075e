package app

import (
	"context"

	"threeway-match/internal/core"
)

// ApplicationService is the single interface all adapters (Web, CLI) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println, no ANSI codes, and no display logic of any kind.
type ApplicationService interface {
	// RunMatch executes the three-way match for one invoice and returns the
	// stored verdict together with a run summary.
	RunMatch(ctx context.Context, companyID, invoiceID int, actor string) (*MatchRunResult, error)

	// GetMatchResult returns the stored verdict for an invoice, exceptions included.
	GetMatchResult(ctx context.Context, companyID, invoiceID int) (*MatchResultDetail, error)

	// ListMatchResults returns a page of stored verdicts, optionally filtered by status.
	ListMatchResults(ctx context.Context, req ListMatchesRequest) (*MatchListResult, error)

	// CheckPaymentEligibility answers whether an invoice may be paid, from the
	// stored verdict and the company's payment-without-match flag.
	CheckPaymentEligibility(ctx context.Context, companyID, invoiceID int) (*core.PaymentEligibility, error)

	// GetToleranceConfig returns the company's tolerance configuration,
	// creating it with defaults on first use.
	GetToleranceConfig(ctx context.Context, companyID int) (*core.MatchConfig, error)

	// UpdateToleranceConfig replaces the tolerance bands and the payment flag.
	UpdateToleranceConfig(ctx context.Context, req UpdateToleranceRequest) (*core.MatchConfig, error)

	// GetInvoice returns a supplier invoice with its lines.
	GetInvoice(ctx context.Context, companyID, invoiceID int) (*core.Invoice, error)

	// ListInvoices returns all invoices for a company, newest first.
	ListInvoices(ctx context.Context, companyID int) (*InvoiceListResult, error)

	// GetPurchaseOrder returns a purchase order with its lines.
	GetPurchaseOrder(ctx context.Context, companyID, orderID int) (*core.PurchaseOrder, error)

	// ListPurchaseOrders returns purchase orders, optionally filtered by status.
	ListPurchaseOrders(ctx context.Context, companyID int, status string) (*PurchaseOrderListResult, error)

	// GetGoodsReceipt returns a goods receipt with its lines.
	GetGoodsReceipt(ctx context.Context, companyID, receiptID int) (*core.GoodsReceipt, error)

	// ListGoodsReceipts returns goods receipts, optionally filtered by status.
	ListGoodsReceipts(ctx context.Context, companyID int, status string) (*GoodsReceiptListResult, error)

	// ListSuppliers returns all active suppliers for a company.
	ListSuppliers(ctx context.Context, companyID int) (*SupplierListResult, error)

	// ListAuditTrail returns audit entries, newest first, optionally filtered by entity.
	ListAuditTrail(ctx context.Context, req ListAuditRequest) (*AuditListResult, error)

	// AuthenticateUser verifies credentials and returns a session on success.
	AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error)

	// GetUser returns a user profile by ID.
	GetUser(ctx context.Context, userID int) (*UserResult, error)
}
