package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Goods receipt lifecycle states. Only CONFIRMED receipts participate in
// matching; INVOICED means the receipt has been linked to a supplier invoice.
const (
	GRStatusDraft     = "DRAFT"
	GRStatusConfirmed = "CONFIRMED"
	GRStatusInvoiced  = "INVOICED"
)

// GoodsReceipt records physically received quantities against an order.
// Read-only to the match engine except for the one auto-link write.
type GoodsReceipt struct {
	ID            int                `json:"id"`
	CompanyID     int                `json:"company_id"`
	SupplierID    int                `json:"supplier_id"`
	OrderID       *int               `json:"order_id,omitempty"`
	ReceiptNumber *string            `json:"receipt_number,omitempty"`
	Status        string             `json:"status"`
	InvoiceID     *int               `json:"invoice_id,omitempty"`
	ReceivedAt    time.Time          `json:"received_at"`
	CreatedAt     time.Time          `json:"created_at"`
	Lines         []GoodsReceiptLine `json:"lines"`
}

// GoodsReceiptLine is one accepted line, optionally linked back to the
// purchase order line it was received against.
type GoodsReceiptLine struct {
	ID          int             `json:"id"`
	ReceiptID   int             `json:"receipt_id"`
	OrderLineID *int            `json:"order_line_id,omitempty"`
	ProductID   *int            `json:"product_id,omitempty"`
	ProductCode *string         `json:"product_code,omitempty"`
	AcceptedQty decimal.Decimal `json:"accepted_qty"`
}

// GoodsReceiptService provides read access to goods receipts plus the single
// auto-link write the match engine performs.
type GoodsReceiptService interface {
	// GetReceipt returns a goods receipt by ID with all lines, scoped to the company.
	GetReceipt(ctx context.Context, companyID, receiptID int) (*GoodsReceipt, error)

	// GetReceipts returns goods receipts for a company, optionally filtered by status.
	GetReceipts(ctx context.Context, companyID int, status string) ([]GoodsReceipt, error)

	// FindForInvoice returns the candidate receipt for matching an invoice: a
	// receipt already linked to that invoice wins, otherwise the most recent
	// CONFIRMED receipt for the supplier not yet linked to any invoice.
	// Returns (nil, nil) when none exists — a legitimate business state, not
	// an error.
	FindForInvoice(ctx context.Context, companyID, supplierID, invoiceID int) (*GoodsReceipt, error)

	// LinkInvoiceTx links a receipt to an invoice inside the caller's
	// transaction, marking it INVOICED. Idempotent: re-linking the same
	// invoice is a no-op; linking a receipt already tied to a different
	// invoice is an error.
	LinkInvoiceTx(ctx context.Context, tx pgx.Tx, receiptID, invoiceID int) error
}
