package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Purchase order lifecycle states. A match run only considers orders that
// have at least been sent to the supplier.
const (
	POStatusDraft             = "DRAFT"
	POStatusSent              = "SENT"
	POStatusConfirmed         = "CONFIRMED"
	POStatusPartiallyReceived = "PARTIALLY_RECEIVED"
	POStatusCompleted         = "COMPLETED"
	POStatusCancelled         = "CANCELLED"
)

// PurchaseOrder represents a purchase order header. Owned by the purchasing
// module; the match engine only reads it.
type PurchaseOrder struct {
	ID           int                 `json:"id"`
	CompanyID    int                 `json:"company_id"`
	SupplierID   int                 `json:"supplier_id"`
	SupplierCode string              `json:"supplier_code"`
	SupplierName string              `json:"supplier_name"`
	OrderNumber  *string             `json:"order_number,omitempty"`
	Status       string              `json:"status"`
	Total        decimal.Decimal     `json:"total"`
	Notes        *string             `json:"notes,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	Lines        []PurchaseOrderLine `json:"lines"`
}

// PurchaseOrderLine is a single ordered line. PendingQty tracks what is still
// outstanding against goods receipts.
type PurchaseOrderLine struct {
	ID          int             `json:"id"`
	OrderID     int             `json:"order_id"`
	LineNumber  int             `json:"line_number"`
	ProductID   *int            `json:"product_id,omitempty"`
	ProductCode *string         `json:"product_code,omitempty"`
	Description string          `json:"description"`
	OrderedQty  decimal.Decimal `json:"ordered_qty"`
	PendingQty  decimal.Decimal `json:"pending_qty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// PurchaseOrderService provides read access to purchase orders.
type PurchaseOrderService interface {
	// GetOrder returns a purchase order by ID with all lines, scoped to the company.
	GetOrder(ctx context.Context, companyID, orderID int) (*PurchaseOrder, error)

	// GetOrders returns purchase orders for a company, optionally filtered by status.
	GetOrders(ctx context.Context, companyID int, status string) ([]PurchaseOrder, error)

	// FindLatestForSupplier returns the most recent order for the supplier whose
	// status makes it a candidate for matching (SENT, CONFIRMED,
	// PARTIALLY_RECEIVED or COMPLETED). Returns (nil, nil) when no such order
	// exists — a legitimate business state, not an error.
	FindLatestForSupplier(ctx context.Context, companyID, supplierID int) (*PurchaseOrder, error)
}
