package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is the supplier's billing document with its declared total and lines.
type Invoice struct {
	ID            int             `json:"id"`
	CompanyID     int             `json:"company_id"`
	SupplierID    int             `json:"supplier_id"`
	SupplierCode  string          `json:"supplier_code"`
	SupplierName  string          `json:"supplier_name"`
	InvoiceNumber string          `json:"invoice_number"`
	FiscalClass   FiscalClass     `json:"fiscal_class"`
	DeclaredTotal decimal.Decimal `json:"declared_total"`
	IssuedAt      time.Time       `json:"issued_at"`
	CreatedAt     time.Time       `json:"created_at"`
	Lines         []InvoiceLine   `json:"lines"`
}

// InvoiceLine carries either a product reference or a free-text description
// (or both); lines without a product reference are matched by description.
type InvoiceLine struct {
	ID          int             `json:"id"`
	InvoiceID   int             `json:"invoice_id"`
	ProductID   *int            `json:"product_id,omitempty"`
	ProductCode *string         `json:"product_code,omitempty"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// InvoiceService provides read access to supplier invoices.
type InvoiceService interface {
	// GetInvoice returns an invoice by ID with all lines, scoped to the company.
	// A missing invoice yields ErrInvoiceNotFound.
	GetInvoice(ctx context.Context, companyID, invoiceID int) (*Invoice, error)

	// GetInvoices returns invoices for a company, newest first.
	GetInvoices(ctx context.Context, companyID int) ([]Invoice, error)
}
