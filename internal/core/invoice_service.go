package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type invoiceService struct {
	pool *pgxpool.Pool
}

// NewInvoiceService constructs an InvoiceService backed by PostgreSQL.
func NewInvoiceService(pool *pgxpool.Pool) InvoiceService {
	return &invoiceService{pool: pool}
}

const invoiceColumns = `
	i.id, i.company_id, i.supplier_id, s.code, s.name,
	i.invoice_number, i.fiscal_class, i.declared_total, i.issued_at, i.created_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	inv := &Invoice{}
	err := row.Scan(
		&inv.ID, &inv.CompanyID, &inv.SupplierID, &inv.SupplierCode, &inv.SupplierName,
		&inv.InvoiceNumber, &inv.FiscalClass, &inv.DeclaredTotal, &inv.IssuedAt, &inv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// GetInvoice returns an invoice by ID with all lines, scoped to the company.
func (s *invoiceService) GetInvoice(ctx context.Context, companyID, invoiceID int) (*Invoice, error) {
	inv, err := scanInvoice(s.pool.QueryRow(ctx, `
		SELECT`+invoiceColumns+`
		FROM invoices i
		JOIN suppliers s ON s.id = i.supplier_id
		WHERE i.id = $1 AND i.company_id = $2`,
		invoiceID, companyID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("invoice %d: %w", invoiceID, ErrInvoiceNotFound)
		}
		return nil, fmt.Errorf("get invoice %d: %w", invoiceID, err)
	}

	lines, err := s.fetchLines(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	inv.Lines = lines
	return inv, nil
}

// GetInvoices returns invoices for a company, newest first.
func (s *invoiceService) GetInvoices(ctx context.Context, companyID int) ([]Invoice, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT`+invoiceColumns+`
		FROM invoices i
		JOIN suppliers s ON s.id = i.supplier_id
		WHERE i.company_id = $1
		ORDER BY i.created_at DESC`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, *inv)
	}
	return invoices, rows.Err()
}

// fetchLines returns all lines for an invoice.
func (s *invoiceService) fetchLines(ctx context.Context, invoiceID int) ([]InvoiceLine, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT il.id, il.invoice_id, il.product_id, p.code,
		       il.description, il.quantity, il.unit_price
		FROM invoice_lines il
		LEFT JOIN products p ON p.id = il.product_id
		WHERE il.invoice_id = $1
		ORDER BY il.id`,
		invoiceID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch invoice lines for %d: %w", invoiceID, err)
	}
	defer rows.Close()

	var lines []InvoiceLine
	for rows.Next() {
		var l InvoiceLine
		if err := rows.Scan(
			&l.ID, &l.InvoiceID, &l.ProductID, &l.ProductCode,
			&l.Description, &l.Quantity, &l.UnitPrice,
		); err != nil {
			return nil, fmt.Errorf("scan invoice line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
