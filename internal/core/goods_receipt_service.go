package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type goodsReceiptService struct {
	pool *pgxpool.Pool
}

// NewGoodsReceiptService constructs a GoodsReceiptService backed by PostgreSQL.
func NewGoodsReceiptService(pool *pgxpool.Pool) GoodsReceiptService {
	return &goodsReceiptService{pool: pool}
}

const goodsReceiptColumns = `
	gr.id, gr.company_id, gr.supplier_id, gr.order_id, gr.receipt_number,
	gr.status, gr.invoice_id, gr.received_at, gr.created_at`

func scanGoodsReceipt(row pgx.Row) (*GoodsReceipt, error) {
	gr := &GoodsReceipt{}
	err := row.Scan(
		&gr.ID, &gr.CompanyID, &gr.SupplierID, &gr.OrderID, &gr.ReceiptNumber,
		&gr.Status, &gr.InvoiceID, &gr.ReceivedAt, &gr.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return gr, nil
}

// GetReceipt returns a goods receipt by ID with all lines, scoped to the company.
func (s *goodsReceiptService) GetReceipt(ctx context.Context, companyID, receiptID int) (*GoodsReceipt, error) {
	gr, err := scanGoodsReceipt(s.pool.QueryRow(ctx, `
		SELECT`+goodsReceiptColumns+`
		FROM goods_receipts gr
		WHERE gr.id = $1 AND gr.company_id = $2`,
		receiptID, companyID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("goods receipt %d: %w", receiptID, ErrNotFound)
		}
		return nil, fmt.Errorf("get goods receipt %d: %w", receiptID, err)
	}

	lines, err := s.fetchLines(ctx, gr.ID)
	if err != nil {
		return nil, err
	}
	gr.Lines = lines
	return gr, nil
}

// GetReceipts returns goods receipts for a company, optionally filtered by status.
func (s *goodsReceiptService) GetReceipts(ctx context.Context, companyID int, status string) ([]GoodsReceipt, error) {
	query := `
		SELECT` + goodsReceiptColumns + `
		FROM goods_receipts gr
		WHERE gr.company_id = $1`
	args := []any{companyID}

	if status != "" {
		query += " AND gr.status = $2"
		args = append(args, status)
	}
	query += " ORDER BY gr.created_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list goods receipts: %w", err)
	}
	defer rows.Close()

	var receipts []GoodsReceipt
	for rows.Next() {
		gr, err := scanGoodsReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goods receipt: %w", err)
		}
		receipts = append(receipts, *gr)
	}
	return receipts, rows.Err()
}

// FindForInvoice returns the candidate receipt for matching an invoice. A
// receipt already linked to the invoice is preferred so re-runs after the
// auto-link keep seeing the same document; otherwise the most recent
// CONFIRMED receipt with no invoice linked yet wins.
func (s *goodsReceiptService) FindForInvoice(ctx context.Context, companyID, supplierID, invoiceID int) (*GoodsReceipt, error) {
	gr, err := scanGoodsReceipt(s.pool.QueryRow(ctx, `
		SELECT`+goodsReceiptColumns+`
		FROM goods_receipts gr
		WHERE gr.company_id = $1 AND gr.supplier_id = $2
		  AND (gr.invoice_id = $3 OR (gr.invoice_id IS NULL AND gr.status = 'CONFIRMED'))
		ORDER BY (gr.invoice_id = $3) DESC NULLS LAST, gr.created_at DESC, gr.id DESC
		LIMIT 1`,
		companyID, supplierID, invoiceID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find receipt candidate for supplier %d: %w", supplierID, err)
	}

	lines, err := s.fetchLines(ctx, gr.ID)
	if err != nil {
		return nil, err
	}
	gr.Lines = lines
	return gr, nil
}

// LinkInvoiceTx links a receipt to an invoice inside the caller's transaction.
// Setting the same reference twice is a no-op; a receipt already linked to a
// different invoice is rejected.
func (s *goodsReceiptService) LinkInvoiceTx(ctx context.Context, tx pgx.Tx, receiptID, invoiceID int) error {
	tag, err := tx.Exec(ctx, `
		UPDATE goods_receipts
		SET invoice_id = $1, status = 'INVOICED'
		WHERE id = $2 AND (invoice_id IS NULL OR invoice_id = $1)`,
		invoiceID, receiptID,
	)
	if err != nil {
		return fmt.Errorf("link receipt %d to invoice %d: %w", receiptID, invoiceID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("receipt %d is already linked to a different invoice", receiptID)
	}
	return nil
}

// fetchLines returns all lines for a goods receipt.
func (s *goodsReceiptService) fetchLines(ctx context.Context, receiptID int) ([]GoodsReceiptLine, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT grl.id, grl.receipt_id, grl.order_line_id,
		       grl.product_id, p.code, grl.accepted_qty
		FROM goods_receipt_lines grl
		LEFT JOIN products p ON p.id = grl.product_id
		WHERE grl.receipt_id = $1
		ORDER BY grl.id`,
		receiptID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch receipt lines for %d: %w", receiptID, err)
	}
	defer rows.Close()

	var lines []GoodsReceiptLine
	for rows.Next() {
		var l GoodsReceiptLine
		if err := rows.Scan(
			&l.ID, &l.ReceiptID, &l.OrderLineID,
			&l.ProductID, &l.ProductCode, &l.AcceptedQty,
		); err != nil {
			return nil, fmt.Errorf("scan receipt line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
