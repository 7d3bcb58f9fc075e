package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type purchaseOrderService struct {
	pool *pgxpool.Pool
}

// NewPurchaseOrderService constructs a PurchaseOrderService backed by PostgreSQL.
func NewPurchaseOrderService(pool *pgxpool.Pool) PurchaseOrderService {
	return &purchaseOrderService{pool: pool}
}

const purchaseOrderColumns = `
	po.id, po.company_id, po.supplier_id, s.code, s.name,
	po.order_number, po.status, po.total, po.notes, po.created_at`

func scanPurchaseOrder(row pgx.Row) (*PurchaseOrder, error) {
	po := &PurchaseOrder{}
	err := row.Scan(
		&po.ID, &po.CompanyID, &po.SupplierID, &po.SupplierCode, &po.SupplierName,
		&po.OrderNumber, &po.Status, &po.Total, &po.Notes, &po.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return po, nil
}

// GetOrder returns a purchase order by ID with all lines, scoped to the company.
func (s *purchaseOrderService) GetOrder(ctx context.Context, companyID, orderID int) (*PurchaseOrder, error) {
	po, err := scanPurchaseOrder(s.pool.QueryRow(ctx, `
		SELECT`+purchaseOrderColumns+`
		FROM purchase_orders po
		JOIN suppliers s ON s.id = po.supplier_id
		WHERE po.id = $1 AND po.company_id = $2`,
		orderID, companyID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("purchase order %d: %w", orderID, ErrNotFound)
		}
		return nil, fmt.Errorf("get purchase order %d: %w", orderID, err)
	}

	lines, err := s.fetchLines(ctx, po.ID)
	if err != nil {
		return nil, err
	}
	po.Lines = lines
	return po, nil
}

// GetOrders returns purchase orders for a company, optionally filtered by status.
func (s *purchaseOrderService) GetOrders(ctx context.Context, companyID int, status string) ([]PurchaseOrder, error) {
	query := `
		SELECT` + purchaseOrderColumns + `
		FROM purchase_orders po
		JOIN suppliers s ON s.id = po.supplier_id
		WHERE po.company_id = $1`
	args := []any{companyID}

	if status != "" {
		query += " AND po.status = $2"
		args = append(args, status)
	}
	query += " ORDER BY po.created_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	defer rows.Close()

	var orders []PurchaseOrder
	for rows.Next() {
		po, err := scanPurchaseOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase order: %w", err)
		}
		orders = append(orders, *po)
	}
	return orders, rows.Err()
}

// FindLatestForSupplier returns the most recent matchable order for the
// supplier, or (nil, nil) when none exists. Ties on created_at are broken
// arbitrarily by the ordering on id.
func (s *purchaseOrderService) FindLatestForSupplier(ctx context.Context, companyID, supplierID int) (*PurchaseOrder, error) {
	po, err := scanPurchaseOrder(s.pool.QueryRow(ctx, `
		SELECT`+purchaseOrderColumns+`
		FROM purchase_orders po
		JOIN suppliers s ON s.id = po.supplier_id
		WHERE po.company_id = $1 AND po.supplier_id = $2
		  AND po.status IN ('SENT', 'CONFIRMED', 'PARTIALLY_RECEIVED', 'COMPLETED')
		ORDER BY po.created_at DESC, po.id DESC
		LIMIT 1`,
		companyID, supplierID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find latest order for supplier %d: %w", supplierID, err)
	}

	lines, err := s.fetchLines(ctx, po.ID)
	if err != nil {
		return nil, err
	}
	po.Lines = lines
	return po, nil
}

// fetchLines returns all lines for a purchase order in line order.
func (s *purchaseOrderService) fetchLines(ctx context.Context, orderID int) ([]PurchaseOrderLine, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT pol.id, pol.order_id, pol.line_number,
		       pol.product_id, p.code,
		       pol.description, pol.ordered_qty, pol.pending_qty, pol.unit_price
		FROM purchase_order_lines pol
		LEFT JOIN products p ON p.id = pol.product_id
		WHERE pol.order_id = $1
		ORDER BY pol.line_number`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch order lines for %d: %w", orderID, err)
	}
	defer rows.Close()

	var lines []PurchaseOrderLine
	for rows.Next() {
		var l PurchaseOrderLine
		if err := rows.Scan(
			&l.ID, &l.OrderID, &l.LineNumber,
			&l.ProductID, &l.ProductCode,
			&l.Description, &l.OrderedQty, &l.PendingQty, &l.UnitPrice,
		); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
