package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// AuditActionExecuteMatch is the audit trail action recorded per engine run.
const AuditActionExecuteMatch = "EXECUTE_MATCH"

type matchService struct {
	pool     *pgxpool.Pool
	invoices InvoiceService
	orders   PurchaseOrderService
	receipts GoodsReceiptService
	configs  ConfigService
	audit    AuditService
	log      zerolog.Logger
}

// NewMatchService constructs the three-way match engine.
func NewMatchService(
	pool *pgxpool.Pool,
	invoices InvoiceService,
	orders PurchaseOrderService,
	receipts GoodsReceiptService,
	configs ConfigService,
	audit AuditService,
	log zerolog.Logger,
) MatchService {
	return &matchService{
		pool:     pool,
		invoices: invoices,
		orders:   orders,
		receipts: receipts,
		configs:  configs,
		audit:    audit,
		log:      log.With().Str("component", "match").Logger(),
	}
}

// Run executes the full match for one invoice. The upsert and the receipt
// auto-link share one transaction serialized by the FOR UPDATE lock on the
// result row, so concurrent runs for the same invoice cannot interleave their
// writes; last writer wins, which is safe because the computation depends
// only on current document state.
func (s *matchService) Run(ctx context.Context, companyID, invoiceID int, actor string) (*MatchRun, error) {
	cfg, err := s.configs.GetOrCreate(ctx, companyID)
	if err != nil {
		return nil, err
	}

	invoice, err := s.invoices.GetInvoice(ctx, companyID, invoiceID)
	if err != nil {
		return nil, err
	}

	// The two candidate lookups are independent pure reads.
	var order *PurchaseOrder
	var receipt *GoodsReceipt
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		order, err = s.orders.FindLatestForSupplier(gctx, companyID, invoice.SupplierID)
		return err
	})
	g.Go(func() error {
		var err error
		receipt, err = s.receipts.FindForInvoice(gctx, companyID, invoice.SupplierID, invoice.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	comp := ComputeMatch(MatchDocuments{Invoice: invoice, Order: order, Receipt: receipt}, *cfg)

	result, err := s.persistRun(ctx, companyID, invoice, order, receipt, comp)
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, companyID, result, actor)

	return &MatchRun{
		Result: result,
		Summary: MatchSummary{
			OrderInvoice:   result.OrderInvoice,
			ReceiptInvoice: result.ReceiptInvoice,
			OrderReceipt:   result.OrderReceipt,
			FullyMatched:   result.FullyMatched,
			Status:         result.Status,
			ExceptionCount: len(result.Exceptions),
		},
	}, nil
}

// persistRun upserts the match result, wholesale-replaces its exception set,
// and applies the receipt auto-link, all inside one transaction.
func (s *matchService) persistRun(ctx context.Context, companyID int, invoice *Invoice,
	order *PurchaseOrder, receipt *GoodsReceipt, comp MatchComputation) (*MatchResult, error) {

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin match transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result := &MatchResult{
		CompanyID:      companyID,
		InvoiceID:      invoice.ID,
		OrderInvoice:   comp.OrderInvoice,
		ReceiptInvoice: comp.ReceiptInvoice,
		OrderReceipt:   comp.OrderReceipt,
		FullyMatched:   comp.FullyMatched,
		Status:         comp.Status,
	}
	if order != nil {
		result.OrderID = &order.ID
	}
	if receipt != nil {
		result.ReceiptID = &receipt.ID
	}

	var existingID int
	err = tx.QueryRow(ctx,
		"SELECT id FROM match_results WHERE company_id = $1 AND invoice_id = $2 FOR UPDATE",
		companyID, invoice.ID,
	).Scan(&existingID)

	switch {
	case err == nil:
		if scanErr := tx.QueryRow(ctx, `
			UPDATE match_results
			SET order_id = $1, receipt_id = $2,
			    order_invoice = $3, receipt_invoice = $4, order_receipt = $5,
			    fully_matched = $6, status = $7, updated_at = NOW()
			WHERE id = $8
			RETURNING id, created_at, updated_at`,
			result.OrderID, result.ReceiptID,
			result.OrderInvoice, result.ReceiptInvoice, result.OrderReceipt,
			result.FullyMatched, result.Status, existingID,
		).Scan(&result.ID, &result.CreatedAt, &result.UpdatedAt); scanErr != nil {
			return nil, fmt.Errorf("update match result for invoice %d: %w", invoice.ID, scanErr)
		}

		if _, delErr := tx.Exec(ctx,
			"DELETE FROM match_exceptions WHERE result_id = $1", result.ID,
		); delErr != nil {
			return nil, fmt.Errorf("clear exceptions for result %d: %w", result.ID, delErr)
		}

	case errors.Is(err, pgx.ErrNoRows):
		if scanErr := tx.QueryRow(ctx, `
			INSERT INTO match_results
			            (company_id, invoice_id, order_id, receipt_id,
			             order_invoice, receipt_invoice, order_receipt, fully_matched, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, created_at, updated_at`,
			companyID, invoice.ID, result.OrderID, result.ReceiptID,
			result.OrderInvoice, result.ReceiptInvoice, result.OrderReceipt,
			result.FullyMatched, result.Status,
		).Scan(&result.ID, &result.CreatedAt, &result.UpdatedAt); scanErr != nil {
			return nil, fmt.Errorf("insert match result for invoice %d: %w", invoice.ID, scanErr)
		}

	default:
		return nil, fmt.Errorf("lock match result for invoice %d: %w", invoice.ID, err)
	}

	for i := range comp.Exceptions {
		e := &comp.Exceptions[i]
		e.ResultID = result.ID
		if scanErr := tx.QueryRow(ctx, `
			INSERT INTO match_exceptions
			            (result_id, kind, field, expected, actual, difference, percent_diff, within_tolerance)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`,
			e.ResultID, e.Kind, e.Field, e.Expected, e.Actual,
			e.Difference, e.PercentDiff, e.WithinTolerance,
		).Scan(&e.ID); scanErr != nil {
			return nil, fmt.Errorf("insert exception %s/%s: %w", e.Kind, e.Field, scanErr)
		}
	}
	result.Exceptions = comp.Exceptions

	// A full match ties the receipt to the invoice in the same atomic unit,
	// keeping the "verdict and link never disagree" invariant.
	if comp.FullyMatched && receipt != nil {
		if linkErr := s.receipts.LinkInvoiceTx(ctx, tx, receipt.ID, invoice.ID); linkErr != nil {
			return nil, linkErr
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit match run for invoice %d: %w", invoice.ID, err)
	}
	return result, nil
}

// recordAudit appends the trail entry for a committed run. Audit is
// best-effort: a write failure is logged and never rolls back the match.
func (s *matchService) recordAudit(ctx context.Context, companyID int, result *MatchResult, actor string) {
	detail := fmt.Sprintf("status=%s exceptions=%d", result.Status, len(result.Exceptions))
	if result.OrderID != nil {
		detail += fmt.Sprintf(" order=%d", *result.OrderID)
	}
	if result.ReceiptID != nil {
		detail += fmt.Sprintf(" receipt=%d", *result.ReceiptID)
	}

	err := s.audit.Append(ctx, AuditEntry{
		CompanyID: companyID,
		Entity:    "match_result",
		EntityID:  result.InvoiceID,
		Action:    AuditActionExecuteMatch,
		Detail:    detail,
		Actor:     actor,
	})
	if err != nil {
		s.log.Warn().Err(err).
			Int("invoice_id", result.InvoiceID).
			Msg("audit write failed after match commit")
	}
}

// CheckPaymentEligibility answers from the stored verdict without recomputation.
func (s *matchService) CheckPaymentEligibility(ctx context.Context, companyID, invoiceID int) (*PaymentEligibility, error) {
	cfg, err := s.configs.GetOrCreate(ctx, companyID)
	if err != nil {
		return nil, err
	}

	result, err := s.GetResult(ctx, companyID, invoiceID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	elig := &PaymentEligibility{InvoiceID: invoiceID}
	switch {
	case result != nil && result.Status == StatusMatched:
		elig.Eligible = true
		elig.Reason = "invoice is fully matched"
	case cfg.AllowPaymentWithoutMatch:
		elig.Eligible = true
		elig.Reason = "payment without match allowed by configuration"
	case result == nil:
		elig.Reason = "no match verdict recorded for invoice"
	default:
		elig.Reason = fmt.Sprintf("match status is %s", result.Status)
	}
	return elig, nil
}

// GetResult returns the stored verdict for one invoice with its exceptions.
func (s *matchService) GetResult(ctx context.Context, companyID, invoiceID int) (*MatchResult, error) {
	r := &MatchResult{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, company_id, invoice_id, order_id, receipt_id,
		       order_invoice, receipt_invoice, order_receipt,
		       fully_matched, status, created_at, updated_at
		FROM match_results
		WHERE company_id = $1 AND invoice_id = $2`,
		companyID, invoiceID,
	).Scan(
		&r.ID, &r.CompanyID, &r.InvoiceID, &r.OrderID, &r.ReceiptID,
		&r.OrderInvoice, &r.ReceiptInvoice, &r.OrderReceipt,
		&r.FullyMatched, &r.Status, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("match result for invoice %d: %w", invoiceID, ErrNotFound)
		}
		return nil, fmt.Errorf("get match result for invoice %d: %w", invoiceID, err)
	}

	exceptions, err := s.fetchExceptions(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	r.Exceptions = exceptions
	return r, nil
}

// ListResults returns a page of stored verdicts joined with document summaries.
func (s *matchService) ListResults(ctx context.Context, companyID int, status MatchStatus, page, pageSize int) ([]MatchResultRow, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	where := "WHERE mr.company_id = $1"
	args := []any{companyID}
	if status != "" {
		where += " AND mr.status = $2"
		args = append(args, status)
	}

	var total int
	if err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM match_results mr "+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count match results: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT mr.id, mr.company_id, mr.invoice_id, mr.order_id, mr.receipt_id,
		       mr.order_invoice, mr.receipt_invoice, mr.order_receipt,
		       mr.fully_matched, mr.status, mr.created_at, mr.updated_at,
		       i.invoice_number, i.declared_total, s.name,
		       po.order_number, gr.receipt_number,
		       (SELECT COUNT(*) FROM match_exceptions me WHERE me.result_id = mr.id)
		FROM match_results mr
		JOIN invoices i        ON i.id = mr.invoice_id
		JOIN suppliers s       ON s.id = i.supplier_id
		LEFT JOIN purchase_orders po ON po.id = mr.order_id
		LEFT JOIN goods_receipts gr  ON gr.id = mr.receipt_id
		%s
		ORDER BY mr.updated_at DESC
		LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list match results: %w", err)
	}
	defer rows.Close()

	var out []MatchResultRow
	for rows.Next() {
		var row MatchResultRow
		r := &row.Result
		if err := rows.Scan(
			&r.ID, &r.CompanyID, &r.InvoiceID, &r.OrderID, &r.ReceiptID,
			&r.OrderInvoice, &r.ReceiptInvoice, &r.OrderReceipt,
			&r.FullyMatched, &r.Status, &r.CreatedAt, &r.UpdatedAt,
			&row.InvoiceNumber, &row.DeclaredTotal, &row.SupplierName,
			&row.OrderNumber, &row.ReceiptNumber, &row.ExceptionCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan match result row: %w", err)
		}
		out = append(out, row)
	}
	return out, total, rows.Err()
}

// fetchExceptions returns the exception set for a result in insertion order.
func (s *matchService) fetchExceptions(ctx context.Context, resultID int) ([]MatchException, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, result_id, kind, field, expected, actual, difference, percent_diff, within_tolerance
		FROM match_exceptions
		WHERE result_id = $1
		ORDER BY id`,
		resultID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch exceptions for result %d: %w", resultID, err)
	}
	defer rows.Close()

	var exceptions []MatchException
	for rows.Next() {
		var e MatchException
		if err := rows.Scan(&e.ID, &e.ResultID, &e.Kind, &e.Field,
			&e.Expected, &e.Actual, &e.Difference, &e.PercentDiff, &e.WithinTolerance); err != nil {
			return nil, fmt.Errorf("scan exception: %w", err)
		}
		exceptions = append(exceptions, e)
	}
	return exceptions, rows.Err()
}
