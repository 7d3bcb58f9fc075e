package core_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"threeway-match/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Clean and seed test DB
	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE match_exceptions, match_results, match_configs, audit_log,
			invoice_lines, invoices, goods_receipt_lines, goods_receipts,
			purchase_order_lines, purchase_orders, products, suppliers, users, companies CASCADE;

		INSERT INTO companies (id, company_code, name, base_currency) VALUES (1, '1000', 'Test Company', 'EUR');

		INSERT INTO suppliers (id, company_id, code, name) VALUES (1, 1, 'S001', 'Acme Industrial');

		INSERT INTO products (id, company_id, code, name) VALUES
		(1, 1, 'P001', 'Steel plate 3mm'),
		(2, 1, 'P002', 'Copper wire 2mm');

		INSERT INTO purchase_orders (id, company_id, supplier_id, order_number, status, total) VALUES
		(10, 1, 1, 'PO-0010', 'CONFIRMED', 1000);
		INSERT INTO purchase_order_lines (id, order_id, line_number, product_id, description, ordered_qty, pending_qty, unit_price) VALUES
		(100, 10, 1, 1, 'Steel plate 3mm', 100, 0, 10);

		INSERT INTO goods_receipts (id, company_id, supplier_id, order_id, receipt_number, status) VALUES
		(20, 1, 1, 10, 'GR-0020', 'CONFIRMED');
		INSERT INTO goods_receipt_lines (id, receipt_id, order_line_id, product_id, accepted_qty) VALUES
		(200, 20, 100, 1, 100);

		INSERT INTO invoices (id, company_id, supplier_id, invoice_number, fiscal_class, declared_total, issued_at) VALUES
		(30, 1, 1, 'INV-0030', 'STANDARD', 1000, '2026-08-01');
		INSERT INTO invoice_lines (id, invoice_id, product_id, description, quantity, unit_price) VALUES
		(300, 30, 1, 'Steel plate 3mm', 100, 10);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

func newMatchService(pool *pgxpool.Pool) core.MatchService {
	return core.NewMatchService(
		pool,
		core.NewInvoiceService(pool),
		core.NewPurchaseOrderService(pool),
		core.NewGoodsReceiptService(pool),
		core.NewConfigService(pool),
		core.NewAuditService(pool),
		zerolog.Nop(),
	)
}

func TestMatch_FullRunAutoLinksReceipt(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	matcher := newMatchService(pool)
	ctx := context.Background()

	run, err := matcher.Run(ctx, 1, 30, "tester")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if run.Result.Status != core.StatusMatched {
		t.Fatalf("Expected MATCH_OK, got %s (exceptions: %+v)", run.Result.Status, run.Result.Exceptions)
	}
	if !run.Result.FullyMatched {
		t.Error("Expected fully_matched to be true")
	}

	// The receipt must now be linked to the invoice and marked INVOICED.
	var linkedInvoice *int
	var grStatus string
	err = pool.QueryRow(ctx, "SELECT invoice_id, status FROM goods_receipts WHERE id = 20").Scan(&linkedInvoice, &grStatus)
	if err != nil {
		t.Fatalf("Failed to read receipt: %v", err)
	}
	if linkedInvoice == nil || *linkedInvoice != 30 {
		t.Errorf("Expected receipt linked to invoice 30, got %v", linkedInvoice)
	}
	if grStatus != "INVOICED" {
		t.Errorf("Expected receipt status INVOICED, got %s", grStatus)
	}

	// Re-running must not create a second result row or break the link.
	again, err := matcher.Run(ctx, 1, 30, "tester")
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if again.Result.ID != run.Result.ID {
		t.Errorf("Expected the same result row on re-run, got %d then %d", run.Result.ID, again.Result.ID)
	}
	if again.Result.Status != core.StatusMatched {
		t.Errorf("Expected re-run to stay MATCH_OK after auto-link, got %s", again.Result.Status)
	}

	var count int
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM match_results WHERE company_id = 1 AND invoice_id = 30").Scan(&count); err != nil {
		t.Fatalf("Failed to count results: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected exactly one result row, got %d", count)
	}

	// The audit trail recorded both runs.
	if err := pool.QueryRow(ctx,
		"SELECT count(*) FROM audit_log WHERE company_id = 1 AND entity = 'match_result' AND entity_id = 30",
	).Scan(&count); err != nil {
		t.Fatalf("Failed to count audit entries: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 audit entries, got %d", count)
	}
}

func TestMatch_RerunReplacesExceptionsWholesale(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	matcher := newMatchService(pool)
	configs := core.NewConfigService(pool)
	ctx := context.Background()

	// Push the invoice unit price 6% over the order price.
	if _, err := pool.Exec(ctx, "UPDATE invoice_lines SET unit_price = 10.60 WHERE id = 300"); err != nil {
		t.Fatalf("Failed to adjust invoice line: %v", err)
	}

	run, err := matcher.Run(ctx, 1, 30, "tester")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if run.Result.Status != core.StatusDiscrepancy {
		t.Fatalf("Expected DISCREPANCY, got %s", run.Result.Status)
	}
	if len(run.Result.Exceptions) == 0 {
		t.Fatal("Expected at least one exception")
	}

	// Widen the price tolerance past the deviation and re-run: the stale
	// exceptions must be gone, not accumulated.
	cfg, err := configs.GetOrCreate(ctx, 1)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	cfg.PriceTolerancePct = decimal.NewFromInt(10)
	if _, err := configs.Update(ctx, *cfg); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	rerun, err := matcher.Run(ctx, 1, 30, "tester")
	if err != nil {
		t.Fatalf("Re-run failed: %v", err)
	}
	if rerun.Result.Status != core.StatusMatched {
		t.Fatalf("Expected MATCH_OK after widening tolerance, got %s (exceptions: %+v)",
			rerun.Result.Status, rerun.Result.Exceptions)
	}

	var count int
	if err := pool.QueryRow(ctx,
		"SELECT count(*) FROM match_exceptions me JOIN match_results mr ON mr.id = me.result_id WHERE mr.invoice_id = 30",
	).Scan(&count); err != nil {
		t.Fatalf("Failed to count exceptions: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected stale exceptions to be replaced, %d remain", count)
	}
}

func TestConfig_GetOrCreateDefaults(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	configs := core.NewConfigService(pool)
	ctx := context.Background()

	cfg, err := configs.GetOrCreate(ctx, 1)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if cfg.QuantityTolerancePct.StringFixed(2) != "5.00" {
		t.Errorf("Expected default quantity tolerance 5.00, got %s", cfg.QuantityTolerancePct)
	}
	if cfg.PriceTolerancePct.StringFixed(2) != "2.00" {
		t.Errorf("Expected default price tolerance 2.00, got %s", cfg.PriceTolerancePct)
	}
	if cfg.AllowPaymentWithoutMatch {
		t.Error("Expected payment without match to default off")
	}

	// A second call must return the same row, not insert a duplicate.
	if _, err := configs.GetOrCreate(ctx, 1); err != nil {
		t.Fatalf("Second GetOrCreate failed: %v", err)
	}
	var count int
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM match_configs WHERE company_id = 1").Scan(&count); err != nil {
		t.Fatalf("Failed to count configs: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected exactly one config row, got %d", count)
	}

	// Out-of-range percentages are rejected.
	bad := *cfg
	bad.PriceTolerancePct = decimal.NewFromInt(100)
	if _, err := configs.Update(ctx, bad); err == nil {
		t.Error("Expected Update to reject tolerance of 100%")
	}
	bad.PriceTolerancePct = decimal.NewFromInt(-1)
	if _, err := configs.Update(ctx, bad); err == nil {
		t.Error("Expected Update to reject negative tolerance")
	}
}

func TestMatch_PaymentEligibility(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	matcher := newMatchService(pool)
	configs := core.NewConfigService(pool)
	ctx := context.Background()

	// No verdict yet: not eligible.
	elig, err := matcher.CheckPaymentEligibility(ctx, 1, 30)
	if err != nil {
		t.Fatalf("CheckPaymentEligibility failed: %v", err)
	}
	if elig.Eligible {
		t.Error("Expected invoice without verdict to be ineligible")
	}

	// The override flag makes any invoice payable.
	cfg, err := configs.GetOrCreate(ctx, 1)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	cfg.AllowPaymentWithoutMatch = true
	if _, err := configs.Update(ctx, *cfg); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	elig, err = matcher.CheckPaymentEligibility(ctx, 1, 30)
	if err != nil {
		t.Fatalf("CheckPaymentEligibility failed: %v", err)
	}
	if !elig.Eligible {
		t.Errorf("Expected override flag to grant eligibility, got reason %q", elig.Reason)
	}

	// Flag off again, full match on: eligible on merit.
	cfg.AllowPaymentWithoutMatch = false
	if _, err := configs.Update(ctx, *cfg); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if _, err := matcher.Run(ctx, 1, 30, "tester"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	elig, err = matcher.CheckPaymentEligibility(ctx, 1, 30)
	if err != nil {
		t.Fatalf("CheckPaymentEligibility failed: %v", err)
	}
	if !elig.Eligible {
		t.Errorf("Expected fully matched invoice to be eligible, got reason %q", elig.Reason)
	}
}

func TestMatch_GetResultNotFound(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	matcher := newMatchService(pool)

	_, err := matcher.GetResult(context.Background(), 1, 30)
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for invoice without verdict, got %v", err)
	}
}

func TestMatch_ListResults(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	matcher := newMatchService(pool)
	ctx := context.Background()

	if _, err := matcher.Run(ctx, 1, 30, "tester"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	rows, total, err := matcher.ListResults(ctx, 1, "", 1, 50)
	if err != nil {
		t.Fatalf("ListResults failed: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("Expected one result, got total=%d rows=%d", total, len(rows))
	}
	if rows[0].InvoiceNumber != "INV-0030" {
		t.Errorf("Expected invoice number INV-0030, got %s", rows[0].InvoiceNumber)
	}
	if rows[0].SupplierName != "Acme Industrial" {
		t.Errorf("Expected supplier Acme Industrial, got %s", rows[0].SupplierName)
	}

	// Status filter that matches nothing.
	rows, total, err = matcher.ListResults(ctx, 1, core.StatusDiscrepancy, 1, 50)
	if err != nil {
		t.Fatalf("ListResults with filter failed: %v", err)
	}
	if total != 0 || len(rows) != 0 {
		t.Errorf("Expected no DISCREPANCY rows, got total=%d rows=%d", total, len(rows))
	}
}
