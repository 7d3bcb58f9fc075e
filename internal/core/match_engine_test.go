package core_test

import (
	"reflect"
	"testing"

	"threeway-match/internal/core"

	"github.com/shopspring/decimal"
)

func tolerances(qtyPct, pricePct int64) core.MatchConfig {
	return core.MatchConfig{
		CompanyID:            1,
		QuantityTolerancePct: decimal.NewFromInt(qtyPct),
		PriceTolerancePct:    decimal.NewFromInt(pricePct),
	}
}

func intPtr(v int) *int       { return &v }
func strPtr(s string) *string { return &s }

// buildOrder returns a one-line order: 100 units of P001 at 10.00, total 1000.
func buildOrder() *core.PurchaseOrder {
	return &core.PurchaseOrder{
		ID:         7,
		CompanyID:  1,
		SupplierID: 3,
		Status:     core.POStatusConfirmed,
		Total:      decimal.NewFromInt(1000),
		Lines: []core.PurchaseOrderLine{
			{
				ID:          70,
				OrderID:     7,
				LineNumber:  1,
				ProductID:   intPtr(11),
				ProductCode: strPtr("P001"),
				Description: "Steel plate 3mm",
				OrderedQty:  decimal.NewFromInt(100),
				PendingQty:  decimal.Zero,
				UnitPrice:   decimal.NewFromInt(10),
			},
		},
	}
}

// buildReceipt returns a receipt fully covering the order line.
func buildReceipt() *core.GoodsReceipt {
	return &core.GoodsReceipt{
		ID:         5,
		CompanyID:  1,
		SupplierID: 3,
		Status:     core.GRStatusConfirmed,
		Lines: []core.GoodsReceiptLine{
			{
				ID:          50,
				ReceiptID:   5,
				OrderLineID: intPtr(70),
				ProductID:   intPtr(11),
				ProductCode: strPtr("P001"),
				AcceptedQty: decimal.NewFromInt(100),
			},
		},
	}
}

// buildInvoice returns an invoice consistent with buildOrder and buildReceipt.
func buildInvoice() *core.Invoice {
	return &core.Invoice{
		ID:            9,
		CompanyID:     1,
		SupplierID:    3,
		InvoiceNumber: "INV-001",
		FiscalClass:   core.FiscalClassStandard,
		DeclaredTotal: decimal.NewFromInt(1000),
		Lines: []core.InvoiceLine{
			{
				ID:          90,
				InvoiceID:   9,
				ProductID:   intPtr(11),
				ProductCode: strPtr("P001"),
				Description: "Steel plate 3mm",
				Quantity:    decimal.NewFromInt(100),
				UnitPrice:   decimal.NewFromInt(10),
			},
		},
	}
}

func countKind(exceptions []core.MatchException, kind core.ExceptionKind) int {
	n := 0
	for _, e := range exceptions {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func TestComputeMatch_FullMatch(t *testing.T) {
	docs := core.MatchDocuments{Invoice: buildInvoice(), Order: buildOrder(), Receipt: buildReceipt()}
	comp := core.ComputeMatch(docs, tolerances(5, 2))

	if comp.OrderInvoice != core.OutcomePass {
		t.Errorf("order↔invoice outcome = %s, want PASS", comp.OrderInvoice)
	}
	if comp.ReceiptInvoice != core.OutcomePass {
		t.Errorf("receipt↔invoice outcome = %s, want PASS", comp.ReceiptInvoice)
	}
	if comp.OrderReceipt != core.OutcomePass {
		t.Errorf("order↔receipt outcome = %s, want PASS", comp.OrderReceipt)
	}
	if !comp.FullyMatched {
		t.Error("expected fully matched")
	}
	if comp.Status != core.StatusMatched {
		t.Errorf("status = %s, want MATCH_OK", comp.Status)
	}
	if len(comp.Exceptions) != 0 {
		t.Errorf("expected no exceptions, got %d", len(comp.Exceptions))
	}
}

func TestComputeMatch_TotalWithinTolerance(t *testing.T) {
	// Order total 1000, invoice total 1000, price tolerance 2% — no TOTAL_MISMATCH.
	docs := core.MatchDocuments{Invoice: buildInvoice(), Order: buildOrder(), Receipt: buildReceipt()}
	comp := core.ComputeMatch(docs, tolerances(5, 2))

	if n := countKind(comp.Exceptions, core.ExceptionTotalMismatch); n != 0 {
		t.Errorf("expected zero TOTAL_MISMATCH exceptions, got %d", n)
	}
	if comp.OrderInvoice != core.OutcomePass {
		t.Errorf("order↔invoice outcome = %s, want PASS", comp.OrderInvoice)
	}
}

func TestComputeMatch_TotalBeyondTolerance(t *testing.T) {
	inv := buildInvoice()
	inv.DeclaredTotal = decimal.NewFromInt(1100) // 10% over, tolerance 2%
	inv.Lines[0].UnitPrice = decimal.NewFromInt(11)

	docs := core.MatchDocuments{Invoice: inv, Order: buildOrder(), Receipt: buildReceipt()}
	comp := core.ComputeMatch(docs, tolerances(5, 2))

	if countKind(comp.Exceptions, core.ExceptionTotalMismatch) != 1 {
		t.Fatalf("expected one TOTAL_MISMATCH, got %v", comp.Exceptions)
	}
	if comp.OrderInvoice != core.OutcomeFail {
		t.Errorf("order↔invoice outcome = %s, want FAIL", comp.OrderInvoice)
	}
	if comp.Status != core.StatusDiscrepancy {
		t.Errorf("status = %s, want DISCREPANCY", comp.Status)
	}
}

func TestComputeMatch_QuantityTolerance(t *testing.T) {
	cases := []struct {
		name        string
		invoiceQty  int64
		wantBreach  bool
		wantOutcome core.PairOutcome
	}{
		{"4pct diff within 5pct band", 96, false, core.OutcomePass},
		{"7pct diff beyond 5pct band", 93, true, core.OutcomeFail},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inv := buildInvoice()
			inv.Lines[0].Quantity = decimal.NewFromInt(tc.invoiceQty)
			receipt := buildReceipt()
			receipt.Lines[0].AcceptedQty = decimal.NewFromInt(tc.invoiceQty)

			docs := core.MatchDocuments{Invoice: inv, Order: buildOrder(), Receipt: receipt}
			comp := core.ComputeMatch(docs, tolerances(5, 2))

			got := countKind(comp.Exceptions, core.ExceptionQuantityMismatch)
			if tc.wantBreach && got == 0 {
				t.Error("expected a QUANTITY_MISMATCH exception")
			}
			if !tc.wantBreach && got != 0 {
				t.Errorf("unexpected QUANTITY_MISMATCH exceptions: %v", comp.Exceptions)
			}
			if comp.OrderInvoice != tc.wantOutcome {
				t.Errorf("order↔invoice outcome = %s, want %s", comp.OrderInvoice, tc.wantOutcome)
			}
		})
	}
}

func TestComputeMatch_NoOrder(t *testing.T) {
	// Receipt present and consistent; order never found.
	docs := core.MatchDocuments{Invoice: buildInvoice(), Receipt: buildReceipt()}
	comp := core.ComputeMatch(docs, tolerances(5, 2))

	if comp.OrderInvoice != core.OutcomeUnknown {
		t.Errorf("order↔invoice outcome = %s, want UNKNOWN", comp.OrderInvoice)
	}
	if comp.ReceiptInvoice != core.OutcomePass {
		t.Errorf("receipt↔invoice outcome = %s, want PASS", comp.ReceiptInvoice)
	}
	if comp.OrderReceipt != core.OutcomeUnknown {
		t.Errorf("order↔receipt outcome = %s, want UNKNOWN", comp.OrderReceipt)
	}
	if countKind(comp.Exceptions, core.ExceptionNoOrder) != 1 {
		t.Fatalf("expected one NO_ORDER exception, got %v", comp.Exceptions)
	}
	if comp.FullyMatched {
		t.Error("full match requires all three pairings to pass")
	}
	if comp.Status != core.StatusDiscrepancy {
		t.Errorf("status = %s, want DISCREPANCY", comp.Status)
	}
}

func TestComputeMatch_NoOrderNoReceipt(t *testing.T) {
	docs := core.MatchDocuments{Invoice: buildInvoice()}
	comp := core.ComputeMatch(docs, tolerances(5, 2))

	if comp.OrderInvoice != core.OutcomeUnknown || comp.ReceiptInvoice != core.OutcomeUnknown ||
		comp.OrderReceipt != core.OutcomeUnknown {
		t.Errorf("all outcomes should be UNKNOWN, got %s/%s/%s",
			comp.OrderInvoice, comp.ReceiptInvoice, comp.OrderReceipt)
	}
	if countKind(comp.Exceptions, core.ExceptionNoOrder) != 1 ||
		countKind(comp.Exceptions, core.ExceptionNoReceipt) != 1 {
		t.Fatalf("expected NO_ORDER and NO_RECEIPT, got %v", comp.Exceptions)
	}
	// Never silently PENDING when nothing was found.
	if comp.Status != core.StatusDiscrepancy {
		t.Errorf("status = %s, want DISCREPANCY", comp.Status)
	}
}

func TestComputeMatch_WideningToleranceClearsPriceMismatch(t *testing.T) {
	inv := buildInvoice()
	inv.Lines[0].UnitPrice = decimal.NewFromFloat(10.60) // 6% over unit price
	docs := core.MatchDocuments{Invoice: inv, Order: buildOrder(), Receipt: buildReceipt()}

	tight := core.ComputeMatch(docs, tolerances(5, 2))
	if countKind(tight.Exceptions, core.ExceptionPriceMismatch) != 1 {
		t.Fatalf("expected one PRICE_MISMATCH at 2%% tolerance, got %v", tight.Exceptions)
	}
	if tight.Status != core.StatusDiscrepancy {
		t.Errorf("status at 2%% tolerance = %s, want DISCREPANCY", tight.Status)
	}

	wide := core.ComputeMatch(docs, tolerances(5, 10))
	if countKind(wide.Exceptions, core.ExceptionPriceMismatch) != 0 {
		t.Errorf("expected PRICE_MISMATCH to disappear at 10%% tolerance, got %v", wide.Exceptions)
	}
	if wide.Status != core.StatusMatched {
		t.Errorf("status at 10%% tolerance = %s, want MATCH_OK", wide.Status)
	}
	if !wide.FullyMatched {
		t.Error("expected fully matched after widening tolerance")
	}
}

func TestComputeMatch_Idempotent(t *testing.T) {
	inv := buildInvoice()
	inv.DeclaredTotal = decimal.NewFromInt(1200)
	inv.Lines[0].Quantity = decimal.NewFromInt(80)
	docs := core.MatchDocuments{Invoice: inv, Order: buildOrder(), Receipt: buildReceipt()}

	first := core.ComputeMatch(docs, tolerances(5, 2))
	second := core.ComputeMatch(docs, tolerances(5, 2))

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated runs over unchanged documents diverged:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestComputeMatch_ToleranceMonotonicity(t *testing.T) {
	inv := buildInvoice()
	inv.DeclaredTotal = decimal.NewFromInt(1080)
	inv.Lines[0].Quantity = decimal.NewFromInt(92)
	inv.Lines[0].UnitPrice = decimal.NewFromFloat(10.40)
	docs := core.MatchDocuments{Invoice: inv, Order: buildOrder(), Receipt: buildReceipt()}

	prev := -1
	for _, tol := range []int64{0, 2, 5, 10, 25, 50} {
		comp := core.ComputeMatch(docs, tolerances(tol, tol))
		if prev >= 0 && len(comp.Exceptions) > prev {
			t.Errorf("tolerance %d%%: exception count grew from %d to %d", tol, prev, len(comp.Exceptions))
		}
		prev = len(comp.Exceptions)
	}
}

func TestComputeMatch_ItemMissing(t *testing.T) {
	inv := buildInvoice()
	inv.Lines = nil

	docs := core.MatchDocuments{Invoice: inv, Order: buildOrder(), Receipt: buildReceipt()}
	comp := core.ComputeMatch(docs, tolerances(5, 2))

	if countKind(comp.Exceptions, core.ExceptionItemMissing) != 1 {
		t.Fatalf("expected one ITEM_MISSING, got %v", comp.Exceptions)
	}
	if comp.OrderInvoice != core.OutcomeFail {
		t.Errorf("order↔invoice outcome = %s, want FAIL", comp.OrderInvoice)
	}
}

func TestComputeMatch_DescriptionFallback(t *testing.T) {
	order := buildOrder()
	order.Lines[0].ProductID = nil
	order.Lines[0].ProductCode = nil
	order.Lines[0].Description = "Hydraulic hose 1/2 inch"

	inv := buildInvoice()
	inv.Lines[0].ProductID = nil
	inv.Lines[0].ProductCode = nil
	inv.Lines[0].Description = "HYDRAULIC HOSE 1/2 INCH x 25m coil"

	docs := core.MatchDocuments{Invoice: inv, Order: order, Receipt: buildReceipt()}
	comp := core.ComputeMatch(docs, tolerances(5, 2))

	if countKind(comp.Exceptions, core.ExceptionItemMissing) != 0 {
		t.Errorf("substring fallback should have paired the lines, got %v", comp.Exceptions)
	}
}

func TestComputeMatch_ZeroExpectedTreatedAsZeroDiff(t *testing.T) {
	order := buildOrder()
	order.Total = decimal.Zero
	order.Lines[0].OrderedQty = decimal.Zero
	order.Lines[0].UnitPrice = decimal.Zero

	docs := core.MatchDocuments{Invoice: buildInvoice(), Order: order, Receipt: buildReceipt()}
	comp := core.ComputeMatch(docs, tolerances(5, 2))

	// Zero expected values are defined as 0% difference, never a division error.
	if countKind(comp.Exceptions, core.ExceptionTotalMismatch) != 0 {
		t.Errorf("zero order total must not raise TOTAL_MISMATCH: %v", comp.Exceptions)
	}
	if comp.OrderInvoice != core.OutcomePass {
		t.Errorf("order↔invoice outcome = %s, want PASS", comp.OrderInvoice)
	}
}

func TestComputeMatch_ReceiptLineAbsentFromInvoiceIsSkipped(t *testing.T) {
	// Partial invoicing: the receipt covers a product the invoice omits.
	receipt := buildReceipt()
	receipt.Lines = append(receipt.Lines, core.GoodsReceiptLine{
		ID:          51,
		ReceiptID:   5,
		ProductID:   intPtr(12),
		ProductCode: strPtr("P002"),
		AcceptedQty: decimal.NewFromInt(40),
	})

	docs := core.MatchDocuments{Invoice: buildInvoice(), Order: buildOrder(), Receipt: receipt}
	comp := core.ComputeMatch(docs, tolerances(5, 2))

	if comp.ReceiptInvoice != core.OutcomePass {
		t.Errorf("receipt↔invoice outcome = %s, want PASS", comp.ReceiptInvoice)
	}
}

func TestComputeMatch_OrderReceiptCoverage(t *testing.T) {
	t.Run("under 95 percent coverage fails", func(t *testing.T) {
		receipt := buildReceipt()
		receipt.Lines[0].AcceptedQty = decimal.NewFromInt(90)
		inv := buildInvoice()
		inv.Lines[0].Quantity = decimal.NewFromInt(90)

		docs := core.MatchDocuments{Invoice: inv, Order: buildOrder(), Receipt: receipt}
		comp := core.ComputeMatch(docs, tolerances(15, 15))

		if comp.OrderReceipt != core.OutcomeFail {
			t.Errorf("order↔receipt outcome = %s, want FAIL", comp.OrderReceipt)
		}
	})

	t.Run("missing receipt line with pending quantity fails without exception", func(t *testing.T) {
		order := buildOrder()
		order.Lines[0].PendingQty = decimal.NewFromInt(100)
		receipt := buildReceipt()
		receipt.Lines = nil

		docs := core.MatchDocuments{Invoice: buildInvoice(), Order: order, Receipt: receipt}
		comp := core.ComputeMatch(docs, tolerances(5, 2))

		if comp.OrderReceipt != core.OutcomeFail {
			t.Errorf("order↔receipt outcome = %s, want FAIL", comp.OrderReceipt)
		}
		// Informational pairing: it fails silently.
		if len(comp.Exceptions) != 0 {
			t.Errorf("order↔receipt must not emit exceptions, got %v", comp.Exceptions)
		}
	})

	t.Run("missing receipt line with nothing pending passes", func(t *testing.T) {
		order := buildOrder()
		order.Lines[0].PendingQty = decimal.Zero
		receipt := buildReceipt()
		receipt.Lines = nil

		docs := core.MatchDocuments{Invoice: buildInvoice(), Order: order, Receipt: receipt}
		comp := core.ComputeMatch(docs, tolerances(5, 2))

		if comp.OrderReceipt != core.OutcomePass {
			t.Errorf("order↔receipt outcome = %s, want PASS", comp.OrderReceipt)
		}
	})
}
