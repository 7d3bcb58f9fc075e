package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// receiptCoverageFloor is the minimum received/ordered ratio for the
// Order↔Receipt pairing to stay green.
var receiptCoverageFloor = decimal.NewFromFloat(0.95)

var hundred = decimal.NewFromInt(100)

// MatchDocuments is the input to one engine computation. Order and Receipt
// are nil when the loader found no candidate document.
type MatchDocuments struct {
	Invoice *Invoice
	Order   *PurchaseOrder
	Receipt *GoodsReceipt
}

// MatchComputation is the pure outcome of comparing the three documents under
// a tolerance config. It carries no storage identifiers.
type MatchComputation struct {
	OrderInvoice   PairOutcome
	ReceiptInvoice PairOutcome
	OrderReceipt   PairOutcome
	FullyMatched   bool
	Status         MatchStatus
	Exceptions     []MatchException
}

// exceptionCollector accumulates discrepancies. A run always produces a
// complete fresh list; nothing is deduplicated or merged with prior runs.
type exceptionCollector struct {
	exceptions []MatchException
}

func (c *exceptionCollector) add(e MatchException) {
	c.exceptions = append(c.exceptions, e)
}

func (c *exceptionCollector) count() int {
	return len(c.exceptions)
}

// ComputeMatch runs the three pairwise comparisons and resolves the verdict.
// It is a deterministic function of the documents and the tolerances: equal
// inputs produce equal outputs, including exception ordering.
func ComputeMatch(docs MatchDocuments, cfg MatchConfig) MatchComputation {
	col := &exceptionCollector{}

	orderInvoice := compareOrderInvoice(docs.Order, docs.Invoice, cfg, col)
	receiptInvoice := compareReceiptInvoice(docs.Receipt, docs.Invoice, cfg, col)
	orderReceipt := compareOrderReceipt(docs.Order, docs.Receipt)

	fullyMatched := orderInvoice == OutcomePass &&
		receiptInvoice == OutcomePass &&
		orderReceipt == OutcomePass

	status := StatusPending
	switch {
	case fullyMatched:
		status = StatusMatched
	case col.count() > 0:
		status = StatusDiscrepancy
	}

	return MatchComputation{
		OrderInvoice:   orderInvoice,
		ReceiptInvoice: receiptInvoice,
		OrderReceipt:   orderReceipt,
		FullyMatched:   fullyMatched,
		Status:         status,
		Exceptions:     col.exceptions,
	}
}

// compareOrderInvoice checks the order total against the declared invoice
// total and every order line against its invoice counterpart.
func compareOrderInvoice(order *PurchaseOrder, inv *Invoice, cfg MatchConfig, col *exceptionCollector) PairOutcome {
	if order == nil {
		col.add(MatchException{
			Kind:  ExceptionNoOrder,
			Field: "order",
		})
		return OutcomeUnknown
	}

	outcome := OutcomePass

	if diff := percentDiff(order.Total, inv.DeclaredTotal); diff.GreaterThan(cfg.PriceTolerancePct) {
		col.add(toleranceException(ExceptionTotalMismatch, "total", order.Total, inv.DeclaredTotal, diff))
		outcome = OutcomeFail
	}

	for _, ol := range order.Lines {
		il := findInvoiceLine(inv.Lines, ol.ProductID, ol.ProductCode, ol.Description)
		if il == nil {
			col.add(MatchException{
				Kind:     ExceptionItemMissing,
				Field:    fmt.Sprintf("line[%s]", lineRef(ol.ProductCode, ol.Description)),
				Expected: ol.OrderedQty,
			})
			outcome = OutcomeFail
			continue
		}

		ref := lineRef(ol.ProductCode, ol.Description)
		if diff := percentDiff(ol.OrderedQty, il.Quantity); diff.GreaterThan(cfg.QuantityTolerancePct) {
			col.add(toleranceException(ExceptionQuantityMismatch,
				fmt.Sprintf("line[%s].quantity", ref), ol.OrderedQty, il.Quantity, diff))
			outcome = OutcomeFail
		}
		if diff := percentDiff(ol.UnitPrice, il.UnitPrice); diff.GreaterThan(cfg.PriceTolerancePct) {
			col.add(toleranceException(ExceptionPriceMismatch,
				fmt.Sprintf("line[%s].unit_price", ref), ol.UnitPrice, il.UnitPrice, diff))
			outcome = OutcomeFail
		}
	}

	return outcome
}

// compareReceiptInvoice checks every received line against the invoice.
// A received line absent from the invoice is legitimate partial invoicing
// and is skipped silently.
func compareReceiptInvoice(gr *GoodsReceipt, inv *Invoice, cfg MatchConfig, col *exceptionCollector) PairOutcome {
	if gr == nil {
		col.add(MatchException{
			Kind:  ExceptionNoReceipt,
			Field: "receipt",
		})
		return OutcomeUnknown
	}

	outcome := OutcomePass
	for _, rl := range gr.Lines {
		il := findInvoiceLineByProduct(inv.Lines, rl.ProductID, rl.ProductCode)
		if il == nil {
			continue
		}
		if diff := percentDiff(rl.AcceptedQty, il.Quantity); diff.GreaterThan(cfg.QuantityTolerancePct) {
			col.add(toleranceException(ExceptionQuantityMismatch,
				fmt.Sprintf("receipt_line[%s].quantity", lineRef(rl.ProductCode, "")),
				rl.AcceptedQty, il.Quantity, diff))
			outcome = OutcomeFail
		}
	}
	return outcome
}

// compareOrderReceipt is informational: it feeds only the fully-matched
// computation and emits no exception records.
func compareOrderReceipt(order *PurchaseOrder, gr *GoodsReceipt) PairOutcome {
	if order == nil || gr == nil {
		return OutcomeUnknown
	}

	outcome := OutcomePass
	for _, ol := range order.Lines {
		received := receivedQtyForOrderLine(gr.Lines, ol)
		if received == nil {
			if ol.PendingQty.IsPositive() {
				outcome = OutcomeFail
			}
			continue
		}
		if ol.OrderedQty.IsZero() {
			continue
		}
		if received.Div(ol.OrderedQty).LessThan(receiptCoverageFloor) {
			outcome = OutcomeFail
		}
	}
	return outcome
}

// receivedQtyForOrderLine sums accepted quantities over the receipt lines
// belonging to the order line, preferring the explicit order-line linkage and
// falling back to product reference. Returns nil when no line matches.
func receivedQtyForOrderLine(lines []GoodsReceiptLine, ol PurchaseOrderLine) *decimal.Decimal {
	var total decimal.Decimal
	found := false
	for _, rl := range lines {
		linked := rl.OrderLineID != nil && *rl.OrderLineID == ol.ID
		if !linked && rl.OrderLineID == nil {
			linked = sameProduct(rl.ProductID, rl.ProductCode, ol.ProductID, ol.ProductCode)
		}
		if linked {
			total = total.Add(rl.AcceptedQty)
			found = true
		}
	}
	if !found {
		return nil
	}
	return &total
}

// findInvoiceLine locates the invoice line for an order line: product
// reference equality first, then a case-insensitive substring match between
// the free-text descriptions. The substring fallback is a heuristic join and
// can mispair similarly described lines.
func findInvoiceLine(lines []InvoiceLine, productID *int, productCode *string, description string) *InvoiceLine {
	if il := findInvoiceLineByProduct(lines, productID, productCode); il != nil {
		return il
	}

	desc := strings.ToLower(strings.TrimSpace(description))
	if desc == "" {
		return nil
	}
	for i := range lines {
		cand := strings.ToLower(strings.TrimSpace(lines[i].Description))
		if cand == "" {
			continue
		}
		if strings.Contains(cand, desc) || strings.Contains(desc, cand) {
			return &lines[i]
		}
	}
	return nil
}

func findInvoiceLineByProduct(lines []InvoiceLine, productID *int, productCode *string) *InvoiceLine {
	for i := range lines {
		if sameProduct(lines[i].ProductID, lines[i].ProductCode, productID, productCode) {
			return &lines[i]
		}
	}
	return nil
}

func sameProduct(aID *int, aCode *string, bID *int, bCode *string) bool {
	if aID != nil && bID != nil {
		return *aID == *bID
	}
	if aCode != nil && bCode != nil {
		return *aCode == *bCode
	}
	return false
}

// percentDiff returns |expected − actual| / expected as a percentage.
// A zero expected value is defined as 0% difference, never a division error.
func percentDiff(expected, actual decimal.Decimal) decimal.Decimal {
	if expected.IsZero() {
		return decimal.Zero
	}
	return expected.Sub(actual).Abs().Div(expected).Mul(hundred)
}

// toleranceException builds a discrepancy record for a breached tolerance band.
func toleranceException(kind ExceptionKind, field string, expected, actual, pctDiff decimal.Decimal) MatchException {
	return MatchException{
		Kind:            kind,
		Field:           field,
		Expected:        expected,
		Actual:          actual,
		Difference:      expected.Sub(actual).Abs(),
		PercentDiff:     pctDiff,
		WithinTolerance: false,
	}
}

// lineRef renders a stable field identifier for a line: the product code when
// present, otherwise the description.
func lineRef(productCode *string, description string) string {
	if productCode != nil && *productCode != "" {
		return *productCode
	}
	return description
}
