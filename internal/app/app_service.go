package app

import (
	"context"
	"fmt"

	"threeway-match/internal/core"

	"golang.org/x/crypto/bcrypt"
)

type appService struct {
	matcher   core.MatchService
	configs   core.ConfigService
	invoices  core.InvoiceService
	orders    core.PurchaseOrderService
	receipts  core.GoodsReceiptService
	suppliers core.SupplierService
	users     core.UserService
	audit     core.AuditService
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	matcher core.MatchService,
	configs core.ConfigService,
	invoices core.InvoiceService,
	orders core.PurchaseOrderService,
	receipts core.GoodsReceiptService,
	suppliers core.SupplierService,
	users core.UserService,
	audit core.AuditService,
) ApplicationService {
	return &appService{
		matcher:   matcher,
		configs:   configs,
		invoices:  invoices,
		orders:    orders,
		receipts:  receipts,
		suppliers: suppliers,
		users:     users,
		audit:     audit,
	}
}

// RunMatch executes the three-way match for one invoice.
func (s *appService) RunMatch(ctx context.Context, companyID, invoiceID int, actor string) (*MatchRunResult, error) {
	run, err := s.matcher.Run(ctx, companyID, invoiceID, actor)
	if err != nil {
		return nil, err
	}
	return &MatchRunResult{Result: run.Result, Summary: run.Summary}, nil
}

// GetMatchResult returns the stored verdict for an invoice.
func (s *appService) GetMatchResult(ctx context.Context, companyID, invoiceID int) (*MatchResultDetail, error) {
	result, err := s.matcher.GetResult(ctx, companyID, invoiceID)
	if err != nil {
		return nil, err
	}
	return &MatchResultDetail{Result: result}, nil
}

// ListMatchResults returns a page of stored verdicts.
func (s *appService) ListMatchResults(ctx context.Context, req ListMatchesRequest) (*MatchListResult, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	rows, total, err := s.matcher.ListResults(ctx, req.CompanyID, core.MatchStatus(req.Status), page, pageSize)
	if err != nil {
		return nil, err
	}
	return &MatchListResult{Rows: rows, Total: total, Page: page, PageSize: pageSize}, nil
}

// CheckPaymentEligibility answers from the stored verdict.
func (s *appService) CheckPaymentEligibility(ctx context.Context, companyID, invoiceID int) (*core.PaymentEligibility, error) {
	return s.matcher.CheckPaymentEligibility(ctx, companyID, invoiceID)
}

// GetToleranceConfig returns the company's tolerance configuration.
func (s *appService) GetToleranceConfig(ctx context.Context, companyID int) (*core.MatchConfig, error) {
	return s.configs.GetOrCreate(ctx, companyID)
}

// UpdateToleranceConfig replaces the tolerance bands and the payment flag.
func (s *appService) UpdateToleranceConfig(ctx context.Context, req UpdateToleranceRequest) (*core.MatchConfig, error) {
	return s.configs.Update(ctx, core.MatchConfig{
		CompanyID:                req.CompanyID,
		QuantityTolerancePct:     req.QuantityTolerancePct,
		PriceTolerancePct:        req.PriceTolerancePct,
		AllowPaymentWithoutMatch: req.AllowPaymentWithoutMatch,
	})
}

// GetInvoice returns a supplier invoice with its lines.
func (s *appService) GetInvoice(ctx context.Context, companyID, invoiceID int) (*core.Invoice, error) {
	return s.invoices.GetInvoice(ctx, companyID, invoiceID)
}

// ListInvoices returns all invoices for a company.
func (s *appService) ListInvoices(ctx context.Context, companyID int) (*InvoiceListResult, error) {
	invoices, err := s.invoices.GetInvoices(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return &InvoiceListResult{Invoices: invoices}, nil
}

// GetPurchaseOrder returns a purchase order with its lines.
func (s *appService) GetPurchaseOrder(ctx context.Context, companyID, orderID int) (*core.PurchaseOrder, error) {
	return s.orders.GetOrder(ctx, companyID, orderID)
}

// ListPurchaseOrders returns purchase orders, optionally filtered by status.
func (s *appService) ListPurchaseOrders(ctx context.Context, companyID int, status string) (*PurchaseOrderListResult, error) {
	orders, err := s.orders.GetOrders(ctx, companyID, status)
	if err != nil {
		return nil, err
	}
	return &PurchaseOrderListResult{Orders: orders}, nil
}

// GetGoodsReceipt returns a goods receipt with its lines.
func (s *appService) GetGoodsReceipt(ctx context.Context, companyID, receiptID int) (*core.GoodsReceipt, error) {
	return s.receipts.GetReceipt(ctx, companyID, receiptID)
}

// ListGoodsReceipts returns goods receipts, optionally filtered by status.
func (s *appService) ListGoodsReceipts(ctx context.Context, companyID int, status string) (*GoodsReceiptListResult, error) {
	receipts, err := s.receipts.GetReceipts(ctx, companyID, status)
	if err != nil {
		return nil, err
	}
	return &GoodsReceiptListResult{Receipts: receipts}, nil
}

// ListSuppliers returns all active suppliers for a company.
func (s *appService) ListSuppliers(ctx context.Context, companyID int) (*SupplierListResult, error) {
	suppliers, err := s.suppliers.GetSuppliers(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return &SupplierListResult{Suppliers: suppliers}, nil
}

// ListAuditTrail returns audit entries, newest first.
func (s *appService) ListAuditTrail(ctx context.Context, req ListAuditRequest) (*AuditListResult, error) {
	limit := req.Limit
	if limit < 1 || limit > 500 {
		limit = 100
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}

	entries, err := s.audit.List(ctx, req.CompanyID, req.Entity, limit, offset)
	if err != nil {
		return nil, err
	}
	return &AuditListResult{Entries: entries}, nil
}

// AuthenticateUser verifies credentials against the stored bcrypt hash.
func (s *appService) AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}
	return &UserSession{
		UserID:    user.ID,
		CompanyID: user.CompanyID,
		Username:  user.Username,
		Role:      user.Role,
	}, nil
}

// GetUser returns a user profile by ID.
func (s *appService) GetUser(ctx context.Context, userID int) (*UserResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserResult{
		UserID:      user.ID,
		Username:    user.Username,
		Email:       user.Email,
		Role:        user.Role,
		CompanyID:   user.CompanyID,
		CompanyCode: user.CompanyCode,
	}, nil
}
