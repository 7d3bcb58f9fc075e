package core

import (
	"context"
	"time"
)

// Supplier is the master-data record invoices, orders and receipts hang off.
type Supplier struct {
	ID               int       `json:"id"`
	CompanyID        int       `json:"company_id"`
	Code             string    `json:"code"`
	Name             string    `json:"name"`
	ContactPerson    *string   `json:"contact_person,omitempty"`
	Email            *string   `json:"email,omitempty"`
	Phone            *string   `json:"phone,omitempty"`
	Address          *string   `json:"address,omitempty"`
	PaymentTermsDays int       `json:"payment_terms_days"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
}

// SupplierService provides supplier master data operations.
type SupplierService interface {
	// GetSuppliers returns all active suppliers for a company.
	GetSuppliers(ctx context.Context, companyID int) ([]Supplier, error)

	// GetSupplier returns a supplier by ID, scoped to the company.
	GetSupplier(ctx context.Context, companyID, supplierID int) (*Supplier, error)
}
