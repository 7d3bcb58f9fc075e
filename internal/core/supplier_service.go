package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type supplierService struct {
	pool *pgxpool.Pool
}

// NewSupplierService constructs a SupplierService backed by PostgreSQL.
func NewSupplierService(pool *pgxpool.Pool) SupplierService {
	return &supplierService{pool: pool}
}

// GetSuppliers returns all active suppliers for a company, ordered by code.
func (s *supplierService) GetSuppliers(ctx context.Context, companyID int) ([]Supplier, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, company_id, code, name, contact_person, email, phone, address,
		       payment_terms_days, is_active, created_at
		FROM suppliers
		WHERE company_id = $1 AND is_active = true
		ORDER BY code`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("get suppliers: %w", err)
	}
	defer rows.Close()

	var suppliers []Supplier
	for rows.Next() {
		var sp Supplier
		if err := rows.Scan(
			&sp.ID, &sp.CompanyID, &sp.Code, &sp.Name,
			&sp.ContactPerson, &sp.Email, &sp.Phone, &sp.Address,
			&sp.PaymentTermsDays, &sp.IsActive, &sp.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan supplier: %w", err)
		}
		suppliers = append(suppliers, sp)
	}
	return suppliers, rows.Err()
}

// GetSupplier returns a supplier by ID, scoped to the company.
func (s *supplierService) GetSupplier(ctx context.Context, companyID, supplierID int) (*Supplier, error) {
	sp := &Supplier{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, company_id, code, name, contact_person, email, phone, address,
		       payment_terms_days, is_active, created_at
		FROM suppliers
		WHERE id = $1 AND company_id = $2`,
		supplierID, companyID,
	).Scan(
		&sp.ID, &sp.CompanyID, &sp.Code, &sp.Name,
		&sp.ContactPerson, &sp.Email, &sp.Phone, &sp.Address,
		&sp.PaymentTermsDays, &sp.IsActive, &sp.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("supplier %d: %w", supplierID, ErrNotFound)
		}
		return nil, fmt.Errorf("get supplier %d: %w", supplierID, err)
	}
	return sp, nil
}
