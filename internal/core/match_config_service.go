package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Tolerance defaults applied on first use and when stored values are malformed.
var (
	DefaultQuantityTolerancePct = decimal.NewFromInt(5)
	DefaultPriceTolerancePct    = decimal.NewFromInt(2)
)

type configService struct {
	pool *pgxpool.Pool
}

// NewConfigService constructs a ConfigService backed by PostgreSQL.
func NewConfigService(pool *pgxpool.Pool) ConfigService {
	return &configService{pool: pool}
}

// GetOrCreate returns the company's tolerance config, atomically creating one
// with defaults on first use. Concurrent first calls race on the insert; the
// ON CONFLICT clause makes the loser read the winner's row.
func (s *configService) GetOrCreate(ctx context.Context, companyID int) (*MatchConfig, error) {
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO match_configs (company_id, quantity_tolerance_pct, price_tolerance_pct, allow_payment_without_match)
		VALUES ($1, $2, $3, false)
		ON CONFLICT (company_id) DO NOTHING`,
		companyID, DefaultQuantityTolerancePct, DefaultPriceTolerancePct,
	); err != nil {
		return nil, fmt.Errorf("create default match config for company %d: %w", companyID, err)
	}

	cfg := &MatchConfig{}
	if err := s.pool.QueryRow(ctx, `
		SELECT company_id, quantity_tolerance_pct, price_tolerance_pct,
		       allow_payment_without_match, created_at, updated_at
		FROM match_configs
		WHERE company_id = $1`,
		companyID,
	).Scan(
		&cfg.CompanyID, &cfg.QuantityTolerancePct, &cfg.PriceTolerancePct,
		&cfg.AllowPaymentWithoutMatch, &cfg.CreatedAt, &cfg.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("load match config for company %d: %w", companyID, err)
	}

	sanitizeConfig(cfg)
	return cfg, nil
}

// Update replaces the tolerance percentages and the payment flag.
func (s *configService) Update(ctx context.Context, in MatchConfig) (*MatchConfig, error) {
	if !validTolerance(in.QuantityTolerancePct) {
		return nil, fmt.Errorf("quantity tolerance %s out of range [0, 100)", in.QuantityTolerancePct)
	}
	if !validTolerance(in.PriceTolerancePct) {
		return nil, fmt.Errorf("price tolerance %s out of range [0, 100)", in.PriceTolerancePct)
	}

	cfg := &MatchConfig{}
	if err := s.pool.QueryRow(ctx, `
		UPDATE match_configs
		SET quantity_tolerance_pct = $1, price_tolerance_pct = $2,
		    allow_payment_without_match = $3, updated_at = NOW()
		WHERE company_id = $4
		RETURNING company_id, quantity_tolerance_pct, price_tolerance_pct,
		          allow_payment_without_match, created_at, updated_at`,
		in.QuantityTolerancePct, in.PriceTolerancePct, in.AllowPaymentWithoutMatch, in.CompanyID,
	).Scan(
		&cfg.CompanyID, &cfg.QuantityTolerancePct, &cfg.PriceTolerancePct,
		&cfg.AllowPaymentWithoutMatch, &cfg.CreatedAt, &cfg.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("update match config for company %d: %w", in.CompanyID, err)
	}
	return cfg, nil
}

// sanitizeConfig fails closed: malformed stored tolerances are replaced by
// defaults instead of propagating an error into the match run.
func sanitizeConfig(cfg *MatchConfig) {
	if !validTolerance(cfg.QuantityTolerancePct) {
		cfg.QuantityTolerancePct = DefaultQuantityTolerancePct
	}
	if !validTolerance(cfg.PriceTolerancePct) {
		cfg.PriceTolerancePct = DefaultPriceTolerancePct
	}
}

// validTolerance reports whether pct lies in [0, 100).
func validTolerance(pct decimal.Decimal) bool {
	return !pct.IsNegative() && pct.LessThan(hundred)
}
