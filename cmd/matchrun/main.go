package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"threeway-match/internal/core"
	"threeway-match/internal/db"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// matchrun executes the three-way match for a single invoice from the command
// line and prints the verdict as JSON. Useful for smoke-testing an environment
// without going through the HTTP API.
func main() {
	_ = godotenv.Load()

	companyID := flag.Int("company", 1, "company id to run under")
	invoiceID := flag.Int("invoice", 0, "invoice id to match (required)")
	eligibility := flag.Bool("eligibility", false, "only check payment eligibility, do not run the match")
	flag.Parse()

	if *invoiceID < 1 {
		fmt.Fprintln(os.Stderr, "usage: matchrun -invoice <id> [-company <id>] [-eligibility]")
		os.Exit(2)
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	ctx := context.Background()
	pool, err := db.ConnectFromEnv(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer pool.Close()

	matcher := core.NewMatchService(
		pool,
		core.NewInvoiceService(pool),
		core.NewPurchaseOrderService(pool),
		core.NewGoodsReceiptService(pool),
		core.NewConfigService(pool),
		core.NewAuditService(pool),
		log,
	)

	var out any
	if *eligibility {
		out, err = matcher.CheckPaymentEligibility(ctx, *companyID, *invoiceID)
	} else {
		out, err = matcher.Run(ctx, *companyID, *invoiceID, "cli:matchrun")
	}
	if err != nil {
		log.Fatal().Err(err).Int("invoice_id", *invoiceID).Msg("match failed")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatal().Err(err).Msg("encode output")
	}
}
