package main

import (
	"context"
	"net/http"
	"os"

	webAdapter "threeway-match/internal/adapters/web"
	"threeway-match/internal/app"
	"threeway-match/internal/core"
	"threeway-match/internal/db"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	_ = godotenv.Load()

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if os.Getenv("LOG_PRETTY") == "true" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal().Msg("JWT_SECRET environment variable not set")
	}

	ctx := context.Background()
	pool, err := db.ConnectFromEnv(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer pool.Close()

	invoices := core.NewInvoiceService(pool)
	orders := core.NewPurchaseOrderService(pool)
	receipts := core.NewGoodsReceiptService(pool)
	configs := core.NewConfigService(pool)
	audit := core.NewAuditService(pool)
	matcher := core.NewMatchService(pool, invoices, orders, receipts, configs, audit, log)

	svc := app.NewAppService(
		matcher, configs, invoices, orders, receipts,
		core.NewSupplierService(pool),
		core.NewUserService(pool),
		audit,
	)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	handler := webAdapter.NewHandler(svc, allowedOrigins, jwtSecret, log)

	log.Info().Str("port", port).Msg("server starting")
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
