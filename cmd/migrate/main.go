package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"threeway-match/internal/db"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// migrationLockID serializes concurrent migrators via pg advisory lock.
const migrationLockID = 8231647

var log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.ConnectFromEnv(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer pool.Close()

	conn := acquireLock(ctx, pool)
	defer conn.Release()

	ensureMigrationsTable(ctx, pool)

	for _, filename := range discoverMigrations() {
		applyMigration(ctx, pool, filename)
	}

	log.Info().Msg("all migrations processed")
}

func acquireLock(ctx context.Context, pool *pgxpool.Pool) *pgxpool.Conn {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to acquire connection for lock")
	}

	var locked bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", migrationLockID).Scan(&locked); err != nil {
		log.Fatal().Err(err).Msg("failed to query advisory lock")
	}
	if !locked {
		log.Fatal().Msg("another migrator is currently running")
	}
	return conn
}

func ensureMigrationsTable(ctx context.Context, pool *pgxpool.Pool) {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			filename   TEXT NOT NULL,
			checksum   TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create schema_migrations table")
	}
}

// discoverMigrations returns the .sql files under migrations/ in version order,
// rejecting duplicate version prefixes.
func discoverMigrations() []string {
	entries, err := os.ReadDir("migrations")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read migrations directory")
	}

	seen := make(map[string]bool)
	var filenames []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		version := extractVersion(entry.Name())
		if seen[version] {
			log.Fatal().Str("version", version).Msg("duplicate migration version")
		}
		seen[version] = true
		filenames = append(filenames, entry.Name())
	}

	sort.Strings(filenames)
	return filenames
}

func extractVersion(filename string) string {
	parts := strings.SplitN(filename, "_", 2)
	if len(parts) < 2 {
		log.Fatal().Str("file", filename).Msg("invalid migration filename, expected NNN_description.sql")
	}
	return parts[0]
}

func checksumFile(filename string) string {
	bytes, err := os.ReadFile(filepath.Join("migrations", filename))
	if err != nil {
		log.Fatal().Err(err).Str("file", filename).Msg("failed to read migration for checksum")
	}
	hash := sha256.Sum256(bytes)
	return hex.EncodeToString(hash[:])
}

// applyMigration runs one migration in a transaction, skipping versions whose
// recorded checksum matches and refusing to proceed past a drifted file.
func applyMigration(ctx context.Context, pool *pgxpool.Pool, filename string) {
	version := extractVersion(filename)
	checksum := checksumFile(filename)

	var existing string
	err := pool.QueryRow(ctx,
		"SELECT checksum FROM schema_migrations WHERE version = $1", version,
	).Scan(&existing)
	switch {
	case err == nil:
		if existing != checksum {
			log.Fatal().Str("file", filename).Msg("checksum mismatch, migration file drifted after apply")
		}
		log.Info().Str("file", filename).Msg("skip")
		return
	case errors.Is(err, pgx.ErrNoRows):
		// not yet applied
	default:
		log.Fatal().Err(err).Str("file", filename).Msg("failed to query schema_migrations")
	}

	sqlBytes, err := os.ReadFile(filepath.Join("migrations", filename))
	if err != nil {
		log.Fatal().Err(err).Str("file", filename).Msg("failed to read migration")
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatal().Err(err).Str("file", filename).Msg("failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, string(sqlBytes)); err != nil {
		log.Fatal().Err(err).Str("file", filename).Msg("migration failed")
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO schema_migrations (version, filename, checksum) VALUES ($1, $2, $3)",
		version, filename, checksum,
	); err != nil {
		log.Fatal().Err(err).Str("file", filename).Msg("failed to record migration")
	}
	if err := tx.Commit(ctx); err != nil {
		log.Fatal().Err(err).Str("file", filename).Msg("failed to commit migration")
	}

	log.Info().Str("file", filename).Msg("applied")
}
