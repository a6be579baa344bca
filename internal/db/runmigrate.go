package db

import (
	"os"

	"github.com/rs/zerolog/log"
)

// RunMigrations is a lightweight entry point for tests or one-off tools.
// It respects the MIGRATIONS env var just like ConnectAndMigrate.
func RunMigrations() error {
	dsn := GetNormalizedDSN()
	if dsn == "" {
		return nil
	}
	if os.Getenv("MIGRATIONS") == "" {
		log.Info().Msg("MIGRATIONS not set; skipping sql migrations (AutoMigrate path used at app start)")
		return nil
	}
	log.Info().Msg("running sql migrations")
	return runSQLMigrations(dsn)
}
