package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/buildveto/internal/foundation/errors"
)

// loadEnvFile loads environment variables from the first of .env/.env.local
// that exists. Variables already set in the process are not overwritten.
// Having neither file is not an error.
func loadEnvFile() error {
	for _, envPath := range []string{".env", ".env.local"} {
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		if err := godotenv.Load(envPath); err != nil {
			return errors.WrapError(err, errors.CategoryConfig, "failed to load environment file").
				WithContext("path", envPath).Build()
		}
		slog.Debug("Loaded environment variables", "path", envPath)
		return nil
	}
	return nil
}
