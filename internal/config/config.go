package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Init loads .env and checks that every setting the core flows depend on is present.
func Init() {
	if err := godotenv.Load(); err != nil {
		Logger.Info("No .env file found, using system environment variables")
	}

	required := []string{
		"DB_DSN",
		"REDIS_ADDR",
		"JWT_SECRET",
		"VAULT_SECRET",
		"X_CLIENT_ID",
		"X_CLIENT_SECRET",
		"X_API_KEY",
		"X_API_SECRET",
		"X_REDIRECT_URI",
	}

	for _, key := range required {
		if os.Getenv(key) == "" {
			Logger.Fatal("missing required environment variable: " + key)
		}
	}
}
