package config

import (
	"github.com/joho/godotenv"
)

// LoadDotEnv reads .env files into the environment.
// Existing env vars take precedence. A missing file is returned as an error
// the caller can ignore.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}
