package engine

import (
	"fmt"

	"github.com/joho/godotenv"
)

// LoadSecrets reads a .env-style secrets file (KEY=VALUE per line).
// Comments, quoting and "export" prefixes follow dotenv conventions.
func LoadSecrets(path string) (map[string]string, error) {
	secrets, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading secrets file %s: %w", path, err)
	}
	return secrets, nil
}
