package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

var defaultEnvFiles = []string{".env", "cmd/.env"}

// envFiles lists the dotenv files to load: ENV_FILE (comma separated) when
// set, otherwise the defaults.
func envFiles() []string {
	if custom := splitAndTrim(os.Getenv("ENV_FILE")); len(custom) > 0 {
		return custom
	}
	return defaultEnvFiles
}

// loadEnvFiles loads KEY=VALUE pairs from the files that exist. Earlier files
// win, and variables already set in the environment are never overridden.
func loadEnvFiles(paths ...string) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			// Malformed files are skipped so a typo never blocks startup.
			_, _ = os.Stderr.WriteString("config: skipping " + path + ": " + strings.TrimSpace(err.Error()) + "\n")
		}
	}
}
