package confkit

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

var dotenvOnce sync.Once

// LoadDotenvOnce applies .env files once per process. ENV_FILE names an
// explicit file; otherwise every .env between this package and the module
// root is loaded. NO_DOTENV=1 disables loading and DOTENV_OVERLOAD=1 lets
// .env values replace variables already set.
func LoadDotenvOnce() {
	dotenvOnce.Do(loadDotenv)
}

func loadDotenv() {
	if os.Getenv("NO_DOTENV") == "1" {
		return
	}
	load := godotenv.Load
	if os.Getenv("DOTENV_OVERLOAD") == "1" {
		load = godotenv.Overload
	}
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		_ = load(envFile)
		return
	}
	if _, ok := walkUp(func(dir string) bool {
		_ = load(filepath.Join(dir, ".env"))
		return false
	}); ok {
		return
	}
	_ = load(".env")
}
