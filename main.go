// file: main.go
// version: 2.0.0
// guid: 1f3e5d7c-9b2a-4c6e-8d0f-2a4c6e8b0d1f

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/jdfalk/hardcover-provider/cmd"
	"github.com/joho/godotenv"
)

func main() {
	if err := loadDotEnv(".env"); err != nil {
		log.Printf("[WARN] Failed to load .env: %v", err)
	}
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadDotEnv loads path into the environment without overriding variables that are
// already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
