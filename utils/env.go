package utils

import (
	"errors"
	"io/fs"
	"log"

	"github.com/joho/godotenv"
)

// LoadEnv loads .env from the working directory when present. A missing file
// is normal; anything else is reported and ignored.
func LoadEnv() {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Println("⚠️  Could not read .env file:", err)
	}
}
