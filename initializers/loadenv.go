package initializers

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
)

// LoadEnv pulls variables from a local .env file. In deployed environments the
// file is absent and configuration comes from the platform, so a missing file
// is only an error for local development.
func LoadEnv() error {
	log.Println("Loading env file")
	if err := godotenv.Load(); err != nil {
		log.Println("env not loading")
		return fmt.Errorf("env not loading")
	}
	log.Println("Env loaded successfully")
	return nil
}
