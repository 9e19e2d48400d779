package main

import (
	"github.com/joho/godotenv"

	"ragserver/internal/cli"
)

func main() {
	// Secrets come from the environment; a local .env file is optional.
	_ = godotenv.Load()

	cli.Execute()
}
