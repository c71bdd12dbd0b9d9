package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/FACorreiaa/go-municipio-insights/cmd"
)

func main() {
	// slog is configured by the root command once config is loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
