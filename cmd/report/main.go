package main

import (
	"os"

	"github.com/andresuchdata/inventory-metrics/backend-go/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func main() {
	logger.ConfigureOutput(os.Stderr, "warn", "console")
	if err := godotenv.Load(".env"); err != nil {
		logger.Log.Debug().Err(err).Msg("no .env file loaded")
	}
	decimal.MarshalJSONWithoutQuotes = true

	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("report failed")
	}
}
