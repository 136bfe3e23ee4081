package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath      string
	RefDataPath string
	OutputDir   string

	// Reconciliation tolerance policy: absolute quantity tolerance in
	// litres and amount tolerance in the currency's smallest unit.
	QtyTolerance    float64
	AmountTolerance float64

	// How many leading data rows to scan when validating that an uploaded
	// workbook belongs to the selected store.
	SymbolCheckRows int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:      getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		RefDataPath: getEnv("REFDATA_PATH", filepath.Join(cwd, "data", "Data.xlsx")),
		OutputDir:   getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		QtyTolerance:    getEnvFloat("RECON_QTY_TOLERANCE", 0.001),
		AmountTolerance: getEnvFloat("RECON_AMOUNT_TOLERANCE", 1),
		SymbolCheckRows: getEnvInt("SYMBOL_CHECK_ROWS", 100),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
