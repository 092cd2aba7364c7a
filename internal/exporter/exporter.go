// Package exporter writes product snapshots to timestamped JSON files.
package exporter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/zarawatch/catalog-scraper/internal/models"
)

// ExportJSON writes the products to <outputDir>/<site>_<timestamp>_products.json
// and returns the path written.
func ExportJSON(products []models.ProductRecord, outputDir, siteName string, logger *slog.Logger) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	fileName := fmt.Sprintf("%s_%s_products.json", siteName, timestamp)
	filePath := filepath.Join(outputDir, fileName)

	data, err := json.MarshalIndent(products, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal products: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", filePath, err)
	}

	logger.Info("exported products", "file", filePath, "count", len(products))
	return filePath, nil
}
