// Package store provides persistence for product records with
// upsert-by-id semantics. The Postgres implementation and the in-memory
// fallback satisfy the same contract, so callers are agnostic to which is in
// use.
package store

import (
	"context"
	"time"

	"github.com/zarawatch/catalog-scraper/internal/models"
)

// Filter narrows Select and Count.
type Filter struct {
	Category string
	OnSale   *bool
	Limit    int
}

type Store interface {
	// Upsert inserts records, updating in place on id conflict.
	Upsert(ctx context.Context, records []models.ProductRecord) error

	// Update rewrites the comparable and price fields of existing records,
	// keyed by id.
	Update(ctx context.Context, records []models.ProductRecord) error

	// Select returns persisted records, newest scrape first.
	Select(ctx context.Context, f Filter) ([]models.ProductRecord, error)

	// DeleteOlderThan removes records scraped strictly before the cutoff and
	// returns the number removed. Records scraped exactly at the cutoff are
	// kept. Destructive; callers invoke it explicitly, never as part of a
	// normal run.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	Count(ctx context.Context, f Filter) (int, error)

	Close()
}

// Keyed indexes records by id for reconciliation.
func Keyed(records []models.ProductRecord) map[string]models.ProductRecord {
	m := make(map[string]models.ProductRecord, len(records))
	for _, rec := range records {
		m[rec.ID] = rec
	}
	return m
}
