package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zarawatch/catalog-scraper/internal/models"
)

// Memory is the missing-connection fallback store. It satisfies the same
// contract as Postgres so the rest of the pipeline never knows which one it
// is talking to.
type Memory struct {
	mu      sync.RWMutex
	records map[string]models.ProductRecord
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]models.ProductRecord)}
}

func (m *Memory) Upsert(_ context.Context, records []models.ProductRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	for _, rec := range records {
		if prev, ok := m.records[rec.ID]; ok {
			rec.CreatedAt = prev.CreatedAt
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		if rec.UpdatedAt.IsZero() {
			rec.UpdatedAt = now
		}
		m.records[rec.ID] = rec
	}
	return nil
}

func (m *Memory) Update(_ context.Context, records []models.ProductRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range records {
		prev, ok := m.records[rec.ID]
		if !ok {
			return fmt.Errorf("product not found: %s", rec.ID)
		}
		rec.CreatedAt = prev.CreatedAt
		m.records[rec.ID] = rec
	}
	return nil
}

func (m *Memory) Select(_ context.Context, f Filter) ([]models.ProductRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var records []models.ProductRecord
	for _, rec := range m.records {
		if matches(rec, f) {
			records = append(records, rec)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].ScrapedAt.After(records[j].ScrapedAt)
	})

	if f.Limit > 0 && len(records) > f.Limit {
		records = records[:f.Limit]
	}
	return records, nil
}

func (m *Memory) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for id, rec := range m.records {
		if rec.ScrapedAt.Before(cutoff) {
			delete(m.records, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *Memory) Count(_ context.Context, f Filter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, rec := range m.records {
		if matches(rec, f) {
			count++
		}
	}
	return count, nil
}

func (m *Memory) Close() {}

func matches(rec models.ProductRecord, f Filter) bool {
	if f.Category != "" && rec.Category != f.Category {
		return false
	}
	if f.OnSale != nil && rec.IsSale != *f.OnSale {
		return false
	}
	return true
}
