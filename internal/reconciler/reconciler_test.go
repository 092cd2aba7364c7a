package reconciler

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zarawatch/catalog-scraper/internal/models"
)

func newTestReconciler() *Reconciler {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPlanClassifiesNewUpdatedUnchanged(t *testing.T) {
	r := newTestReconciler()
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	existing := map[string]models.ProductRecord{
		"1": {ID: "1", Name: "Chemise", Price: models.Price{Amount: 29.99, Display: "29.99"}},
		"2": {ID: "2", Name: "Pantalon", Price: models.Price{Amount: 59.90, Display: "59.90"}},
	}

	batch := []models.ProductRecord{
		{ID: "1", Name: "Chemise", Price: models.Price{Amount: 35.99, Display: "35.99"}},
		{ID: "2", Name: "Pantalon", Price: models.Price{Amount: 59.90, Display: "59.90"}},
		{ID: "3", Name: "Veste", Price: models.Price{Amount: 119.00, Display: "119.00"}},
	}

	res := r.Plan(batch, existing, now)

	require.Len(t, res.ToInsert, 1)
	assert.Equal(t, "3", res.ToInsert[0].ID)

	require.Len(t, res.ToUpdate, 1)
	assert.Equal(t, "1", res.ToUpdate[0].ID)
	assert.Equal(t, 35.99, res.ToUpdate[0].Price.Amount)

	assert.Equal(t, 1, res.Unchanged)
	assert.Equal(t, 2, res.Saves())
}

func TestPlanTimestamps(t *testing.T) {
	r := newTestReconciler()
	created := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	existing := map[string]models.ProductRecord{
		"1": {ID: "1", Name: "Chemise", Price: models.Price{Amount: 29.99, Display: "29.99"}, CreatedAt: created, UpdatedAt: created},
	}

	batch := []models.ProductRecord{
		{ID: "1", Name: "Chemise", Price: models.Price{Amount: 35.99, Display: "35.99"}},
		{ID: "2", Name: "Pantalon", Price: models.Price{Amount: 59.90, Display: "59.90"}},
	}

	res := r.Plan(batch, existing, now)

	require.Len(t, res.ToUpdate, 1)
	assert.Equal(t, created, res.ToUpdate[0].CreatedAt, "creation time survives updates")
	assert.Equal(t, now, res.ToUpdate[0].UpdatedAt)

	require.Len(t, res.ToInsert, 1)
	assert.Equal(t, now, res.ToInsert[0].CreatedAt)
	assert.Equal(t, now, res.ToInsert[0].UpdatedAt)
}

func TestPlanComparisonFields(t *testing.T) {
	base := models.ProductRecord{
		ID:       "1",
		Name:     "Chemise",
		Price:    models.Price{Amount: 29.99, Display: "29.99"},
		ImageURL: "https://example.com/a.jpg",
		Color:    "Blanc",
	}

	tests := []struct {
		name   string
		mutate func(*models.ProductRecord)
		want   bool
	}{
		{"identical", func(p *models.ProductRecord) {}, false},
		{"name changed", func(p *models.ProductRecord) { p.Name = "Chemise lin" }, true},
		{"amount changed", func(p *models.ProductRecord) { p.Price.Amount = 35.99 }, true},
		{"display changed", func(p *models.ProductRecord) { p.Price.Display = "29,99 TND" }, true},
		{"image changed", func(p *models.ProductRecord) { p.ImageURL = "https://example.com/b.jpg" }, true},
		{"color changed", func(p *models.ProductRecord) { p.Color = "Noir" }, true},
		{"description not compared", func(p *models.ProductRecord) { p.Description = "nouveau texte" }, false},
		{"scraped_at not compared", func(p *models.ProductRecord) { p.ScrapedAt = time.Now() }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestReconciler()
			next := base
			tt.mutate(&next)

			res := r.Plan([]models.ProductRecord{next}, map[string]models.ProductRecord{"1": base}, time.Now())
			if tt.want {
				assert.Len(t, res.ToUpdate, 1)
				assert.Equal(t, 0, res.Unchanged)
			} else {
				assert.Empty(t, res.ToUpdate)
				assert.Equal(t, 1, res.Unchanged)
			}
			assert.Empty(t, res.ToInsert)
		})
	}
}

func TestPlanIsIdempotent(t *testing.T) {
	r := newTestReconciler()
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	batch := []models.ProductRecord{
		{ID: "1", Name: "Chemise", Price: models.Price{Amount: 29.99, Display: "29.99"}},
		{ID: "2", Name: "Pantalon", Price: models.Price{Amount: 59.90, Display: "59.90"}},
	}

	first := r.Plan(batch, map[string]models.ProductRecord{}, now)
	require.Len(t, first.ToInsert, 2)

	// Replay the same batch against the state the first plan produced.
	existing := make(map[string]models.ProductRecord, len(first.ToInsert))
	for _, rec := range first.ToInsert {
		existing[rec.ID] = rec
	}

	second := r.Plan(batch, existing, now.Add(time.Hour))
	assert.Empty(t, second.ToInsert)
	assert.Empty(t, second.ToUpdate)
	assert.Equal(t, 2, second.Unchanged)
}

func TestPlanDuplicateIDsKeepFirst(t *testing.T) {
	r := newTestReconciler()

	batch := []models.ProductRecord{
		{ID: "1", Name: "First", Price: models.Price{Amount: 10, Display: "10.00"}},
		{ID: "1", Name: "Second", Price: models.Price{Amount: 20, Display: "20.00"}},
	}

	res := r.Plan(batch, map[string]models.ProductRecord{}, time.Now())
	require.Len(t, res.ToInsert, 1)
	assert.Equal(t, "First", res.ToInsert[0].Name)
}

func TestPlanEmptyBatch(t *testing.T) {
	r := newTestReconciler()

	res := r.Plan(nil, map[string]models.ProductRecord{
		"1": {ID: "1", Name: "Chemise"},
	}, time.Now())

	assert.Empty(t, res.ToInsert)
	assert.Empty(t, res.ToUpdate)
	assert.Equal(t, 0, res.Unchanged)
	assert.Equal(t, 0, res.Saves())
}
