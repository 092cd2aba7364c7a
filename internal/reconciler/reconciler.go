// Package reconciler classifies freshly extracted records against the
// persisted set and produces the minimal write plan.
package reconciler

import (
	"log/slog"
	"time"

	"github.com/zarawatch/catalog-scraper/internal/models"
)

// Result is the write plan for one batch. ToInsert and ToUpdate are
// disjoint; unchanged records generate no write at all.
type Result struct {
	ToInsert  []models.ProductRecord
	ToUpdate  []models.ProductRecord
	Unchanged int
}

// Saves is the number of writes the plan will issue.
func (r Result) Saves() int {
	return len(r.ToInsert) + len(r.ToUpdate)
}

type Reconciler struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Reconciler {
	return &Reconciler{logger: logger.With("component", "reconciler")}
}

// Plan partitions the batch into new, updated and unchanged records.
// Classification is field equality on name, price (numeric and display),
// image URL and color — not similarity. Duplicate ids within the batch keep
// the first occurrence; the conflict is logged, never silently overwritten.
//
// Plan has no side effects: writing the result is the store's job.
func (r *Reconciler) Plan(batch []models.ProductRecord, existing map[string]models.ProductRecord, now time.Time) Result {
	seen := make(map[string]bool, len(batch))
	var res Result

	for _, rec := range batch {
		if seen[rec.ID] {
			r.logger.Warn("duplicate product id in batch, keeping first occurrence", "id", rec.ID)
			continue
		}
		seen[rec.ID] = true

		prev, ok := existing[rec.ID]
		if !ok {
			rec.CreatedAt = now
			rec.UpdatedAt = now
			res.ToInsert = append(res.ToInsert, rec)
			continue
		}

		if changed(rec, prev) {
			rec.CreatedAt = prev.CreatedAt
			rec.UpdatedAt = now
			res.ToUpdate = append(res.ToUpdate, rec)
			continue
		}

		res.Unchanged++
	}

	return res
}

func changed(next, prev models.ProductRecord) bool {
	return next.Name != prev.Name ||
		next.Price.Amount != prev.Price.Amount ||
		next.Price.Display != prev.Price.Display ||
		next.ImageURL != prev.ImageURL ||
		next.Color != prev.Color
}
