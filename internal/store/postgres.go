package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/zarawatch/catalog-scraper/internal/models"
)

// Postgres is the production Store backed by pgx.
type Postgres struct {
	db     *DB
	logger *slog.Logger
}

func NewPostgres(db *DB, logger *slog.Logger) *Postgres {
	return &Postgres{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// DB exposes the underlying pool for collaborators that share the
// transaction boundary, such as the outbox repository.
func (s *Postgres) DB() *DB {
	return s.db
}

func (s *Postgres) Upsert(ctx context.Context, records []models.ProductRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		INSERT INTO products (
			id, name, price_amount, price_display,
			original_price_amount, original_price_display,
			image_url, product_url, color, sizes, category,
			description, scraped_at, is_sale, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price_amount = EXCLUDED.price_amount,
			price_display = EXCLUDED.price_display,
			original_price_amount = EXCLUDED.original_price_amount,
			original_price_display = EXCLUDED.original_price_display,
			image_url = EXCLUDED.image_url,
			product_url = EXCLUDED.product_url,
			color = EXCLUDED.color,
			sizes = EXCLUDED.sizes,
			category = EXCLUDED.category,
			description = EXCLUDED.description,
			scraped_at = EXCLUDED.scraped_at,
			is_sale = EXCLUDED.is_sale,
			updated_at = EXCLUDED.updated_at`

	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		for i := range records {
			rec := &records[i]
			sizes, err := json.Marshal(sizesOrEmpty(rec.Sizes))
			if err != nil {
				return fmt.Errorf("failed to marshal sizes for %s: %w", rec.ID, err)
			}

			origAmount, origDisplay := originalPriceColumns(rec.OriginalPrice)
			_, err = tx.Exec(ctx, query,
				rec.ID, rec.Name, rec.Price.Amount, rec.Price.Display,
				origAmount, origDisplay,
				rec.ImageURL, rec.ProductURL, rec.Color, sizes, rec.Category,
				rec.Description, rec.ScrapedAt, rec.IsSale, rec.CreatedAt, rec.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to upsert product %s: %w", rec.ID, err)
			}
		}
		return nil
	})
}

func (s *Postgres) Update(ctx context.Context, records []models.ProductRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		UPDATE products SET
			name = $2,
			price_amount = $3,
			price_display = $4,
			original_price_amount = $5,
			original_price_display = $6,
			image_url = $7,
			color = $8,
			sizes = $9,
			is_sale = $10,
			scraped_at = $11,
			updated_at = $12
		WHERE id = $1`

	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		for i := range records {
			rec := &records[i]
			sizes, err := json.Marshal(sizesOrEmpty(rec.Sizes))
			if err != nil {
				return fmt.Errorf("failed to marshal sizes for %s: %w", rec.ID, err)
			}

			origAmount, origDisplay := originalPriceColumns(rec.OriginalPrice)
			tag, err := tx.Exec(ctx, query,
				rec.ID, rec.Name, rec.Price.Amount, rec.Price.Display,
				origAmount, origDisplay,
				rec.ImageURL, rec.Color, sizes, rec.IsSale,
				rec.ScrapedAt, rec.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to update product %s: %w", rec.ID, err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("product not found: %s", rec.ID)
			}
		}
		return nil
	})
}

func (s *Postgres) Select(ctx context.Context, f Filter) ([]models.ProductRecord, error) {
	query := `
		SELECT id, name, price_amount, price_display,
			   original_price_amount, original_price_display,
			   image_url, product_url, color, sizes, category,
			   description, scraped_at, is_sale, created_at, updated_at
		FROM products`

	where, args := filterClause(f)
	query += where + " ORDER BY scraped_at DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var records []models.ProductRecord
	for rows.Next() {
		rec, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

func (s *Postgres) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM products WHERE scraped_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale products: %w", err)
	}
	deleted := tag.RowsAffected()
	s.logger.Info("deleted stale products", "cutoff", cutoff, "deleted", deleted)
	return deleted, nil
}

func (s *Postgres) Count(ctx context.Context, f Filter) (int, error) {
	query := `SELECT COUNT(*) FROM products`
	where, args := filterClause(f)
	query += where

	var count int
	if err := s.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

func (s *Postgres) Close() {
	s.db.Close()
}

func filterClause(f Filter) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if f.Category != "" {
		args = append(args, f.Category)
		clauses = append(clauses, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.OnSale != nil {
		args = append(args, *f.OnSale)
		clauses = append(clauses, fmt.Sprintf("is_sale = $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", nil
	}

	where := " WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		where += " AND " + c
	}
	return where, args
}

func scanProduct(rows pgx.Rows) (models.ProductRecord, error) {
	var rec models.ProductRecord
	var origAmount sql.NullFloat64
	var origDisplay sql.NullString
	var sizes []byte

	err := rows.Scan(
		&rec.ID, &rec.Name, &rec.Price.Amount, &rec.Price.Display,
		&origAmount, &origDisplay,
		&rec.ImageURL, &rec.ProductURL, &rec.Color, &sizes, &rec.Category,
		&rec.Description, &rec.ScrapedAt, &rec.IsSale, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return models.ProductRecord{}, fmt.Errorf("failed to scan product: %w", err)
	}

	if origAmount.Valid || origDisplay.Valid {
		rec.OriginalPrice = &models.Price{
			Amount:  origAmount.Float64,
			Display: origDisplay.String,
		}
	}
	if len(sizes) > 0 {
		if err := json.Unmarshal(sizes, &rec.Sizes); err != nil {
			return models.ProductRecord{}, fmt.Errorf("failed to unmarshal sizes: %w", err)
		}
	}

	return rec, nil
}

func originalPriceColumns(p *models.Price) (interface{}, interface{}) {
	if p == nil {
		return nil, nil
	}
	return p.Amount, p.Display
}

func sizesOrEmpty(sizes []string) []string {
	if sizes == nil {
		return []string{}
	}
	return sizes
}
