package store

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	price_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
	price_display TEXT NOT NULL DEFAULT '',
	original_price_amount DOUBLE PRECISION,
	original_price_display TEXT,
	image_url TEXT NOT NULL DEFAULT '',
	product_url TEXT NOT NULL DEFAULT '',
	color TEXT NOT NULL DEFAULT '',
	sizes JSONB NOT NULL DEFAULT '[]',
	category TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	scraped_at TIMESTAMPTZ NOT NULL,
	is_sale BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_products_scraped_at ON products (scraped_at);
CREATE INDEX IF NOT EXISTS idx_products_category ON products (category);
CREATE INDEX IF NOT EXISTS idx_products_is_sale ON products (is_sale);

CREATE TABLE IF NOT EXISTS outbox_event (
	id UUID PRIMARY KEY,
	aggregate_type TEXT NOT NULL,
	aggregate_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	payload JSONB NOT NULL,
	target_stream TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	retry_count INT NOT NULL DEFAULT 0,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	processed_at TIMESTAMPTZ,
	next_retry_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_outbox_event_status ON outbox_event (status, next_retry_at);
`

// Migrate creates the product and outbox tables if they do not exist yet.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
