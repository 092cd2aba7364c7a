// Package events publishes product change notifications through the
// transactional outbox so downstream consumers see them via Redis streams.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/zarawatch/catalog-scraper/internal/models"
	"github.com/zarawatch/catalog-scraper/internal/store"
)

type EventType string

const (
	EventTypeProductAdded   EventType = "PRODUCT_ADDED"
	EventTypeProductUpdated EventType = "PRODUCT_UPDATED"
)

// ProductEventPayload is the wire form relayed to the stream.
type ProductEventPayload struct {
	EventID      string    `json:"event_id"`
	EventType    string    `json:"event_type"`
	Timestamp    time.Time `json:"timestamp"`
	ProductID    string    `json:"product_id"`
	Name         string    `json:"name"`
	PriceAmount  float64   `json:"price_amount"`
	PriceDisplay string    `json:"price_display"`
	Category     string    `json:"category,omitempty"`
	ProductURL   string    `json:"product_url,omitempty"`
	IsSale       bool      `json:"is_sale"`
	Source       string    `json:"source"`
}

type Publisher struct {
	db     *store.DB
	outbox *store.OutboxRepository
	logger *slog.Logger
}

func NewPublisher(db *store.DB, outbox *store.OutboxRepository, logger *slog.Logger) *Publisher {
	return &Publisher{
		db:     db,
		outbox: outbox,
		logger: logger.With("component", "event_publisher"),
	}
}

// PublishChanges writes one outbox event per inserted and updated record in
// a single transaction.
func (p *Publisher) PublishChanges(ctx context.Context, inserted, updated []models.ProductRecord) error {
	if len(inserted) == 0 && len(updated) == 0 {
		return nil
	}

	err := p.db.WithTx(ctx, func(tx pgx.Tx) error {
		for i := range inserted {
			if err := p.insertEvent(ctx, tx, &inserted[i], EventTypeProductAdded); err != nil {
				return err
			}
		}
		for i := range updated {
			if err := p.insertEvent(ctx, tx, &updated[i], EventTypeProductUpdated); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to publish product events: %w", err)
	}

	p.logger.Info("queued product events", "added", len(inserted), "updated", len(updated))
	return nil
}

func (p *Publisher) insertEvent(ctx context.Context, tx pgx.Tx, rec *models.ProductRecord, eventType EventType) error {
	payload := ProductEventPayload{
		EventID:      uuid.New().String(),
		EventType:    string(eventType),
		Timestamp:    time.Now().UTC(),
		ProductID:    rec.ID,
		Name:         rec.Name,
		PriceAmount:  rec.Price.Amount,
		PriceDisplay: rec.Price.Display,
		Category:     rec.Category,
		ProductURL:   rec.ProductURL,
		IsSale:       rec.IsSale,
		Source:       "scraper",
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return p.outbox.InsertWithTx(ctx, tx, &store.OutboxEvent{
		AggregateType: "product",
		AggregateID:   rec.ID,
		EventType:     string(eventType),
		Payload:       data,
	})
}
