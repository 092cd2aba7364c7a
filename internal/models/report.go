package models

import (
	"fmt"
	"time"
)

// RunReport is the outcome contract surfaced to any CLI or scheduler wrapping
// a pipeline run.
type RunReport struct {
	Success         bool      `json:"success"`
	Message         string    `json:"message"`
	ProductsScraped int       `json:"products_scraped"`
	ProductsSaved   int       `json:"products_saved"`
	New             int       `json:"new"`
	Updated         int       `json:"updated"`
	Unchanged       int       `json:"unchanged"`
	Strategy        string    `json:"strategy"`
	Timestamp       time.Time `json:"timestamp"`
}

func (r RunReport) String() string {
	status := "FAILED"
	if r.Success {
		status = "OK"
	}
	return fmt.Sprintf("%s: %s (scraped=%d saved=%d new=%d updated=%d unchanged=%d strategy=%s)",
		status, r.Message, r.ProductsScraped, r.ProductsSaved, r.New, r.Updated, r.Unchanged, r.Strategy)
}
