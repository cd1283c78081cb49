package domain

import "time"

// EventCapacity is the ledger row for one event. 0 <= Available <= Total holds
// at every observable instant.
type EventCapacity struct {
	EventID        int64     `json:"event_id"`
	Total          int       `json:"total_capacity"`
	Available      int       `json:"available_capacity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (c EventCapacity) Consistent() bool {
	return c.Total >= 0 && c.Available >= 0 && c.Available <= c.Total
}
