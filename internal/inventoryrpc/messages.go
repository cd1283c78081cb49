package inventoryrpc

type ReserveRequest struct {
	EventID  int64  `json:"event_id"`
	Quantity int    `json:"quantity"`
	Token    string `json:"token"`
}

type ReleaseRequest struct {
	EventID  int64  `json:"event_id"`
	Quantity int    `json:"quantity"`
	Token    string `json:"token"`
}

type SnapshotRequest struct {
	EventID int64 `json:"event_id"`
}

// CapacityReply is the ledger state of one event after the call completed.
type CapacityReply struct {
	EventID        int64 `json:"event_id"`
	Total          int   `json:"total"`
	Available      int   `json:"available"`
	UnitPriceCents int64 `json:"unit_price_cents"`
}
