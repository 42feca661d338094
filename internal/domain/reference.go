package domain

// GameType is a read-only reference row mapping a provider game code to an
// internal id. Seeded externally; the engine only reads it.
type GameType struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Code   string `json:"code"`
	Order  int    `json:"order"`
	Status int    `json:"status"`
}

// Product is a read-only reference row mapping a provider product code to an
// internal id.
type Product struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Code   string `json:"code"`
	Status int    `json:"status"`
}

// Resolution is the outcome of resolving a (game type code, product code)
// pair: internal ids plus the contractual payout rate for the pair.
type Resolution struct {
	GameTypeID int64 `json:"game_type_id"`
	ProductID  int64 `json:"product_id"`
	Rate       int   `json:"rate"`
}
