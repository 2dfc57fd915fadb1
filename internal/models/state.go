package models

// Ключи SymbolState в хранилище.
const (
	StateLastEntryOID    = "last_entry_oid"
	StateJoined          = "joined"
	StateFirstEntryPrice = "first_entry_price"
)

// SymbolState единственная память между циклами, ключ — биржевой символ.
type SymbolState struct {
	LastEntryOrderID string
	Joined           bool
	FirstEntryPrice  float64
}
