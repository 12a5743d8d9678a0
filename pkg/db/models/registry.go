package models

// All lists every model owned by this service, in dependency order. Used by
// the sqlite harness and the dev auto-migrator.
func All() []any {
	return []any{
		&Customer{},
		&Product{},
		&ProductColorVariation{},
		&ProductSizeVariation{},
		&ProductInventory{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
