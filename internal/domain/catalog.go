package domain

import "time"

// Dessert represents a sellable unit that carries its own daily stock.
type Dessert struct {
	ID                int64
	Name              string
	Description       string
	Price             int64 // whole currency units
	HasUnlimitedStock bool  // exempt from ledger tracking (e.g. bottled water)
	IsOutOfStock      bool  // manual override, independent of ledger quantity
	Enabled           bool
	IsDeleted         bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Sellable reports whether the dessert can appear in a cart at all.
// Ledger quantity is checked separately at resolve time.
func (d *Dessert) Sellable() bool {
	return d.Enabled && !d.IsDeleted && !d.IsOutOfStock
}

// ComboItem is a modifier add-on inside a combo. Modifiers are priced
// but never stock-tracked; only the combo's base dessert hits the ledger.
type ComboItem struct {
	DessertID int64
	Name      string
	UnitPrice int64
	Quantity  int
}

// Combo is a named bundle of one base dessert plus zero or more modifiers,
// optionally sold at a fixed override price.
type Combo struct {
	ID            int64
	Name          string
	Base          Dessert
	Items         []ComboItem
	OverridePrice *int64
	Enabled       bool
	IsDeleted     bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Price returns the override price when set, otherwise the base price
// plus the sum of modifier prices weighted by their quantities.
func (c *Combo) Price() int64 {
	if c.OverridePrice != nil {
		return *c.OverridePrice
	}
	total := c.Base.Price
	for _, item := range c.Items {
		total += item.UnitPrice * int64(item.Quantity)
	}
	return total
}
