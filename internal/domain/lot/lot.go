// Package lot defines catalog entries. A Lot owns its basket flag, so the
// basket is always derived from the catalog and never stored separately.
package lot

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/larek-storefront/pkg/eventbus"
)

// EventBasketChanged is emitted every time a lot is placed into or removed
// from the basket, even when the flag did not change.
const EventBasketChanged = "lot:basket"

// Category enumerates the catalog sections. Values are the labels used by
// the remote catalog service.
type Category string

const (
	CategorySoftSkill  Category = "софт-скил"
	CategoryHardSkill  Category = "хард-скил"
	CategoryOther      Category = "другое"
	CategoryAdditional Category = "дополнительное"
	CategoryButton     Category = "кнопка"
)

var modifiers = map[Category]string{
	CategorySoftSkill:  "soft",
	CategoryHardSkill:  "hard",
	CategoryOther:      "other",
	CategoryAdditional: "additional",
	CategoryButton:     "button",
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := modifiers[c]
	return ok
}

// Modifier returns the short style modifier of the category, or "other" for
// unknown values.
func (c Category) Modifier() string {
	if m, ok := modifiers[c]; ok {
		return m
	}
	return "other"
}

// Item is the raw catalog record a Lot is built from.
type Item struct {
	ID          string
	Title       string
	Description string
	Image       string
	Category    Category
	// Price is invalid (not set) for lots that cannot be bought.
	Price decimal.NullDecimal
}

// BasketChange is the payload of EventBasketChanged.
type BasketChange struct {
	LotID     string
	IsOrdered bool
}

// Lot is a catalog item together with its basket membership flag.
type Lot struct {
	ID          string
	Title       string
	Description string
	Image       string
	Category    Category
	Price       decimal.NullDecimal

	isOrdered bool
	events    eventbus.Emitter
}

// New builds a Lot from item and binds it to events.
func New(item Item, events eventbus.Emitter) *Lot {
	return &Lot{
		ID:          item.ID,
		Title:       item.Title,
		Description: item.Description,
		Image:       item.Image,
		Category:    item.Category,
		Price:       item.Price,
		events:      events,
	}
}

// IsOrdered reports whether the lot is in the basket.
func (l *Lot) IsOrdered() bool {
	return l.isOrdered
}

// HasPrice reports whether the lot can be bought.
func (l *Lot) HasPrice() bool {
	return l.Price.Valid
}

// PlaceInBasket marks the lot as ordered.
func (l *Lot) PlaceInBasket() {
	l.isOrdered = true
	l.emitChange()
}

// RemoveFromBasket clears the ordered mark.
func (l *Lot) RemoveFromBasket() {
	l.isOrdered = false
	l.emitChange()
}

func (l *Lot) emitChange() {
	l.events.Emit(EventBasketChanged, BasketChange{
		LotID:     l.ID,
		IsOrdered: l.isOrdered,
	})
}
