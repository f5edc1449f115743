// Package state holds the storefront aggregate: the catalog, the basket
// derived from it, the live order draft and the previewed lot. Every mutation
// goes through State and is followed by an event on the shared bus.
package state

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/larek-storefront/internal/domain/lot"
	"github.com/xenking/larek-storefront/internal/domain/order"
	"github.com/xenking/larek-storefront/pkg/eventbus"
)

const (
	// EventCatalogLoaded is emitted after the catalog is replaced.
	EventCatalogLoaded = "catalog:loaded"
	// EventPreviewChanged is emitted after the previewed lot changes.
	EventPreviewChanged = "preview:changed"
)

// CatalogChange is the payload of EventCatalogLoaded.
type CatalogChange struct {
	Catalog []*lot.Lot
}

// PreviewChange is the payload of EventPreviewChanged. Lot is nil when the
// detail view is closed.
type PreviewChange struct {
	Lot *lot.Lot
}

// State is the application aggregate.
type State struct {
	events  eventbus.Emitter
	catalog []*lot.Lot
	loaded  bool
	order   *order.Order
	preview *lot.Lot
}

// New creates an empty State bound to events.
func New(events eventbus.Emitter) *State {
	return &State{events: events}
}

// SetCatalog replaces the catalog with lots built from items.
func (s *State) SetCatalog(items []lot.Item) {
	catalog := make([]*lot.Lot, len(items))
	for i, item := range items {
		catalog[i] = lot.New(item, s.events)
	}
	s.catalog = catalog
	s.loaded = true
	// The previous preview points into the discarded catalog.
	s.preview = nil
	s.events.Emit(EventCatalogLoaded, CatalogChange{Catalog: s.Catalog()})
}

// Loaded reports whether a catalog has been set.
func (s *State) Loaded() bool {
	return s.loaded
}

// Catalog returns the lots in display order. The slice is a copy; the lots
// are shared.
func (s *State) Catalog() []*lot.Lot {
	out := make([]*lot.Lot, len(s.catalog))
	copy(out, s.catalog)
	return out
}

// LotByID returns the catalog lot with the given id.
func (s *State) LotByID(id string) (*lot.Lot, bool) {
	for _, l := range s.catalog {
		if l.ID == id {
			return l, true
		}
	}
	return nil, false
}

// Basket returns the ordered lots in catalog order.
func (s *State) Basket() []*lot.Lot {
	var out []*lot.Lot
	for _, l := range s.catalog {
		if l.IsOrdered() {
			out = append(out, l)
		}
	}
	return out
}

// IsInBasket reports whether l is ordered.
func (s *State) IsInBasket(l *lot.Lot) bool {
	return l.IsOrdered()
}

// ClearBasket removes every basket lot one by one, so subscribers see one
// basket event per lot.
func (s *State) ClearBasket() {
	for _, l := range s.Basket() {
		l.RemoveFromBasket()
	}
}

// TotalAmount sums the prices of the basket lots. Priceless lots add zero.
func (s *State) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Basket() {
		if l.Price.Valid {
			total = total.Add(l.Price.Decimal)
		}
	}
	return total
}

// BasketIDs returns the ids of the basket lots in basket order.
func (s *State) BasketIDs() []string {
	basket := s.Basket()
	ids := make([]string, len(basket))
	for i, l := range basket {
		ids[i] = l.ID
	}
	return ids
}

// BasketLength returns the number of basket lots.
func (s *State) BasketLength() int {
	return len(s.Basket())
}

// InitOrder starts a new checkout with an empty order draft. Any previous
// draft is dropped.
func (s *State) InitOrder() *order.Order {
	s.order = order.New(s.events)
	s.order.Clear()
	return s.order
}

// Order returns the live order draft, or nil outside checkout.
func (s *State) Order() *order.Order {
	return s.order
}

// DiscardOrder ends the checkout.
func (s *State) DiscardOrder() {
	s.order = nil
}

// Preview returns the previewed lot, or nil.
func (s *State) Preview() *lot.Lot {
	return s.preview
}

// SetPreview changes the previewed lot. Pass nil to close the detail view.
func (s *State) SetPreview(l *lot.Lot) {
	s.preview = l
	s.events.Emit(EventPreviewChanged, PreviewChange{Lot: l})
}
