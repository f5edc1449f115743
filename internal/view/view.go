// Package view holds the read-only view models the storefront renders and a
// headless presenter that keeps the latest screen in memory.
package view

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/larek-storefront/internal/domain/lot"
)

const (
	ButtonBuy    = "Купить"
	ButtonRemove = "Удалить из корзины"
)

// Card renders a lot in the gallery or in the preview modal.
type Card struct {
	ID          string
	Title       string
	Description string
	Image       string
	Category    string
	Modifier    string
	Price       string
	// Buyable is false for priceless lots; their button is disabled.
	Buyable bool
	// Button is the preview action label. Empty in the gallery.
	Button string
}

// CardFromLot builds a gallery card for l.
func CardFromLot(l *lot.Lot) Card {
	return Card{
		ID:       l.ID,
		Title:    l.Title,
		Image:    l.Image,
		Category: string(l.Category),
		Modifier: l.Category.Modifier(),
		Price:    FormatPrice(l.Price),
		Buyable:  l.HasPrice(),
	}
}

// PreviewFromLot builds the detail card for l, with the basket action label.
func PreviewFromLot(l *lot.Lot) Card {
	c := CardFromLot(l)
	c.Description = l.Description
	c.Button = ButtonBuy
	if l.IsOrdered() {
		c.Button = ButtonRemove
	}
	return c
}

// BasketRow is one line of the basket list. Index starts at 1.
type BasketRow struct {
	Index int
	ID    string
	Title string
	Price string
}

// Basket is the basket modal content.
type Basket struct {
	Rows  []BasketRow
	Total string
	// Valid enables the checkout button.
	Valid bool
}

// BasketFromLots builds the basket view for the given lots and total.
func BasketFromLots(lots []*lot.Lot, total decimal.Decimal) Basket {
	rows := make([]BasketRow, len(lots))
	for i, l := range lots {
		rows[i] = BasketRow{
			Index: i + 1,
			ID:    l.ID,
			Title: l.Title,
			Price: FormatPrice(l.Price),
		}
	}
	return Basket{
		Rows:  rows,
		Total: FormatAmount(total),
		Valid: len(lots) > 0,
	}
}

// Form identifies a checkout form.
type Form string

const (
	FormDelivery Form = "order"
	FormContacts Form = "contacts"
)

// FormState is the submit availability and error text of a form.
type FormState struct {
	Valid  bool
	Errors []string
}

// ErrorText joins the form errors the way the form footer shows them.
func (s FormState) ErrorText() string {
	return strings.Join(s.Errors, ", ")
}

// DeliveryForm is the first checkout step.
type DeliveryForm struct {
	Payment string
	Address string
	State   FormState
}

// ContactsForm is the second checkout step.
type ContactsForm struct {
	Email string
	Phone string
	State FormState
}

// Success is the confirmation shown after the order is placed.
type Success struct {
	Total       decimal.Decimal
	Description string
}

// NewSuccess builds the confirmation for the charged total.
func NewSuccess(total decimal.Decimal) Success {
	return Success{
		Total:       total,
		Description: "Списано " + FormatAmount(total),
	}
}

// ModalKind tells which content the modal shows.
type ModalKind string

const (
	ModalPreview  ModalKind = "preview"
	ModalBasket   ModalKind = "basket"
	ModalDelivery ModalKind = "delivery"
	ModalContacts ModalKind = "contacts"
	ModalSuccess  ModalKind = "success"
)

// Modal is the content of the modal window. Exactly the field matching Kind
// is set.
type Modal struct {
	Kind     ModalKind
	Preview  *Card
	Basket   *Basket
	Delivery *DeliveryForm
	Contacts *ContactsForm
	Success  *Success
}
