package workflow

import (
	"github.com/xenking/larek-storefront/internal/domain/order"
)

// Intents emitted by the views.
const (
	EventBasketOpen     = "basket:open"
	EventLotOpen        = "lot:open"
	EventLotToggle      = "lot:toggle"
	EventBasketRemove   = "basket:remove"
	EventOrderOpen      = "order:open"
	EventPaymentSelect  = "order.payment:change"
	EventAddressInput   = "order.address:change"
	EventEmailInput     = "contacts.email:change"
	EventPhoneInput     = "contacts.phone:change"
	EventDeliverySubmit = "order:submit"
	EventContactsSubmit = "contacts:submit"
	EventModalClose     = "modal:close"
	EventSuccessClose   = "success:close"
)

// Events emitted by the sequencer.
const (
	EventModalOpen    = "modal:open"
	EventContactsOpen = "contacts:open"
	EventOrderPlaced  = "order:placed"
	EventOrderFailed  = "order:failed"
)

// LotRef addresses a catalog lot by id.
type LotRef struct {
	ID string
}

// PaymentSelected is the payload of EventPaymentSelect.
type PaymentSelected struct {
	Target order.Payment
}

// FieldInput is the payload of the per-field input events.
type FieldInput struct {
	Value string
}

// Placement is the payload of EventOrderPlaced.
type Placement struct {
	Request order.Request
	Receipt order.Receipt
}

// Failure is the payload of EventOrderFailed.
type Failure struct {
	Request order.Request
	Err     error
}
