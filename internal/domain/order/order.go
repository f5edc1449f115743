// Package order defines the checkout draft, its payment methods and form
// fields, the Validator port that turns field values into per-field errors,
// and the Submitter port that places a finished order.
package order

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/xenking/larek-storefront/pkg/eventbus"
)

// EventValidated carries the FormErrors produced by the last validation run.
const EventValidated = "order:validate"

// Payment is the payment method chosen on the delivery step.
type Payment string

const (
	PaymentUnset Payment = ""
	PaymentCard  Payment = "card"
	PaymentCash  Payment = "cash"
)

// Valid reports whether p is a selectable payment method.
func (p Payment) Valid() bool {
	return p == PaymentCard || p == PaymentCash
}

// Field names an order form field.
type Field string

const (
	FieldPayment Field = "payment"
	FieldAddress Field = "address"
	FieldEmail   Field = "email"
	FieldPhone   Field = "phone"
)

// Details is a point-in-time copy of the order draft.
type Details struct {
	Payment Payment
	Address string
	Email   string
	Phone   string
}

// FormErrors maps a field to its error message. A missing key or an empty
// message means the field has no error.
type FormErrors map[Field]string

// Has reports whether f carries an error.
func (e FormErrors) Has(f Field) bool {
	return e[f] != ""
}

// DeliveryValid reports whether neither payment nor address has an error.
func (e FormErrors) DeliveryValid() bool {
	return !e.Has(FieldPayment) && !e.Has(FieldAddress)
}

// ContactsValid reports whether neither email nor phone has an error.
func (e FormErrors) ContactsValid() bool {
	return !e.Has(FieldEmail) && !e.Has(FieldPhone)
}

// Messages returns the non-empty messages of the given fields in order.
func (e FormErrors) Messages(fields ...Field) []string {
	var out []string
	for _, f := range fields {
		if msg := e[f]; msg != "" {
			out = append(out, msg)
		}
	}
	return out
}

// Validator inspects order details and reports per-field errors.
type Validator interface {
	Validate(d Details) FormErrors
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(d Details) FormErrors

// Validate implements Validator.
func (f ValidatorFunc) Validate(d Details) FormErrors {
	return f(d)
}

// Order is the checkout draft. Setters are plain assignments; validity is
// decided by a Validator.
type Order struct {
	payment Payment
	address string
	email   string
	phone   string

	events eventbus.Emitter
}

// New creates an empty Order bound to events.
func New(events eventbus.Emitter) *Order {
	return &Order{events: events}
}

// SetPayment sets the payment method. Setters store raw input only; call
// Validate to broadcast the resulting form state.
func (o *Order) SetPayment(p Payment) { o.payment = p }

// SetAddress sets the delivery address.
func (o *Order) SetAddress(v string) { o.address = v }

// SetEmail sets the contact email.
func (o *Order) SetEmail(v string) { o.email = v }

// SetPhone sets the contact phone.
func (o *Order) SetPhone(v string) { o.phone = v }

// Clear resets every field.
func (o *Order) Clear() {
	o.payment = PaymentUnset
	o.address = ""
	o.email = ""
	o.phone = ""
}

// Details returns a copy of the current field values.
func (o *Order) Details() Details {
	return Details{
		Payment: o.payment,
		Address: o.address,
		Email:   o.email,
		Phone:   o.phone,
	}
}

// Validate runs v against the current fields and broadcasts the result as
// EventValidated.
func (o *Order) Validate(v Validator) FormErrors {
	errs := v.Validate(o.Details())
	if errs == nil {
		errs = FormErrors{}
	}
	o.events.Emit(EventValidated, errs)
	return errs
}

// Request is the snapshot sent to the order service.
type Request struct {
	Details
	Total decimal.Decimal
	Items []string
}

// Receipt is the order service's answer to a successful submission.
type Receipt struct {
	ID    string
	Total decimal.Decimal
}

// Submitter places orders with the remote service.
type Submitter interface {
	PlaceOrder(ctx context.Context, req Request) (*Receipt, error)
}
