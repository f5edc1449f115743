package session

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/larek-storefront/internal/domain/order"
	"github.com/xenking/larek-storefront/internal/workflow"
)

// ErrUnknownEvent is returned for names that are not UI intents.
var ErrUnknownEvent = errors.New("unknown event")

// PayloadError is returned when an intent body cannot be decoded.
type PayloadError struct {
	Event string
	Err   error
}

func (e *PayloadError) Error() string {
	return "event " + e.Event + ": " + e.Err.Error()
}

func (e *PayloadError) Unwrap() error {
	return e.Err
}

type intentDecoder func(d *jx.Decoder) (any, error)

// intents maps every event a client may emit to its payload decoder.
var intents = map[string]intentDecoder{
	workflow.EventBasketOpen:     noPayload,
	workflow.EventOrderOpen:      noPayload,
	workflow.EventDeliverySubmit: noPayload,
	workflow.EventContactsSubmit: noPayload,
	workflow.EventModalClose:     noPayload,
	workflow.EventSuccessClose:   noPayload,
	workflow.EventLotOpen:        decodeLotRef,
	workflow.EventLotToggle:      decodeLotRef,
	workflow.EventBasketRemove:   decodeLotRef,
	workflow.EventPaymentSelect:  decodePayment,
	workflow.EventAddressInput:   decodeFieldInput,
	workflow.EventEmailInput:     decodeFieldInput,
	workflow.EventPhoneInput:     decodeFieldInput,
}

// Intents returns the names DecodeIntent accepts.
func Intents() []string {
	names := make([]string, 0, len(intents))
	for name := range intents {
		names = append(names, name)
	}
	return names
}

// DecodeIntent decodes the JSON body of the named intent to its payload.
func DecodeIntent(name string, body []byte) (any, error) {
	decode, ok := intents[name]
	if !ok {
		return nil, errors.Wrap(ErrUnknownEvent, name)
	}
	payload, err := decode(jx.DecodeBytes(body))
	if err != nil {
		return nil, &PayloadError{Event: name, Err: err}
	}
	return payload, nil
}

// noPayload accepts an empty body or any JSON value.
func noPayload(d *jx.Decoder) (any, error) {
	if d.Next() == jx.Invalid {
		return nil, nil
	}
	return nil, d.Skip()
}

func decodeLotRef(d *jx.Decoder) (any, error) {
	var ref workflow.LotRef
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "id" {
			return d.Skip()
		}
		v, err := d.Str()
		ref.ID = v
		return err
	}); err != nil {
		return nil, err
	}
	if ref.ID == "" {
		return nil, errors.New("id is required")
	}
	return ref, nil
}

func decodePayment(d *jx.Decoder) (any, error) {
	var p workflow.PaymentSelected
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "target" {
			return d.Skip()
		}
		v, err := d.Str()
		p.Target = order.Payment(v)
		return err
	}); err != nil {
		return nil, err
	}
	if !p.Target.Valid() {
		return nil, errors.Errorf("unknown payment %q", p.Target)
	}
	return p, nil
}

func decodeFieldInput(d *jx.Decoder) (any, error) {
	var in workflow.FieldInput
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "value" {
			return d.Skip()
		}
		v, err := d.Str()
		in.Value = v
		return err
	}); err != nil {
		return nil, err
	}
	return in, nil
}
