package view

import (
	"github.com/go-faster/jx"
)

// MarshalJSON encodes the snapshot.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	var e jx.Encoder
	s.Encode(&e)
	return e.Bytes(), nil
}

// Encode writes the snapshot as a JSON object.
func (s Snapshot) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("version")
	e.UInt64(s.Version)
	e.FieldStart("step")
	e.Str(s.Step)
	e.FieldStart("page")
	e.ObjStart()
	e.FieldStart("counter")
	e.Int(s.Counter)
	e.FieldStart("locked")
	e.Bool(s.Locked)
	e.FieldStart("gallery")
	e.ArrStart()
	for _, c := range s.Gallery {
		c.Encode(e)
	}
	e.ArrEnd()
	e.ObjEnd()
	e.FieldStart("basket")
	s.Basket.Encode(e)
	e.FieldStart("modal")
	if s.Modal == nil {
		e.Null()
	} else {
		s.Modal.Encode(e)
	}
	e.ObjEnd()
}

// Encode writes the card as a JSON object.
func (c Card) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(c.ID)
	e.FieldStart("title")
	e.Str(c.Title)
	if c.Description != "" {
		e.FieldStart("description")
		e.Str(c.Description)
	}
	e.FieldStart("image")
	e.Str(c.Image)
	e.FieldStart("category")
	e.Str(c.Category)
	e.FieldStart("modifier")
	e.Str(c.Modifier)
	e.FieldStart("price")
	e.Str(c.Price)
	e.FieldStart("buyable")
	e.Bool(c.Buyable)
	if c.Button != "" {
		e.FieldStart("button")
		e.Str(c.Button)
	}
	e.ObjEnd()
}

// Encode writes the basket as a JSON object.
func (b Basket) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, r := range b.Rows {
		e.ObjStart()
		e.FieldStart("index")
		e.Int(r.Index)
		e.FieldStart("id")
		e.Str(r.ID)
		e.FieldStart("title")
		e.Str(r.Title)
		e.FieldStart("price")
		e.Str(r.Price)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("total")
	e.Str(b.Total)
	e.FieldStart("valid")
	e.Bool(b.Valid)
	e.ObjEnd()
}

// Encode writes the form state as a JSON object.
func (s FormState) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("valid")
	e.Bool(s.Valid)
	e.FieldStart("errors")
	e.Str(s.ErrorText())
	e.ObjEnd()
}

// Encode writes the modal as a JSON object with its kind and content.
func (m Modal) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("kind")
	e.Str(string(m.Kind))
	e.FieldStart("content")
	switch {
	case m.Preview != nil:
		m.Preview.Encode(e)
	case m.Basket != nil:
		m.Basket.Encode(e)
	case m.Delivery != nil:
		e.ObjStart()
		e.FieldStart("payment")
		e.Str(m.Delivery.Payment)
		e.FieldStart("address")
		e.Str(m.Delivery.Address)
		e.FieldStart("form")
		m.Delivery.State.Encode(e)
		e.ObjEnd()
	case m.Contacts != nil:
		e.ObjStart()
		e.FieldStart("email")
		e.Str(m.Contacts.Email)
		e.FieldStart("phone")
		e.Str(m.Contacts.Phone)
		e.FieldStart("form")
		m.Contacts.State.Encode(e)
		e.ObjEnd()
	case m.Success != nil:
		e.ObjStart()
		e.FieldStart("total")
		e.Num(jx.Num(m.Success.Total.String()))
		e.FieldStart("description")
		e.Str(m.Success.Description)
		e.ObjEnd()
	default:
		e.Null()
	}
	e.ObjEnd()
}
