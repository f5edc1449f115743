package larekapi

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/larek-storefront/internal/domain/order"
)

// PlaceOrder submits the order. The service recomputes the total and rejects
// the order when it differs.
func (c *Client) PlaceOrder(ctx context.Context, req order.Request) (*order.Receipt, error) {
	data, err := c.do(ctx, http.MethodPost, "/order", encodeOrder(req))
	if err != nil {
		return nil, errors.Wrap(err, "place order")
	}
	receipt, err := decodeReceipt(jx.DecodeBytes(data))
	if err != nil {
		return nil, errors.Wrap(err, "decode receipt")
	}
	return receipt, nil
}

func encodeOrder(req order.Request) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("payment")
	e.Str(string(req.Payment))
	e.FieldStart("address")
	e.Str(req.Address)
	e.FieldStart("email")
	e.Str(req.Email)
	e.FieldStart("phone")
	e.Str(req.Phone)
	e.FieldStart("total")
	e.Num(jx.Num(req.Total.String()))
	e.FieldStart("items")
	e.ArrStart()
	for _, id := range req.Items {
		e.Str(id)
	}
	e.ArrEnd()
	e.ObjEnd()

	return append([]byte(nil), e.Bytes()...)
}

func decodeReceipt(d *jx.Decoder) (*order.Receipt, error) {
	var r order.Receipt
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "id":
			v, err := d.Str()
			r.ID = v
			return err
		case "total":
			n, err := d.Num()
			if err != nil {
				return err
			}
			v, err := decimal.NewFromString(string(n))
			if err != nil {
				return errors.Wrap(err, "parse total")
			}
			r.Total = v
			return nil
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, err
	}
	return &r, nil
}
