// Package catalog loads the lot list the storefront sells.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/larek-storefront/internal/domain/lot"
)

// Source provides the catalog.
type Source interface {
	Lots(ctx context.Context) ([]lot.Item, error)
}

// ErrMissingID is returned for a catalog entry without an id.
var ErrMissingID = errors.New("lot without id")

// ImageResolver maps an image path from the payload to the URL shown to
// users.
type ImageResolver func(path string) string

// DecodeList decodes a `{total, items}` list response. A nil resolve keeps
// image paths as they are.
func DecodeList(d *jx.Decoder, resolve ImageResolver) ([]lot.Item, error) {
	var items []lot.Item
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				item, err := DecodeItem(d, resolve)
				if err != nil {
					return errors.Wrapf(err, "item %d", len(items))
				}
				items = append(items, item)
				return nil
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, errors.Wrap(err, "decode list")
	}
	return items, nil
}

// DecodeItem decodes a single catalog entry. A null or absent price makes
// the lot priceless.
func DecodeItem(d *jx.Decoder, resolve ImageResolver) (lot.Item, error) {
	var item lot.Item
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			item.ID, err = d.Str()
		case "title":
			item.Title, err = d.Str()
		case "description":
			item.Description, err = d.Str()
		case "image":
			item.Image, err = d.Str()
		case "category":
			var v string
			v, err = d.Str()
			item.Category = lot.Category(v)
		case "price":
			item.Price, err = decodePrice(d)
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		return lot.Item{}, err
	}
	if item.ID == "" {
		return lot.Item{}, ErrMissingID
	}
	if resolve != nil {
		item.Image = resolve(item.Image)
	}
	return item, nil
}

func decodePrice(d *jx.Decoder) (decimal.NullDecimal, error) {
	switch tt := d.Next(); tt {
	case jx.Null:
		return decimal.NullDecimal{}, d.Null()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.NullDecimal{}, err
		}
		v, err := decimal.NewFromString(string(n))
		if err != nil {
			return decimal.NullDecimal{}, errors.Wrap(err, "parse price")
		}
		return decimal.NewNullDecimal(v), nil
	default:
		return decimal.NullDecimal{}, errors.Errorf("unexpected price type %s", tt)
	}
}
