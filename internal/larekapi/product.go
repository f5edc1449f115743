package larekapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/larek-storefront/internal/catalog"
	"github.com/xenking/larek-storefront/internal/domain/lot"
)

// Lots fetches the full catalog.
func (c *Client) Lots(ctx context.Context) ([]lot.Item, error) {
	data, err := c.do(ctx, http.MethodGet, "/product", nil)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	items, err := catalog.DecodeList(jx.DecodeBytes(data), c.imageURL)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Lot fetches a single catalog entry.
func (c *Client) Lot(ctx context.Context, id string) (*lot.Item, error) {
	data, err := c.do(ctx, http.MethodGet, "/product/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %q", id)
	}
	item, err := catalog.DecodeItem(jx.DecodeBytes(data), c.imageURL)
	if err != nil {
		return nil, errors.Wrap(err, "decode product")
	}
	return &item, nil
}
