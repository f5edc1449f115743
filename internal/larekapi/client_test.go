package larekapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/larek-storefront/internal/domain/order"
)

const cdn = "https://cdn.example.com/content"

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api/", cdn+"/", WithHTTPClient(srv.Client()))
}

func TestLots(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/product", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"total":2,"items":[
			{"id":"a","title":"Alpha","description":"","image":"/a.svg","category":"хард-скил","price":1450},
			{"id":"b","title":"Beta","description":"","image":"/b.svg","category":"другое","price":null}
		]}`)
	})

	items, err := c.Lots(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, cdn+"/a.svg", items[0].Image)
	assert.True(t, decimal.NewFromInt(1450).Equal(items[0].Price.Decimal))
	assert.False(t, items[1].Price.Valid)
}

func TestLot(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/product/a", r.URL.Path)
		_, _ = io.WriteString(w, `{"id":"a","title":"Alpha","image":"x.svg","category":"кнопка","price":10}`)
	})

	item, err := c.Lot(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", item.Title)
	assert.Equal(t, cdn+"/x.svg", item.Image)
}

func TestLot_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"NotFound"}`)
	})

	_, err := c.Lot(context.Background(), "missing")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "NotFound", apiErr.Message)
}

func TestPlaceOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/order", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, err := uuid.Parse(r.Header.Get("X-Request-ID"))
		assert.NoError(t, err)

		var body struct {
			Payment string   `json:"payment"`
			Address string   `json:"address"`
			Email   string   `json:"email"`
			Phone   string   `json:"phone"`
			Total   float64  `json:"total"`
			Items   []string `json:"items"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "card", body.Payment)
		assert.Equal(t, "Main St", body.Address)
		assert.Equal(t, "buyer@example.com", body.Email)
		assert.Equal(t, "+79991234567", body.Phone)
		assert.Equal(t, float64(250), body.Total)
		assert.Equal(t, []string{"a", "b"}, body.Items)

		_, _ = io.WriteString(w, `{"id":"28c57cb4-3002-4445-8aa1-2a06a5055ae5","total":250}`)
	})

	receipt, err := c.PlaceOrder(context.Background(), order.Request{
		Details: order.Details{
			Payment: order.PaymentCard,
			Address: "Main St",
			Email:   "buyer@example.com",
			Phone:   "+79991234567",
		},
		Total: decimal.NewFromInt(250),
		Items: []string{"a", "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, "28c57cb4-3002-4445-8aa1-2a06a5055ae5", receipt.ID)
	assert.True(t, decimal.NewFromInt(250).Equal(receipt.Total))
}

func TestPlaceOrder_Rejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"Неверная сумма заказа"}`)
	})

	receipt, err := c.PlaceOrder(context.Background(), order.Request{Total: decimal.NewFromInt(1)})
	require.Error(t, err)
	assert.Nil(t, receipt)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Неверная сумма заказа", apiErr.Message)
}

func TestAPIError_StatusTextFallback(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"not json", "<html>bad gateway</html>"},
		{"no error field", `{"message":"x"}`},
		{"non-string error", `{"error":{"code":1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newAPIError(http.StatusBadGateway, []byte(tt.body))
			assert.Equal(t, http.StatusText(http.StatusBadGateway), e.Message)
		})
	}
}

func TestImageURL(t *testing.T) {
	c := New("https://api.example.com", cdn)

	assert.Equal(t, cdn+"/a.svg", c.imageURL("/a.svg"))
	assert.Equal(t, cdn+"/a.svg", c.imageURL("a.svg"))
	assert.Equal(t, "https://other.example.com/a.svg", c.imageURL("https://other.example.com/a.svg"))
	assert.Equal(t, "", c.imageURL(""))
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, cdn)
	_, err := c.Lots(context.Background())
	assert.Error(t, err)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}
