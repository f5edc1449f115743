package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/larek-storefront/internal/domain/lot"
	"github.com/xenking/larek-storefront/internal/domain/order"
	"github.com/xenking/larek-storefront/internal/session"
	"github.com/xenking/larek-storefront/pkg/httpmiddleware"
)

// --- Mock implementations ---

type mockSource struct{}

func (mockSource) Lots(context.Context) ([]lot.Item, error) {
	return []lot.Item{
		{ID: "a", Title: "Alpha", Category: lot.CategorySoftSkill, Price: decimal.NewNullDecimal(decimal.NewFromInt(750))},
		{ID: "b", Title: "Beta", Category: lot.CategoryOther},
	}, nil
}

type mockSubmitter struct{}

func (mockSubmitter) PlaceOrder(_ context.Context, req order.Request) (*order.Receipt, error) {
	return &order.Receipt{ID: "order-1", Total: req.Total}, nil
}

// --- Helpers ---

type screenBody struct {
	Version uint64 `json:"version"`
	Step    string `json:"step"`
	Page    struct {
		Counter int  `json:"counter"`
		Locked  bool `json:"locked"`
		Gallery []struct {
			ID    string `json:"id"`
			Price string `json:"price"`
		} `json:"gallery"`
	} `json:"page"`
	Modal *struct {
		Kind string `json:"kind"`
	} `json:"modal"`
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	return newServerWith(t, Config{MaxBodySize: 1024, PingInterval: time.Second})
}

func newServerWith(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	sess, err := session.New(context.Background(), mockSubmitter{}, session.Options{})
	require.NoError(t, err)
	require.NoError(t, sess.LoadCatalog(context.Background(), mockSource{}))
	t.Cleanup(sess.Close)

	mux := http.NewServeMux()
	New(cfg, sess).Mount(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, event, body string) *http.Response {
	t.Helper()
	resp, err := srv.Client().Post(srv.URL+"/api/events/"+event, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeScreen(t *testing.T, resp *http.Response) screenBody {
	t.Helper()
	var s screenBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	return s
}

// readUntil reads pushed screens until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, match func(screenBody) bool) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var s screenBody
		require.NoError(t, conn.ReadJSON(&s))
		if match(s) {
			return
		}
	}
}

// --- Tests ---

func TestGetScreen(t *testing.T) {
	srv := newServer(t)

	resp, err := srv.Client().Get(srv.URL + "/api/screen")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Screen-Version"))

	s := decodeScreen(t, resp)
	require.Len(t, s.Page.Gallery, 2)
	assert.Equal(t, "750 синапсов", s.Page.Gallery[0].Price)
	assert.Equal(t, "Бесценно", s.Page.Gallery[1].Price)
	assert.Nil(t, s.Modal)
}

func TestPostEvent(t *testing.T) {
	srv := newServer(t)

	resp := post(t, srv, "lot:open", `{"id":"a"}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	s := decodeScreen(t, resp)
	assert.Equal(t, "preview", s.Step)
	require.NotNil(t, s.Modal)
	assert.Equal(t, "preview", s.Modal.Kind)
	assert.True(t, s.Page.Locked)

	resp = post(t, srv, "lot:toggle", `{"id":"a"}`)
	assert.Equal(t, 1, decodeScreen(t, resp).Page.Counter)
}

func TestPostEvent_NoPayload(t *testing.T) {
	srv := newServer(t)

	resp := post(t, srv, "basket:open", "")

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "basket", decodeScreen(t, resp).Step)
}

func TestPostEvent_Errors(t *testing.T) {
	tests := []struct {
		name   string
		event  string
		body   string
		status int
	}{
		{"unknown event", "checkout:skip", `{}`, http.StatusNotFound},
		{"derived event", "order:placed", `{}`, http.StatusNotFound},
		{"missing id", "lot:open", `{}`, http.StatusBadRequest},
		{"bad json", "order.address:change", `{"value":`, http.StatusBadRequest},
		{"too large", "order.address:change", `{"value":"` + strings.Repeat("x", 2048) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t)
			resp := post(t, srv, tt.event, tt.body)

			assert.Equal(t, tt.status, resp.StatusCode)
			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestPostEvent_MethodNotAllowed(t *testing.T) {
	srv := newServer(t)

	resp, err := srv.Client().Get(srv.URL + "/api/events/basket:open")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestScreenWS(t *testing.T) {
	srv := newServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/screen/ws"

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	_ = resp.Body.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var first screenBody
	require.NoError(t, conn.ReadJSON(&first))
	assert.Len(t, first.Page.Gallery, 2)

	// An intent posted over HTTP is pushed to the socket.
	post(t, srv, "lot:toggle", `{"id":"a"}`)
	readUntil(t, conn, func(s screenBody) bool { return s.Page.Counter == 1 })

	// So is one sent over the socket itself.
	require.NoError(t, conn.WriteJSON(map[string]any{
		"event":   "basket:open",
		"payload": nil,
	}))
	readUntil(t, conn, func(s screenBody) bool { return s.Step == "basket" })
}

func getScreen(t *testing.T, srv *httptest.Server) screenBody {
	t.Helper()
	resp, err := srv.Client().Get(srv.URL + "/api/screen")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	return decodeScreen(t, resp)
}

func TestRateLimit_SharedByWebsocket(t *testing.T) {
	srv := newServerWith(t, Config{
		MaxBodySize:  1024,
		PingInterval: time.Second,
		Limiter: httpmiddleware.NewLimiter(httpmiddleware.RateLimitConfig{
			Max:    1,
			Window: time.Hour,
		}),
	})
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/screen/ws"

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, post(t, srv, "lot:toggle", `{"id":"a"}`).StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, post(t, srv, "basket:open", "").StatusCode)

	// The budget is spent, so the socket intent is dropped as well.
	require.NoError(t, conn.WriteJSON(map[string]any{"event": "basket:open"}))
	assert.Never(t, func() bool {
		return getScreen(t, srv).Step == "basket"
	}, 300*time.Millisecond, 20*time.Millisecond)
	assert.Equal(t, 1, getScreen(t, srv).Page.Counter)
}

func TestDecodeMessage(t *testing.T) {
	name, payload, err := decodeMessage([]byte(`{"event":"lot:open","payload":{"id":"a"}}`))
	require.NoError(t, err)
	assert.Equal(t, "lot:open", name)
	assert.JSONEq(t, `{"id":"a"}`, string(payload))

	_, _, err = decodeMessage([]byte(`{"payload":{}}`))
	assert.Error(t, err)

	_, _, err = decodeMessage([]byte(`not json`))
	assert.Error(t, err)
}
