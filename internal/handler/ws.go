package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

// ScreenWS upgrades to a websocket that receives the screen after every
// change. Clients may send intents as {"event": name, "payload": {...}}.
func (h *Handler) ScreenWS(w http.ResponseWriter, r *http.Request) {
	lg := zctx.From(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written the error response.
		lg.Debug("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	changes, stop := h.sess.Screen().Watch()
	defer stop()

	done := make(chan struct{})
	go h.readIntents(r, conn, lg, done)

	ping := time.NewTicker(h.ping)
	defer ping.Stop()

	var sent uint64
	push := func() error {
		snap := h.sess.Screen().Snapshot()
		if sent != 0 && snap.Version == sent {
			return nil
		}
		sent = snap.Version

		var e jx.Encoder
		snap.Encode(&e)
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteMessage(websocket.TextMessage, e.Bytes())
	}

	if err := push(); err != nil {
		lg.Debug("Websocket write failed", zap.Error(err))
		return
	}
	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-changes:
			if err := push(); err != nil {
				lg.Debug("Websocket write failed", zap.Error(err))
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// readIntents dispatches client messages until the connection fails, then
// closes done. Messages over the client's rate limit are dropped; r is the
// upgrade request and keys the limiter.
func (h *Handler) readIntents(r *http.Request, conn *websocket.Conn, lg *zap.Logger, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(h.maxBody)
	_ = conn.SetReadDeadline(time.Now().Add(2 * h.ping))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * h.ping))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				lg.Debug("Websocket closed", zap.Error(err))
			}
			return
		}
		name, payload, err := decodeMessage(data)
		if err == nil && !h.limiter.AllowRequest(r, time.Now()) {
			lg.Debug("Websocket intent rate limited", zap.String("event", name))
			continue
		}
		if err == nil {
			err = h.sess.DispatchJSON(name, payload)
		}
		if err != nil {
			lg.Debug("Websocket intent rejected", zap.String("event", name), zap.Error(err))
		}
	}
}

// decodeMessage splits {"event": name, "payload": {...}} into the intent name
// and the raw payload.
func decodeMessage(data []byte) (string, []byte, error) {
	var (
		name    string
		payload []byte
	)
	if err := jx.DecodeBytes(data).ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "event":
			v, err := d.Str()
			name = v
			return err
		case "payload":
			raw, err := d.Raw()
			payload = append([]byte(nil), raw...)
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		return "", nil, errors.Wrap(err, "decode message")
	}
	if name == "" {
		return "", nil, errors.New("event is required")
	}
	return name, payload, nil
}
