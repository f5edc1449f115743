// Package handler exposes a storefront session over HTTP: clients post UI
// intents and read or stream the rendered screen.
package handler

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xenking/larek-storefront/internal/session"
	"github.com/xenking/larek-storefront/pkg/httpmiddleware"
)

// HeaderScreenVersion carries the version of the screen in the response body.
const HeaderScreenVersion = "X-Screen-Version"

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// MaxBodySize limits intent bodies. Defaults to 64 KiB.
	MaxBodySize int64
	// PingInterval is the websocket keepalive period. Defaults to 30s.
	PingInterval time.Duration
	// CheckOrigin validates websocket origins. Nil accepts same-host
	// requests only.
	CheckOrigin func(r *http.Request) bool
	// Limiter, when set, limits intents per client on the intent route and
	// on the screen websocket alike.
	Limiter *httpmiddleware.Limiter
}

// Handler serves one session.
type Handler struct {
	sess     *session.Session
	maxBody  int64
	ping     time.Duration
	limiter  *httpmiddleware.Limiter
	upgrader websocket.Upgrader
}

// New creates a Handler for sess.
func New(cfg Config, sess *session.Session) *Handler {
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = 64 << 10
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	return &Handler{
		sess:    sess,
		maxBody: cfg.MaxBodySize,
		ping:    cfg.PingInterval,
		limiter: cfg.Limiter,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     cfg.CheckOrigin,
		},
	}
}

// Mount registers the routes on mux. intents wrap the intent route only,
// inside the rate limiter when one is configured.
func (h *Handler) Mount(mux *http.ServeMux, intents ...httpmiddleware.Middleware) {
	if h.limiter != nil {
		intents = append([]httpmiddleware.Middleware{h.limiter.Middleware()}, intents...)
	}
	mux.Handle("POST /api/events/{name}", httpmiddleware.Wrap(http.HandlerFunc(h.PostEvent), intents...))
	mux.HandleFunc("GET /api/screen", h.GetScreen)
	mux.HandleFunc("GET /api/screen/ws", h.ScreenWS)
}

// PostEvent dispatches the intent named in the path and responds with the
// resulting screen.
func (h *Handler) PostEvent(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	lg := zctx.From(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "read body")
		return
	}

	if err := h.sess.DispatchJSON(name, body); err != nil {
		status := mapIntentError(err)
		lg.Debug("Intent rejected", zap.String("event", name), zap.Error(err))
		writeError(w, status, err.Error())
		return
	}
	lg.Debug("Intent dispatched", zap.String("event", name))

	writeScreen(w, http.StatusAccepted, h.sess)
}

// GetScreen responds with the current screen.
func (h *Handler) GetScreen(w http.ResponseWriter, _ *http.Request) {
	writeScreen(w, http.StatusOK, h.sess)
}

func mapIntentError(err error) int {
	if errors.Is(err, session.ErrUnknownEvent) {
		return http.StatusNotFound
	}
	var pe *session.PayloadError
	if errors.As(err, &pe) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeScreen(w http.ResponseWriter, status int, sess *session.Session) {
	snap := sess.Screen().Snapshot()

	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	snap.Encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(HeaderScreenVersion, strconv.FormatUint(snap.Version, 10))
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("error")
	e.Str(msg)
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
