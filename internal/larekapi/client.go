// Package larekapi is a client for the remote storefront service: it lists
// the product catalog and places orders.
package larekapi

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/larek-storefront/internal/catalog"
	"github.com/xenking/larek-storefront/internal/domain/order"
	"github.com/xenking/larek-storefront/pkg/httpmiddleware"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 4 << 20

var (
	_ order.Submitter = (*Client)(nil)
	_ catalog.Source  = (*Client)(nil)
)

// Client talks to the storefront service over HTTP.
type Client struct {
	apiURL string
	cdnURL string
	http   *http.Client
	lg     *zap.Logger
}

type options struct {
	http    *http.Client
	timeout time.Duration
	lg      *zap.Logger
	tracers trace.TracerProvider
	meters  metric.MeterProvider
}

// Option configures a Client.
type Option func(*options)

// WithHTTPClient replaces the instrumented default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.http = c }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(lg *zap.Logger) Option {
	return func(o *options) { o.lg = lg }
}

// WithTracerProvider sets the tracer provider of the default transport.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracers = tp }
}

// WithMeterProvider sets the meter provider of the default transport.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meters = mp }
}

// New creates a Client for the service at apiURL. Relative image paths are
// resolved against cdnURL.
func New(apiURL, cdnURL string, opts ...Option) *Client {
	o := options{
		timeout: 10 * time.Second,
		lg:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	hc := o.http
	if hc == nil {
		var topts []otelhttp.Option
		if o.tracers != nil {
			topts = append(topts, otelhttp.WithTracerProvider(o.tracers))
		}
		if o.meters != nil {
			topts = append(topts, otelhttp.WithMeterProvider(o.meters))
		}
		hc = &http.Client{
			Timeout:   o.timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport, topts...),
		}
	}

	return &Client{
		apiURL: strings.TrimRight(apiURL, "/"),
		cdnURL: strings.TrimRight(cdnURL, "/"),
		http:   hc,
		lg:     o.lg,
	}
}

// do sends a request and returns the response body of a 2xx response.
// Other statuses are returned as *APIError.
func (c *Client) do(ctx context.Context, method, uri string, body []byte) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+uri, rd)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	id := httpmiddleware.RequestIDFromContext(ctx)
	if id == "" {
		id = uuid.New().String()
	}
	req.Header.Set("X-Request-ID", id)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, uri)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}

	c.lg.Debug("Storefront API call",
		zap.String("method", method),
		zap.String("uri", uri),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", id),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp.StatusCode, data)
	}
	return data, nil
}

// imageURL resolves a catalog image path.
func (c *Client) imageURL(p string) string {
	if p == "" || strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return c.cdnURL + p
}

// APIError is a non-2xx response of the service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// newAPIError takes the message from the body "error" field, falling back
// to the status text.
func newAPIError(status int, body []byte) *APIError {
	e := &APIError{Status: status, Message: http.StatusText(status)}

	var msg string
	d := jx.DecodeBytes(body)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "error" || d.Next() != jx.String {
			return d.Skip()
		}
		v, err := d.Str()
		if err != nil {
			return err
		}
		msg = v
		return nil
	}); err == nil && msg != "" {
		e.Message = msg
	}
	return e
}
