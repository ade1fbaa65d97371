package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"reflect"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/louisbranch/sites/internal/services/bridge"

// DefaultMaxBodyBytes caps the buffered request body when no limit is set.
const DefaultMaxBodyBytes int64 = 10 << 20

// ErrorHandler writes the response for a request the bridge could not
// complete.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, status int, err error)

// Option configures a Handler.
type Option func(*Handler)

// WithMaxBodyBytes bounds the request body read before the application runs.
// A non-positive value disables the limit.
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		h.maxBodyBytes = n
	}
}

// WithErrorHandler replaces the plain-text error response.
func WithErrorHandler(fn ErrorHandler) Option {
	return func(h *Handler) {
		if fn != nil {
			h.onError = fn
		}
	}
}

// WithTracerProvider sets the provider used for request spans. The global
// provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(h *Handler) {
		if tp != nil {
			h.tracer = tp.Tracer(tracerName)
		}
	}
}

// Handler serves HTTP requests through an Application.
type Handler struct {
	app          Application
	maxBodyBytes int64
	onError      ErrorHandler
	tracer       trace.Tracer
}

// New builds a Handler that forwards every request to app.
func New(app Application, opts ...Option) *Handler {
	h := &Handler{
		app:          app,
		maxBodyBytes: DefaultMaxBodyBytes,
		onError:      plainError,
		tracer:       otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// ServeHTTP builds the request scope, invokes the application once and writes
// the response it produced.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "bridge.request",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.request.method", r.Method),
			attribute.String("url.path", r.URL.Path),
		),
	)
	defer span.End()

	if h.app == nil {
		h.fail(w, r, span, http.StatusInternalServerError, errors.New("application is required"))
		return
	}

	body, err := h.readBody(w, r)
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		h.fail(w, r, span, status, fmt.Errorf("read request body: %w", err))
		return
	}

	resp := newResponse()
	err = h.app.Call(ctx, NewScope(r), receiveBody(body), resp.send)
	if err == nil {
		err = resp.err
	}
	if err != nil {
		h.fail(w, r, span, http.StatusInternalServerError, err)
		return
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.status))
	if err := resp.writeTo(w); err != nil {
		log.Printf("bridge write failed method=%s path=%s error=%v", r.Method, r.URL.Path, err)
	}
}

func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return []byte{}, nil
	}
	reader := io.Reader(r.Body)
	if h.maxBodyBytes > 0 {
		reader = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}
	return io.ReadAll(reader)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, span trace.Span, status int, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.Int("http.response.status_code", status))
	requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
	if requestID == "" {
		requestID = "-"
	}
	log.Printf("bridge request failed method=%s path=%s status=%d request_id=%s error=%v", r.Method, r.URL.Path, status, requestID, err)
	h.onError(w, r, status, err)
}

func plainError(w http.ResponseWriter, _ *http.Request, status int, _ error) {
	http.Error(w, http.StatusText(status), status)
}

func receiveBody(body []byte) Receive {
	return func(context.Context) (RequestMessage, error) {
		return RequestMessage{Type: TypeRequest, Body: body, MoreBody: false}, nil
	}
}

// response accumulates the events of one request until the application
// returns.
type response struct {
	status  int
	header  http.Header
	body    bytes.Buffer
	started bool
	err     error
}

func newResponse() *response {
	return &response{status: http.StatusOK, header: make(http.Header)}
}

func (r *response) send(_ context.Context, event Event) error {
	if r.err != nil {
		return r.err
	}
	switch e := event.(type) {
	case ResponseStart:
		return r.start(e)
	case *ResponseStart:
		if e == nil {
			return r.reject("<nil>")
		}
		return r.start(*e)
	case ResponseBody:
		r.body.Write(e.Body)
	case *ResponseBody:
		if e == nil {
			return r.reject("<nil>")
		}
		r.body.Write(e.Body)
	case nil:
		return r.reject("<nil>")
	default:
		return r.reject(eventType(event))
	}
	return nil
}

// eventType names event without calling methods on a nil pointer.
func eventType(event Event) string {
	if v := reflect.ValueOf(event); v.Kind() == reflect.Pointer && v.IsNil() {
		return fmt.Sprintf("%T", event)
	}
	return event.EventType()
}

func (r *response) start(e ResponseStart) error {
	if e.Status < 100 || e.Status > 999 {
		r.err = fmt.Errorf("%w: %d", ErrInvalidStatus, e.Status)
		return r.err
	}
	r.started = true
	r.status = e.Status
	r.header.Del("Content-Type")
	for _, h := range e.Headers {
		if !h.Valid() {
			continue
		}
		r.header.Add(string(h[0]), string(h[1]))
	}
	return nil
}

func (r *response) reject(name string) error {
	r.err = &ProtocolError{EventType: name}
	return r.err
}

func (r *response) writeTo(w http.ResponseWriter) error {
	dst := w.Header()
	if r.started {
		dst.Del("Content-Type")
	}
	for name, values := range r.header {
		for _, value := range values {
			dst.Add(name, value)
		}
	}
	if r.started && len(r.header.Values("Content-Type")) == 0 {
		// A nil entry stops net/http from sniffing a content type.
		dst["Content-Type"] = nil
	}
	w.WriteHeader(r.status)
	if r.body.Len() == 0 {
		return nil
	}
	_, err := w.Write(r.body.Bytes())
	return err
}
