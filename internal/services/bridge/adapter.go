package bridge

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// FromHandler runs a net/http handler as an Application. The handler sees a
// request rebuilt from the scope and the received body; its response is sent
// back as one start event followed by one body event.
func FromHandler(h http.Handler) Application {
	if h == nil {
		h = http.NotFoundHandler()
	}
	return ApplicationFunc(func(ctx context.Context, scope Scope, receive Receive, send Send) error {
		msg, err := receive(ctx)
		if err != nil {
			return fmt.Errorf("receive request: %w", err)
		}
		if msg.Type != TypeRequest {
			return fmt.Errorf("receive request: unexpected message type %q", msg.Type)
		}

		req, err := requestFromScope(ctx, scope, msg.Body)
		if err != nil {
			return err
		}

		buf := newResponseBuffer()
		h.ServeHTTP(buf, req)

		if err := send(ctx, ResponseStart{Status: buf.statusCode, Headers: rawHeaders(buf.header)}); err != nil {
			return err
		}
		return send(ctx, ResponseBody{Body: buf.body.Bytes()})
	})
}

func requestFromScope(ctx context.Context, scope Scope, body []byte) (*http.Request, error) {
	method := scope.Method
	if method == "" {
		method = http.MethodGet
	}
	target := &url.URL{Path: scope.Path, RawQuery: string(scope.QueryString)}
	if decoded, err := url.PathUnescape(scope.Path); err == nil {
		target.Path = decoded
		target.RawPath = scope.Path
	}

	req, err := http.NewRequestWithContext(ctx, method, target.RequestURI(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.RequestURI = target.RequestURI()
	req.ContentLength = int64(len(body))
	req.Proto, req.ProtoMajor, req.ProtoMinor = protoFromVersion(scope.HTTPVersion)
	req.RemoteAddr = net.JoinHostPort(scope.Client.Host, strconv.Itoa(scope.Client.Port))

	for _, h := range scope.Headers {
		if !h.Valid() {
			continue
		}
		name := string(h[0])
		if strings.EqualFold(name, "host") {
			req.Host = string(h[1])
			continue
		}
		req.Header.Add(name, string(h[1]))
	}
	return req, nil
}

func protoFromVersion(version string) (string, int, int) {
	switch version {
	case "1.0":
		return "HTTP/1.0", 1, 0
	case "2":
		return "HTTP/2.0", 2, 0
	case "3":
		return "HTTP/3.0", 3, 0
	default:
		return "HTTP/1.1", 1, 1
	}
}

// rawHeaders lower-cases names and keeps every value.
func rawHeaders(header http.Header) []RawHeader {
	names := make([]string, 0, len(header))
	for name := range header {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]RawHeader, 0, len(names))
	for _, name := range names {
		lower := strings.ToLower(name)
		for _, value := range header[name] {
			out = append(out, Pair(lower, value))
		}
	}
	return out
}

// responseBuffer captures a handler response in memory.
type responseBuffer struct {
	header      http.Header
	statusCode  int
	body        bytes.Buffer
	headerWrote bool
}

func newResponseBuffer() *responseBuffer {
	return &responseBuffer{
		header:     make(http.Header),
		statusCode: http.StatusOK,
	}
}

func (w *responseBuffer) Header() http.Header {
	return w.header
}

func (w *responseBuffer) WriteHeader(status int) {
	if w.headerWrote {
		return
	}
	w.headerWrote = true
	w.statusCode = status
}

func (w *responseBuffer) Write(body []byte) (int, error) {
	if !w.headerWrote {
		w.WriteHeader(http.StatusOK)
	}
	if _, ok := w.header["Content-Type"]; !ok && w.body.Len() == 0 && len(body) > 0 {
		w.header.Set("Content-Type", http.DetectContentType(body))
	}
	return w.body.Write(body)
}
