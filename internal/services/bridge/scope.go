package bridge

import (
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// Charset is the encoding used for header names, header values and the query
// string carried in a Scope.
const Charset = "utf-8"

const (
	// ScopeTypeHTTP labels plain-text requests.
	ScopeTypeHTTP = "http"
	// ScopeTypeHTTPS labels requests received over TLS.
	ScopeTypeHTTPS = "https"
)

// RawHeader is one header as exchanged with the application: a name and a
// value. Pairs received from an application are only honored when they hold
// exactly two elements.
type RawHeader [][]byte

// Pair builds a well-formed RawHeader.
func Pair(name, value string) RawHeader {
	return RawHeader{[]byte(name), []byte(value)}
}

// Valid reports whether the header holds exactly a name and a value.
func (h RawHeader) Valid() bool {
	return len(h) == 2
}

// Name returns the header name, or "" for a malformed pair.
func (h RawHeader) Name() string {
	if !h.Valid() {
		return ""
	}
	return string(h[0])
}

// Value returns the header value, or "" for a malformed pair.
func (h RawHeader) Value() string {
	if !h.Valid() {
		return ""
	}
	return string(h[1])
}

// Client identifies the remote peer of a request.
//
// Port is always zero: the listener address is not carried through to the
// application.
type Client struct {
	Host string
	Port int
}

// Scope describes one incoming request. It is built once at request entry and
// is read-only afterwards. Path and QueryString keep their percent-encoding.
type Scope struct {
	Type        string
	HTTPVersion string
	Path        string
	Method      string
	QueryString []byte
	Headers     []RawHeader
	Client      Client
}

// Header returns every value recorded for name, compared case-insensitively,
// in request order.
func (s Scope) Header(name string) []string {
	name = strings.ToLower(name)
	var values []string
	for _, h := range s.Headers {
		if h.Valid() && string(h[0]) == name {
			values = append(values, string(h[1]))
		}
	}
	return values
}

// NewScope builds the Scope for r.
//
// Header names are lower-cased. A name with several values contributes one
// pair per value, in the order the request carried them. Names are emitted in
// sorted order, with Host first when present.
func NewScope(r *http.Request) Scope {
	scope := Scope{
		Type:        ScopeTypeHTTP,
		HTTPVersion: httpVersion(r),
		Path:        r.URL.EscapedPath(),
		Method:      r.Method,
		QueryString: []byte(r.URL.RawQuery),
		Headers:     scopeHeaders(r),
		Client:      Client{Host: remoteHost(r.RemoteAddr)},
	}
	if r.TLS != nil {
		scope.Type = ScopeTypeHTTPS
	}
	return scope
}

func scopeHeaders(r *http.Request) []RawHeader {
	names := make([]string, 0, len(r.Header))
	count := 0
	for name, values := range r.Header {
		names = append(names, name)
		count += len(values)
	}
	sort.Strings(names)

	headers := make([]RawHeader, 0, count+1)
	if host := r.Host; host != "" && len(r.Header.Values("Host")) == 0 {
		headers = append(headers, Pair("host", host))
	}
	for _, name := range names {
		lower := strings.ToLower(name)
		for _, value := range r.Header[name] {
			headers = append(headers, Pair(lower, value))
		}
	}
	return headers
}

func httpVersion(r *http.Request) string {
	switch {
	case r.ProtoMajor >= 2:
		return strconv.Itoa(r.ProtoMajor)
	case r.ProtoMajor == 0 && r.ProtoMinor == 0:
		return "1.1"
	default:
		return strconv.Itoa(r.ProtoMajor) + "." + strconv.Itoa(r.ProtoMinor)
	}
}

func remoteHost(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
