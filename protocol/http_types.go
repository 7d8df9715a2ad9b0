package protocol

import "strings"

const (
	DefaultMethod  = "GET"
	DefaultURI     = "/"
	DefaultVersion = "HTTP/1.1"

	StatusOK = 200
)

// HttpHeader represents an HTTP header key-value pair
type HttpHeader struct {
	Key   string
	Value string
}

// HttpHeaders is an ordered, append-only header collection.
// Duplicate keys are legal and all of them are retained.
type HttpHeaders []HttpHeader

// Add appends a header without touching existing entries
func (h *HttpHeaders) Add(key, value string) {
	*h = append(*h, HttpHeader{Key: key, Value: value})
}

// Get returns the value of the first header whose key matches exactly
func (h HttpHeaders) Get(key string) (string, bool) {
	for _, header := range h {
		if header.Key == key {
			return header.Value, true
		}
	}
	return "", false
}

// GetFold is Get with ASCII case-insensitive key matching
func (h HttpHeaders) GetFold(key string) (string, bool) {
	for _, header := range h {
		if strings.EqualFold(header.Key, key) {
			return header.Value, true
		}
	}
	return "", false
}

// Values returns every value stored under key, in insertion order
func (h HttpHeaders) Values(key string) []string {
	var values []string
	for _, header := range h {
		if header.Key == key {
			values = append(values, header.Value)
		}
	}
	return values
}

// Len returns the number of stored headers
func (h HttpHeaders) Len() int {
	return len(h)
}

// HttpRequest represents a parsed HTTP request.
// Body is length-exact: embedded zero bytes are preserved.
type HttpRequest struct {
	Method  string
	URI     string
	Version string
	Headers HttpHeaders
	Body    []byte
}

// HeaderCount returns the number of colon-bearing header lines that were parsed
func (r *HttpRequest) HeaderCount() int {
	return len(r.Headers)
}

// Release drops every buffer held by the request. Safe to call more than once.
func (r *HttpRequest) Release() {
	if r == nil {
		return
	}
	r.Method = ""
	r.URI = ""
	r.Version = ""
	r.Headers = nil
	r.Body = nil
}

// HttpResponse represents a response under construction
type HttpResponse struct {
	StatusCode int
	Version    string
	Headers    HttpHeaders

	body    []byte
	hasBody bool
}

// NewHttpResponse creates a 200 response with no headers and no body
func NewHttpResponse() *HttpResponse {
	return &HttpResponse{
		StatusCode: StatusOK,
		Version:    DefaultVersion,
	}
}

// SetBody replaces any previous body with a copy of body.
// A nil or empty body leaves an explicit empty body, observable through HasBody.
func (r *HttpResponse) SetBody(body []byte) {
	r.hasBody = true
	if len(body) == 0 {
		r.body = nil
		return
	}
	r.body = make([]byte, len(body))
	copy(r.body, body)
}

// SetHeader appends a header. Existing headers with the same key are kept.
func (r *HttpResponse) SetHeader(key, value string) {
	r.Headers.Add(key, value)
}

// Body returns the response body
func (r *HttpResponse) Body() []byte {
	return r.body
}

// HasBody reports whether SetBody has been called since creation or the last Release
func (r *HttpResponse) HasBody() bool {
	return r.hasBody
}

// Release drops the body and headers. Safe to call more than once.
func (r *HttpResponse) Release() {
	if r == nil {
		return
	}
	r.body = nil
	r.hasBody = false
	r.Headers = nil
}
