package cache

import (
	"net/http"
)

// Response is what Get hands to the serving layer
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

func newResponse(headers http.Header, body []byte) *Response {
	return &Response{
		Status:  http.StatusOK,
		Headers: headers,
		Body:    body,
	}
}

// Gzipped reports whether the response body is gzip encoded
func (r *Response) Gzipped() bool {
	return r.Headers.Get("Content-Encoding") == "gzip"
}

// Plain returns the body with any gzip encoding removed
func (r *Response) Plain() ([]byte, error) {
	if !r.Gzipped() {
		return r.Body, nil
	}
	return gunzip(r.Body)
}
