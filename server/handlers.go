package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/chrisvdg/zerver/cache"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

func newHandlers(s *Server) *handlers {
	return &handlers{s: s}
}

type handlers struct {
	s *Server
}

// StaticHandler serves a logical path from the cache
func (h *handlers) StaticHandler(res http.ResponseWriter, req *http.Request) {
	c := h.s.Cache()
	resp, err := c.Get(req.URL.Path)
	if errors.Is(err, cache.ErrNotFound) {
		h.missing(res, req, c)
		return
	}
	if err != nil {
		log.Errorf("Failed to serve %s: %s", req.URL.Path, err)
		h.s.metrics.requests.WithLabelValues("error").Inc()
		http.Error(res, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if etagMatches(req.Header.Get("If-None-Match"), resp.Headers.Get("ETag")) {
		for _, k := range []string{"ETag", "Cache-Control", "Vary"} {
			res.Header().Set(k, resp.Headers.Get(k))
		}
		h.s.metrics.requests.WithLabelValues("not_modified").Inc()
		res.WriteHeader(http.StatusNotModified)
		return
	}

	h.s.metrics.requests.WithLabelValues("hit").Inc()
	write(res, req, resp, resp.Status)
}

// MethodNotAllowedHandler answers every non GET/HEAD request
func (h *handlers) MethodNotAllowedHandler(res http.ResponseWriter, req *http.Request) {
	res.Header().Set("Allow", "GET, HEAD")
	http.Error(res, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}

// missing serves the configured fallback with a 404 status, or a plain 404
func (h *handlers) missing(res http.ResponseWriter, req *http.Request, c *cache.Cache) {
	h.s.metrics.requests.WithLabelValues("missing").Inc()
	if h.s.c.Missing != "" {
		resp, err := c.Get(h.s.c.Missing)
		if err == nil {
			write(res, req, resp, http.StatusNotFound)
			return
		}
		log.Debugf("Fallback %s not available: %s", h.s.c.Missing, err)
	}
	http.NotFound(res, req)
}

func write(res http.ResponseWriter, req *http.Request, resp *cache.Response, status int) {
	for k, v := range resp.Headers {
		res.Header()[k] = append([]string{}, v...)
	}

	body := resp.Body
	if resp.Gzipped() && !acceptsGzip(req.Header.Get("Accept-Encoding")) {
		plain, err := resp.Plain()
		if err != nil {
			log.Errorf("Failed to decode %s: %s", req.URL.Path, err)
			http.Error(res, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		res.Header().Del("Content-Encoding")
		body = plain
	}

	res.Header().Set("Content-Length", strconv.Itoa(len(body)))
	res.WriteHeader(status)
	if req.Method == http.MethodHead {
		return
	}
	if _, err := res.Write(body); err != nil {
		log.Debugf("Failed to write %s: %s", req.URL.Path, err)
	}
}

// acceptsGzip reports whether an Accept-Encoding value allows gzip
func acceptsGzip(header string) bool {
	for _, part := range strings.Split(header, ",") {
		fields := strings.Split(part, ";")
		name := strings.ToLower(strings.TrimSpace(fields[0]))
		if name != "gzip" && name != "*" {
			continue
		}
		refused := false
		for _, param := range fields[1:] {
			param = strings.ReplaceAll(param, " ", "")
			if strings.HasPrefix(param, "q=") {
				q, err := strconv.ParseFloat(param[2:], 64)
				refused = err == nil && q == 0
			}
		}
		if !refused {
			return true
		}
	}
	return false
}

// etagMatches implements the weak comparison of If-None-Match
func etagMatches(header, etag string) bool {
	if header == "" || etag == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
