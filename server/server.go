package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/chrisvdg/zerver/cache"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const defaultWatchInterval = 500 * time.Millisecond

// New creates a new server instance.
// The cache is built before New returns; a failed build is returned as is.
func New(c *Config) (*Server, error) {
	if c.Cache.Root == "" {
		return nil, errors.New("No root directory provided")
	}
	if c.Verbose {
		log.SetLevel(log.DebugLevel)
	}
	if c.TLS == nil {
		c.TLS = &TLSConfig{}
	}
	if c.WatchInterval <= 0 {
		c.WatchInterval = defaultWatchInterval
	}

	registry := prometheus.NewRegistry()
	s := &Server{
		c:        c,
		registry: registry,
		metrics:  newMetrics(registry),
	}

	ch, err := cache.New(&c.Cache)
	if err != nil {
		return nil, err
	}
	s.swap(ch)

	return s, nil
}

// Server represents a server instance
type Server struct {
	c        *Config
	cache    atomic.Pointer[cache.Cache]
	registry *prometheus.Registry
	metrics  *metrics
}

// Cache returns the cache currently being served
func (s *Server) Cache() *cache.Cache {
	return s.cache.Load()
}

func (s *Server) swap(c *cache.Cache) {
	s.cache.Store(c)
	s.metrics.buildDuration.Set(c.BuildTime.Seconds())
	s.metrics.entries.Set(float64(len(c.Dump())))
}

// rebuilt installs a cache built after a source change. A failed rebuild
// keeps serving the previous cache.
func (s *Server) rebuilt(c *cache.Cache, err error) {
	if err != nil {
		log.Errorf("Rebuild failed, still serving the previous build: %s", err)
		s.metrics.rebuilds.WithLabelValues("failed").Inc()
		return
	}
	s.swap(c)
	s.metrics.rebuilds.WithLabelValues("ok").Inc()
}

// Handler returns the router serving the cache
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	h := newHandlers(s)

	if s.c.MetricsPath != "" {
		r.Path(s.c.MetricsPath).Handler(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	r.PathPrefix("/").HandlerFunc(h.StaticHandler).Methods(http.MethodGet, http.MethodHead)
	r.PathPrefix("/").HandlerFunc(h.MethodNotAllowedHandler)

	return r
}

// ListenAndServe listens for new requests and serves them
func (s *Server) ListenAndServe() {
	r := s.Handler()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if s.c.Watch {
		if s.c.Cache.MemoryCache {
			go s.watch(ctx)
		} else {
			log.Info("Memory cache is off, sources are read on every request; not watching")
		}
	}

	tlsEnabled := s.c.TLS.CertFile != "" && s.c.TLS.KeyFile != ""
	if !s.c.TLSOnly {
		go listenAndServe(ctx, cancel, s.c.ListenAddr, r)
	}

	if tlsEnabled {
		go listenAndServeTLS(ctx, cancel, s.c.TLSListenAddr, s.c.TLS, r)
	}

	<-ctx.Done()
}

func (s *Server) watch(ctx context.Context) {
	log.Infof("Watching %s for changes", s.c.Cache.Root)
	err := cache.Watch(&s.c.Cache, s.c.WatchInterval, ctx.Done(), s.rebuilt)
	if err != nil {
		log.Errorf("Watching sources failed: %s", err)
	}
}

// listenAndServe serves a plain http webserver
func listenAndServe(ctx context.Context, cancel func(), addr string, handler http.Handler) {
	defer cancel()
	addrStr := getAddrString(addr)
	log.Infof("http server listening on: http://%s\n", addrStr)
	log.Error(http.ListenAndServe(addr, handler))
}

// listenAndServeTLS serves a tls webserver
func listenAndServeTLS(ctx context.Context, cancel func(), addr string, tls *TLSConfig, handler http.Handler) {
	defer cancel()
	addrStr := getAddrString(addr)
	log.Infof("https server listening on: https://%s\n", addrStr)
	log.Error(http.ListenAndServeTLS(addr, tls.CertFile, tls.KeyFile, handler))
}

func getAddrString(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = fmt.Sprintf("0.0.0.0%s", addr)
	}
	return addr
}
