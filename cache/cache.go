package cache

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// New returns a new Cache instance.
// With MemoryCache set, every servable file is built up front and any
// structural error (circular dependency, concat mismatch, missing
// dependency) is returned here.
func New(o *Options) (*Cache, error) {
	opts := *o
	if err := opts.validate(); err != nil {
		return nil, err
	}

	c := &Cache{opts: &opts}
	if !opts.MemoryCache {
		return c, nil
	}

	start := time.Now()
	t, err := scanTree(&opts)
	if err != nil {
		return nil, err
	}
	raw, err := t.readAll(opts.Concurrency)
	if err != nil {
		return nil, err
	}

	b := newBackend(&opts, t, raw)
	if err := b.build(); err != nil {
		return nil, errors.Wrap(err, "cache build failed")
	}
	// sources are not needed once everything is built
	b.raw = nil
	c.b = b
	c.BuildTime = time.Since(start)
	log.Infof("Cached %d files from %s in %s", len(t.order), opts.Root, c.BuildTime)

	return c, nil
}

// Cache represents a cache instance
type Cache struct {
	opts *Options
	b    *backend
	// BuildTime is how long the up front build took
	BuildTime time.Duration
}

// Get returns the response for a logical path, or ErrNotFound
func (c *Cache) Get(p string) (*Response, error) {
	if c.b != nil {
		p, ok := cleanPath(p)
		if !ok {
			return nil, ErrNotFound
		}
		e, ok := c.b.entry(p)
		if !ok {
			return nil, ErrNotFound
		}
		return newResponse(e.Headers, e.Body), nil
	}
	return c.read(p)
}

// read serves a file straight from disk. Only manifest timestamping is
// applied.
func (c *Cache) read(p string) (*Response, error) {
	p, file, ok := sourceFor(c.opts, p)
	if !ok {
		return nil, ErrNotFound
	}
	body, err := readSource(file)
	if err != nil {
		return nil, err
	}

	if !c.opts.DisableManifest && manifestCandidate(p) && !c.opts.manifestIgnored(p) && isManifest(body) {
		newest, err := newestModTime(c.opts)
		if err != nil {
			return nil, err
		}
		body = appendTimestamp(body, newest)
	}

	e := finalize(baseHeaders(c.opts, p), body)
	return newResponse(e.Headers, e.Body), nil
}

// Has reports whether a logical path can be served
func (c *Cache) Has(p string) bool {
	if c.b != nil {
		p, ok := cleanPath(p)
		if !ok {
			return false
		}
		_, ok = c.b.entry(p)
		return ok
	}
	_, _, ok := sourceFor(c.opts, p)
	return ok
}

// Dump returns every built entry by logical path, directory aliases
// included. It is empty when the memory cache is off.
func (c *Cache) Dump() map[string]*Entry {
	out := make(map[string]*Entry)
	if c.b == nil {
		return out
	}
	for p, s := range c.b.slots {
		if s.state == StateReady {
			out[p] = s.entry
		}
	}
	return out
}

// Warnings returns the compiler failures recovered during the build
func (c *Cache) Warnings() []error {
	if c.b == nil {
		return nil
	}
	return append([]error{}, c.b.warnings...)
}

// Options returns a copy of the options the cache was built with
func (c *Cache) Options() Options {
	return *c.opts
}
