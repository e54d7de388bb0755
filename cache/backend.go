package cache

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// backend builds and holds every entry of one build pass. It is driven by a
// single worker; once build returns, it is only read.
type backend struct {
	opts     *Options
	tree     *tree
	raw      map[string][]byte
	slots    map[string]*slot
	concat   *registry
	chain    []string
	warnings []error
}

func newBackend(o *Options, t *tree, raw map[string][]byte) *backend {
	return &backend{
		opts:   o,
		tree:   t,
		raw:    raw,
		slots:  make(map[string]*slot, len(t.order)),
		concat: newRegistry(),
	}
}

// build registers every concat group, then resolves every source file and
// every group
func (b *backend) build() error {
	if b.opts.Concat {
		for _, p := range b.tree.order {
			if err := b.declare(p); err != nil {
				return err
			}
		}
	}
	for _, p := range b.tree.order {
		if _, err := b.resolve(p); err != nil {
			return err
		}
	}
	for _, name := range b.concat.names() {
		if _, err := b.resolve(name); err != nil {
			return err
		}
	}
	return nil
}

// declare registers the concat groups p declares without building it, so
// that a group exists before any file referring to it is built
func (b *backend) declare(p string) error {
	h := b.baseHeaders(p)
	if !b.isManifest(p) && !isHTML(h) {
		return nil
	}
	body := b.raw[p]
	var err error
	for _, s := range b.structural() {
		if body, err = s(p, h, body); err != nil {
			return err
		}
	}
	return nil
}

func (b *backend) exists(p string) bool {
	if _, ok := b.tree.files[p]; ok {
		return true
	}
	_, ok := b.concat.members(p)
	return ok
}

// entry returns the ready entry for p
func (b *backend) entry(p string) (*Entry, bool) {
	s, ok := b.slots[p]
	if !ok || s.state != StateReady {
		return nil, false
	}
	return s.entry, true
}

// resolve returns the entry for p, building it first if needed.
// Requesting a path that is still being built is a circular dependency.
func (b *backend) resolve(p string) (*Entry, error) {
	if strings.HasSuffix(p, "/") {
		p += "index.html"
	}

	s, ok := b.slots[p]
	if !ok {
		s = &slot{}
		b.slots[p] = s
	}
	switch s.state {
	case StateReady:
		return s.entry, nil
	case StateInProgress:
		return nil, &CircularDependencyError{
			Path:  p,
			Chain: append([]string{}, b.chain...),
		}
	}

	referrer := ""
	if len(b.chain) > 0 {
		referrer = b.chain[len(b.chain)-1]
	}
	if !b.exists(p) {
		delete(b.slots, p)
		return nil, &MissingDependencyError{Path: p, Referrer: referrer}
	}

	s.state = StateInProgress
	b.chain = append(b.chain, p)
	e, err := b.make(p)
	b.chain = b.chain[:len(b.chain)-1]
	if err != nil {
		delete(b.slots, p)
		return nil, err
	}

	b.store(p, e)
	log.Debugf("Built %s (%d bytes)", p, len(e.Body))
	return e, nil
}

// store marks p ready. An index document is stored under its directory
// path too, as the same entry.
func (b *backend) store(p string, e *Entry) {
	b.slots[p] = &slot{state: StateReady, entry: e}
	if alias, ok := aliasOf(p); ok {
		b.slots[alias] = &slot{state: StateReady, entry: e}
	}
}

func (b *backend) make(p string) (*Entry, error) {
	if members, ok := b.concat.members(p); ok {
		return b.concatenate(p, members)
	}

	h := b.baseHeaders(p)
	body, err := b.apply(p, h, b.raw[p])
	if err != nil {
		return nil, err
	}
	return finalize(h, body), nil
}

// concatenate joins the plain bodies of members with newlines. Members are
// already compiled, so only compression runs on the result.
func (b *backend) concatenate(p string, members []string) (*Entry, error) {
	parts := make([][]byte, 0, len(members))
	for _, m := range members {
		e, err := b.resolve(m)
		if err != nil {
			return nil, err
		}
		plain, err := e.Plain()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode %s", m)
		}
		parts = append(parts, plain)
	}

	h := b.baseHeaders(p)
	body, err := b.compress(p, h, bytes.Join(parts, []byte("\n")))
	if err != nil {
		return nil, err
	}
	return finalize(h, body), nil
}

func (b *backend) baseHeaders(p string) http.Header {
	return baseHeaders(b.opts, p)
}

func baseHeaders(o *Options, p string) http.Header {
	h := make(http.Header)
	h.Set("Content-Type", contentType(p))
	h.Set("Cache-Control", o.CacheControl.Header(p))
	return h
}

// finalize sets the headers that depend on the final body
func finalize(h http.Header, body []byte) *Entry {
	sum := md5.Sum(body)
	h.Set("ETag", `"`+hex.EncodeToString(sum[:])+`"`)
	h.Set("Vary", "Accept-Encoding")
	return &Entry{Headers: h, Body: body}
}
