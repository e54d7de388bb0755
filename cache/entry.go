package cache

import (
	"net/http"
	"strings"
)

// State represents the build state of a cache slot
type State int

const (
	// StateAbsent represents a path that has not been requested yet
	StateAbsent State = iota
	// StateInProgress represents a path whose transforms are running
	StateInProgress
	// StateReady represents a path with a finished entry
	StateReady
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateInProgress:
		return "in progress"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Entry represents a built cache entry.
// Entries are shared between a directory path and its index document
// and must not be modified once stored.
type Entry struct {
	// Headers always carries Content-Type, Cache-Control, ETag and Vary
	Headers http.Header
	// Body is the final body, gzip encoded when Content-Encoding says so
	Body []byte
}

// ContentType returns the media type of the entry without parameters
func (e *Entry) ContentType() string {
	return mediaType(e.Headers.Get("Content-Type"))
}

// Gzipped reports whether the body is gzip encoded
func (e *Entry) Gzipped() bool {
	return strings.EqualFold(e.Headers.Get("Content-Encoding"), "gzip")
}

// Plain returns the body with any gzip encoding removed
func (e *Entry) Plain() ([]byte, error) {
	if !e.Gzipped() {
		return e.Body, nil
	}
	return gunzip(e.Body)
}

// ETag returns the entity tag without its quotes
func (e *Entry) ETag() string {
	return strings.Trim(e.Headers.Get("ETag"), `"`)
}

type slot struct {
	state State
	entry *Entry
}
