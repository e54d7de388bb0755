package cache

import (
	"path/filepath"

	"github.com/pkg/errors"
)

const defaultConcurrency = 8

// Options configures a Cache
type Options struct {
	// Root is the source directory served at "/"
	Root string
	// MemoryCache builds every file up front and serves from memory.
	// When off, files are read from disk on each Get.
	MemoryCache bool
	// Ignores lists logical path prefixes that are never served
	Ignores []string
	// CacheControl decides the Cache-Control header per path
	CacheControl Policy
	// DisableManifest turns off manifest detection entirely
	DisableManifest bool
	// IgnoreManifest lists logical paths never treated as manifests
	IgnoreManifest []string
	Gzip           bool
	Compile        bool
	Inline         bool
	Concat         bool
	// Versioning appends a content hash to local script, style and url() references
	Versioning bool
	// Strict makes compiler failures fatal
	Strict bool
	// Concurrency bounds parallel source reads
	Concurrency int
	// Compilers overrides the compilers used when Compile is set
	Compilers Compilers
}

func (o *Options) validate() error {
	if o.Root == "" {
		return errors.New("no root directory provided")
	}
	root, err := filepath.Abs(o.Root)
	if err != nil {
		return errors.Wrap(err, "failed to resolve root directory")
	}
	o.Root = root
	if o.Concurrency <= 0 {
		o.Concurrency = defaultConcurrency
	}
	if o.Compilers == nil {
		o.Compilers = DefaultCompilers()
	}
	return nil
}

func (o *Options) ignored(p string) bool {
	for _, prefix := range o.Ignores {
		if prefix != "" && hasPathPrefix(p, prefix) {
			return true
		}
	}
	return false
}

func (o *Options) manifestIgnored(p string) bool {
	for _, i := range o.IgnoreManifest {
		if ResolvePath("/", i) == p {
			return true
		}
	}
	return false
}

func hasPathPrefix(p, prefix string) bool {
	if prefix[0] != '/' {
		prefix = "/" + prefix
	}
	return len(p) >= len(prefix) && p[:len(prefix)] == prefix
}
