package cache

import (
	"net/http"

	log "github.com/sirupsen/logrus"
)

// stage rewrites the body of one logical path and may update its headers.
// Every stage is a no-op when its option is off or the content does not
// match.
type stage func(p string, h http.Header, body []byte) ([]byte, error)

// structural returns the stages that rewrite manifests and concat blocks.
// They run before any dependency is resolved.
func (b *backend) structural() []stage {
	return []stage{
		b.timestampManifest,
		b.stripInlineLines,
		b.extractManifestConcat,
		b.extractHTMLConcat,
	}
}

// stages returns the transforms in the order they must run: structural
// rewrites before inlining, inlining before compilation, compression last
func (b *backend) stages() []stage {
	return append(b.structural(),
		b.inlineScripts,
		b.inlineStyles,
		b.inlineImages,
		b.versionReferences,
		b.compile,
		b.compress,
	)
}

func (b *backend) apply(p string, h http.Header, body []byte) ([]byte, error) {
	var err error
	for _, s := range b.stages() {
		body, err = s(p, h, body)
		if err != nil {
			return nil, err
		}
	}
	return body, nil
}

// compile runs the compiler registered for the content type. A failing
// compiler leaves the body untouched unless the build is strict.
func (b *backend) compile(p string, h http.Header, body []byte) ([]byte, error) {
	if !b.opts.Compile {
		return body, nil
	}
	ct := h.Get("Content-Type")
	f, ok := b.opts.Compilers.lookup(ct)
	if !ok {
		return body, nil
	}

	out, err := f(body)
	if err != nil {
		cerr := &CompileError{Path: p, ContentType: mediaType(ct), Err: err}
		if b.opts.Strict {
			return nil, cerr
		}
		log.Warn(cerr)
		b.warnings = append(b.warnings, cerr)
		return body, nil
	}
	return out, nil
}

// compress gzip encodes bodies of compressible types
func (b *backend) compress(p string, h http.Header, body []byte) ([]byte, error) {
	if !b.opts.Gzip || !compressible[mediaType(h.Get("Content-Type"))] || h.Get("Content-Encoding") != "" {
		return body, nil
	}
	out, err := gzipBytes(body)
	if err != nil {
		return nil, err
	}
	h.Set("Content-Encoding", "gzip")
	return out, nil
}
