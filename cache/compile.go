package cache

import (
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"
)

// Compiler transforms a body of one media type
type Compiler func(body []byte) ([]byte, error)

// Compilers maps a media type to its compiler
type Compilers map[string]Compiler

// DefaultCompilers returns minifiers for JavaScript and CSS
func DefaultCompilers() Compilers {
	m := minify.New()
	m.AddFunc("application/javascript", js.Minify)
	m.AddFunc("text/css", css.Minify)

	return Compilers{
		"application/javascript": minifier(m, "application/javascript"),
		"text/css":               minifier(m, "text/css"),
	}
}

func minifier(m *minify.M, mediatype string) Compiler {
	return func(body []byte) ([]byte, error) {
		return m.Bytes(mediatype, body)
	}
}

// lookup returns the compiler for a Content-Type value
func (c Compilers) lookup(ct string) (Compiler, bool) {
	f, ok := c[mediaType(ct)]
	return f, ok && f != nil
}
