package cache

import (
	"net/url"
	"path"
	"strings"
)

const inlineMarker = "inline"

// ResolvePath resolves a reference found in the file at from into a logical
// path. Absolute references are returned as-is; relative ones are resolved
// against the directory containing from, the way a browser resolves
// relative URLs.
func ResolvePath(from, ref string) string {
	if strings.HasPrefix(ref, "/") {
		return ref
	}
	base := &url.URL{Path: from}
	if !strings.HasPrefix(from, "/") {
		base.Path = "/" + from
	}
	resolved := base.ResolveReference(&url.URL{Path: ref}).Path
	if resolved == "" {
		return "/"
	}
	return resolved
}

// splitRef separates a reference into its path and query parameters.
// Fragments are dropped.
func splitRef(ref string) (string, url.Values) {
	if i := strings.IndexByte(ref, '#'); i >= 0 {
		ref = ref[:i]
	}
	i := strings.IndexByte(ref, '?')
	if i < 0 {
		return ref, url.Values{}
	}
	q, err := url.ParseQuery(ref[i+1:])
	if err != nil {
		q = url.Values{}
	}
	return ref[:i], q
}

// hasInlineMarker reports whether a reference asks to be inlined
func hasInlineMarker(ref string) bool {
	_, q := splitRef(ref)
	_, ok := q[inlineMarker]
	return ok
}

// isExternal reports whether a reference points outside the source tree
func isExternal(ref string) bool {
	if strings.HasPrefix(ref, "//") {
		return true
	}
	u, err := url.Parse(ref)
	if err != nil {
		return true
	}
	return u.Scheme != ""
}

// cleanPath validates a request path and returns its canonical logical form.
// Paths containing dot segments, NUL bytes or backslashes are rejected.
func cleanPath(p string) (string, bool) {
	if p == "" || p[0] != '/' {
		return "", false
	}
	if strings.IndexByte(p, 0) != -1 || strings.Contains(p, "\\") {
		return "", false
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			return "", false
		}
	}
	clean := path.Clean(p)
	if strings.HasSuffix(p, "/") && clean != "/" {
		clean += "/"
	}
	return clean, true
}

// hidden reports whether any segment of a logical path starts with a dot
func hidden(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

// aliasOf returns the directory alias of an index document, if any
func aliasOf(p string) (string, bool) {
	if path.Base(p) != "index.html" {
		return "", false
	}
	return strings.TrimSuffix(p, "index.html"), true
}
