package cache

import (
	"net/http"
	"strings"

	"golang.org/x/net/html"
)

const versionParam = "v"

// versionReferences appends ?v=<hash> to local script, stylesheet and url()
// references so that a content change changes the referencing file too
func (b *backend) versionReferences(p string, h http.Header, body []byte) ([]byte, error) {
	if !b.opts.Versioning {
		return body, nil
	}
	switch {
	case isHTML(h):
		return b.versionTags(p, body)
	case isCSS(h):
		return b.versionURLs(p, body)
	}
	return body, nil
}

// versionTags rewrites the reference attribute of script and stylesheet
// tags. Only the rewritten tags are re-rendered.
func (b *backend) versionTags(p string, body []byte) ([]byte, error) {
	return rewriteRefs(body, func(s segment, ref string) ([]byte, error) {
		v, err := b.versioned(p, ref)
		if err != nil || v == ref {
			return nil, err
		}
		tok := *s.tag
		tok.Attr = append([]html.Attribute{}, s.tag.Attr...)
		key := refAttr(&tok)
		for i := range tok.Attr {
			if tok.Attr[i].Namespace == "" && tok.Attr[i].Key == key {
				tok.Attr[i].Val = v
				break
			}
		}
		return append([]byte(tok.String()), s.rest...), nil
	})
}

func (b *backend) versionURLs(p string, body []byte) ([]byte, error) {
	var err error
	out := cssURL.ReplaceAllStringFunc(string(body), func(match string) string {
		if err != nil {
			return match
		}
		m := cssURL.FindStringSubmatch(match)
		var v string
		if v, err = b.versioned(p, strings.TrimSpace(m[2])); err != nil {
			return match
		}
		return "url(" + m[1] + v + m[3] + ")"
	})
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// versioned returns ref with the version parameter added, or ref unchanged
// when it does not point at a local file
func (b *backend) versioned(p, ref string) (string, error) {
	if ref == "" || strings.HasPrefix(ref, "data:") || isExternal(ref) || hasInlineMarker(ref) {
		return ref, nil
	}
	target, q := splitRef(ref)
	if _, ok := q[versionParam]; ok || target == "" {
		return ref, nil
	}
	resolved := ResolvePath(p, target)
	if !b.exists(resolved) {
		return ref, nil
	}
	e, err := b.resolve(resolved)
	if err != nil {
		return "", err
	}
	hash := e.ETag()
	if len(hash) > 8 {
		hash = hash[:8]
	}

	// keep any fragment after the new parameter
	frag := ""
	if i := strings.IndexByte(ref, '#'); i >= 0 {
		ref, frag = ref[:i], ref[i:]
	}
	sep := "?"
	if strings.Contains(ref, "?") {
		sep = "&"
	}
	return ref + sep + versionParam + "=" + hash + frag, nil
}
