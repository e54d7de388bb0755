package cache

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
)

const (
	blockBegin = "zerver:"
	blockEnd   = "/zerver"
)

// segment is one piece of an HTML document. Writing the raw bytes of every
// segment in order gives back the document unchanged.
type segment struct {
	// raw is the source of the token, for a script element its start tag
	raw []byte
	// rest is the source following a script start tag, up to its end tag
	rest []byte
	// tag is set for link tags and script start tags
	tag *html.Token
	// content reports a script element with a non blank body
	content bool
	comment bool
	blank   bool
	data    string
}

func (s segment) writeTo(buf *bytes.Buffer) {
	buf.Write(s.raw)
	buf.Write(s.rest)
}

// ref returns the reference of an external script or a stylesheet link
func (s segment) ref() (string, bool) {
	if s.tag == nil {
		return "", false
	}
	var (
		v  string
		ok bool
	)
	switch {
	case s.tag.Data == "script" && !s.content:
		v, ok = getAttr(s.tag, "src")
	case isStylesheet(s.tag):
		v, ok = getAttr(s.tag, "href")
	}
	return v, ok && v != ""
}

// refAttr is the attribute ref reads for a tag
func refAttr(t *html.Token) string {
	if t.Data == "script" {
		return "src"
	}
	return "href"
}

func getAttr(t *html.Token, key string) (string, bool) {
	for _, a := range t.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func isStylesheet(t *html.Token) bool {
	if t.Data != "link" {
		return false
	}
	rel, _ := getAttr(t, "rel")
	for _, r := range strings.Fields(rel) {
		if strings.EqualFold(r, "stylesheet") {
			return true
		}
	}
	return false
}

// next advances z and returns the token type with a copy of its raw bytes.
// The end of input is an ErrorToken with a nil error.
func next(z *html.Tokenizer) (html.TokenType, []byte, error) {
	tt := z.Next()
	raw := append([]byte{}, z.Raw()...)
	if tt == html.ErrorToken && z.Err() != io.EOF {
		return tt, raw, errors.Wrap(z.Err(), "failed to tokenize html")
	}
	return tt, raw, nil
}

// parseHTML splits a document into segments. Markup inside comments stays
// part of the comment.
func parseHTML(body []byte) ([]segment, error) {
	z := html.NewTokenizer(bytes.NewReader(body))
	var segs []segment
	for {
		tt, raw, err := next(z)
		if err != nil {
			return nil, err
		}
		if tt == html.ErrorToken {
			if len(raw) > 0 {
				segs = append(segs, segment{raw: raw})
			}
			return segs, nil
		}

		tok := z.Token()
		s := segment{raw: raw}
		switch tt {
		case html.CommentToken:
			s.comment, s.data = true, tok.Data
		case html.TextToken:
			s.blank = len(bytes.TrimSpace(raw)) == 0
		case html.StartTagToken, html.SelfClosingTagToken:
			switch {
			case tok.Data == "link":
				s.tag = &tok
			case tok.Data == "script" && tt == html.StartTagToken:
				s.tag = &tok
				if s.rest, s.content, err = scriptRest(z); err != nil {
					return nil, err
				}
			}
		}
		segs = append(segs, s)
	}
}

// scriptRest consumes a script element through its end tag and reports
// whether it has a body
func scriptRest(z *html.Tokenizer) ([]byte, bool, error) {
	var (
		rest    []byte
		content bool
	)
	for {
		tt, raw, err := next(z)
		if err != nil {
			return nil, false, err
		}
		rest = append(rest, raw...)
		if tt != html.TextToken {
			return rest, content, nil
		}
		content = content || len(bytes.TrimSpace(raw)) > 0
	}
}

// blockName returns the concat group name of an opening block comment
func blockName(s segment) (string, bool) {
	if !s.comment {
		return "", false
	}
	d := strings.TrimSpace(s.data)
	if !strings.HasPrefix(d, blockBegin) {
		return "", false
	}
	name := d[len(blockBegin):]
	if name == "" || strings.ContainsAny(name, " \t\r\n") {
		return "", false
	}
	return name, true
}

// closing returns the index of the comment closing a block opened before
// segs[from], or -1
func closing(segs []segment, from int) int {
	for i := from; i < len(segs); i++ {
		if segs[i].comment && strings.TrimSpace(segs[i].data) == blockEnd {
			return i
		}
	}
	return -1
}

// blockRefs returns the references of a concat block and the tag to replace
// it with. A block must hold only script elements or only stylesheet links.
func blockRefs(segs []segment, name string) ([]string, string, bool) {
	var (
		refs []string
		kind string
	)
	for _, s := range segs {
		if s.blank {
			continue
		}
		r, ok := s.ref()
		if !ok || (kind != "" && kind != s.tag.Data) {
			return nil, "", false
		}
		kind = s.tag.Data
		refs = append(refs, r)
	}

	name = html.EscapeString(name)
	switch kind {
	case "script":
		return refs, `<script src="` + name + `"></script>`, true
	case "link":
		return refs, `<link rel="stylesheet" href="` + name + `">`, true
	}
	return nil, "", false
}

func isHTML(h http.Header) bool {
	return mediaType(h.Get("Content-Type")) == "text/html"
}

// extractHTMLConcat collapses <!-- zerver:NAME --> blocks into one tag
// referencing NAME and registers the wrapped files as a concat group
func (b *backend) extractHTMLConcat(p string, h http.Header, body []byte) ([]byte, error) {
	if !b.opts.Concat || !isHTML(h) {
		return body, nil
	}
	segs, err := parseHTML(body)
	if err != nil {
		return nil, errors.Wrap(err, p)
	}

	buf := bytes.NewBuffer(make([]byte, 0, len(body)))
	for i := 0; i < len(segs); i++ {
		name, ok := blockName(segs[i])
		if !ok {
			segs[i].writeTo(buf)
			continue
		}
		end := closing(segs, i+1)
		if end < 0 {
			// an unterminated block is left as written
			segs[i].writeTo(buf)
			continue
		}
		refs, tag, ok := blockRefs(segs[i+1:end], name)
		if !ok {
			segs[i].writeTo(buf)
			continue
		}
		if err := b.registerConcat(p, name, refs); err != nil {
			return nil, err
		}
		buf.WriteString(tag)
		i = end
	}
	return buf.Bytes(), nil
}

// rewriteRefs calls fn for every external script and stylesheet link of an
// HTML document. fn returns the replacement source, or nil to keep the
// element as written. Everything else is copied through unchanged.
func rewriteRefs(body []byte, fn func(s segment, ref string) ([]byte, error)) ([]byte, error) {
	segs, err := parseHTML(body)
	if err != nil {
		return nil, err
	}
	buf := bytes.NewBuffer(make([]byte, 0, len(body)))
	for _, s := range segs {
		if ref, ok := s.ref(); ok {
			out, err := fn(s, ref)
			if err != nil {
				return nil, err
			}
			if out != nil {
				buf.Write(out)
				continue
			}
		}
		s.writeTo(buf)
	}
	return buf.Bytes(), nil
}

// inlineScripts replaces <script src="X?inline"> with the content of X
func (b *backend) inlineScripts(p string, h http.Header, body []byte) ([]byte, error) {
	if !b.opts.Inline || !isHTML(h) {
		return body, nil
	}
	return rewriteRefs(body, func(s segment, ref string) ([]byte, error) {
		if s.tag.Data != "script" || isExternal(ref) || !hasInlineMarker(ref) {
			return nil, nil
		}
		content, err := b.dependency(p, ref)
		if err != nil {
			return nil, err
		}
		return []byte("<script>" + string(content) + "</script>"), nil
	})
}

// inlineStyles replaces <link rel="stylesheet" href="X?inline"> with a
// <style> element holding the content of X
func (b *backend) inlineStyles(p string, h http.Header, body []byte) ([]byte, error) {
	if !b.opts.Inline || !isHTML(h) {
		return body, nil
	}
	return rewriteRefs(body, func(s segment, ref string) ([]byte, error) {
		if s.tag.Data != "link" || isExternal(ref) || !hasInlineMarker(ref) {
			return nil, nil
		}
		content, err := b.dependency(p, ref)
		if err != nil {
			return nil, err
		}
		return []byte("<style>" + string(content) + "</style>"), nil
	})
}

// dependency resolves ref relative to p and returns its plain body
func (b *backend) dependency(p, ref string) ([]byte, error) {
	e, err := b.dependencyEntry(p, ref)
	if err != nil {
		return nil, err
	}
	return e.Plain()
}

func (b *backend) dependencyEntry(p, ref string) (*Entry, error) {
	target, _ := splitRef(ref)
	return b.resolve(ResolvePath(p, target))
}
