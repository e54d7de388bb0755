package cache

import (
	"encoding/base64"
	"net/http"
	"regexp"
	"strings"
)

var cssURL = regexp.MustCompile(`url\(\s*(['"]?)([^'")]+)(['"]?)\s*\)`)

func isCSS(h http.Header) bool {
	return mediaType(h.Get("Content-Type")) == "text/css"
}

// inlineImages replaces url(X?inline) references with data URIs
func (b *backend) inlineImages(p string, h http.Header, body []byte) ([]byte, error) {
	if !b.opts.Inline || !isCSS(h) {
		return body, nil
	}

	var err error
	out := cssURL.ReplaceAllStringFunc(string(body), func(match string) string {
		if err != nil {
			return match
		}
		ref := strings.TrimSpace(cssURL.FindStringSubmatch(match)[2])
		if strings.HasPrefix(ref, "data:") || isExternal(ref) || !hasInlineMarker(ref) {
			return match
		}
		var e *Entry
		if e, err = b.dependencyEntry(p, ref); err != nil {
			return match
		}
		var content []byte
		if content, err = e.Plain(); err != nil {
			return match
		}
		return "url(" + dataURI(e.ContentType(), content) + ")"
	})
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

func dataURI(ct string, content []byte) string {
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(content)
}
