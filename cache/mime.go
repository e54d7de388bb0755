package cache

import (
	"mime"
	"path"
	"strings"
)

var contentTypes = map[string]string{
	".appcache": "text/cache-manifest",
	".manifest": "text/cache-manifest",
	".html":     "text/html",
	".htm":      "text/html",
	".css":      "text/css",
	".js":       "application/javascript",
	".json":     "application/json",
	".map":      "application/json",
	".txt":      "text/plain",
	".xml":      "application/xml",
	".svg":      "image/svg+xml",
	".png":      "image/png",
	".jpg":      "image/jpeg",
	".jpeg":     "image/jpeg",
	".gif":      "image/gif",
	".ico":      "image/x-icon",
	".webp":     "image/webp",
	".woff":     "font/woff",
	".woff2":    "font/woff2",
	".ttf":      "font/ttf",
	".pdf":      "application/pdf",
	".wasm":     "application/wasm",
}

// compressible lists the media types that get gzip encoded
var compressible = map[string]bool{
	"application/json":       true,
	"application/javascript": true,
	"text/css":               true,
	"text/html":              true,
	"text/plain":             true,
	"text/cache-manifest":    true,
}

// contentType returns the Content-Type for a logical path based on its extension
func contentType(p string) string {
	if strings.HasSuffix(p, "/") {
		return contentTypes[".html"]
	}
	ext := strings.ToLower(path.Ext(p))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// mediaType strips parameters from a Content-Type value
func mediaType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
