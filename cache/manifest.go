package cache

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	manifestBegin = regexp.MustCompile(`^#\s*zerver:(\S+)$`)
	manifestEnd   = regexp.MustCompile(`^#\s*/zerver$`)
)

// appendTimestamp adds a comment line recording t, so that any source change
// changes every manifest
func appendTimestamp(body []byte, t time.Time) []byte {
	out := make([]byte, 0, len(body)+64)
	out = append(out, body...)
	if len(out) > 0 && out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	out = append(out, "# zerver timestamp: "...)
	out = append(out, t.UTC().Format(time.RFC3339Nano)...)
	out = append(out, '\n')
	return out
}

func (b *backend) isManifest(p string) bool {
	return b.tree.manifests[p]
}

func (b *backend) timestampManifest(p string, h http.Header, body []byte) ([]byte, error) {
	if !b.isManifest(p) {
		return body, nil
	}
	return appendTimestamp(body, b.tree.newest), nil
}

// stripInlineLines removes manifest entries that will be inlined elsewhere
func (b *backend) stripInlineLines(p string, h http.Header, body []byte) ([]byte, error) {
	if !b.opts.Inline || !b.isManifest(p) {
		return body, nil
	}
	lines := strings.Split(string(body), "\n")
	out := lines[:0]
	for _, line := range lines {
		t := strings.TrimSpace(line)
		if t != "" && !strings.HasPrefix(t, "#") && hasInlineMarker(t) {
			continue
		}
		out = append(out, line)
	}
	return []byte(strings.Join(out, "\n")), nil
}

// extractManifestConcat collapses "# zerver:NAME" ... "# /zerver" blocks
// into a single NAME line and registers the listed files as a concat group
func (b *backend) extractManifestConcat(p string, h http.Header, body []byte) ([]byte, error) {
	if !b.opts.Concat || !b.isManifest(p) {
		return body, nil
	}

	var (
		out     []string
		block   []string
		name    string
		members []string
		open    bool
	)
	for _, line := range strings.Split(string(body), "\n") {
		t := strings.TrimSpace(line)
		if !open {
			if m := manifestBegin.FindStringSubmatch(t); m != nil {
				open, name, members, block = true, m[1], nil, []string{line}
				continue
			}
			out = append(out, line)
			continue
		}

		block = append(block, line)
		if manifestEnd.MatchString(t) {
			if err := b.registerConcat(p, name, members); err != nil {
				return nil, err
			}
			out = append(out, name)
			open = false
			continue
		}
		if t != "" && !strings.HasPrefix(t, "#") {
			members = append(members, t)
		}
	}
	// an unterminated block is left as written
	if open {
		out = append(out, block...)
	}

	return []byte(strings.Join(out, "\n")), nil
}

// registerConcat resolves a concat declaration found in p and records it
func (b *backend) registerConcat(p, name string, refs []string) error {
	if len(refs) == 0 {
		return errors.Errorf("%s: concat group %s has no members", p, name)
	}
	target, _ := splitRef(name)
	target = ResolvePath(p, target)
	if _, ok := b.tree.files[target]; ok {
		return errors.Wrapf(ErrConcatShadowsFile, "%s: %s", p, target)
	}

	members := make([]string, 0, len(refs))
	for _, ref := range refs {
		if isExternal(ref) {
			return &MissingDependencyError{Path: ref, Referrer: p}
		}
		m, _ := splitRef(ref)
		members = append(members, ResolvePath(p, m))
	}

	return b.concat.registerOrVerify(target, Declaration{Source: p, Members: members})
}
