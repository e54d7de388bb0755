package cache

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Rule overrides the default TTL for paths under Prefix
type Rule struct {
	Prefix string
	TTL    int
}

// Policy maps logical paths to a Cache-Control TTL in seconds.
// The longest matching rule prefix wins, Default applies otherwise.
type Policy struct {
	Default int
	Rules   []Rule
}

// ParsePolicy parses "ttl" and "prefix:ttl" items, optionally comma
// separated, e.g. "300,/js/:86400".
func ParsePolicy(items []string) (Policy, error) {
	var p Policy
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			i := strings.LastIndex(part, ":")
			if i < 0 {
				ttl, err := parseTTL(part)
				if err != nil {
					return p, err
				}
				p.Default = ttl
				continue
			}
			ttl, err := parseTTL(part[i+1:])
			if err != nil {
				return p, err
			}
			prefix := part[:i]
			if prefix == "" {
				p.Default = ttl
				continue
			}
			if !strings.HasPrefix(prefix, "/") {
				prefix = "/" + prefix
			}
			p.Rules = append(p.Rules, Rule{Prefix: prefix, TTL: ttl})
		}
	}
	return p, nil
}

func parseTTL(s string) (int, error) {
	ttl, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid cache ttl %q", s)
	}
	if ttl < 0 {
		return 0, errors.Errorf("invalid cache ttl %q", s)
	}
	return ttl, nil
}

// TTL returns the TTL for a logical path
func (p Policy) TTL(path string) int {
	ttl, best := p.Default, -1
	for _, r := range p.Rules {
		if strings.HasPrefix(path, r.Prefix) && len(r.Prefix) > best {
			ttl, best = r.TTL, len(r.Prefix)
		}
	}
	return ttl
}

// Header returns the Cache-Control value for a logical path
func (p Policy) Header(path string) string {
	ttl := p.TTL(path)
	if ttl == 0 {
		return "no-cache"
	}
	return "public, max-age=" + strconv.Itoa(ttl)
}
