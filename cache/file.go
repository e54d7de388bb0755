package cache

import (
	"bytes"
	"io/fs"
	"io/ioutil"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const manifestMarker = "CACHE MANIFEST"

// sourceFile is a servable file under the root
type sourceFile struct {
	path    string
	file    string
	modTime time.Time
	// body is kept when the walk already had to read the file
	body []byte
}

// tree is the result of walking the root once
type tree struct {
	files     map[string]*sourceFile
	order     []string
	manifests map[string]bool
	newest    time.Time
}

// scanTree walks the root, recording every servable file, the manifest set
// and the newest modification time
func scanTree(o *Options) (*tree, error) {
	t := &tree{
		files:     make(map[string]*sourceFile),
		manifests: make(map[string]bool),
	}

	err := filepath.WalkDir(o.Root, func(file string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		p, ok := logicalPath(o.Root, file)
		if !ok {
			return nil
		}
		if d.IsDir() {
			if p != "/" && (hidden(p) || o.ignored(p+"/")) {
				return filepath.SkipDir
			}
			return nil
		}
		if hidden(p) || o.ignored(p) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return errors.Wrapf(err, "failed to stat %s", file)
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		f := &sourceFile{path: p, file: file, modTime: info.ModTime()}
		t.files[p] = f
		t.order = append(t.order, p)
		if info.ModTime().After(t.newest) {
			t.newest = info.ModTime()
		}

		if !o.DisableManifest && manifestCandidate(p) && !o.manifestIgnored(p) {
			body, err := readSource(file)
			if err != nil {
				return err
			}
			f.body = body
			if isManifest(body) {
				log.Debugf("Detected manifest %s", p)
				t.manifests[p] = true
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to walk source tree")
	}

	return t, nil
}

// readAll reads every source file the walk did not read yet, at most limit
// at a time
func (t *tree) readAll(limit int) (map[string][]byte, error) {
	bodies := make([][]byte, len(t.order))
	g := new(errgroup.Group)
	g.SetLimit(limit)
	for i, p := range t.order {
		i, f := i, t.files[p]
		if f.body != nil {
			bodies[i], f.body = f.body, nil
			continue
		}
		g.Go(func() error {
			body, err := readSource(f.file)
			if err != nil {
				return err
			}
			bodies[i] = body
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	raw := make(map[string][]byte, len(t.order))
	for i, p := range t.order {
		raw[p] = bodies[i]
	}
	return raw, nil
}

// newestModTime returns the newest modification time of any servable file
func newestModTime(o *Options) (time.Time, error) {
	var newest time.Time
	err := filepath.WalkDir(o.Root, func(file string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		p, ok := logicalPath(o.Root, file)
		if !ok || d.IsDir() || hidden(p) || o.ignored(p) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		return nil
	})
	if err != nil {
		return newest, errors.Wrap(err, "failed to walk source tree")
	}
	return newest, nil
}

func readSource(file string) ([]byte, error) {
	body, err := ioutil.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", file)
	}
	return body, nil
}

// sourceFor maps a logical path to a file under root.
// Directory paths map to their index document.
func sourceFor(o *Options, p string) (string, string, bool) {
	p, ok := cleanPath(p)
	if !ok || hidden(p) || o.ignored(p) {
		return "", "", false
	}
	if strings.HasSuffix(p, "/") {
		p += "index.html"
	}
	file := filepath.Join(o.Root, filepath.FromSlash(p))
	info, err := os.Stat(file)
	if err != nil || !info.Mode().IsRegular() {
		return "", "", false
	}
	return p, file, true
}

func logicalPath(root, file string) (string, bool) {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		return "", false
	}
	if rel == "." {
		return "/", true
	}
	return path.Join("/", filepath.ToSlash(rel)), true
}

func manifestCandidate(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".appcache", ".manifest":
		return true
	}
	return false
}

func isManifest(body []byte) bool {
	return bytes.HasPrefix(bytes.TrimSpace(body), []byte(manifestMarker))
}
