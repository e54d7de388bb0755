package cache

import (
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Watch rebuilds the whole cache whenever something under the root changes.
// Changes are collected and a rebuild runs at most once per interval;
// rebuilt receives every new cache or build error. Watch blocks until quit
// is closed.
func Watch(o *Options, interval time.Duration, quit <-chan struct{}, rebuilt func(*Cache, error)) error {
	opts := *o
	if err := opts.validate(); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer w.Close()

	if err := watchDirs(w, &opts, opts.Root); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	dirty := false
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if p, ok := logicalPath(opts.Root, ev.Name); ok && (hidden(p) || opts.ignored(p)) {
				continue
			}
			log.Debugf("Source change: %s", ev)
			if ev.Op&fsnotify.Create != 0 {
				// new directories need their own watch
				if err := watchDirs(w, &opts, ev.Name); err != nil {
					log.Debug(err)
				}
			}
			dirty = true
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Errorf("File watcher error: %s", err)
		case <-ticker.C:
			if !dirty {
				continue
			}
			dirty = false
			log.Info("Sources changed, rebuilding cache")
			rebuilt(New(o))
		case <-quit:
			return nil
		}
	}
}

func watchDirs(w *fsnotify.Watcher, o *Options, root string) error {
	return filepath.WalkDir(root, func(file string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p, ok := logicalPath(o.Root, file); ok && p != "/" && (hidden(p) || o.ignored(p+"/")) {
			return filepath.SkipDir
		}
		if err := w.Add(file); err != nil {
			return errors.Wrapf(err, "failed to watch %s", file)
		}
		return nil
	})
}
