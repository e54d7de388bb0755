package cache

import (
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rebuild struct {
	c   *Cache
	err error
}

func TestWatchRebuilds(t *testing.T) {
	assert := assert.New(t)
	root := writeTree(t, map[string]string{"main.js": "1"})

	quit := make(chan struct{})
	rebuilds := make(chan rebuild, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(&Options{Root: root, MemoryCache: true, Inline: true}, 10*time.Millisecond, quit, func(c *Cache, err error) {
			select {
			case rebuilds <- rebuild{c, err}:
			default:
			}
		})
	}()

	// wait for a rebuild that sees content, writing until the watcher is up
	waitFor := func(file, content string, ok func(rebuild) bool) rebuild {
		t.Helper()
		tick := time.NewTicker(50 * time.Millisecond)
		defer tick.Stop()
		timeout := time.After(5 * time.Second)
		for {
			select {
			case r := <-rebuilds:
				if ok(r) {
					return r
				}
			case <-tick.C:
				require.NoError(t, ioutil.WriteFile(filepath.Join(root, file), []byte(content), 0644))
			case <-timeout:
				t.Fatal("no rebuild")
			}
		}
	}

	r := waitFor("main.js", "2", func(r rebuild) bool {
		return r.err == nil && body(t, r.c, "/main.js") == "2"
	})
	assert.True(r.c.Has("/main.js"))

	r = waitFor("index.html", `<script src="gone.js?inline"></script>`, func(r rebuild) bool {
		return r.err != nil
	})
	var missing *MissingDependencyError
	assert.ErrorAs(r.err, &missing)

	close(quit)
	select {
	case err := <-done:
		assert.NoError(err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatchInvalidRoot(t *testing.T) {
	err := Watch(&Options{}, time.Millisecond, make(chan struct{}), func(*Cache, error) {})
	assert.Error(t, err)
}
