package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadAllReusesManifestBody(t *testing.T) {
	assert := assert.New(t)
	root := writeTree(t, map[string]string{
		"offline.appcache": "CACHE MANIFEST\nmain.js\n",
		"main.js":          "1",
	})
	o := &Options{Root: root}
	require.NoError(t, o.validate())

	tr, err := scanTree(o)
	require.NoError(t, err)
	assert.True(tr.manifests["/offline.appcache"])

	// a second read of the manifest would fail now
	require.NoError(t, os.Remove(filepath.Join(root, "offline.appcache")))

	raw, err := tr.readAll(2)
	require.NoError(t, err)
	assert.Equal("CACHE MANIFEST\nmain.js\n", string(raw["/offline.appcache"]))
	assert.Equal("1", string(raw["/main.js"]))
	assert.Nil(tr.files["/offline.appcache"].body)
}

func TestManifestTimestampSkipsUnservedFiles(t *testing.T) {
	root := writeTree(t, map[string]string{
		"offline.appcache": "CACHE MANIFEST\n",
		"main.js":          "1",
		".hidden":          "x",
		"drafts/post.html": "y",
	})
	served := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	later := served.Add(time.Hour)
	for name, mtime := range map[string]time.Time{
		"offline.appcache": served,
		"main.js":          served,
		".hidden":          later,
		"drafts/post.html": later,
	} {
		require.NoError(t, os.Chtimes(filepath.Join(root, filepath.FromSlash(name)), mtime, mtime))
	}

	for _, memory := range []bool{true, false} {
		c, err := New(&Options{Root: root, MemoryCache: memory, Ignores: []string{"/drafts/"}})
		require.NoError(t, err)
		assert.Equal(t, "CACHE MANIFEST\n# zerver timestamp: 2020-01-02T03:04:05Z\n", body(t, c, "/offline.appcache"))
	}
}
