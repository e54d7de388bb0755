package publish

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/chrisvdg/zerver/cache"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDump(t *testing.T, files map[string]string) map[string]*cache.Entry {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		file := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(file), 0755))
		require.NoError(t, ioutil.WriteFile(file, []byte(content), 0644))
	}
	c, err := cache.New(&cache.Options{
		Root:         root,
		MemoryCache:  true,
		Gzip:         true,
		CacheControl: cache.Policy{Default: 60},
	})
	require.NoError(t, err)
	return c.Dump()
}

var site = map[string]string{
	"offline.appcache": "CACHE MANIFEST\n",
	"index.html":       "<p>home</p>",
	"docs/index.html":  "<p>docs</p>",
	"app.js":           "run();",
	"style.css":        "a{}",
	"logo.png":         "PNG!",
}

func TestFilesOrder(t *testing.T) {
	tiers := files(buildDump(t, site))

	var order []string
	for _, tier := range tiers {
		for _, it := range tier {
			order = append(order, it.path)
		}
	}
	assert.Equal(t, []string{
		"/offline.appcache",
		"/docs/index.html", "/index.html",
		"/app.js", "/style.css",
		"/logo.png",
	}, order)
}

func TestToDir(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()

	n, err := ToDir(buildDump(t, site), dir)
	require.NoError(t, err)
	assert.Equal(6, n)

	got, err := ioutil.ReadFile(filepath.Join(dir, "docs", "index.html"))
	require.NoError(t, err)
	assert.Equal("<p>docs</p>", string(got))

	got, err = ioutil.ReadFile(filepath.Join(dir, "app.js"))
	require.NoError(t, err)
	assert.Equal("run();", string(got))

	_, err = ToDir(nil, "")
	assert.Error(err)
}

type fakeS3 struct {
	mu    sync.Mutex
	puts  []*s3.PutObjectInput
	fail  string
	tiers []string
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if aws.ToString(in.Key) == f.fail {
		return nil, errors.New("denied")
	}
	f.puts = append(f.puts, in)
	f.tiers = append(f.tiers, aws.ToString(in.ContentType))
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) input(key string) *s3.PutObjectInput {
	for _, in := range f.puts {
		if aws.ToString(in.Key) == key {
			return in
		}
	}
	return nil
}

func TestS3Publish(t *testing.T) {
	assert := assert.New(t)
	fake := &fakeS3{}

	n, err := NewS3(fake, "bucket", "site").WithUploads(2).Publish(context.Background(), buildDump(t, site))
	require.NoError(t, err)
	assert.Equal(6, n)
	assert.Len(fake.puts, 6)

	assert.Equal([]string{
		"text/cache-manifest",
		"text/html", "text/html",
	}, fake.tiers[:3])
	assert.Equal("image/png", fake.tiers[5])

	js := fake.input("site/app.js")
	if assert.NotNil(js) {
		assert.Equal("bucket", aws.ToString(js.Bucket))
		assert.Equal("application/javascript", aws.ToString(js.ContentType))
		assert.Equal("gzip", aws.ToString(js.ContentEncoding))
		assert.Equal("public, max-age=60", aws.ToString(js.CacheControl))
	}
	png := fake.input("site/logo.png")
	if assert.NotNil(png) {
		assert.Nil(png.ContentEncoding)
	}
	assert.Nil(fake.input("site/docs/"))
}

func TestS3PublishError(t *testing.T) {
	fake := &fakeS3{fail: "app.js"}

	n, err := NewS3(fake, "bucket", "").Publish(context.Background(), buildDump(t, site))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upload app.js")
	assert.Equal(t, 3, n)

	_, err = NewS3(fake, "", "").Publish(context.Background(), nil)
	assert.Error(t, err)
}
