package main

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/chrisvdg/zerver/server"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) (*options, *pflag.FlagSet) {
	o := &options{}
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.register(fs)
	require.NoError(t, fs.Parse(args))
	return o, fs
}

func writeConfig(t *testing.T, content string) string {
	file := filepath.Join(t.TempDir(), "zerver.yaml")
	require.NoError(t, ioutil.WriteFile(file, []byte(content), 0644))
	return file
}

func TestApplyDefaults(t *testing.T) {
	assert := assert.New(t)
	o, fs := parse(t)

	c := &server.Config{}
	assert.NoError(o.apply(fs, c))
	assert.Equal(".", c.Cache.Root)
	assert.False(c.Cache.MemoryCache)
	assert.False(c.Cache.Gzip)
}

func TestApplyProduction(t *testing.T) {
	assert := assert.New(t)
	o, fs := parse(t, "-p", "--gzip=false")

	c := &server.Config{}
	assert.NoError(o.apply(fs, c))
	assert.True(c.Cache.MemoryCache)
	assert.True(c.Cache.Compile)
	assert.True(c.Cache.Inline)
	assert.True(c.Cache.Concat)
	assert.False(c.Cache.Gzip, "explicit flag wins over --production")
}

func TestApplyConfigFile(t *testing.T) {
	assert := assert.New(t)
	file := writeConfig(t, `
root: /srv/site
gzip: true
versioning: true
cache:
  - "60"
  - "/js/:3600"
`)
	o, fs := parse(t, "--config", file, "--versioning=false", "-r", "/srv/other")

	c := &server.Config{}
	assert.NoError(o.apply(fs, c))
	assert.Equal("/srv/other", c.Cache.Root)
	assert.True(c.Cache.Gzip)
	assert.False(c.Cache.Versioning)
	assert.Equal(3600, c.Cache.CacheControl.TTL("/js/app.js"))
	assert.Equal(60, c.Cache.CacheControl.TTL("/index.html"))
}

func TestApplyInvalidPolicy(t *testing.T) {
	o, fs := parse(t, "--cache", "/js/:abc")
	assert.Error(t, o.apply(fs, &server.Config{}))
}

func TestApplyMissingConfigFile(t *testing.T) {
	o, fs := parse(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, o.apply(fs, &server.Config{}))
}

func TestServeConfigPrecedence(t *testing.T) {
	assert := assert.New(t)
	file := writeConfig(t, `
listenAddr: ":9000"
tlsAddr: ":9443"
missing: /404.html
`)

	var (
		o  options
		so serveOptions
	)
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	o.register(fs)
	so.register(fs)
	require.NoError(t, fs.Parse([]string{"--config", file, "-l", ":7000", "-w"}))

	c, err := so.config(fs, &o)
	require.NoError(t, err)
	assert.Equal(":7000", c.ListenAddr)
	assert.Equal(":9443", c.TLSListenAddr)
	assert.Equal("/404.html", c.Missing)
	assert.True(c.Watch)
	assert.NotNil(c.TLS)
}
