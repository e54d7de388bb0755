package main

import (
	"github.com/chrisvdg/zerver/cache"
	"github.com/chrisvdg/zerver/server"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

// options holds the flags shared by every command
type options struct {
	configFile      string
	root            string
	verbose         bool
	production      bool
	memoryCache     bool
	ignores         []string
	cacheControl    []string
	disableManifest bool
	ignoreManifest  []string
	gzip            bool
	compile         bool
	inline          bool
	concat          bool
	versioning      bool
	strict          bool
	concurrency     int
}

func (o *options) register(fs *pflag.FlagSet) {
	fs.StringVar(&o.configFile, "config", "", "YAML config file")
	fs.StringVarP(&o.root, "root", "r", ".", "Source directory")
	fs.BoolVarP(&o.verbose, "verbose", "v", false, "Verbose output")
	fs.BoolVarP(&o.production, "production", "p", false, "Shorthand for --memory-cache --gzip --compile --inline --concat")
	fs.BoolVar(&o.memoryCache, "memory-cache", false, "Build every file up front and serve from memory")
	fs.StringSliceVar(&o.ignores, "ignores", nil, "Path prefixes that are never served")
	fs.StringSliceVar(&o.cacheControl, "cache", nil, "Cache TTLs in seconds, e.g. 300,/js/:86400")
	fs.BoolVar(&o.disableManifest, "disable-manifest", false, "Do not detect appcache manifests")
	fs.StringSliceVar(&o.ignoreManifest, "ignore-manifest", nil, "Paths never treated as manifests")
	fs.BoolVar(&o.gzip, "gzip", false, "Gzip text responses")
	fs.BoolVar(&o.compile, "compile", false, "Minify JavaScript and CSS")
	fs.BoolVar(&o.inline, "inline", false, "Inline references marked with ?inline")
	fs.BoolVar(&o.concat, "concat", false, "Concatenate zerver blocks")
	fs.BoolVar(&o.versioning, "versioning", false, "Append content hashes to local references")
	fs.BoolVar(&o.strict, "strict", false, "Fail the build when a compiler fails")
	fs.IntVar(&o.concurrency, "concurrency", 0, "Parallel source reads (0 picks a default)")
}

// apply fills c from, in increasing precedence, the config file,
// --production and explicitly set flags
func (o *options) apply(fs *pflag.FlagSet, c *server.Config) error {
	if o.verbose {
		log.SetLevel(log.DebugLevel)
	}

	c.Cache.Root = o.root
	if o.configFile != "" {
		fc, err := server.LoadConfigFile(o.configFile)
		if err != nil {
			return err
		}
		if err := fc.Apply(c); err != nil {
			return err
		}
	}

	if o.production {
		c.Cache.MemoryCache = true
		c.Cache.Gzip = true
		c.Cache.Compile = true
		c.Cache.Inline = true
		c.Cache.Concat = true
	}

	if fs.Changed("root") {
		c.Cache.Root = o.root
	}
	for name, v := range map[string]struct {
		dst *bool
		val bool
	}{
		"memory-cache":     {&c.Cache.MemoryCache, o.memoryCache},
		"disable-manifest": {&c.Cache.DisableManifest, o.disableManifest},
		"gzip":             {&c.Cache.Gzip, o.gzip},
		"compile":          {&c.Cache.Compile, o.compile},
		"inline":           {&c.Cache.Inline, o.inline},
		"concat":           {&c.Cache.Concat, o.concat},
		"versioning":       {&c.Cache.Versioning, o.versioning},
		"strict":           {&c.Cache.Strict, o.strict},
	} {
		if fs.Changed(name) {
			*v.dst = v.val
		}
	}

	if fs.Changed("ignores") {
		c.Cache.Ignores = o.ignores
	}
	if fs.Changed("ignore-manifest") {
		c.Cache.IgnoreManifest = o.ignoreManifest
	}
	if fs.Changed("cache") {
		p, err := cache.ParsePolicy(o.cacheControl)
		if err != nil {
			return errors.Wrap(err, "invalid --cache")
		}
		c.Cache.CacheControl = p
	}
	if fs.Changed("concurrency") {
		c.Cache.Concurrency = o.concurrency
	}

	return nil
}
