package server

import (
	"io/ioutil"
	"time"

	"github.com/chrisvdg/zerver/cache"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config represents a server config
type Config struct {
	ListenAddr    string
	TLSListenAddr string
	TLSOnly       bool
	TLS           *TLSConfig
	Verbose       bool
	Cache         cache.Options
	// Missing is the logical path served with a 404 status when nothing matches
	Missing string
	// MetricsPath enables the Prometheus endpoint when set
	MetricsPath string
	// Watch rebuilds the cache when sources change
	Watch         bool
	WatchInterval time.Duration
}

// TLSConfig represents a TLS configuration
type TLSConfig struct {
	KeyFile  string
	CertFile string
}

// FileConfig is the on-disk YAML form of the configuration.
// Unset fields leave the corresponding Config value untouched.
type FileConfig struct {
	Root            string   `yaml:"root"`
	ListenAddr      string   `yaml:"listenAddr"`
	TLSListenAddr   string   `yaml:"tlsAddr"`
	TLSKey          string   `yaml:"tlsKey"`
	TLSCert         string   `yaml:"tlsCert"`
	TLSOnly         *bool    `yaml:"tlsOnly"`
	MemoryCache     *bool    `yaml:"memoryCache"`
	Ignores         []string `yaml:"ignores"`
	CacheControl    []string `yaml:"cache"`
	DisableManifest *bool    `yaml:"disableManifest"`
	IgnoreManifest  []string `yaml:"ignoreManifest"`
	Gzip            *bool    `yaml:"gzip"`
	Compile         *bool    `yaml:"compile"`
	Inline          *bool    `yaml:"inline"`
	Concat          *bool    `yaml:"concat"`
	Versioning      *bool    `yaml:"versioning"`
	Strict          *bool    `yaml:"strict"`
	Missing         string   `yaml:"missing"`
	MetricsPath     string   `yaml:"metricsPath"`
	Watch           *bool    `yaml:"watch"`
}

// LoadConfigFile reads a YAML config file
func LoadConfigFile(file string) (*FileConfig, error) {
	data, err := ioutil.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", file)
	}
	fc := &FileConfig{}
	if err := yaml.Unmarshal(data, fc); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config file %s", file)
	}
	return fc, nil
}

// Apply copies every set field of the file config onto c
func (fc *FileConfig) Apply(c *Config) error {
	setString(&c.Cache.Root, fc.Root)
	setString(&c.ListenAddr, fc.ListenAddr)
	setString(&c.TLSListenAddr, fc.TLSListenAddr)
	setString(&c.Missing, fc.Missing)
	setString(&c.MetricsPath, fc.MetricsPath)
	if fc.TLSKey != "" || fc.TLSCert != "" {
		if c.TLS == nil {
			c.TLS = &TLSConfig{}
		}
		setString(&c.TLS.KeyFile, fc.TLSKey)
		setString(&c.TLS.CertFile, fc.TLSCert)
	}

	setBool(&c.TLSOnly, fc.TLSOnly)
	setBool(&c.Cache.MemoryCache, fc.MemoryCache)
	setBool(&c.Cache.DisableManifest, fc.DisableManifest)
	setBool(&c.Cache.Gzip, fc.Gzip)
	setBool(&c.Cache.Compile, fc.Compile)
	setBool(&c.Cache.Inline, fc.Inline)
	setBool(&c.Cache.Concat, fc.Concat)
	setBool(&c.Cache.Versioning, fc.Versioning)
	setBool(&c.Cache.Strict, fc.Strict)
	setBool(&c.Watch, fc.Watch)

	if fc.Ignores != nil {
		c.Cache.Ignores = fc.Ignores
	}
	if fc.IgnoreManifest != nil {
		c.Cache.IgnoreManifest = fc.IgnoreManifest
	}
	if fc.CacheControl != nil {
		p, err := cache.ParsePolicy(fc.CacheControl)
		if err != nil {
			return err
		}
		c.Cache.CacheControl = p
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
