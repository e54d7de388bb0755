package main

import (
	"github.com/chrisvdg/zerver/server"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type serveOptions struct {
	listenAddr string
	tlsAddr    string
	tlsKey     string
	tlsCert    string
	tlsOnly    bool
	missing    string
	metrics    string
	watch      bool
}

func (so *serveOptions) register(fs *pflag.FlagSet) {
	fs.StringVarP(&so.listenAddr, "listenaddr", "l", ":8080", "http listen address")
	fs.StringVarP(&so.tlsAddr, "tlsaddr", "t", ":8443", "https listen address")
	fs.StringVarP(&so.tlsKey, "tlskey", "k", "", "TLS private key file path")
	fs.StringVarP(&so.tlsCert, "tlscert", "c", "", "TLS certificate file path")
	fs.BoolVarP(&so.tlsOnly, "tlsonly", "s", false, "Only serve TLS")
	fs.StringVar(&so.missing, "missing", "", "Path served with a 404 status when nothing matches")
	fs.StringVar(&so.metrics, "metrics", "", "Serve Prometheus metrics on this path")
	fs.BoolVarP(&so.watch, "watch", "w", false, "Rebuild the memory cache when sources change")
}

// config builds the server config. Flag defaults are overridden by the
// config file, which is overridden by flags that were set explicitly.
func (so *serveOptions) config(fs *pflag.FlagSet, opts *options) (*server.Config, error) {
	c := &server.Config{
		ListenAddr:    so.listenAddr,
		TLSListenAddr: so.tlsAddr,
		TLSOnly:       so.tlsOnly,
		TLS:           &server.TLSConfig{KeyFile: so.tlsKey, CertFile: so.tlsCert},
		Verbose:       opts.verbose,
		Missing:       so.missing,
		MetricsPath:   so.metrics,
		Watch:         so.watch,
	}
	if err := opts.apply(fs, c); err != nil {
		return nil, err
	}

	for name, v := range map[string]struct {
		dst *string
		val string
	}{
		"listenaddr": {&c.ListenAddr, so.listenAddr},
		"tlsaddr":    {&c.TLSListenAddr, so.tlsAddr},
		"tlskey":     {&c.TLS.KeyFile, so.tlsKey},
		"tlscert":    {&c.TLS.CertFile, so.tlsCert},
		"missing":    {&c.Missing, so.missing},
		"metrics":    {&c.MetricsPath, so.metrics},
	} {
		if fs.Changed(name) {
			*v.dst = v.val
		}
	}
	if fs.Changed("tlsonly") {
		c.TLSOnly = so.tlsOnly
	}
	if fs.Changed("watch") {
		c.Watch = so.watch
	}

	return c, nil
}

func serveCmd() *cobra.Command {
	var (
		opts options
		so   serveOptions
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the source directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := so.config(cmd.Flags(), &opts)
			if err != nil {
				return err
			}
			s, err := server.New(c)
			if err != nil {
				return err
			}
			s.ListenAndServe()
			return nil
		},
	}

	opts.register(cmd.Flags())
	so.register(cmd.Flags())

	return cmd
}
