package main

import (
	"github.com/chrisvdg/zerver/cache"
	"github.com/chrisvdg/zerver/publish"
	"github.com/chrisvdg/zerver/server"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func buildCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "build <output dir>",
		Short: "Build the cache and write it to a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildCache(cmd, &opts)
			if err != nil {
				return err
			}
			n, err := publish.ToDir(c.Dump(), args[0])
			if err != nil {
				return err
			}
			log.Infof("Wrote %d files to %s", n, args[0])
			return nil
		},
	}
	opts.register(cmd.Flags())

	return cmd
}

// buildCache builds the memory cache from the command's flags
func buildCache(cmd *cobra.Command, opts *options) (*cache.Cache, error) {
	var c server.Config
	if err := opts.apply(cmd.Flags(), &c); err != nil {
		return nil, err
	}
	c.Cache.MemoryCache = true

	ch, err := cache.New(&c.Cache)
	if err != nil {
		return nil, err
	}
	for _, w := range ch.Warnings() {
		log.Warnf("Build warning: %s", w)
	}
	return ch, nil
}
