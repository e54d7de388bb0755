package main

import (
	"github.com/chrisvdg/zerver/publish"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func publishCmd() *cobra.Command {
	var (
		opts    options
		bucket  string
		prefix  string
		region  string
		uploads int
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Build the cache and upload it to S3",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if bucket == "" {
				return errors.New("--bucket is required")
			}
			c, err := buildCache(cmd, &opts)
			if err != nil {
				return err
			}

			p := publish.NewS3(publish.NewS3Client(region), bucket, prefix).WithUploads(uploads)
			n, err := p.Publish(cmd.Context(), c.Dump())
			if err != nil {
				return err
			}
			log.Infof("Uploaded %d files to s3://%s/%s", n, bucket, prefix)
			return nil
		},
	}

	fs := cmd.Flags()
	opts.register(fs)
	fs.StringVar(&bucket, "bucket", "", "S3 bucket")
	fs.StringVar(&prefix, "prefix", "", "Key prefix inside the bucket")
	fs.StringVar(&region, "region", "us-east-1", "AWS region")
	fs.IntVar(&uploads, "uploads", 8, "Concurrent uploads")

	return cmd
}
