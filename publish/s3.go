package publish

import (
	"bytes"
	"context"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/chrisvdg/zerver/cache"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const defaultUploads = 8

// PutObjectAPI is the part of the S3 client used for publishing
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 publishes cache entries to a bucket
type S3 struct {
	client  PutObjectAPI
	bucket  string
	prefix  string
	uploads int
}

// NewS3 creates a publisher for bucket. Keys are the logical paths without
// their leading slash, under prefix.
func NewS3(client PutObjectAPI, bucket, prefix string) *S3 {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		uploads: defaultUploads,
	}
}

// WithUploads sets how many uploads run at once
func (s *S3) WithUploads(n int) *S3 {
	if n > 0 {
		s.uploads = n
	}
	return s
}

// NewS3Client creates an S3 client for region using the standard AWS_*
// credential environment variables
func NewS3Client(region string) *s3.Client {
	creds := aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
		id, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY")
		if id == "" || secret == "" {
			return aws.Credentials{}, errors.New("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
		}
		return aws.Credentials{
			AccessKeyID:     id,
			SecretAccessKey: secret,
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			Source:          "environment",
		}, nil
	})

	return s3.New(s3.Options{
		Region:      region,
		Credentials: aws.NewCredentialsCache(creds),
	})
}

// Publish uploads every entry. Tiers go up one after another in priority
// order; files within a tier upload concurrently.
func (s *S3) Publish(ctx context.Context, dump map[string]*cache.Entry) (int, error) {
	if s.bucket == "" {
		return 0, errors.New("no bucket provided")
	}

	n := 0
	for _, tier := range files(dump) {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.uploads)
		for _, it := range tier {
			it := it
			g.Go(func() error {
				return s.put(gctx, it)
			})
		}
		if err := g.Wait(); err != nil {
			return n, err
		}
		n += len(tier)
	}
	return n, nil
}

func (s *S3) put(ctx context.Context, it item) error {
	key := s.prefix + strings.TrimPrefix(it.path, "/")
	h := it.entry.Headers

	in := &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(it.entry.Body),
		ContentType:  aws.String(h.Get("Content-Type")),
		CacheControl: aws.String(h.Get("Cache-Control")),
		Metadata: map[string]string{
			"etag": it.entry.ETag(),
		},
	}
	if enc := h.Get("Content-Encoding"); enc != "" {
		in.ContentEncoding = aws.String(enc)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return errors.Wrapf(err, "failed to upload %s", key)
	}
	log.Debugf("Uploaded s3://%s/%s", s.bucket, key)
	return nil
}
