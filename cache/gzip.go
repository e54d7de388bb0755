package cache

import (
	"bytes"
	"compress/gzip"
	"io/ioutil"

	"github.com/pkg/errors"
)

// gzipBytes compresses b. The gzip header carries no name or mtime so the
// output only depends on the input.
func gzipBytes(b []byte) ([]byte, error) {
	buf := new(bytes.Buffer)
	g, err := gzip.NewWriterLevel(buf, gzip.BestCompression)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gzip writer")
	}
	if _, err := g.Write(b); err != nil {
		return nil, errors.Wrap(err, "failed to gzip body")
	}
	if err := g.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to gzip body")
	}
	return buf.Bytes(), nil
}

func gunzip(b []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read gzip body")
	}
	defer r.Close()
	out, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read gzip body")
	}
	return out, nil
}

// Gunzip decodes a gzip encoded body
func Gunzip(b []byte) ([]byte, error) {
	return gunzip(b)
}
