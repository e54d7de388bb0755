package publish

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/chrisvdg/zerver/cache"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	filePerm os.FileMode = 0644
	dirPerm  os.FileMode = 0755
)

// ToDir writes every entry of dump under dir as a plain file, gzip bodies
// decoded. It returns the number of files written.
func ToDir(dump map[string]*cache.Entry, dir string) (int, error) {
	if dir == "" {
		return 0, errors.New("no output directory provided")
	}

	n := 0
	for _, tier := range files(dump) {
		for _, it := range tier {
			body, err := it.entry.Plain()
			if err != nil {
				return n, errors.Wrapf(err, "failed to decode %s", it.path)
			}
			file := filepath.Join(dir, filepath.FromSlash(it.path))
			if err := os.MkdirAll(filepath.Dir(file), dirPerm); err != nil {
				return n, errors.Wrapf(err, "failed to create directory for %s", it.path)
			}
			if err := ioutil.WriteFile(file, body, filePerm); err != nil {
				return n, errors.Wrapf(err, "failed to write %s", it.path)
			}
			log.Debugf("Wrote %s", file)
			n++
		}
	}
	return n, nil
}
