package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrEmptyFilename = errors.New("upload has no filename")

// Uploads keeps uploaded images in one directory under their original
// names. A later upload with the same name replaces the earlier file.
type Uploads struct {
	dir string
}

func NewUploads(dir string) *Uploads {
	return &Uploads{dir: dir}
}

func (u *Uploads) Dir() string {
	return u.dir
}

// Save writes data and returns the path it was written to.
func (u *Uploads) Save(filename string, data []byte) (string, error) {
	name := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	if name == "." || name == "/" || name == ".." || strings.TrimSpace(name) == "" {
		return "", ErrEmptyFilename
	}

	if err := os.MkdirAll(u.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	path := filepath.Join(u.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return path, nil
}
