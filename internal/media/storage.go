// Package media stores artifact files on disk under a single media root.
//
// Files are grouped by kind (thumbnails, images, objects, materials) and
// stored under a uuid-prefixed name so that repeated uploads of the same
// original filename never collide. Records in the database reference the
// relative stored path.
package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Kind selects the subdirectory a file is stored in.
type Kind string

const (
	KindThumbnail Kind = "thumbnails"
	KindImage     Kind = "images"
	KindObject    Kind = "objects"
	KindMaterial  Kind = "materials"
)

var kinds = []Kind{KindThumbnail, KindImage, KindObject, KindMaterial}

// File describes a stored media file.
type File struct {
	// Path is the stored path relative to the media root, e.g.
	// "thumbnails/3f1c...-001_thumbnail.jpg". This is what gets persisted.
	Path string

	// AbsPath is the absolute location on disk.
	AbsPath string
}

// Storage writes and removes files under the media root.
type Storage struct {
	root string
}

// NewStorage creates the media root and its kind subdirectories if needed.
func NewStorage(root string) (*Storage, error) {
	for _, k := range kinds {
		if err := os.MkdirAll(filepath.Join(root, string(k)), 0o755); err != nil {
			return nil, fmt.Errorf("create media dir %s: %w", k, err)
		}
	}
	return &Storage{root: root}, nil
}

// Root returns the media root directory.
func (s *Storage) Root() string { return s.root }

// Save stores the contents of r as a new file of the given kind.
// The original name is kept as a suffix for operator readability.
func (s *Storage) Save(kind Kind, name string, r io.Reader) (File, error) {
	stored := uuid.NewString() + "-" + sanitizeName(name)
	rel := filepath.ToSlash(filepath.Join(string(kind), stored))
	abs := filepath.Join(s.root, string(kind), stored)

	f, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return File{}, fmt.Errorf("create media file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(abs)
		return File{}, fmt.Errorf("write media file: %w", err)
	}
	return File{Path: rel, AbsPath: abs}, nil
}

// SaveFile stores an existing file (e.g. from an extraction workspace).
func (s *Storage) SaveFile(kind Kind, src, name string) (File, error) {
	f, err := os.Open(src)
	if err != nil {
		return File{}, fmt.Errorf("open source file: %w", err)
	}
	defer f.Close()
	return s.Save(kind, name, f)
}

// Abs resolves a stored relative path to an absolute one.
func (s *Storage) Abs(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

// Remove deletes a stored file. Missing files are not an error.
func (s *Storage) Remove(rel string) error {
	err := os.Remove(s.Abs(rel))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// sanitizeName strips any directory components and path separators from an
// upload-supplied name before it becomes part of a stored filename.
func sanitizeName(name string) string {
	name = filepath.Base(filepath.ToSlash(name))
	name = strings.ReplaceAll(name, string(os.PathSeparator), "_")
	if name == "" || name == "." || name == ".." {
		return "file"
	}
	return name
}
