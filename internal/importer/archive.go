// Package importer implements the bulk artifact import pipeline: a
// spreadsheet describing N artifacts plus a zip archive of their media are
// validated, each row is matched to its files by identifier, and the
// resulting artifact graphs are persisted. The extraction workspace is
// removed on every exit path.
package importer

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrInvalidArchive is returned when the upload is not a well-formed zip.
var ErrInvalidArchive = errors.New("file is not a valid zip archive")

// Workspace is the private directory one import run extracts its archive
// into. It is exclusively owned by that run and must be removed when the
// run ends, success or failure.
type Workspace struct {
	dir   string
	files []string
}

// Extract expands a zip archive into a fresh workspace under tempRoot.
// The directory name carries the archive base name and extraction time for
// operator forensics; uniqueness and unpredictability come from MkdirTemp.
// Returned file paths are slash-separated, relative to the workspace, in
// archive order.
func Extract(tempRoot, archiveName string, r io.ReaderAt, size int64) (*Workspace, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}

	if err := os.MkdirAll(tempRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create temp root: %w", err)
	}

	prefix := fmt.Sprintf("%s-%s-", workspaceBase(archiveName),
		time.Now().UTC().Format("20060102T150405"))
	dir, err := os.MkdirTemp(tempRoot, prefix)
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	ws := &Workspace{dir: dir}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rel, err := ws.extractEntry(f)
		if err != nil {
			ws.Remove()
			return nil, err
		}
		ws.files = append(ws.files, rel)
	}
	return ws, nil
}

func (w *Workspace) extractEntry(f *zip.File) (string, error) {
	name := filepath.ToSlash(f.Name)
	if !filepath.IsLocal(filepath.FromSlash(name)) {
		return "", fmt.Errorf("%w: unsafe entry path %q", ErrInvalidArchive, f.Name)
	}

	dst := filepath.Join(w.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create entry dir: %w", err)
	}

	src, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open archive entry %q: %w", f.Name, err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create extracted file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return "", fmt.Errorf("extract %q: %w", f.Name, err)
	}
	return name, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string { return w.dir }

// Files returns the extracted file paths relative to the workspace.
func (w *Workspace) Files() []string { return w.files }

// Abs resolves a relative extracted path to its absolute location.
func (w *Workspace) Abs(rel string) string {
	return filepath.Join(w.dir, filepath.FromSlash(rel))
}

// Remove deletes the workspace and everything in it. Idempotent.
func (w *Workspace) Remove() error {
	if w.dir == "" {
		return nil
	}
	return os.RemoveAll(w.dir)
}

// workspaceBase derives a filesystem-safe prefix from the archive name.
func workspaceBase(name string) string {
	base := filepath.Base(filepath.ToSlash(name))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "import"
	}
	return b.String()
}
