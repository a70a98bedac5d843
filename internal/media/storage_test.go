package media

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveStoresUnderKind(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	f, err := s.Save(KindThumbnail, "001_thumbnail.jpg", strings.NewReader("data"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if !strings.HasPrefix(f.Path, "thumbnails/") {
		t.Errorf("stored path %q not under thumbnails/", f.Path)
	}
	if !strings.HasSuffix(f.Path, "-001_thumbnail.jpg") {
		t.Errorf("stored path %q does not keep original name", f.Path)
	}

	data, err := os.ReadFile(f.AbsPath)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "data" {
		t.Errorf("contents = %q, want %q", data, "data")
	}
}

func TestSaveUniqueNames(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	a, err := s.Save(KindImage, "photo.jpg", strings.NewReader("a"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Save(KindImage, "photo.jpg", strings.NewReader("b"))
	if err != nil {
		t.Fatal(err)
	}
	if a.Path == b.Path {
		t.Errorf("two saves of the same name produced the same path %q", a.Path)
	}
}

func TestSaveSanitizesName(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		upload string
	}{
		{"path traversal", "../../etc/passwd"},
		{"nested path", "dir/sub/file.jpg"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := s.Save(KindImage, tt.upload, strings.NewReader("x"))
			if err != nil {
				t.Fatalf("Save: %v", err)
			}
			rel := strings.TrimPrefix(f.Path, "images/")
			if strings.ContainsAny(rel, "/\\") {
				t.Errorf("stored name %q contains path separators", rel)
			}
			if !strings.HasPrefix(f.AbsPath, s.Root()) {
				t.Errorf("file %q escaped media root", f.AbsPath)
			}
		})
	}
}

func TestSaveFileAndRemove(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.obj")
	if err := os.WriteFile(src, []byte("model"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := NewStorage(filepath.Join(dir, "media"))
	if err != nil {
		t.Fatal(err)
	}

	f, err := s.SaveFile(KindObject, src, "piece.obj")
	if err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	if s.Abs(f.Path) != f.AbsPath {
		t.Errorf("Abs(%q) = %q, want %q", f.Path, s.Abs(f.Path), f.AbsPath)
	}

	if err := s.Remove(f.Path); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(f.AbsPath); !os.IsNotExist(err) {
		t.Errorf("file still exists after Remove")
	}

	// Removing twice is fine.
	if err := s.Remove(f.Path); err != nil {
		t.Errorf("second Remove: %v", err)
	}
}
