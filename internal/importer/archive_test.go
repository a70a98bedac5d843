package importer

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// buildZip assembles an in-memory archive; entries map name to content.
func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %q: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write %q: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtract(t *testing.T) {
	data := buildZip(t, map[string]string{
		"1_thumbnail.jpg":  "thumb",
		"fotos/1_a.jpg":    "photo",
		"modelos/1_m.obj":  "model",
		"fotos/nested/.ok": "dot",
	})
	ws, err := Extract(t.TempDir(), "upload.zip", bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	defer ws.Remove()

	if len(ws.Files()) != 4 {
		t.Fatalf("Files() = %q, want 4 entries", ws.Files())
	}
	for _, rel := range ws.Files() {
		if strings.Contains(rel, `\`) {
			t.Errorf("relative path %q is not slash-separated", rel)
		}
		if _, err := os.Stat(ws.Abs(rel)); err != nil {
			t.Errorf("extracted file missing: %v", err)
		}
	}

	got, err := os.ReadFile(ws.Abs("fotos/1_a.jpg"))
	if err != nil || string(got) != "photo" {
		t.Errorf("ReadFile = %q, %v", got, err)
	}

	base := filepath.Base(ws.Dir())
	if !strings.HasPrefix(base, "upload-") {
		t.Errorf("workspace dir %q does not carry the archive name", base)
	}
}

func TestExtractInvalidArchive(t *testing.T) {
	data := []byte("this is not a zip file")
	_, err := Extract(t.TempDir(), "upload.zip", bytes.NewReader(data), int64(len(data)))
	if !errors.Is(err, ErrInvalidArchive) {
		t.Fatalf("err = %v, want ErrInvalidArchive", err)
	}
}

func TestExtractRejectsUnsafePaths(t *testing.T) {
	tests := []struct {
		name  string
		entry string
	}{
		{"parent traversal", "../escape.jpg"},
		{"nested traversal", "fotos/../../escape.jpg"},
		{"absolute path", "/etc/escape.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			data := buildZip(t, map[string]string{
				"safe.jpg": "ok",
				tt.entry:   "bad",
			})
			_, err := Extract(root, "upload.zip", bytes.NewReader(data), int64(len(data)))
			if !errors.Is(err, ErrInvalidArchive) {
				t.Fatalf("err = %v, want ErrInvalidArchive", err)
			}
			// A rejected archive must not leave a workspace behind.
			left, err := os.ReadDir(root)
			if err != nil {
				t.Fatal(err)
			}
			if len(left) != 0 {
				t.Errorf("workspace left behind: %v", left)
			}
		})
	}
}

func TestWorkspaceRemove(t *testing.T) {
	data := buildZip(t, map[string]string{"1_thumbnail.jpg": "x"})
	ws, err := Extract(t.TempDir(), "u.zip", bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(ws.Dir()); !os.IsNotExist(err) {
		t.Errorf("workspace still exists after Remove")
	}
	if err := ws.Remove(); err != nil {
		t.Errorf("second Remove: %v", err)
	}
}

func TestWorkspaceBase(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"upload.zip", "upload"},
		{"colección maría.zip", "colecci_n_mar_a"},
		{"a/b/c.zip", "c"},
		{".zip", "import"},
	}
	for _, tt := range tests {
		if got := workspaceBase(tt.in); got != tt.want {
			t.Errorf("workspaceBase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
