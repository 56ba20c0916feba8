package archive

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
)

// writeZip builds an archive with one entry per name, compressed with method.
func writeZip(t *testing.T, method uint16, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	w.RegisterCompressor(MethodZstd, func(out io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(out)
	})
	for name, content := range entries {
		fw, err := w.CreateHeader(&zip.FileHeader{Name: name, Method: method})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(fw, content); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestInspect(t *testing.T) {
	tests := []struct {
		name       string
		method     uint16
		wantMethod string
	}{
		{"zstd", MethodZstd, "zstd"},
		{"deflate", zip.Deflate, "deflate"},
		{"store", zip.Store, "store"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeZip(t, tt.method, map[string]string{
				"photo_compressed.jpg": strings.Repeat("a", 1000),
				"report.pdf":           strings.Repeat("b", 500),
			})

			summary, err := Inspect(path)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(summary.Entries) != 2 {
				t.Fatalf("expected 2 entries, got %d", len(summary.Entries))
			}
			if summary.TotalSize != 1500 {
				t.Errorf("total size = %d, want 1500", summary.TotalSize)
			}
			for _, e := range summary.Entries {
				if e.Method != tt.wantMethod {
					t.Errorf("%s method = %s, want %s", e.Name, e.Method, tt.wantMethod)
				}
			}

			if err := Verify(path); err != nil {
				t.Errorf("verify: %v", err)
			}
		})
	}
}

func TestInspectRejectsNonZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not.zip")
	if err := os.WriteFile(path, []byte("plain text, no zip here"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Inspect(path); !errors.Is(err, ErrNotZip) {
		t.Errorf("expected ErrNotZip, got %v", err)
	}
	if err := Verify(path); !errors.Is(err, ErrNotZip) {
		t.Errorf("expected ErrNotZip from Verify, got %v", err)
	}
}
