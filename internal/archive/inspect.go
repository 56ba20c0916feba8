// Package archive summarizes downloaded result archives. The compression
// service may store entries with Zstandard (ZIP method 93), which the standard
// zip reader does not know, so a klauspost/compress decoder is registered on
// every reader.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

// MethodZstd is the ZIP compression method ID for Zstandard (APPNOTE 4.4.5).
const MethodZstd uint16 = 93

// ErrNotZip is returned when the payload is not a ZIP archive.
var ErrNotZip = errors.New("not a zip archive")

// Entry is one file inside an archive.
type Entry struct {
	Name           string
	Method         string
	Size           uint64
	CompressedSize uint64
}

// Summary lists the entries of an archive.
type Summary struct {
	Entries         []Entry
	TotalSize       uint64
	TotalCompressed uint64
}

// Inspect lists the regular file entries of the ZIP archive at path.
func Inspect(path string) (*Summary, error) {
	r, err := open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	summary := &Summary{}
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		summary.Entries = append(summary.Entries, Entry{
			Name:           f.Name,
			Method:         methodName(f.Method),
			Size:           f.UncompressedSize64,
			CompressedSize: f.CompressedSize64,
		})
		summary.TotalSize += f.UncompressedSize64
		summary.TotalCompressed += f.CompressedSize64
	}

	log.Debug().
		Str("path", path).
		Int("entryCount", len(summary.Entries)).
		Uint64("totalSize", summary.TotalSize).
		Msg("Archive inspected")
	return summary, nil
}

// Verify decompresses every entry, which checks each CRC-32.
func Verify(path string) error {
	r, err := open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if err := verifyEntry(f); err != nil {
			return fmt.Errorf("verify %s: %w", f.Name, err)
		}
	}
	return nil
}

func verifyEntry(f *zip.File) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	_, err = io.Copy(io.Discard, rc)
	return err
}

func open(path string) (*zip.ReadCloser, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			return nil, fmt.Errorf("%w: %s", ErrNotZip, path)
		}
		return nil, fmt.Errorf("open archive: %w", err)
	}
	r.RegisterDecompressor(MethodZstd, zstdDecompressor)
	return r, nil
}

func zstdDecompressor(r io.Reader) io.ReadCloser {
	d, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return io.NopCloser(errReader{err})
	}
	return d.IOReadCloser()
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

func methodName(m uint16) string {
	switch m {
	case zip.Store:
		return "store"
	case zip.Deflate:
		return "deflate"
	case MethodZstd:
		return "zstd"
	default:
		return fmt.Sprintf("method-%d", m)
	}
}
