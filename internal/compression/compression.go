// Package compression decodes compressed feature files.
package compression

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Format is a compression format recognized by file extension.
type Format int

const (
	None Format = iota
	Zstd
	Gzip
)

func (f Format) String() string {
	switch f {
	case Zstd:
		return "zstd"
	case Gzip:
		return "gzip"
	default:
		return "none"
	}
}

// DetectFormat returns the format implied by the file name.
func DetectFormat(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".zst", ".zstd":
		return Zstd
	case ".gz":
		return Gzip
	default:
		return None
	}
}

// TrimExt strips a compression extension from name.
func TrimExt(name string) string {
	if DetectFormat(name) == None {
		return name
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Decompressor holds a reusable zstd decoder. It is safe for concurrent use.
type Decompressor struct {
	zstd *zstd.Decoder
}

func NewDecompressor() (*Decompressor, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &Decompressor{zstd: dec}, nil
}

// Decompress decodes data in format f.
func (d *Decompressor) Decompress(f Format, data []byte) ([]byte, error) {
	switch f {
	case None:
		return data, nil
	case Zstd:
		out, err := d.zstd.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return out, nil
	case Gzip:
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer func() { _ = zr.Close() }()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported compression format %d", int(f))
	}
}

// DecompressFile decodes data according to the extension of name.
func (d *Decompressor) DecompressFile(name string, data []byte) ([]byte, error) {
	return d.Decompress(DetectFormat(name), data)
}

func (d *Decompressor) Close() error {
	if d.zstd != nil {
		d.zstd.Close()
	}
	return nil
}
