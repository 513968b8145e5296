package anvil

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// Compression is the compression scheme of a column in a region file. Its
// value is the scheme byte stored in front of the column data.
type Compression byte

const (
	CompressionGzip Compression = iota + 1
	CompressionZlib
	CompressionNone
)

func (c Compression) String() string {
	switch c {
	case CompressionGzip:
		return "gzip"
	case CompressionZlib:
		return "zlib"
	case CompressionNone:
		return "none"
	}
	return fmt.Sprintf("unknown(%d)", byte(c))
}

// compress returns the sector payload for the data passed: the scheme byte
// followed by the compressed data.
func (c Compression) compress(data []byte) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, len(data)/4+1))
	buf.WriteByte(byte(c))

	var w io.WriteCloser
	switch c {
	case CompressionGzip:
		w = gzip.NewWriter(buf)
	case CompressionZlib:
		w = zlib.NewWriter(buf)
	case CompressionNone:
		buf.Write(data)
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported compression %v", c)
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decompress reads a sector payload written by compress.
func decompress(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("empty sector")
	}
	c, data := Compression(payload[0]), payload[1:]

	var r io.ReadCloser
	var err error
	switch c {
	case CompressionGzip:
		r, err = gzip.NewReader(bytes.NewReader(data))
	case CompressionZlib:
		r, err = zlib.NewReader(bytes.NewReader(data))
	case CompressionNone:
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported compression %v", c)
	}
	if err != nil {
		return nil, fmt.Errorf("%v: %w", c, err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", c, err)
	}
	return out, nil
}

// ParseCompression parses the name of a Compression as returned by its
// String method.
func ParseCompression(name string) (Compression, error) {
	for _, c := range []Compression{CompressionGzip, CompressionZlib, CompressionNone} {
		if c.String() == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown compression %q", name)
}
