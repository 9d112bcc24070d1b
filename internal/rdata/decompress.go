package rdata

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/huangsam/actimerge/schema"
)

// Compression identifies how a workspace file is compressed.
type Compression string

// All compressions R's save() and saveRDS() can produce.
const (
	NoCompression    Compression = "none"
	GzipCompression  Compression = "gzip"
	Bzip2Compression Compression = "bzip2"
	XZCompression    Compression = "xz"
	ZstdCompression  Compression = "zstd"
)

var (
	gzipMagic  = []byte{0x1f, 0x8b}
	bzip2Magic = []byte("BZh")
	xzMagic    = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	zstdMagic  = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// maxZstdMemory bounds the zstd decoder window.
const maxZstdMemory = 512 << 20

// DetectCompression inspects the leading bytes of a stream.
func DetectCompression(head []byte) Compression {
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return GzipCompression
	case bytes.HasPrefix(head, bzip2Magic):
		return Bzip2Compression
	case bytes.HasPrefix(head, xzMagic):
		return XZCompression
	case bytes.HasPrefix(head, zstdMagic):
		return ZstdCompression
	default:
		return NoCompression
	}
}

// decompress returns a reader over the uncompressed stream and a function
// releasing the decompressor.
func decompress(r io.Reader) (*bufio.Reader, Compression, func(), error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(xzMagic))
	if err != nil && len(head) == 0 {
		return nil, NoCompression, nil, fmt.Errorf("%w: empty R data stream", schema.ErrInvalidInput)
	}

	noop := func() {}
	kind := DetectCompression(head)
	switch kind {
	case GzipCompression:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, kind, nil, fmt.Errorf("%w: gzip: %v", schema.ErrInvalidInput, err)
		}
		return bufio.NewReader(zr), kind, func() { _ = zr.Close() }, nil
	case Bzip2Compression:
		return bufio.NewReader(bzip2.NewReader(br)), kind, noop, nil
	case XZCompression:
		xr, err := xz.NewReader(br)
		if err != nil {
			return nil, kind, nil, fmt.Errorf("%w: xz: %v", schema.ErrInvalidInput, err)
		}
		return bufio.NewReader(xr), kind, noop, nil
	case ZstdCompression:
		dec, err := zstd.NewReader(br, zstd.WithDecoderMaxMemory(maxZstdMemory))
		if err != nil {
			return nil, kind, nil, fmt.Errorf("%w: zstd: %v", schema.ErrInvalidInput, err)
		}
		return bufio.NewReader(dec), kind, dec.Close, nil
	default:
		return br, kind, noop, nil
	}
}
