// Package persist stores serialized sketches: compression codecs, a file
// layout chosen by extension, and pluggable stores (directory, bbolt, S3).
package persist

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec names.
const (
	CodecRaw    = "raw"
	CodecLZ4    = "lz4"
	CodecZstd   = "zstd"
	CodecSnappy = "snappy"
)

// SketchExtension is the extension of an uncompressed sketch file.
const SketchExtension = ".req"

// ErrUnknownCodec is returned for a codec name no Codec implements.
var ErrUnknownCodec = errors.New("persist: unknown codec")

// Codec compresses serialized sketch bytes.
type Codec interface {
	// Encode writes data to w in the codec's format.
	Encode(w io.Writer, data []byte) error
	// Decode reads everything r holds and returns the original bytes.
	Decode(r io.Reader) ([]byte, error)
	// Name returns the configuration name ("raw", "lz4", ...).
	Name() string
	// Extension returns the suffix appended after SketchExtension ("" for raw).
	Extension() string
}

// RawCodec stores bytes unchanged.
type RawCodec struct{}

// Encode implements Codec.
func (RawCodec) Encode(w io.Writer, data []byte) error {
	_, err := w.Write(data)
	if err != nil {
		return fmt.Errorf("raw encode: %w", err)
	}

	return nil
}

// Decode implements Codec.
func (RawCodec) Decode(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("raw decode: %w", err)
	}

	return data, nil
}

// Name implements Codec.
func (RawCodec) Name() string { return CodecRaw }

// Extension implements Codec.
func (RawCodec) Extension() string { return "" }

// LZ4Codec writes LZ4 frames.
type LZ4Codec struct{}

// Encode implements Codec.
func (LZ4Codec) Encode(w io.Writer, data []byte) error {
	zw := lz4.NewWriter(w)

	_, err := zw.Write(data)
	if err != nil {
		return fmt.Errorf("lz4 encode: %w", err)
	}

	err = zw.Close()
	if err != nil {
		return fmt.Errorf("lz4 encode: %w", err)
	}

	return nil
}

// Decode implements Codec.
func (LZ4Codec) Decode(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(lz4.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("lz4 decode: %w", err)
	}

	return data, nil
}

// Name implements Codec.
func (LZ4Codec) Name() string { return CodecLZ4 }

// Extension implements Codec.
func (LZ4Codec) Extension() string { return ".lz4" }

// ZstdCodec writes zstd frames at the default level.
type ZstdCodec struct{}

// Encode implements Codec.
func (ZstdCodec) Encode(w io.Writer, data []byte) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("zstd encode: %w", err)
	}

	_, err = zw.Write(data)
	if err != nil {
		zw.Close()

		return fmt.Errorf("zstd encode: %w", err)
	}

	err = zw.Close()
	if err != nil {
		return fmt.Errorf("zstd encode: %w", err)
	}

	return nil
}

// Decode implements Codec.
func (ZstdCodec) Decode(r io.Reader) ([]byte, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}

	return data, nil
}

// Name implements Codec.
func (ZstdCodec) Name() string { return CodecZstd }

// Extension implements Codec.
func (ZstdCodec) Extension() string { return ".zst" }

// SnappyCodec writes a single snappy block.
type SnappyCodec struct{}

// Encode implements Codec.
func (SnappyCodec) Encode(w io.Writer, data []byte) error {
	_, err := w.Write(snappy.Encode(nil, data))
	if err != nil {
		return fmt.Errorf("snappy encode: %w", err)
	}

	return nil
}

// Decode implements Codec.
func (SnappyCodec) Decode(r io.Reader) ([]byte, error) {
	block, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("snappy decode: %w", err)
	}

	data, err := snappy.Decode(nil, block)
	if err != nil {
		return nil, fmt.Errorf("snappy decode: %w", err)
	}

	return data, nil
}

// Name implements Codec.
func (SnappyCodec) Name() string { return CodecSnappy }

// Extension implements Codec.
func (SnappyCodec) Extension() string { return ".sz" }

var codecs = []Codec{RawCodec{}, LZ4Codec{}, ZstdCodec{}, SnappyCodec{}}

// CodecByName returns the codec registered under name.
func CodecByName(name string) (Codec, error) {
	for _, c := range codecs {
		if c.Name() == name {
			return c, nil
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
}

// CodecForPath picks the codec from the file extension. Paths without a
// known compression suffix are raw.
func CodecForPath(path string) Codec {
	for _, c := range codecs {
		if ext := c.Extension(); ext != "" && strings.HasSuffix(path, ext) {
			return c
		}
	}

	return RawCodec{}
}

// Compress encodes data with codec into a new buffer.
func Compress(codec Codec, data []byte) ([]byte, error) {
	var buf bytes.Buffer

	err := codec.Encode(&buf, data)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decompress reverses Compress.
func Decompress(codec Codec, data []byte) ([]byte, error) {
	return codec.Decode(bytes.NewReader(data))
}
