package req

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Serializer encodes and decodes single items for Serialize and Deserialize.
type Serializer[T any] interface {
	// AppendItem appends the encoding of item to dst.
	AppendItem(dst []byte, item T) []byte
	// ReadItem decodes one item from the front of src and reports how many
	// bytes it consumed.
	ReadItem(src []byte) (T, int, error)
}

const (
	width32 = 4
	width64 = 8
)

func errShortItem(need, have int) error {
	return fmt.Errorf("%w: item needs %d bytes, %d left", ErrCorruptState, need, have)
}

// Float64Serializer encodes float64 items as 8 little-endian IEEE 754 bytes.
type Float64Serializer struct{}

// AppendItem implements Serializer.
func (Float64Serializer) AppendItem(dst []byte, item float64) []byte {
	return binary.LittleEndian.AppendUint64(dst, math.Float64bits(item))
}

// ReadItem implements Serializer.
func (Float64Serializer) ReadItem(src []byte) (float64, int, error) {
	if len(src) < width64 {
		return 0, 0, errShortItem(width64, len(src))
	}

	return math.Float64frombits(binary.LittleEndian.Uint64(src)), width64, nil
}

// Float32Serializer encodes float32 items as 4 little-endian IEEE 754 bytes.
type Float32Serializer struct{}

// AppendItem implements Serializer.
func (Float32Serializer) AppendItem(dst []byte, item float32) []byte {
	return binary.LittleEndian.AppendUint32(dst, math.Float32bits(item))
}

// ReadItem implements Serializer.
func (Float32Serializer) ReadItem(src []byte) (float32, int, error) {
	if len(src) < width32 {
		return 0, 0, errShortItem(width32, len(src))
	}

	return math.Float32frombits(binary.LittleEndian.Uint32(src)), width32, nil
}

// Int64Serializer encodes int64 items as 8 little-endian bytes.
type Int64Serializer struct{}

// AppendItem implements Serializer.
func (Int64Serializer) AppendItem(dst []byte, item int64) []byte {
	return binary.LittleEndian.AppendUint64(dst, uint64(item)) //nolint:gosec // bit pattern round-trips.
}

// ReadItem implements Serializer.
func (Int64Serializer) ReadItem(src []byte) (int64, int, error) {
	if len(src) < width64 {
		return 0, 0, errShortItem(width64, len(src))
	}

	return int64(binary.LittleEndian.Uint64(src)), width64, nil //nolint:gosec // bit pattern round-trips.
}

// Int32Serializer encodes int32 items as 4 little-endian bytes.
type Int32Serializer struct{}

// AppendItem implements Serializer.
func (Int32Serializer) AppendItem(dst []byte, item int32) []byte {
	return binary.LittleEndian.AppendUint32(dst, uint32(item)) //nolint:gosec // bit pattern round-trips.
}

// ReadItem implements Serializer.
func (Int32Serializer) ReadItem(src []byte) (int32, int, error) {
	if len(src) < width32 {
		return 0, 0, errShortItem(width32, len(src))
	}

	return int32(binary.LittleEndian.Uint32(src)), width32, nil //nolint:gosec // bit pattern round-trips.
}

// StringSerializer encodes strings as a little-endian uint32 byte length
// followed by the bytes.
type StringSerializer struct{}

// AppendItem implements Serializer.
func (StringSerializer) AppendItem(dst []byte, item string) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(item))) //nolint:gosec // strings over 4 GiB are not supported.

	return append(dst, item...)
}

// ReadItem implements Serializer.
func (StringSerializer) ReadItem(src []byte) (string, int, error) {
	if len(src) < width32 {
		return "", 0, errShortItem(width32, len(src))
	}

	size := int(binary.LittleEndian.Uint32(src))
	if len(src)-width32 < size {
		return "", 0, errShortItem(width32+size, len(src))
	}

	return string(src[width32 : width32+size]), width32 + size, nil
}
