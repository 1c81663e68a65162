package req

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"

	"github.com/Sumatoshi-tech/reqsketch/pkg/safeconv"
)

// Binary layout constants.
const (
	serialVersion = 1
	familyID      = 17

	flagEmpty = 1 << 0
	flagHRA   = 1 << 1

	headerSize = 8
	levelSize  = 20 // lg weight, sections, coin, reserved, raw size, state, count
)

// Serialize encodes the sketch with serde writing the items. The encoding
// keeps every retained item and the compaction schedule of every level, so
// Deserialize reproduces a sketch that answers every query identically.
func (s *Sketch[T]) Serialize(serde Serializer[T]) []byte {
	var flags byte
	if s.IsEmpty() {
		flags |= flagEmpty
	}

	if s.hra {
		flags |= flagHRA
	}

	buf := make([]byte, 0, headerSize+width64+len(s.levels)*levelSize)
	buf = append(buf, serialVersion, familyID, flags, byte(len(s.levels)))
	buf = binary.LittleEndian.AppendUint16(buf, s.k)
	buf = append(buf, 0, 0)

	if s.IsEmpty() {
		return buf
	}

	buf = binary.LittleEndian.AppendUint64(buf, s.n)
	buf = serde.AppendItem(buf, s.minItem)
	buf = serde.AppendItem(buf, s.maxItem)

	for _, c := range s.levels {
		var coin byte
		if c.coin {
			coin = 1
		}

		buf = append(buf, c.lgWeight, byte(c.numSections), coin, 0)
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(c.sectionSizeRaw))
		buf = binary.LittleEndian.AppendUint64(buf, c.state)
		buf = binary.LittleEndian.AppendUint32(buf, safeconv.MustIntToUint32(len(c.items)))

		for _, item := range c.items {
			buf = serde.AppendItem(buf, item)
		}
	}

	return buf
}

// Deserialize decodes bytes produced by Serialize. cmp must order items the
// same way as the comparator of the serialized sketch. Malformed input
// yields ErrCorruptState.
func Deserialize[T any](data []byte, cmp Comparator[T], serde Serializer[T], opts ...Option) (*Sketch[T], error) {
	if len(data) < headerSize {
		return nil, corruptf("header needs %d bytes, got %d", headerSize, len(data))
	}

	if data[0] != serialVersion {
		return nil, corruptf("unknown serial version %d", data[0])
	}

	if data[1] != familyID {
		return nil, corruptf("unknown family id %d", data[1])
	}

	flags := data[2]
	numLevels := int(data[3])
	k := binary.LittleEndian.Uint16(data[4:])

	if k < minK || k > maxK || k&1 == 1 {
		return nil, corruptf("invalid k %d", k)
	}

	s, err := New(int(k), flags&flagHRA != 0, cmp, opts...)
	if err != nil {
		return nil, err
	}

	if flags&flagEmpty != 0 {
		if len(data) != headerSize {
			return nil, corruptf("%d trailing bytes after empty sketch", len(data)-headerSize)
		}

		return s, nil
	}

	if numLevels < 1 || numLevels > maxLevels {
		return nil, corruptf("invalid level count %d", numLevels)
	}

	d := decoder[T]{data: data, pos: headerSize, serde: serde, nan: s.nan}

	if err := d.readBody(s, numLevels); err != nil {
		return nil, err
	}

	if d.pos != len(data) {
		return nil, corruptf("%d trailing bytes", len(data)-d.pos)
	}

	return s, nil
}

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruptState, fmt.Sprintf(format, args...))
}

type decoder[T any] struct {
	serde Serializer[T]
	nan   NaNComparator[T]
	data  []byte
	pos   int
}

func (d *decoder[T]) need(n int) error {
	if len(d.data)-d.pos < n {
		return corruptf("truncated at offset %d: need %d bytes, %d left", d.pos, n, len(d.data)-d.pos)
	}

	return nil
}

func (d *decoder[T]) item() (T, error) {
	item, n, err := d.serde.ReadItem(d.data[d.pos:])
	if err != nil {
		return item, fmt.Errorf("%w: offset %d: %w", ErrCorruptState, d.pos, err)
	}

	if d.nan != nil && d.nan.IsNaN(item) {
		return item, corruptf("NaN item at offset %d", d.pos)
	}

	d.pos += n

	return item, nil
}

func (d *decoder[T]) readBody(s *Sketch[T], numLevels int) error {
	if err := d.need(width64); err != nil {
		return err
	}

	s.n = binary.LittleEndian.Uint64(d.data[d.pos:])
	d.pos += width64

	if s.n == 0 {
		return corruptf("non-empty sketch with n = 0")
	}

	var err error

	if s.minItem, err = d.item(); err != nil {
		return err
	}

	if s.maxItem, err = d.item(); err != nil {
		return err
	}

	if s.cmp.Less(s.maxItem, s.minItem) {
		return corruptf("min item above max item")
	}

	s.levels = s.levels[:0]

	var total uint64

	for h := range numLevels {
		c, err := d.level(s, h)
		if err != nil {
			return err
		}

		hi, lo := bits.Mul64(uint64(len(c.items)), c.weight())

		var carry uint64

		total, carry = bits.Add64(total, lo, 0)
		if hi != 0 || carry != 0 {
			return corruptf("level %d weight overflows", h)
		}

		s.levels = append(s.levels, c)
	}

	if total != s.n {
		return corruptf("levels hold weight %d, header declares n = %d", total, s.n)
	}

	return nil
}

func (d *decoder[T]) level(s *Sketch[T], h int) (*compactor[T], error) {
	if err := d.need(levelSize); err != nil {
		return nil, err
	}

	hdr := d.data[d.pos : d.pos+levelSize]
	d.pos += levelSize

	if int(hdr[0]) != h {
		return nil, corruptf("level %d declares lg weight %d", h, hdr[0])
	}

	c := newCompactor[T](hdr[0], s.hra, s.k)
	c.numSections = uint32(hdr[1])
	c.coin = hdr[2] == 1
	c.sectionSizeRaw = math.Float32frombits(binary.LittleEndian.Uint32(hdr[4:]))
	c.state = binary.LittleEndian.Uint64(hdr[8:])
	count := binary.LittleEndian.Uint32(hdr[16:])

	if c.numSections < initNumSections || c.sectionSizeRaw > float32(s.k) || !(c.sectionSizeRaw > 0) {
		return nil, corruptf("level %d has invalid sections (%d x %v)", h, c.numSections, c.sectionSizeRaw)
	}

	c.sectionSize = nearestEven(c.sectionSizeRaw)
	if c.sectionSize < minK {
		return nil, corruptf("level %d section size %d below minimum", h, c.sectionSize)
	}

	c.items = make([]T, 0, min(int(count), len(d.data)-d.pos))

	for i := range count {
		item, err := d.item()
		if err != nil {
			return nil, err
		}

		if s.cmp.Less(item, s.minItem) || s.cmp.Less(s.maxItem, item) {
			return nil, corruptf("level %d item %d outside [min, max]", h, i)
		}

		if i > 0 && s.cmp.Less(item, c.items[i-1]) {
			return nil, corruptf("level %d items out of order at %d", h, i)
		}

		c.items = append(c.items, item)
	}

	return c, nil
}
