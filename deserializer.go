package bitvec

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/bitvec/internal/block"
)

// blobReader tracks a decode position so every failure can point at its
// offset.
type blobReader struct {
	data []byte
	pos  int
}

func (r *blobReader) errorf(format string, args ...any) error {
	return &DecodeError{Offset: r.pos, Msg: fmt.Sprintf(format, args...)}
}

// wrapf is errorf with an underlying error preserved for errors.Unwrap.
func (r *blobReader) wrapf(cause error, format string, args ...any) error {
	return &DecodeError{Offset: r.pos, Msg: fmt.Sprintf(format, args...), cause: cause}
}

func (r *blobReader) readByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, r.errorf("unexpected end of BLOB")
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *blobReader) readUvarint() (uint64, error) {
	v, n := binary.Uvarint(r.data[r.pos:])
	if n <= 0 {
		return 0, r.errorf("malformed varint")
	}
	r.pos += n
	return v, nil
}

func (r *blobReader) readBytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, r.errorf("truncated payload: need %d bytes, have %d", n, len(r.data)-r.pos)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// blobHeader is the decoded fixed part of a BLOB.
type blobHeader struct {
	size    uint64
	span    int
	records int
	level   int
}

func decodeHeader(r *blobReader) (blobHeader, error) {
	var h blobHeader
	m0, err := r.readByte()
	if err != nil {
		return h, err
	}
	m1, err := r.readByte()
	if err != nil {
		return h, err
	}
	if m0 != blobMagic0 || m1 != blobMagic1 {
		return h, &DecodeError{Offset: 0, Msg: "bad magic"}
	}
	ver, err := r.readByte()
	if err != nil {
		return h, err
	}
	if ver != Version {
		return h, &DecodeError{Offset: 2, Msg: fmt.Sprintf("unsupported format version %d", ver)}
	}
	lvl, err := r.readByte()
	if err != nil {
		return h, err
	}
	if int(lvl) > MaxCompressionLevel {
		return h, &DecodeError{Offset: 3, Msg: fmt.Sprintf("invalid compression level %d", lvl)}
	}
	h.level = int(lvl)
	if h.size, err = r.readUvarint(); err != nil {
		return h, err
	}
	span, err := r.readUvarint()
	if err != nil {
		return h, err
	}
	records, err := r.readUvarint()
	if err != nil {
		return h, err
	}
	want := uint64((h.size + BlockBits - 1) / BlockBits)
	if span != want {
		return h, r.errorf("block span %d does not match size %d", span, h.size)
	}
	if records > span {
		return h, r.errorf("record count %d exceeds block span %d", records, span)
	}
	h.span = int(span)
	h.records = int(records)
	return h, nil
}

// blobDecoder decodes block records.
type blobDecoder struct {
	r    *blobReader
	hdr  blobHeader
	zdec *zstd.Decoder
	raw  []byte
}

func newBlobDecoder(blob []byte) (*blobDecoder, error) {
	r := &blobReader{data: blob}
	hdr, err := decodeHeader(r)
	if err != nil {
		return nil, err
	}
	d := &blobDecoder{r: r, hdr: hdr}
	if hdr.level == 4 {
		zdec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("bitvec: failed to create zstd decoder: %w", err)
		}
		d.zdec = zdec
	}
	return d, nil
}

func (d *blobDecoder) close() {
	if d.zdec != nil {
		d.zdec.Close()
	}
}

// nextIndex decodes the next record's block index.
func (d *blobDecoder) nextIndex(prevNext int) (int, error) {
	delta, err := d.r.readUvarint()
	if err != nil {
		return 0, err
	}
	idx := prevNext + int(delta)
	if idx >= d.hdr.span {
		return 0, d.r.errorf("block index %d past declared block count %d", idx, d.hdr.span)
	}
	return idx, nil
}

// decodeBlock decodes one record body into b.
func (d *blobDecoder) decodeBlock(b *block.Block, a *block.Arena, sc *block.Scratch) error {
	tag, err := d.r.readByte()
	if err != nil {
		return err
	}
	switch tag &^ tagGapOnes {
	case tagOne:
		b.SetOne(a)
		return nil
	case tagGap:
		first := uint8(0)
		if tag&tagGapOnes != 0 {
			first = 1
		}
		runs, err := d.decodeGapRuns(sc)
		if err != nil {
			return err
		}
		b.SetGap(runs, first, a)
		return nil
	case tagBit:
		raw, err := d.decodeBitPayload()
		if err != nil {
			return err
		}
		w := a.AllocWords()
		for i := range w {
			w[i] = binary.LittleEndian.Uint64(raw[i*8:])
		}
		b.AdoptWords(w, a)
		return nil
	default:
		return d.r.errorf("unknown block tag %d", tag)
	}
}

// skipBlock consumes one record body without materializing it.
func (d *blobDecoder) skipBlock(sc *block.Scratch) error {
	var sink block.Block
	if err := d.decodeBlock(&sink, nil, sc); err != nil {
		return err
	}
	sink.SetZero(nil)
	return nil
}

func (d *blobDecoder) decodeGapRuns(sc *block.Scratch) ([]uint16, error) {
	count, err := d.r.readUvarint()
	if err != nil {
		return nil, err
	}
	if count < 2 || count > block.BlockBits {
		return nil, d.r.errorf("invalid gap run count %d", count)
	}
	runs := sc.GapDecodeBuf(int(count))
	prev := int64(-1)
	for i := 0; i < int(count); i++ {
		dv, err := d.r.readUvarint()
		if err != nil {
			return nil, err
		}
		var bnd int64
		if i == 0 {
			bnd = int64(dv)
		} else {
			if dv == 0 {
				return nil, d.r.errorf("non-ascending gap boundary")
			}
			bnd = prev + int64(dv)
		}
		if bnd >= block.BlockBits {
			return nil, d.r.errorf("gap boundary %d out of range", bnd)
		}
		runs[i] = uint16(bnd)
		prev = bnd
	}
	if runs[count-1] != block.BlockBits-1 {
		return nil, d.r.errorf("gap run list does not cover the block")
	}
	return runs, nil
}

func (d *blobDecoder) decodeBitPayload() ([]byte, error) {
	switch d.hdr.level {
	case 3, 4:
		n, err := d.r.readUvarint()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return d.r.readBytes(rawBlockBytes)
		}
		if n > rawBlockBytes {
			return nil, d.r.errorf("compressed payload length %d exceeds raw block size", n)
		}
		comp, err := d.r.readBytes(int(n))
		if err != nil {
			return nil, err
		}
		if d.raw == nil {
			d.raw = make([]byte, rawBlockBytes)
		}
		if d.hdr.level == 3 {
			m, err := lz4.UncompressBlock(comp, d.raw)
			if err != nil {
				return nil, d.r.wrapf(err, "corrupt lz4 payload")
			}
			if m != rawBlockBytes {
				return nil, d.r.errorf("lz4 payload decoded to %d bytes, want %d", m, rawBlockBytes)
			}
			return d.raw, nil
		}
		out, err := d.zdec.DecodeAll(comp, d.raw[:0])
		if err != nil {
			return nil, d.r.wrapf(err, "corrupt zstd payload")
		}
		if len(out) != rawBlockBytes {
			return nil, d.r.errorf("zstd payload decoded to %d bytes, want %d", len(out), rawBlockBytes)
		}
		return out, nil
	default:
		return d.r.readBytes(rawBlockBytes)
	}
}

// Deserialize reconstructs a vector from a BLOB: target is cleared, its size
// taken from the header, and block records replayed directly. On error the
// target must be discarded; it is never left pointing at shared storage, but
// its content is unspecified.
func Deserialize(target *Vector, blob []byte) error {
	d, err := newBlobDecoder(blob)
	if err != nil {
		return err
	}
	defer d.close()

	sc := block.GetScratch()
	defer block.PutScratch(sc)

	target.ClearAll()
	target.size = d.hdr.size

	prevNext := 0
	for rec := 0; rec < d.hdr.records; rec++ {
		idx, err := d.nextIndex(prevNext)
		if err != nil {
			return err
		}
		prevNext = idx + 1
		if err := d.decodeBlock(target.ensureBlock(idx), &target.arena, sc); err != nil {
			return err
		}
	}
	if d.r.pos != len(d.r.data) {
		return d.r.errorf("trailing data after last record")
	}
	return nil
}

// DeserializeOperation decodes a BLOB and combines each block into target on
// the fly, without materializing the decoded vector. The result is exactly
// what Deserialize into a temporary followed by Combine(target, temporary,
// op) would produce. On error the target must be discarded.
func DeserializeOperation(target *Vector, blob []byte, op Operator) error {
	if !op.Valid() {
		return fmt.Errorf("%w: opcode %d", ErrInvalidOperator, uint8(op))
	}
	d, err := newBlobDecoder(blob)
	if err != nil {
		return err
	}
	defer d.close()

	sc := block.GetScratch()
	defer block.PutScratch(sc)

	if d.hdr.size > target.size {
		target.size = d.hdr.size
	}
	bop := op.blockOp()

	var staged block.Block
	defer staged.SetZero(nil)

	prevNext := 0
	for rec := 0; rec < d.hdr.records; rec++ {
		idx, err := d.nextIndex(prevNext)
		if err != nil {
			return err
		}

		switch bop {
		case block.OpAnd:
			// Target blocks with no matching record intersect with Zero.
			for z := prevNext; z < idx && z < len(target.blocks); z++ {
				target.blocks[z].SetZero(&target.arena)
			}
		case block.OpAndNot, block.OpXor:
			// Unmatched target blocks are unchanged.
		}
		prevNext = idx + 1

		// Records with no live counterpart in target only matter for OR/XOR.
		if (bop == block.OpAnd || bop == block.OpAndNot) &&
			(idx >= len(target.blocks) || target.blocks[idx].IsZero()) {
			if err := d.skipBlock(sc); err != nil {
				return err
			}
			continue
		}

		if err := d.decodeBlock(&staged, nil, sc); err != nil {
			return err
		}
		block.Combine(target.ensureBlock(idx), &staged, bop, &target.arena, sc)
	}
	if bop == block.OpAnd {
		for z := prevNext; z < len(target.blocks); z++ {
			target.blocks[z].SetZero(&target.arena)
		}
	}
	if d.r.pos != len(d.r.data) {
		return d.r.errorf("trailing data after last record")
	}
	return nil
}
