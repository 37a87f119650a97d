package bitvec

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/bitvec/internal/block"
)

// BLOB layout, little-endian throughout:
//
//	magic "BV" | version byte | compression level byte
//	logical size (uvarint) | block span (uvarint) | record count (uvarint)
//	records, strictly ascending by block index:
//	    index delta (uvarint, relative to one past the previous record)
//	    tag byte: 1=One, 2=Gap (0x80 flags a leading one-run), 3=Bit
//	    Gap payload:  run count (uvarint), boundaries as ascending deltas
//	    Bit payload:  levels 0-2 raw 8 KiB words; level 3 lz4-packed,
//	                  level 4 zstd-packed, both length-prefixed with a
//	                  zero-length marker meaning "stored raw"
//
// Zero blocks are never emitted; One blocks cost the delta and tag only.
const (
	blobMagic0 = 'B'
	blobMagic1 = 'V'

	// Version is the serialization format version.
	Version = 1

	// MaxCompressionLevel is the highest supported compression level.
	MaxCompressionLevel = 4

	// DefaultCompressionLevel packs Bit payloads with zstd.
	DefaultCompressionLevel = 4
)

const (
	tagOne     = 1
	tagGap     = 2
	tagBit     = 3
	tagGapOnes = 0x80 // tag flag: first gap run holds ones
)

const rawBlockBytes = block.WordsPerBlock * 8

// Serializer encodes vectors into portable BLOBs. A Serializer is reusable
// across calls but not safe for concurrent use (it borrows one scratch
// buffer per call).
type Serializer struct {
	level  int
	logger *Logger
	zenc   *zstd.Encoder
}

// NewSerializer creates a serializer. By default it uses
// DefaultCompressionLevel and a noop logger.
func NewSerializer(optFns ...func(o *Options)) (*Serializer, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.CompressionLevel < 0 || opts.CompressionLevel > MaxCompressionLevel {
		return nil, fmt.Errorf("bitvec: compression level %d out of range [0,%d]", opts.CompressionLevel, MaxCompressionLevel)
	}
	s := &Serializer{
		level:  opts.CompressionLevel,
		logger: opts.Logger,
	}
	if s.logger == nil {
		s.logger = NoopLogger()
	}
	if s.level == 4 {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("bitvec: failed to create zstd encoder: %w", err)
		}
		s.zenc = enc
	}
	return s, nil
}

// Serialize encodes source into a fresh BLOB. Serialization is a
// size-respecting read: trailing bits beyond the logical size are masked on
// emit, so the BLOB always round-trips to the logical content.
func Serialize(source *Vector, optFns ...func(o *Options)) ([]byte, error) {
	s, err := NewSerializer(optFns...)
	if err != nil {
		return nil, err
	}
	return s.Serialize(source)
}

// Serialize encodes source into a BLOB.
func (s *Serializer) Serialize(source *Vector) ([]byte, error) {
	sc := block.GetScratch()
	defer block.PutScratch(sc)

	span := source.numBlocks()
	body := make([]byte, 0, 256)
	records := 0
	prevNext := 0

	var temp block.Block
	for idx := 0; idx < span && idx < len(source.blocks); idx++ {
		b := &source.blocks[idx]
		if b.IsZero() {
			continue
		}
		limit := source.blockLimit(idx)

		// Blocks that straddle the logical size, and Bit blocks that may be
		// non-canonical, are staged and re-encoded minimally. Full One/Gap
		// blocks serialize directly.
		eb := b
		if limit < block.BlockBits || b.Kind() == block.Bit {
			temp.CopyFrom(b, nil)
			if limit < block.BlockBits {
				temp.MaskTail(limit, nil, sc)
			}
			temp.Optimize(nil, sc)
			eb = &temp
		}
		if eb.IsZero() {
			continue
		}

		body = binary.AppendUvarint(body, uint64(idx-prevNext))
		prevNext = idx + 1
		records++

		var err error
		body, err = s.appendBlock(body, eb, sc)
		if err != nil {
			return nil, err
		}
	}
	temp.SetZero(nil)

	blob := make([]byte, 0, len(body)+32)
	blob = append(blob, blobMagic0, blobMagic1, Version, byte(s.level))
	blob = binary.AppendUvarint(blob, source.size)
	blob = binary.AppendUvarint(blob, uint64(span))
	blob = binary.AppendUvarint(blob, uint64(records))
	blob = append(blob, body...)

	s.logger.Debug("serialized vector",
		"size", source.size,
		"blocks", span,
		"records", records,
		"bytes", len(blob),
		"level", s.level,
	)
	return blob, nil
}

// appendBlock encodes one non-Zero block record payload (tag included).
func (s *Serializer) appendBlock(dst []byte, b *block.Block, sc *block.Scratch) ([]byte, error) {
	switch b.Kind() {
	case block.One:
		return append(dst, tagOne), nil
	case block.Gap:
		runs, first := b.GapRuns()
		tag := byte(tagGap)
		if first == 1 {
			tag |= tagGapOnes
		}
		dst = append(dst, tag)
		dst = binary.AppendUvarint(dst, uint64(len(runs)))
		prev := uint64(0)
		for i, r := range runs {
			if i == 0 {
				dst = binary.AppendUvarint(dst, uint64(r))
			} else {
				dst = binary.AppendUvarint(dst, uint64(r)-prev)
			}
			prev = uint64(r)
		}
		return dst, nil
	case block.Bit:
		dst = append(dst, tagBit)
		return s.appendBitPayload(dst, b.BitWords())
	default:
		return dst, fmt.Errorf("bitvec: cannot serialize %s block", b.Kind())
	}
}

// appendBitPayload writes a word array, packed according to the compression
// level.
func (s *Serializer) appendBitPayload(dst []byte, words []uint64) ([]byte, error) {
	raw := make([]byte, rawBlockBytes)
	for i, w := range words {
		binary.LittleEndian.PutUint64(raw[i*8:], w)
	}
	switch s.level {
	case 3:
		comp := make([]byte, lz4.CompressBlockBound(rawBlockBytes))
		n, err := lz4.CompressBlock(raw, comp, nil)
		if err != nil || n == 0 || n >= rawBlockBytes {
			// Incompressible payload is stored raw behind a zero marker.
			dst = binary.AppendUvarint(dst, 0)
			return append(dst, raw...), nil
		}
		dst = binary.AppendUvarint(dst, uint64(n))
		return append(dst, comp[:n]...), nil
	case 4:
		comp := s.zenc.EncodeAll(raw, nil)
		if len(comp) >= rawBlockBytes {
			dst = binary.AppendUvarint(dst, 0)
			return append(dst, raw...), nil
		}
		dst = binary.AppendUvarint(dst, uint64(len(comp)))
		return append(dst, comp...), nil
	default:
		return append(dst, raw...), nil
	}
}
