package block

import (
	"math/bits"
)

const (
	// BlockBits is the number of bit positions covered by one block (2^16).
	BlockBits = 1 << 16

	// WordBits is the number of bits per word.
	WordBits = 64

	// WordsPerBlock is the number of uint64 words in a fully expanded block.
	WordsPerBlock = BlockBits / WordBits // 1024

	// lastPos is the highest position within a block.
	lastPos = BlockBits - 1

	// MaxGapLen is the run-boundary count at which a gap payload reaches the
	// raw word-array size (2 bytes per boundary vs 8 KiB of words). A gap
	// block that would grow past this is converted to Bit before mutation.
	MaxGapLen = WordsPerBlock * 4 // 4096
)

// Kind identifies the representation of a block.
type Kind uint8

const (
	// Zero is the implicit all-zeroes block. It is the zero value of Kind,
	// so an untouched directory entry is a Zero block with no payload.
	Zero Kind = iota
	// One is the implicit all-ones block.
	One
	// Gap is the run-length representation: ascending inclusive run-end
	// boundaries with a leading first-run value.
	Gap
	// Bit is the expanded representation: one bit per position across
	// WordsPerBlock words.
	Bit
)

func (k Kind) String() string {
	switch k {
	case Zero:
		return "zero"
	case One:
		return "one"
	case Gap:
		return "gap"
	case Bit:
		return "bit"
	default:
		return "unknown"
	}
}

// Block is a tagged variant over the four representations of one 65536-bit
// range. Blocks are held by value in a vector's directory; the zero value is
// a Zero block. Payload slices are owned exclusively by the enclosing vector
// and recycled through its Arena.
//
// Invariants:
//   - kind==Gap: gap is non-empty, strictly ascending, ends at 65535, and
//     describes a non-uniform block (uniform content canonicalizes to
//     Zero/One).
//   - kind==Bit: bits has exactly WordsPerBlock words.
type Block struct {
	kind     Kind
	gapFirst uint8
	gap      []uint16
	bits     []uint64
}

// Kind returns the current representation tag.
func (b *Block) Kind() Kind { return b.kind }

// IsZero reports whether the block holds no set bits under its tag.
// Note a Bit block may physically be all zeroes until canonicalized.
func (b *Block) IsZero() bool { return b.kind == Zero }

// GapRuns returns the run-boundary list and first-run value of a Gap block.
// Callers must not mutate the returned slice.
func (b *Block) GapRuns() ([]uint16, uint8) { return b.gap, b.gapFirst }

// BitWords returns the word array of a Bit block.
// Callers must not mutate the returned slice.
func (b *Block) BitWords() []uint64 { return b.bits }

// PayloadBytes returns the payload memory held by the block.
func (b *Block) PayloadBytes() int {
	switch b.kind {
	case Gap:
		return len(b.gap) * 2
	case Bit:
		return len(b.bits) * 8
	default:
		return 0
	}
}

// release returns payload storage to the arena and leaves the block Zero.
func (b *Block) release(a *Arena) {
	if b.bits != nil {
		a.FreeWords(b.bits)
		b.bits = nil
	}
	if b.gap != nil {
		a.FreeGap(b.gap)
		b.gap = nil
	}
	b.kind = Zero
	b.gapFirst = 0
}

// SetZero makes the block the implicit all-zeroes block.
func (b *Block) SetZero(a *Arena) { b.release(a) }

// SetOne makes the block the implicit all-ones block.
func (b *Block) SetOne(a *Arena) {
	b.release(a)
	b.kind = One
}

// setGap installs a gap payload, canonicalizing uniform run lists to the
// implicit representations. The runs slice is copied into arena storage.
func (b *Block) setGap(runs []uint16, first uint8, a *Arena) {
	if len(runs) <= 1 {
		if first == 0 {
			b.SetZero(a)
		} else {
			b.SetOne(a)
		}
		return
	}
	if b.bits != nil {
		a.FreeWords(b.bits)
		b.bits = nil
	}
	if cap(b.gap) >= len(runs) {
		b.gap = b.gap[:len(runs)]
	} else {
		if b.gap != nil {
			a.FreeGap(b.gap)
		}
		b.gap = a.AllocGap(len(runs))
	}
	copy(b.gap, runs)
	b.kind = Gap
	b.gapFirst = first & 1
}

// SetGap installs a run-boundary list as the block content. The list must be
// strictly ascending and end at 65535; uniform lists canonicalize to the
// implicit representations. The slice is copied.
func (b *Block) SetGap(runs []uint16, first uint8, a *Arena) {
	b.setGap(runs, first, a)
}

// setBits installs a word-array payload, taking ownership of words.
func (b *Block) setBits(words []uint64, a *Arena) {
	if b.gap != nil {
		a.FreeGap(b.gap)
		b.gap = nil
	}
	if b.bits != nil && &b.bits[0] != &words[0] {
		a.FreeWords(b.bits)
	}
	b.bits = words
	b.kind = Bit
	b.gapFirst = 0
}

// CopyFrom deep-copies src into b. Payloads are never shared between blocks.
func (b *Block) CopyFrom(src *Block, a *Arena) {
	switch src.kind {
	case Zero:
		b.SetZero(a)
	case One:
		b.SetOne(a)
	case Gap:
		b.setGap(src.gap, src.gapFirst, a)
	case Bit:
		w := a.AllocWords()
		copy(w, src.bits)
		b.setBits(w, a)
	}
}

// AdoptWords takes ownership of an arena-allocated word array as the block's
// Bit payload, canonicalizing uniform content.
func (b *Block) AdoptWords(words []uint64, a *Arena) {
	b.setBits(words, a)
	accOr := uint64(0)
	accAnd := ^uint64(0)
	for _, w := range words {
		accOr |= w
		accAnd &= w
	}
	if accOr == 0 {
		b.SetZero(a)
	} else if accAnd == ^uint64(0) {
		b.SetOne(a)
	}
}

// EqualTo reports whether blocks a and b hold the same bits below limit.
// A nil block reads as Zero. Representations are irrelevant.
func EqualTo(a, b *Block, limit uint32, s *Scratch) bool {
	if limit == 0 {
		return true
	}
	if limit > BlockBits {
		limit = BlockBits
	}
	aw := s.words()
	bw := s.words2()
	if a != nil {
		a.expand(aw)
	} else {
		for i := range aw {
			aw[i] = 0
		}
	}
	if b != nil {
		b.expand(bw)
	} else {
		for i := range bw {
			bw[i] = 0
		}
	}
	full := limit / WordBits
	for i := uint32(0); i < full; i++ {
		if aw[i] != bw[i] {
			return false
		}
	}
	if rem := limit % WordBits; rem != 0 {
		m := uint64(1)<<rem - 1
		if aw[full]&m != bw[full]&m {
			return false
		}
	}
	return true
}

// MutableWords converts the block to the Bit representation and returns its
// word array for in-place mutation.
func (b *Block) MutableWords(a *Arena) []uint64 {
	switch b.kind {
	case Bit:
		return b.bits
	case Zero:
		b.setBits(a.AllocWords(), a)
	case One:
		w := a.AllocWords()
		for i := range w {
			w[i] = ^uint64(0)
		}
		b.setBits(w, a)
	case Gap:
		w := a.AllocWords()
		gapToWords(b.gap, b.gapFirst, w)
		b.setBits(w, a)
	}
	return b.bits
}

// expand writes the block content into dst (len WordsPerBlock) without
// changing the block's representation.
func (b *Block) expand(dst []uint64) {
	switch b.kind {
	case Zero:
		for i := range dst {
			dst[i] = 0
		}
	case One:
		for i := range dst {
			dst[i] = ^uint64(0)
		}
	case Gap:
		gapToWords(b.gap, b.gapFirst, dst)
	case Bit:
		copy(dst, b.bits)
	}
}

// Test reports whether position pos (0..65535) is set.
func (b *Block) Test(pos uint32) bool {
	switch b.kind {
	case Zero:
		return false
	case One:
		return true
	case Gap:
		return gapTest(b.gap, b.gapFirst, uint16(pos))
	default:
		return b.bits[pos/WordBits]&(uint64(1)<<(pos%WordBits)) != 0
	}
}

// Count returns the number of set bits in the block.
func (b *Block) Count() int {
	switch b.kind {
	case Zero:
		return 0
	case One:
		return BlockBits
	case Gap:
		return gapCount(b.gap, b.gapFirst)
	default:
		n := 0
		for _, w := range b.bits {
			n += bits.OnesCount64(w)
		}
		return n
	}
}

// CountTo returns the number of set bits at positions below limit.
// limit is clamped to BlockBits.
func (b *Block) CountTo(limit uint32) int {
	if limit >= BlockBits {
		return b.Count()
	}
	if limit == 0 {
		return 0
	}
	switch b.kind {
	case Zero:
		return 0
	case One:
		return int(limit)
	case Gap:
		return gapCountTo(b.gap, b.gapFirst, limit)
	default:
		n := 0
		full := limit / WordBits
		for _, w := range b.bits[:full] {
			n += bits.OnesCount64(w)
		}
		if rem := limit % WordBits; rem != 0 {
			n += bits.OnesCount64(b.bits[full] & (uint64(1)<<rem - 1))
		}
		return n
	}
}

// SetBit sets or clears one position, adapting the representation.
// A Zero block materializes as a single-run Gap; a Gap block at the size
// threshold converts to Bit before mutating.
func (b *Block) SetBit(pos uint32, v bool, a *Arena, s *Scratch) {
	switch b.kind {
	case Zero:
		if !v {
			return
		}
		runs, first := singleRunGap(uint16(pos), 1, s)
		b.setGap(runs, first, a)
	case One:
		if v {
			return
		}
		runs, first := singleRunGap(uint16(pos), 0, s)
		b.setGap(runs, first, a)
	case Gap:
		if len(b.gap)+2 > MaxGapLen {
			b.MutableWords(a)
			b.SetBit(pos, v, a, s)
			return
		}
		mask, maskFirst := singleRunGap(uint16(pos), 1, s)
		op := OpOr
		if !v {
			op = OpAndNot
		}
		res, first := gapMerge(b.gap, b.gapFirst, mask, maskFirst, op, s.gapBuf())
		b.setGap(res, first, a)
	default:
		word := &b.bits[pos/WordBits]
		m := uint64(1) << (pos % WordBits)
		if v {
			*word |= m
		} else {
			*word &^= m
		}
	}
}

// SetRange sets positions [from..to] inclusive within the block.
func (b *Block) SetRange(from, to uint32, a *Arena, s *Scratch) {
	if from == 0 && to >= lastPos {
		b.SetOne(a)
		return
	}
	switch b.kind {
	case One:
		return
	case Zero, Gap:
		mask, maskFirst := rangeGap(uint16(from), uint16(to), s)
		var cur []uint16
		curFirst := uint8(0)
		if b.kind == Gap {
			cur, curFirst = b.gap, b.gapFirst
		} else {
			cur, curFirst = s.zeroGap()
		}
		res, first := gapMerge(cur, curFirst, mask, maskFirst, OpOr, s.gapBuf())
		if len(res) > MaxGapLen {
			w := a.AllocWords()
			gapToWords(res, first, w)
			b.setBits(w, a)
			return
		}
		b.setGap(res, first, a)
	default:
		fillRange(b.bits, from, to)
	}
}

// Not inverts the block in place.
func (b *Block) Not(a *Arena) {
	switch b.kind {
	case Zero:
		b.kind = One
	case One:
		b.kind = Zero
	case Gap:
		b.gapFirst ^= 1
	default:
		for i := range b.bits {
			b.bits[i] = ^b.bits[i]
		}
	}
}

// MaskTail clears all positions at and above limit (0 < limit < BlockBits).
// Used when a block straddles the vector's logical size.
func (b *Block) MaskTail(limit uint32, a *Arena, s *Scratch) {
	if limit >= BlockBits {
		return
	}
	if limit == 0 {
		b.SetZero(a)
		return
	}
	switch b.kind {
	case Zero:
		return
	case One:
		runs, first := rangeGap(0, uint16(limit-1), s)
		b.setGap(runs, first, a)
	case Gap:
		mask, maskFirst := rangeGap(0, uint16(limit-1), s)
		res, first := gapMerge(b.gap, b.gapFirst, mask, maskFirst, OpAnd, s.gapBuf())
		b.setGap(res, first, a)
	default:
		full := limit / WordBits
		if rem := limit % WordBits; rem != 0 {
			b.bits[full] &= uint64(1)<<rem - 1
			full++
		}
		for i := full; i < WordsPerBlock; i++ {
			b.bits[i] = 0
		}
	}
}

// Optimize converts the block to its minimal representation: uniform blocks
// collapse to Zero/One, Bit blocks whose run structure encodes smaller become
// Gap, oversized Gap blocks expand to Bit. Queries are unaffected.
func (b *Block) Optimize(a *Arena, s *Scratch) {
	switch b.kind {
	case Gap:
		if len(b.gap) <= 1 {
			// Defensive canonicalization; setGap should prevent this.
			b.setGap(b.gap, b.gapFirst, a)
			return
		}
		// A payload the same size as the raw words stays Gap.
		if len(b.gap)*2 > WordsPerBlock*8 {
			b.MutableWords(a)
		}
	case Bit:
		runs, first, ok := wordsToGap(b.bits, s.gapBuf(), MaxGapLen)
		if ok {
			b.setGap(runs, first, a)
		}
	}
}

// ForEach calls fn with each set position below limit, in ascending order.
// Iteration stops early when fn returns false; ForEach reports whether the
// full range was visited.
func (b *Block) ForEach(limit uint32, fn func(uint32) bool) bool {
	if limit > BlockBits {
		limit = BlockBits
	}
	switch b.kind {
	case Zero:
		return true
	case One:
		for p := uint32(0); p < limit; p++ {
			if !fn(p) {
				return false
			}
		}
		return true
	case Gap:
		start := uint32(0)
		v := b.gapFirst
		for _, e := range b.gap {
			end := uint32(e)
			if v == 1 {
				for p := start; p <= end; p++ {
					if p >= limit {
						return true
					}
					if !fn(p) {
						return false
					}
				}
			}
			if end+1 >= limit {
				return true
			}
			start = end + 1
			v ^= 1
		}
		return true
	default:
		fullWords := (limit + WordBits - 1) / WordBits
		for wi := uint32(0); wi < fullWords; wi++ {
			w := b.bits[wi]
			base := wi * WordBits
			for w != 0 {
				p := base + uint32(bits.TrailingZeros64(w))
				if p >= limit {
					return true
				}
				if !fn(p) {
					return false
				}
				w &= w - 1
			}
		}
		return true
	}
}

// NextSet returns the first set position >= pos and below limit.
func (b *Block) NextSet(pos, limit uint32) (uint32, bool) {
	if limit > BlockBits {
		limit = BlockBits
	}
	if pos >= limit {
		return 0, false
	}
	switch b.kind {
	case Zero:
		return 0, false
	case One:
		return pos, true
	case Gap:
		v := b.gapFirst
		start := uint32(0)
		for _, e := range b.gap {
			end := uint32(e)
			if v == 1 && end >= pos {
				p := pos
				if start > p {
					p = start
				}
				if p < limit {
					return p, true
				}
				return 0, false
			}
			start = end + 1
			v ^= 1
		}
		return 0, false
	default:
		wi := pos / WordBits
		w := b.bits[wi] >> (pos % WordBits)
		if w != 0 {
			p := pos + uint32(bits.TrailingZeros64(w))
			if p < limit {
				return p, true
			}
			return 0, false
		}
		for wi++; wi < WordsPerBlock; wi++ {
			if b.bits[wi] != 0 {
				p := wi*WordBits + uint32(bits.TrailingZeros64(b.bits[wi]))
				if p < limit {
					return p, true
				}
				return 0, false
			}
		}
		return 0, false
	}
}

// singleRunGap builds a mask gap holding value v at exactly pos into s.mask.
func singleRunGap(pos uint16, v uint8, s *Scratch) ([]uint16, uint8) {
	m := s.mask[:0]
	switch pos {
	case 0:
		m = append(m, 0, lastPos)
		return m, v
	case lastPos:
		m = append(m, lastPos-1, lastPos)
		return m, v ^ 1
	default:
		m = append(m, pos-1, pos, lastPos)
		return m, v ^ 1
	}
}

// rangeGap builds a mask gap holding ones over [from..to] into s.mask.
func rangeGap(from, to uint16, s *Scratch) ([]uint16, uint8) {
	m := s.mask[:0]
	if from == 0 {
		if to == lastPos {
			m = append(m, lastPos)
			return m, 1
		}
		m = append(m, to, lastPos)
		return m, 1
	}
	if to == lastPos {
		m = append(m, from-1, lastPos)
		return m, 0
	}
	m = append(m, from-1, to, lastPos)
	return m, 0
}
