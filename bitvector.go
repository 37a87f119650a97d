package bitvec

import (
	"github.com/hupe1980/bitvec/internal/block"
)

// BlockBits is the number of bit positions covered by one block.
const BlockBits = block.BlockBits

// Vector is a compressed bitset: an ordered directory of adaptively encoded
// blocks plus a logical size in bits. Absent directory entries are implicit
// all-zero blocks; a bit's global position is blockIndex*BlockBits + offset.
//
// Positions at or above Size are logically zero; Resize clears the vacated
// range on shrink, and all size-affecting reads (Count, Test, enumeration,
// serialization) mask the straddling block.
//
// A Vector owns its blocks exclusively and is not safe for concurrent
// mutation. Distinct vectors may be read concurrently without coordination.
type Vector struct {
	size   uint64
	blocks []block.Block
	arena  block.Arena
}

// New creates an empty vector with the given logical size in bits.
// No blocks are materialized.
func New(size uint64) *Vector {
	return &Vector{size: size}
}

// FromPositions creates a vector from an ascending list of set positions.
// The logical size becomes one past the highest position.
func FromPositions(positions ...uint64) *Vector {
	v := &Vector{}
	v.SetMany(positions, true)
	return v
}

// Size returns the logical bit capacity.
func (v *Vector) Size() uint64 { return v.size }

// Resize changes the logical size. Growing never materializes blocks.
// Shrinking clears the vacated range, so growing again later reads zeroes
// there; the emptied directory entries are reclaimed by Optimize.
func (v *Vector) Resize(size uint64) {
	if size < v.size && len(v.blocks) > 0 {
		s := block.GetScratch()
		defer block.PutScratch(s)
		n := int((size + BlockBits - 1) / BlockBits)
		if rem := uint32(size % BlockBits); rem != 0 && n <= len(v.blocks) {
			v.blocks[n-1].MaskTail(rem, &v.arena, s)
		}
		for i := n; i < len(v.blocks); i++ {
			v.blocks[i].SetZero(&v.arena)
		}
	}
	v.size = size
}

// numBlocks returns the number of block indexes spanned by the logical size.
func (v *Vector) numBlocks() int {
	return int((v.size + BlockBits - 1) / BlockBits)
}

// ensureBlock grows the directory to include block index idx and returns
// the block.
func (v *Vector) ensureBlock(idx int) *block.Block {
	if idx >= len(v.blocks) {
		if idx < cap(v.blocks) {
			v.blocks = v.blocks[:idx+1]
		} else {
			nb := make([]block.Block, idx+1, max(idx+1, 2*cap(v.blocks)))
			copy(nb, v.blocks)
			v.blocks = nb
		}
	}
	return &v.blocks[idx]
}

// blockAt returns the block holding pos, or nil when absent.
func (v *Vector) blockAt(pos uint64) *block.Block {
	idx := int(pos / BlockBits)
	if idx >= len(v.blocks) {
		return nil
	}
	return &v.blocks[idx]
}

// blockLimit returns the logical bit limit within block idx: BlockBits for
// blocks fully below Size, less for the straddling block, zero beyond it.
func (v *Vector) blockLimit(idx int) uint32 {
	start := uint64(idx) * BlockBits
	if start >= v.size {
		return 0
	}
	if v.size-start >= BlockBits {
		return BlockBits
	}
	return uint32(v.size - start)
}

// Set sets the bit at pos, growing the logical size when pos lies beyond it.
func (v *Vector) Set(pos uint64) {
	if pos >= v.size {
		v.size = pos + 1
	}
	s := block.GetScratch()
	defer block.PutScratch(s)
	v.ensureBlock(int(pos / BlockBits)).SetBit(uint32(pos%BlockBits), true, &v.arena, s)
}

// Clear clears the bit at pos. Clearing beyond the current size is a no-op.
func (v *Vector) Clear(pos uint64) {
	b := v.blockAt(pos)
	if b == nil || b.IsZero() {
		return
	}
	s := block.GetScratch()
	defer block.PutScratch(s)
	b.SetBit(uint32(pos%BlockBits), false, &v.arena, s)
}

// Test reports whether the bit at pos is set. Positions beyond the logical
// size read as zero.
func (v *Vector) Test(pos uint64) bool {
	if pos >= v.size {
		return false
	}
	b := v.blockAt(pos)
	if b == nil {
		return false
	}
	return b.Test(uint32(pos % BlockBits))
}

// Count returns the number of set bits below the logical size.
func (v *Vector) Count() int {
	n := 0
	for i := range v.blocks {
		limit := v.blockLimit(i)
		if limit == 0 {
			break
		}
		n += v.blocks[i].CountTo(limit)
	}
	return n
}

// IsEmpty reports whether no bit below the logical size is set.
func (v *Vector) IsEmpty() bool {
	_, ok := v.NextSet(0)
	return !ok
}

// SetMany sets positions from a bulk array. When sorted is true the input is
// asserted (not verified) to be ascending, enabling a single linear merge
// pass per block instead of per-element random access; violating the
// assertion yields unspecified results. Positions beyond the current size
// grow it.
func (v *Vector) SetMany(positions []uint64, sorted bool) {
	if len(positions) == 0 {
		return
	}
	s := block.GetScratch()
	defer block.PutScratch(s)

	if !sorted {
		for _, p := range positions {
			if p >= v.size {
				v.size = p + 1
			}
			v.ensureBlock(int(p/BlockBits)).SetBit(uint32(p%BlockBits), true, &v.arena, s)
		}
		return
	}

	if hi := positions[len(positions)-1]; hi >= v.size {
		v.size = hi + 1
	}
	for i := 0; i < len(positions); {
		idx := int(positions[i] / BlockBits)
		j := i + 1
		for j < len(positions) && int(positions[j]/BlockBits) == idx {
			j++
		}
		v.mergeSortedRun(idx, positions[i:j], s)
		i = j
	}
}

// mergeSortedRun sets a sorted run of positions that all fall in block idx.
// The run is staged as a word array and OR-ed into the block in one pass.
func (v *Vector) mergeSortedRun(idx int, run []uint64, s *block.Scratch) {
	b := v.ensureBlock(idx)
	staged := &block.Block{}
	w := v.arena.AllocWords()
	for _, p := range run {
		off := uint32(p % BlockBits)
		w[off/64] |= uint64(1) << (off % 64)
	}
	staged.AdoptWords(w, &v.arena)
	block.Combine(b, staged, block.OpOr, &v.arena, s)
	staged.SetZero(&v.arena)
}

// SetRange sets all bits in [from, to] inclusive, growing the size to cover
// to when needed.
func (v *Vector) SetRange(from, to uint64) {
	if from > to {
		return
	}
	if to >= v.size {
		v.size = to + 1
	}
	s := block.GetScratch()
	defer block.PutScratch(s)
	first := int(from / BlockBits)
	last := int(to / BlockBits)
	for idx := first; idx <= last; idx++ {
		lo := uint32(0)
		hi := uint32(BlockBits - 1)
		if idx == first {
			lo = uint32(from % BlockBits)
		}
		if idx == last {
			hi = uint32(to % BlockBits)
		}
		v.ensureBlock(idx).SetRange(lo, hi, &v.arena, s)
	}
}

// Invert flips every bit below the logical size.
func (v *Vector) Invert() {
	s := block.GetScratch()
	defer block.PutScratch(s)
	n := v.numBlocks()
	for idx := 0; idx < n; idx++ {
		b := v.ensureBlock(idx)
		b.Not(&v.arena)
		if limit := v.blockLimit(idx); limit < BlockBits {
			b.MaskTail(limit, &v.arena, s)
		}
	}
}

// Optimize converts every block to its minimal representation and reclaims
// storage that the logical size no longer reaches: blocks fully beyond Size
// are released and the straddling block is masked. Queries are unaffected;
// optimization is a pure storage transform. Intended after a batch of
// mutations, not after each one.
func (v *Vector) Optimize() {
	s := block.GetScratch()
	defer block.PutScratch(s)
	n := v.numBlocks()
	for i := range v.blocks {
		b := &v.blocks[i]
		limit := v.blockLimit(i)
		switch {
		case limit == 0:
			b.SetZero(&v.arena)
		case limit < BlockBits:
			b.MaskTail(limit, &v.arena, s)
			b.Optimize(&v.arena, s)
		default:
			b.Optimize(&v.arena, s)
		}
	}
	if n < len(v.blocks) {
		v.blocks = v.blocks[:n]
	}
	for len(v.blocks) > 0 && v.blocks[len(v.blocks)-1].IsZero() {
		v.blocks = v.blocks[:len(v.blocks)-1]
	}
}

// ClearAll releases every block, leaving the logical size unchanged.
func (v *Vector) ClearAll() {
	for i := range v.blocks {
		v.blocks[i].SetZero(&v.arena)
	}
	v.blocks = v.blocks[:0]
}

// Clone returns an independent deep copy.
func (v *Vector) Clone() *Vector {
	c := &Vector{size: v.size}
	if len(v.blocks) > 0 {
		c.blocks = make([]block.Block, len(v.blocks))
		for i := range v.blocks {
			c.blocks[i].CopyFrom(&v.blocks[i], &c.arena)
		}
	}
	return c
}

// Equal reports whether both vectors have the same logical size and the
// same set of positions, regardless of block representations.
func (v *Vector) Equal(other *Vector) bool {
	if v.size != other.size {
		return false
	}
	s := block.GetScratch()
	defer block.PutScratch(s)
	n := v.numBlocks()
	for idx := 0; idx < n; idx++ {
		limit := v.blockLimit(idx)
		var a, b *block.Block
		if idx < len(v.blocks) {
			a = &v.blocks[idx]
		}
		if idx < len(other.blocks) {
			b = &other.blocks[idx]
		}
		if !block.EqualTo(a, b, limit, s) {
			return false
		}
	}
	return true
}

// ForEach calls fn with each set position in ascending order, stopping early
// when fn returns false.
func (v *Vector) ForEach(fn func(pos uint64) bool) {
	for i := range v.blocks {
		limit := v.blockLimit(i)
		if limit == 0 {
			return
		}
		base := uint64(i) * BlockBits
		if !v.blocks[i].ForEach(limit, func(off uint32) bool {
			return fn(base + uint64(off))
		}) {
			return
		}
	}
}

// NextSet returns the first set position at or after pos.
func (v *Vector) NextSet(pos uint64) (uint64, bool) {
	if pos >= v.size {
		return 0, false
	}
	idx := int(pos / BlockBits)
	off := uint32(pos % BlockBits)
	for ; idx < len(v.blocks); idx++ {
		limit := v.blockLimit(idx)
		if limit == 0 {
			return 0, false
		}
		if p, ok := v.blocks[idx].NextSet(off, limit); ok {
			return uint64(idx)*BlockBits + uint64(p), true
		}
		off = 0
	}
	return 0, false
}

// ToSlice returns all set positions in ascending order.
func (v *Vector) ToSlice() []uint64 {
	out := make([]uint64, 0, v.Count())
	v.ForEach(func(pos uint64) bool {
		out = append(out, pos)
		return true
	})
	return out
}

// Stats describes the storage composition of a vector.
type Stats struct {
	Blocks       int // directory entries
	ZeroBlocks   int
	OneBlocks    int
	GapBlocks    int
	BitBlocks    int
	PayloadBytes int // gap and bit payload memory
}

// Stats reports the current storage composition. Representation is a
// storage concern only; queries never depend on it.
func (v *Vector) Stats() Stats {
	st := Stats{Blocks: len(v.blocks)}
	for i := range v.blocks {
		switch v.blocks[i].Kind() {
		case block.Zero:
			st.ZeroBlocks++
		case block.One:
			st.OneBlocks++
		case block.Gap:
			st.GapBlocks++
		case block.Bit:
			st.BitBlocks++
		}
		st.PayloadBytes += v.blocks[i].PayloadBytes()
	}
	return st
}
