package block

import "sync"

// Scratch is the reusable temp-block buffer borrowed by combine, serialize
// and aggregation calls to avoid per-block allocation during Gap/Bit
// conversions. A Scratch belongs to exactly one in-flight call; it must not
// be shared by concurrently executing operations.
type Scratch struct {
	wordBuf  []uint64 // one expanded block
	wordBuf2 []uint64 // second operand expansion
	gap      []uint16 // gap merge output
	dec      []uint16 // decoded run staging
	mask     []uint16 // small single/range run masks
	zero     []uint16 // canonical all-zero run list
}

// NewScratch allocates a ready-to-use scratch buffer.
func NewScratch() *Scratch {
	return &Scratch{
		wordBuf:  make([]uint64, WordsPerBlock),
		wordBuf2: make([]uint64, WordsPerBlock),
		gap:      make([]uint16, 0, 64),
		mask:     make([]uint16, 0, 4),
		zero:     []uint16{lastPos},
	}
}

// words returns the scratch word array.
func (s *Scratch) words() []uint64 { return s.wordBuf }

// words2 returns the second scratch word array.
func (s *Scratch) words2() []uint64 { return s.wordBuf2 }

// gapBuf returns the gap output buffer, grown as needed by append.
func (s *Scratch) gapBuf() []uint16 {
	return s.gap[:0]
}

// GapDecodeBuf returns a run-list staging buffer of length n, reused across
// calls. The buffer is distinct from the merge output buffer so decoded runs
// can be installed with SetGap without aliasing.
func (s *Scratch) GapDecodeBuf(n int) []uint16 {
	if cap(s.dec) < n {
		s.dec = make([]uint16, n)
	}
	s.dec = s.dec[:n]
	return s.dec
}

// zeroGap returns the canonical run list of an all-zero block.
func (s *Scratch) zeroGap() ([]uint16, uint8) { return s.zero, 0 }

var scratchPool = sync.Pool{
	New: func() any { return NewScratch() },
}

// GetScratch borrows a scratch buffer from the package pool.
func GetScratch() *Scratch { return scratchPool.Get().(*Scratch) }

// PutScratch returns a scratch buffer to the pool.
func PutScratch(s *Scratch) {
	if s == nil {
		return
	}
	scratchPool.Put(s)
}
