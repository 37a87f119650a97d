package block

// Op is a boolean set operator applied block-wise.
type Op uint8

const (
	// OpOr is set union.
	OpOr Op = iota
	// OpAnd is set intersection.
	OpAnd
	// OpXor is symmetric difference.
	OpXor
	// OpAndNot is difference (a AND NOT b).
	OpAndNot

	opCount
)

// Valid reports whether op is a known operator code.
func (op Op) Valid() bool { return op < opCount }

func (op Op) String() string {
	switch op {
	case OpOr:
		return "OR"
	case OpAnd:
		return "AND"
	case OpXor:
		return "XOR"
	case OpAndNot:
		return "AND-NOT"
	default:
		return "invalid"
	}
}

// apply combines two words.
func (op Op) apply(a, b uint64) uint64 {
	switch op {
	case OpOr:
		return a | b
	case OpAnd:
		return a & b
	case OpXor:
		return a ^ b
	default:
		return a &^ b
	}
}

// bit combines two single-bit values.
func (op Op) bit(a, b uint8) uint8 {
	return uint8(op.apply(uint64(a), uint64(b))) & 1
}

// Combine computes dst = dst op src in place. Representation fast paths:
// Zero/One operands never touch payload, Gap x Gap merges run lists linearly,
// and any pairing involving Bit expands the other operand for this block
// only. The result is left in whatever representation the fast path produced;
// Optimize is a separate pass.
func Combine(dst *Block, src *Block, op Op, a *Arena, s *Scratch) {
	// Implicit-representation short circuits.
	switch src.kind {
	case Zero:
		if op == OpAnd {
			dst.SetZero(a)
		}
		return
	case One:
		switch op {
		case OpOr:
			dst.SetOne(a)
		case OpAnd:
			// dst unchanged
		case OpXor:
			dst.Not(a)
		case OpAndNot:
			dst.SetZero(a)
		}
		return
	}
	switch dst.kind {
	case Zero:
		switch op {
		case OpOr, OpXor:
			dst.CopyFrom(src, a)
		case OpAnd, OpAndNot:
			// stays Zero
		}
		return
	case One:
		switch op {
		case OpOr:
			return
		case OpAnd:
			dst.CopyFrom(src, a)
		case OpXor, OpAndNot:
			dst.CopyFrom(src, a)
			dst.Not(a)
		}
		return
	}

	// Both operands carry payload.
	if dst.kind == Gap && src.kind == Gap {
		runs, first := gapMerge(dst.gap, dst.gapFirst, src.gap, src.gapFirst, op, s.gapBuf())
		if len(runs) > MaxGapLen {
			w := a.AllocWords()
			gapToWords(runs, first, w)
			dst.setBits(w, a)
			return
		}
		dst.setGap(runs, first, a)
		return
	}

	dw := dst.MutableWords(a)
	var sw []uint64
	if src.kind == Bit {
		sw = src.bits
	} else {
		sw = s.words()
		gapToWords(src.gap, src.gapFirst, sw)
	}
	combineWords(dw, sw, op, dst, a)
}

// combineWords applies op word-wise and canonicalizes uniform results.
func combineWords(dw, sw []uint64, op Op, dst *Block, a *Arena) {
	accOr := uint64(0)
	accAnd := ^uint64(0)
	for i := range dw {
		w := op.apply(dw[i], sw[i])
		dw[i] = w
		accOr |= w
		accAnd &= w
	}
	if accOr == 0 {
		dst.SetZero(a)
	} else if accAnd == ^uint64(0) {
		dst.SetOne(a)
	}
}
