package block

import "sort"

// Gap representation: an ascending list of inclusive run-end boundaries
// covering the whole block, with gapFirst giving the value of the first run.
// The last boundary is always 65535. Run i spans (runs[i-1]+1 .. runs[i])
// and holds value gapFirst XOR (i&1).

// gapTest reports the value at pos.
func gapTest(runs []uint16, first uint8, pos uint16) bool {
	idx := sort.Search(len(runs), func(i int) bool { return runs[i] >= pos })
	return first^uint8(idx&1) == 1
}

// gapCount returns the number of one bits in the run list.
func gapCount(runs []uint16, first uint8) int {
	n := 0
	v := first
	start := 0
	for _, e := range runs {
		if v == 1 {
			n += int(e) - start + 1
		}
		start = int(e) + 1
		v ^= 1
	}
	return n
}

// gapCountTo returns the number of one bits at positions below limit.
func gapCountTo(runs []uint16, first uint8, limit uint32) int {
	n := 0
	v := first
	start := uint32(0)
	for _, e := range runs {
		end := uint32(e)
		if start >= limit {
			break
		}
		if end >= limit {
			end = limit - 1
		}
		if v == 1 {
			n += int(end) - int(start) + 1
		}
		start = uint32(e) + 1
		v ^= 1
	}
	return n
}

// gapToWords expands a run list into a word array of WordsPerBlock words.
func gapToWords(runs []uint16, first uint8, words []uint64) {
	for i := range words {
		words[i] = 0
	}
	v := first
	start := uint32(0)
	for _, e := range runs {
		if v == 1 {
			fillRange(words, start, uint32(e))
		}
		start = uint32(e) + 1
		v ^= 1
	}
}

// fillRange sets bits [from..to] inclusive in words.
func fillRange(words []uint64, from, to uint32) {
	fw, lw := from/WordBits, to/WordBits
	headMask := ^uint64(0) << (from % WordBits)
	tailMask := ^uint64(0) >> (WordBits - 1 - to%WordBits)
	if fw == lw {
		words[fw] |= headMask & tailMask
		return
	}
	words[fw] |= headMask
	for w := fw + 1; w < lw; w++ {
		words[w] = ^uint64(0)
	}
	words[lw] |= tailMask
}

// wordsToGap converts a word array into a run list appended to buf. It fails
// (ok=false) when the boundary count would exceed maxLen, meaning the Bit
// representation is at least as small.
func wordsToGap(words []uint64, buf []uint16, maxLen int) (runs []uint16, first uint8, ok bool) {
	out := buf[:0]
	first = uint8(words[0] & 1)
	cur := first
	for wi := 0; wi < WordsPerBlock; wi++ {
		w := words[wi]
		var pat uint64
		if cur == 1 {
			pat = ^uint64(0)
		}
		if w == pat {
			continue
		}
		base := uint32(wi) * WordBits
		for b := uint32(0); b < WordBits; b++ {
			v := uint8(w >> b & 1)
			if v != cur {
				if len(out)+1 >= maxLen {
					return nil, 0, false
				}
				out = append(out, uint16(base+b-1))
				cur = v
			}
		}
	}
	out = append(out, lastPos)
	return out, first, true
}

// gapMerge combines two run lists with op in one linear pass over the merged
// boundary sequence, appending the result into buf. Both inputs must end at
// lastPos; so does the result. The result may be uniform (single boundary);
// callers canonicalize via setGap.
func gapMerge(a []uint16, aFirst uint8, b []uint16, bFirst uint8, op Op, buf []uint16) (runs []uint16, first uint8) {
	out := buf[:0]
	i, j := 0, 0
	va, vb := aFirst&1, bFirst&1
	cur := op.bit(va, vb)
	first = cur
	var lastEnd uint16
	for {
		ea, eb := a[i], b[j]
		e := ea
		if eb < e {
			e = eb
		}
		v := op.bit(va, vb)
		if v != cur {
			out = append(out, lastEnd)
			cur = v
		}
		lastEnd = e
		if e == lastPos {
			break
		}
		if ea == e {
			i++
			va ^= 1
		}
		if eb == e {
			j++
			vb ^= 1
		}
	}
	out = append(out, lastPos)
	return out, first
}
