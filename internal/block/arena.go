package block

// Arena recycles block payload storage for one vector. The directory holds
// blocks by value; their word arrays and run lists are drawn from here so
// that representation changes and Optimize passes reuse memory instead of
// churning the allocator.
//
// An Arena is owned exclusively by one vector and is not safe for concurrent
// use. A nil *Arena is valid and degrades to plain allocation.
type Arena struct {
	words [][]uint64
	gaps  [][]uint16
}

// maxRetain caps the free lists so one burst of conversions cannot pin
// arbitrary amounts of memory.
const maxRetain = 64

// AllocWords returns a zeroed word array of WordsPerBlock words.
func (a *Arena) AllocWords() []uint64 {
	if a != nil && len(a.words) > 0 {
		w := a.words[len(a.words)-1]
		a.words = a.words[:len(a.words)-1]
		for i := range w {
			w[i] = 0
		}
		return w
	}
	return make([]uint64, WordsPerBlock)
}

// FreeWords returns a word array to the free list.
func (a *Arena) FreeWords(w []uint64) {
	if a == nil || len(w) != WordsPerBlock || len(a.words) >= maxRetain {
		return
	}
	a.words = append(a.words, w)
}

// AllocGap returns a run-list slice of length n.
func (a *Arena) AllocGap(n int) []uint16 {
	if a != nil {
		for i := len(a.gaps) - 1; i >= 0; i-- {
			if cap(a.gaps[i]) >= n {
				g := a.gaps[i][:n]
				a.gaps = append(a.gaps[:i], a.gaps[i+1:]...)
				return g
			}
		}
	}
	c := n
	if c < 16 {
		c = 16
	}
	return make([]uint16, n, c)
}

// FreeGap returns a run list to the free list.
func (a *Arena) FreeGap(g []uint16) {
	if a == nil || cap(g) == 0 || len(a.gaps) >= maxRetain {
		return
	}
	a.gaps = append(a.gaps, g[:0])
}

// Release drops all retained storage.
func (a *Arena) Release() {
	if a == nil {
		return
	}
	a.words = nil
	a.gaps = nil
}
