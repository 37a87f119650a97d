package block

import (
	"math/rand"
	"testing"
)

// randomRuns builds a random valid run list: ascending boundaries ending at
// lastPos.
func randomRuns(r *rand.Rand, maxRuns int) ([]uint16, uint8) {
	first := uint8(r.Intn(2))
	runs := make([]uint16, 0, maxRuns)
	pos := -1
	for len(runs) < maxRuns-1 {
		pos += 1 + r.Intn(300)
		if pos >= lastPos {
			break
		}
		runs = append(runs, uint16(pos))
	}
	runs = append(runs, lastPos)
	return runs, first
}

func expandRuns(runs []uint16, first uint8) []uint64 {
	words := make([]uint64, WordsPerBlock)
	gapToWords(runs, first, words)
	return words
}

func TestGapToWordsRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		runs, first := randomRuns(r, 200)
		words := expandRuns(runs, first)

		got, gotFirst, ok := wordsToGap(words, nil, MaxGapLen)
		if !ok {
			t.Fatalf("wordsToGap failed for %d runs", len(runs))
		}
		back := expandRuns(got, gotFirst)
		for w := range words {
			if words[w] != back[w] {
				t.Fatalf("round trip mismatch at word %d", w)
			}
		}
	}
}

func TestWordsToGapThreshold(t *testing.T) {
	// Alternating bits produce 65536 runs, far beyond any useful gap size.
	words := make([]uint64, WordsPerBlock)
	for i := range words {
		words[i] = 0x5555555555555555
	}
	if _, _, ok := wordsToGap(words, nil, MaxGapLen); ok {
		t.Fatal("expected threshold failure for alternating bits")
	}
}

func TestGapTestCount(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for i := 0; i < 20; i++ {
		runs, first := randomRuns(r, 100)
		words := expandRuns(runs, first)

		want := 0
		for _, w := range words {
			for b := 0; b < WordBits; b++ {
				if w>>b&1 == 1 {
					want++
				}
			}
		}
		if got := gapCount(runs, first); got != want {
			t.Fatalf("gapCount = %d, want %d", got, want)
		}

		for j := 0; j < 200; j++ {
			pos := uint16(r.Intn(BlockBits))
			want := words[pos/WordBits]>>(pos%WordBits)&1 == 1
			if got := gapTest(runs, first, pos); got != want {
				t.Fatalf("gapTest(%d) = %v, want %v", pos, got, want)
			}
		}

		limit := uint32(r.Intn(BlockBits) + 1)
		want = 0
		for p := uint32(0); p < limit; p++ {
			if words[p/WordBits]>>(p%WordBits)&1 == 1 {
				want++
			}
		}
		if got := gapCountTo(runs, first, limit); got != want {
			t.Fatalf("gapCountTo(%d) = %d, want %d", limit, got, want)
		}
	}
}

func TestGapMerge(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	ops := []Op{OpOr, OpAnd, OpXor, OpAndNot}
	for i := 0; i < 40; i++ {
		a, aFirst := randomRuns(r, 150)
		b, bFirst := randomRuns(r, 150)
		aw := expandRuns(a, aFirst)
		bw := expandRuns(b, bFirst)

		for _, op := range ops {
			t.Run(op.String(), func(t *testing.T) {
				res, first := gapMerge(a, aFirst, b, bFirst, op, nil)
				got := expandRuns(res, first)
				for w := range aw {
					want := op.apply(aw[w], bw[w])
					if got[w] != want {
						t.Fatalf("%s merge mismatch at word %d", op, w)
					}
				}
				// Boundaries must be strictly ascending and cover the block.
				for j := 1; j < len(res); j++ {
					if res[j] <= res[j-1] {
						t.Fatalf("non-ascending boundary at %d", j)
					}
				}
				if res[len(res)-1] != lastPos {
					t.Fatal("run list does not end at block boundary")
				}
			})
		}
	}
}

func TestFillRange(t *testing.T) {
	tests := []struct {
		name     string
		from, to uint32
	}{
		{"single bit", 7, 7},
		{"within word", 3, 40},
		{"word boundary", 63, 64},
		{"multi word", 10, 300},
		{"full block", 0, lastPos},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			words := make([]uint64, WordsPerBlock)
			fillRange(words, tt.from, tt.to)
			for p := uint32(0); p < BlockBits; p++ {
				want := p >= tt.from && p <= tt.to
				got := words[p/WordBits]>>(p%WordBits)&1 == 1
				if got != want {
					t.Fatalf("bit %d = %v, want %v", p, got, want)
				}
			}
		})
	}
}
