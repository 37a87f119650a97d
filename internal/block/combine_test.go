package block

import (
	"math/rand"
	"testing"
)

// buildBlock constructs a block of the requested representation with random
// content.
func buildBlock(t *testing.T, kind Kind, r *rand.Rand, a *Arena, s *Scratch) *Block {
	t.Helper()
	var b Block
	switch kind {
	case Zero:
	case One:
		b.SetOne(a)
	case Gap:
		runs, first := randomRuns(r, 120)
		if len(runs) == 1 {
			// Avoid canonicalization surprises in the fixture.
			runs = []uint16{100, 200, lastPos}
			first = 0
		}
		b.SetGap(runs, first, a)
	case Bit:
		w := b.MutableWords(a)
		for i := range w {
			w[i] = r.Uint64()
		}
		// Keep it non-uniform.
		w[0] = 1
		w[1] = 0
	}
	return &b
}

func TestCombineAllPairings(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	var a Arena
	s := NewScratch()

	kinds := []Kind{Zero, One, Gap, Bit}
	ops := []Op{OpOr, OpAnd, OpXor, OpAndNot}

	ref := make([]uint64, WordsPerBlock)
	dstWords := make([]uint64, WordsPerBlock)
	srcWords := make([]uint64, WordsPerBlock)
	gotWords := make([]uint64, WordsPerBlock)

	for _, dk := range kinds {
		for _, sk := range kinds {
			for _, op := range ops {
				name := dk.String() + "_" + op.String() + "_" + sk.String()
				t.Run(name, func(t *testing.T) {
					dst := buildBlock(t, dk, r, &a, s)
					src := buildBlock(t, sk, r, &a, s)
					dst.expand(dstWords)
					src.expand(srcWords)
					for i := range ref {
						ref[i] = op.apply(dstWords[i], srcWords[i])
					}

					Combine(dst, src, op, &a, s)

					dst.expand(gotWords)
					for i := range ref {
						if gotWords[i] != ref[i] {
							t.Fatalf("word %d = %#x, want %#x (result kind %s)",
								i, gotWords[i], ref[i], dst.Kind())
						}
					}

					// Source must be untouched.
					src.expand(gotWords)
					for i := range srcWords {
						if gotWords[i] != srcWords[i] {
							t.Fatalf("source mutated at word %d", i)
						}
					}
				})
			}
		}
	}
}

func TestCombineGapMergeStaysGap(t *testing.T) {
	var a Arena
	s := NewScratch()

	var dst, src Block
	dst.SetRange(0, 99, &a, s)
	src.SetRange(200, 299, &a, s)
	Combine(&dst, &src, OpOr, &a, s)
	if dst.Kind() != Gap {
		t.Fatalf("gap OR gap kind = %s, want gap", dst.Kind())
	}
	if got := dst.Count(); got != 200 {
		t.Fatalf("Count = %d, want 200", got)
	}
}

func TestCombineCanonicalizesUniform(t *testing.T) {
	var a Arena
	s := NewScratch()

	// Bit XOR itself-equal content collapses to Zero.
	var dst, src Block
	w := dst.MutableWords(&a)
	for i := range w {
		w[i] = 0xdeadbeefcafebabe
	}
	src.CopyFrom(&dst, &a)
	Combine(&dst, &src, OpXor, &a, s)
	if dst.Kind() != Zero {
		t.Fatalf("x XOR x kind = %s, want zero", dst.Kind())
	}

	// Bit OR complement collapses to One.
	var d2, s2 Block
	w = d2.MutableWords(&a)
	for i := range w {
		w[i] = 0x00ff00ff00ff00ff
	}
	s2.CopyFrom(&d2, &a)
	s2.Not(&a)
	Combine(&d2, &s2, OpOr, &a, s)
	if d2.Kind() != One {
		t.Fatalf("x OR NOT x kind = %s, want one", d2.Kind())
	}
}

func TestArenaRecycling(t *testing.T) {
	var a Arena
	w := a.AllocWords()
	w[0] = 42
	a.FreeWords(w)
	w2 := a.AllocWords()
	if w2[0] != 0 {
		t.Fatal("recycled words must be zeroed")
	}

	g := a.AllocGap(8)
	a.FreeGap(g)
	g2 := a.AllocGap(4)
	if len(g2) != 4 {
		t.Fatalf("AllocGap len = %d, want 4", len(g2))
	}

	// A nil arena degrades to plain allocation.
	var nilArena *Arena
	if got := nilArena.AllocWords(); len(got) != WordsPerBlock {
		t.Fatal("nil arena AllocWords failed")
	}
	nilArena.FreeWords(nil)
}
