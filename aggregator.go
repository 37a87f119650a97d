package bitvec

import (
	"fmt"

	"github.com/hupe1980/bitvec/internal/block"
)

// Aggregator combines many vectors with one operator in a single pass over
// block-index order, instead of folding them pairwise through the combine
// engine. For each block index it gathers only the operands holding a
// non-Zero block there, so the cost is proportional to the union of touched
// blocks rather than the operand count:
//
//   - AND short-circuits a whole block to Zero as soon as any operand is
//     missing it.
//   - OR short-circuits a whole block to One as soon as any operand supplies
//     an all-ones block.
//
// The aggregator does not own its operands; they must outlive the combine
// call. It is not safe for concurrent use.
type Aggregator struct {
	args     []*Vector
	subArgs  []*Vector
	optimize bool
	scratch  *block.Scratch
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Add attaches a vector to the main operand group.
func (ag *Aggregator) Add(v *Vector) {
	ag.args = append(ag.args, v)
}

// AddSub attaches a vector to the subtraction group used by CombineAndSub.
func (ag *Aggregator) AddSub(v *Vector) {
	ag.subArgs = append(ag.subArgs, v)
}

// SetOptimization enables minimal-representation encoding of each produced
// block as it is finalized, instead of a separate Optimize pass over the
// result.
func (ag *Aggregator) SetOptimization() {
	ag.optimize = true
}

// Reset clears the operand groups and flags but keeps scratch storage, so
// the aggregator is immediately ready for the next operand list.
func (ag *Aggregator) Reset() {
	ag.args = ag.args[:0]
	ag.subArgs = ag.subArgs[:0]
	ag.optimize = false
}

func (ag *Aggregator) ensureScratch() *block.Scratch {
	if ag.scratch == nil {
		ag.scratch = block.NewScratch()
	}
	return ag.scratch
}

// prepare validates the target and resets it to the aggregate size.
func (ag *Aggregator) prepare(target *Vector) error {
	for _, v := range ag.args {
		if v == target {
			return fmt.Errorf("%w: target passed as operand", ErrAliasedTarget)
		}
	}
	for _, v := range ag.subArgs {
		if v == target {
			return fmt.Errorf("%w: target passed as operand", ErrAliasedTarget)
		}
	}
	size := uint64(0)
	for _, v := range ag.args {
		if v.size > size {
			size = v.size
		}
	}
	for _, v := range ag.subArgs {
		if v.size > size {
			size = v.size
		}
	}
	target.ClearAll()
	target.size = size
	return nil
}

// CombineOr computes target = OR over the main group.
func (ag *Aggregator) CombineOr(target *Vector) error {
	if err := ag.prepare(target); err != nil {
		return err
	}
	s := ag.ensureScratch()
	span := 0
	for _, v := range ag.args {
		if len(v.blocks) > span {
			span = len(v.blocks)
		}
	}
	for idx := 0; idx < span; idx++ {
		var dst *block.Block
		for _, v := range ag.args {
			if idx >= len(v.blocks) || v.blocks[idx].IsZero() {
				continue
			}
			src := &v.blocks[idx]
			if dst == nil {
				dst = target.ensureBlock(idx)
				dst.CopyFrom(src, &target.arena)
			} else {
				block.Combine(dst, src, block.OpOr, &target.arena, s)
			}
			if dst.Kind() == block.One {
				break
			}
		}
		if dst != nil && ag.optimize {
			dst.Optimize(&target.arena, s)
		}
	}
	return nil
}

// CombineAnd computes target = AND over the main group. With no operands the
// result is empty.
func (ag *Aggregator) CombineAnd(target *Vector) error {
	if err := ag.prepare(target); err != nil {
		return err
	}
	if len(ag.args) == 0 {
		return nil
	}
	ag.combineAndInto(target)
	return nil
}

// CombineAndSub computes target = AND(main group) AND NOT (OR over the
// subtraction group).
func (ag *Aggregator) CombineAndSub(target *Vector) error {
	if err := ag.prepare(target); err != nil {
		return err
	}
	if len(ag.args) == 0 {
		return nil
	}
	ag.combineAndInto(target)
	s := ag.ensureScratch()
	for idx := range target.blocks {
		dst := &target.blocks[idx]
		if dst.IsZero() {
			continue
		}
		for _, v := range ag.subArgs {
			if idx >= len(v.blocks) || v.blocks[idx].IsZero() {
				continue
			}
			block.Combine(dst, &v.blocks[idx], block.OpAndNot, &target.arena, s)
			if dst.IsZero() {
				break
			}
		}
		if !dst.IsZero() && ag.optimize {
			dst.Optimize(&target.arena, s)
		}
	}
	return nil
}

// combineAndInto folds the main group with AND. Only block indexes covered
// by every operand can survive.
func (ag *Aggregator) combineAndInto(target *Vector) {
	s := ag.ensureScratch()
	span := len(ag.args[0].blocks)
	for _, v := range ag.args[1:] {
		if len(v.blocks) < span {
			span = len(v.blocks)
		}
	}
	for idx := 0; idx < span; idx++ {
		missing := false
		for _, v := range ag.args {
			if v.blocks[idx].IsZero() {
				missing = true
				break
			}
		}
		if missing {
			continue
		}
		dst := target.ensureBlock(idx)
		dst.CopyFrom(&ag.args[0].blocks[idx], &target.arena)
		for _, v := range ag.args[1:] {
			block.Combine(dst, &v.blocks[idx], block.OpAnd, &target.arena, s)
			if dst.IsZero() {
				break
			}
		}
		if !dst.IsZero() && ag.optimize {
			dst.Optimize(&target.arena, s)
		}
	}
}
