package bitvec

import (
	"fmt"

	"github.com/hupe1980/bitvec/internal/block"
)

// Operator selects the boolean set operation of a combine call. The numeric
// codes are stable so callers can drive the engine from runtime values
// (query interpreters) via CombineOperation.
type Operator uint8

const (
	// OpOr is set union.
	OpOr Operator = iota
	// OpAnd is set intersection.
	OpAnd
	// OpXor is symmetric difference.
	OpXor
	// OpAndNot is set difference: target AND NOT source.
	OpAndNot
)

// Valid reports whether the operator code is known.
func (op Operator) Valid() bool { return op <= OpAndNot }

func (op Operator) String() string { return block.Op(op).String() }

// blockOp maps the public code onto the block-level dispatch. The enums are
// defined in the same order.
func (op Operator) blockOp() block.Op { return block.Op(op) }

// Or computes v = v OR other. The logical size grows to the larger operand.
func (v *Vector) Or(other *Vector) { v.combine(other, block.OpOr) }

// And computes v = v AND other. The logical size grows to the larger operand.
func (v *Vector) And(other *Vector) { v.combine(other, block.OpAnd) }

// Xor computes v = v XOR other. The logical size grows to the larger operand.
func (v *Vector) Xor(other *Vector) { v.combine(other, block.OpXor) }

// AndNot computes v = v AND NOT other. The logical size grows to the larger
// operand.
func (v *Vector) AndNot(other *Vector) { v.combine(other, block.OpAndNot) }

// CombineOperation applies the operator selected by a runtime opcode,
// with semantics identical to the typed methods. Unknown codes return
// ErrInvalidOperator.
func (v *Vector) CombineOperation(other *Vector, op Operator) error {
	if !op.Valid() {
		return fmt.Errorf("%w: opcode %d", ErrInvalidOperator, uint8(op))
	}
	v.combine(other, op.blockOp())
	return nil
}

// Combine applies target = target op source. It is the package-level form of
// CombineOperation.
func Combine(target, source *Vector, op Operator) error {
	return target.CombineOperation(source, op)
}

// combine pairs blocks by index, treating absent blocks as Zero, and
// dispatches to the per-representation fast paths. Result blocks are left in
// whatever representation the fast path produced; call Optimize for minimal
// storage.
func (v *Vector) combine(other *Vector, op block.Op) {
	if other == v {
		// Self-combine: x|x and x&x are identities, x^x and x&^x clear.
		if op == block.OpXor || op == block.OpAndNot {
			v.ClearAll()
		}
		return
	}
	if other.size > v.size {
		v.size = other.size
	}
	s := block.GetScratch()
	defer block.PutScratch(s)

	switch op {
	case block.OpOr, block.OpXor:
		// Only source blocks can introduce changes.
		for idx := range other.blocks {
			src := &other.blocks[idx]
			if src.IsZero() {
				continue
			}
			block.Combine(v.ensureBlock(idx), src, op, &v.arena, s)
		}
	default: // AND, AND-NOT
		// Only target blocks can hold survivors.
		for idx := range v.blocks {
			var src *block.Block
			if idx < len(other.blocks) {
				src = &other.blocks[idx]
			}
			if src == nil || src.IsZero() {
				if op == block.OpAnd {
					v.blocks[idx].SetZero(&v.arena)
				}
				continue
			}
			block.Combine(&v.blocks[idx], src, op, &v.arena, s)
		}
	}
}
