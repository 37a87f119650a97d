// Package block implements the block codec of the compressed bitset engine.
//
// A block covers 2^16 bit positions and is stored as one of four
// representations, chosen by density:
//
//	Zero  implicit all-zeroes, no payload (the Block zero value)
//	One   implicit all-ones, no payload
//	Gap   run-length boundaries, for sparse or runny content
//	Bit   raw 1024-word array, for high-entropy content
//
// Blocks are closed tagged variants dispatched by value, not interfaces:
// the directory of a vector is a plain []Block, which keeps block headers
// cache-dense and free of per-block allocation.
//
// The package also provides the per-block combine dispatch used by the
// vector-level combine engine, the Scratch temp-block buffer, and the Arena
// that recycles payload storage within one vector.
package block
