// Package bitvec is a compressed bitset (succinct bitvector) engine.
//
// A Vector represents a large boolean set as a directory of 65536-bit
// blocks, each stored in the smallest of four representations: implicit
// all-zero, implicit all-one, run-length (gap) encoding, or a raw word
// array. Representation is purely a storage concern: queries, set algebra
// and serialization behave identically whichever encodings are in use.
//
// The package provides:
//
//   - Set algebra (OR, AND, XOR, AND-NOT) between two vectors, both as typed
//     methods and as an opcode-driven entry point for query interpreters.
//   - An Aggregator that combines N vectors in a single pass over block
//     index order, short-circuiting per block instead of folding pairwise.
//   - A portable serialized form, and an operation-apply deserializer that
//     combines a BLOB into a live vector while decoding, without
//     materializing the intermediate.
//   - Interop with RoaringBitmap for callers already invested in roaring.
//
// Vectors are synchronous and single-writer: no operation blocks or spawns
// goroutines, a vector must not be mutated concurrently, and distinct
// vectors can be read in parallel without coordination.
package bitvec
