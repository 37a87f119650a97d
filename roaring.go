package bitvec

import (
	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// ToRoaring converts the vector into a 64-bit roaring bitmap holding the
// same set of positions. The logical size is not representable in roaring
// and is dropped.
func (v *Vector) ToRoaring() *roaring64.Bitmap {
	rb := roaring64.New()
	buf := make([]uint64, 0, 4096)
	v.ForEach(func(pos uint64) bool {
		buf = append(buf, pos)
		if len(buf) == cap(buf) {
			rb.AddMany(buf)
			buf = buf[:0]
		}
		return true
	})
	if len(buf) > 0 {
		rb.AddMany(buf)
	}
	return rb
}

// FromRoaring builds a vector from a roaring bitmap. The logical size is one
// past the highest position.
func FromRoaring(rb *roaring64.Bitmap) *Vector {
	v := &Vector{}
	if rb == nil || rb.IsEmpty() {
		return v
	}
	it := rb.Iterator()
	buf := make([]uint64, 0, 4096)
	for it.HasNext() {
		buf = append(buf, it.Next())
		if len(buf) == cap(buf) {
			v.SetMany(buf, true)
			buf = buf[:0]
		}
	}
	if len(buf) > 0 {
		v.SetMany(buf, true)
	}
	return v
}
