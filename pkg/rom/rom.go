// Package rom holds the fixed-capacity image buffer that the code generator
// emits into, and the hex text format the finished image is stored in.
package rom

import "errors"

// Capacity is the number of usable bytes in an image (32 KiB).
const Capacity = 0x10000 / 2

// ErrImageFull is returned when an emission would pass Capacity.
var ErrImageFull = errors.New("image exceeds 32 KiB capacity")

// Rom is a fixed-size byte buffer with a write cursor.
// The cursor only moves forward, except for Seek during backpatching.
type Rom struct {
	data [Capacity]byte
	size uint16 // write cursor
	end  uint16 // high-water mark of written bytes
}

func New() *Rom {
	return &Rom{}
}

// Size returns the current cursor position.
func (r *Rom) Size() uint16 {
	return r.size
}

// Emit writes one byte at the cursor and advances it.
func (r *Rom) Emit(b byte) error {
	if int(r.size) >= Capacity {
		return ErrImageFull
	}
	r.data[r.size] = b
	r.size++
	if r.size > r.end {
		r.end = r.size
	}
	return nil
}

// Emit16 writes v big-endian.
func (r *Rom) Emit16(v uint16) error {
	if int(r.size)+2 > Capacity {
		return ErrImageFull
	}
	r.Emit(byte(v >> 8))
	return r.Emit(byte(v))
}

// Skip advances the cursor over n placeholder bytes, writing zeros.
func (r *Rom) Skip(n int) error {
	for i := 0; i < n; i++ {
		if err := r.Emit(0); err != nil {
			return err
		}
	}
	return nil
}

// Seek moves the cursor to addr and returns the previous position.
func (r *Rom) Seek(addr uint16) uint16 {
	prev := r.size
	r.size = addr
	return prev
}

// Patch16 writes v at addr without disturbing the cursor.
// The seek, the two-byte write and the restore are never interleaved with
// other emission.
func (r *Rom) Patch16(addr uint16, v uint16) error {
	if int(addr)+2 > int(r.end) {
		return ErrImageFull
	}
	prev := r.Seek(addr)
	err := r.Emit16(v)
	r.Seek(prev)
	return err
}

// At returns the byte at addr.
func (r *Rom) At(addr uint16) byte {
	if int(addr) >= Capacity {
		return 0
	}
	return r.data[addr]
}

// Bytes returns a copy of the filled portion of the image.
func (r *Rom) Bytes() []byte {
	out := make([]byte, r.end)
	copy(out, r.data[:r.end])
	return out
}
