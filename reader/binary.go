package reader

import (
	"bytes"
	"encoding/binary"
	"math"
)

// cursor reads fixed-width fields from a byte slice. The first short read
// is kept in err and every later read returns zero values.
type cursor struct {
	b     []byte
	off   int
	order binary.ByteOrder
	err   error
}

func newCursor(b []byte, order binary.ByteOrder) *cursor {
	return &cursor{b: b, order: order}
}

func (c *cursor) take(n int) []byte {
	if c.err != nil {
		return nil
	}
	if n < 0 || c.off+n > len(c.b) {
		c.err = malformed("truncated at offset %d reading %d bytes", c.off, n)
		return nil
	}
	out := c.b[c.off : c.off+n]
	c.off += n
	return out
}

func (c *cursor) skip(n int) { c.take(n) }

func (c *cursor) u8() uint8 {
	b := c.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (c *cursor) i8() int8 { return int8(c.u8()) }

func (c *cursor) u16() uint16 {
	b := c.take(2)
	if b == nil {
		return 0
	}
	return c.order.Uint16(b)
}

func (c *cursor) i16() int16 { return int16(c.u16()) }

func (c *cursor) u32() uint32 {
	b := c.take(4)
	if b == nil {
		return 0
	}
	return c.order.Uint32(b)
}

func (c *cursor) i32() int32 { return int32(c.u32()) }

func (c *cursor) u64() uint64 {
	b := c.take(8)
	if b == nil {
		return 0
	}
	return c.order.Uint64(b)
}

func (c *cursor) i64() int64 { return int64(c.u64()) }

func (c *cursor) f32() float32 { return math.Float32frombits(c.u32()) }

func (c *cursor) f64() float64 { return math.Float64frombits(c.u64()) }

// expect consumes lit or fails.
func (c *cursor) expect(lit string) {
	b := c.take(len(lit))
	if c.err == nil && string(b) != lit {
		c.err = malformed("expected %q at offset %d", lit, c.off-len(lit))
	}
}

func (c *cursor) remaining() int { return len(c.b) - c.off }

// cString returns b up to its first NUL byte.
func cString(b []byte) []byte {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return b[:i]
	}
	return b
}

// padded returns b with trailing spaces and NULs removed.
func padded(b []byte) []byte {
	return bytes.TrimRight(b, " \x00")
}
