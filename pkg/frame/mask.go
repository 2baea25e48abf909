package frame

// A Mask flags bad/saturated pixels. Flagged pixels are excluded from
// background fits and segmentation, but their values pass through
// cleaning untouched.
type Mask struct {
	stride int
	bits   []bool
}

func NewMask(w, h int) *Mask {
	return &Mask{stride: w, bits: make([]bool, w*h)}
}

func (m *Mask)Set(x, y int, bad bool) { m.bits[m.stride*y + x] = bad }
func (m *Mask)Dx() int                { return m.stride }
func (m *Mask)Dy() int                { return len(m.bits) / m.stride }

// Bad reports whether the pixel is flagged. A nil mask flags nothing.
func (m *Mask)Bad(x, y int) bool {
	if m == nil { return false }
	return m.bits[m.stride*y + x]
}

// Crop copies out the w x h region whose top-left corner is (x0, y0).
// Cropping a nil mask yields nil.
func (m *Mask)Crop(x0, y0, w, h int) *Mask {
	if m == nil { return nil }
	m2 := NewMask(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m2.Set(x, y, m.Bad(x0+x, y0+y))
		}
	}
	return m2
}

func (m *Mask)Count() int {
	if m == nil { return 0 }
	n := 0
	for _, b := range m.bits {
		if b { n++ }
	}
	return n
}
