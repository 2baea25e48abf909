package frame

import "fmt"

// Corner identifies a corner of the pixel grid, in array coordinates
// (x grows right, y grows down).
type Corner int

const (
	CornerNone Corner = iota
	CornerTopLeft
	CornerTopRight
	CornerBottomLeft
	CornerBottomRight
)

func (c Corner)String() string {
	switch c {
	case CornerTopLeft:     return "top-left"
	case CornerTopRight:    return "top-right"
	case CornerBottomLeft:  return "bottom-left"
	case CornerBottomRight: return "bottom-right"
	}
	return "none"
}

// XY returns the corner's pixel coordinates on a w x h grid.
func (c Corner)XY(w, h int) (int, int) {
	switch c {
	case CornerTopRight:    return w - 1, 0
	case CornerBottomLeft:  return 0, h - 1
	case CornerBottomRight: return w - 1, h - 1
	}
	return 0, 0
}

// Opposite is used as the origin for radial glow profiles: the glow
// sits at large radius measured from the corner diagonally across.
func (c Corner)Opposite() Corner {
	switch c {
	case CornerTopLeft:     return CornerBottomRight
	case CornerTopRight:    return CornerBottomLeft
	case CornerBottomLeft:  return CornerTopRight
	case CornerBottomRight: return CornerTopLeft
	}
	return CornerNone
}

// GlowCorner maps a CCD number to the corner its readout glow sits
// in. The four CCDs of one camera are mounted in a 2x2 mosaic, so the
// artifact corner follows the CCD's position in the mosaic.
func GlowCorner(ccd int) (Corner, error) {
	switch ccd {
	case 1: return CornerTopLeft, nil
	case 2: return CornerTopRight, nil
	case 3: return CornerBottomLeft, nil
	case 4: return CornerBottomRight, nil
	}
	return CornerNone, fmt.Errorf("ccd %d: want 1..4", ccd)
}
