package render

import(
	"fmt"
	"image"
	"image/color"
	"math"
	"os"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/mdouchement/hdr/hdrcolor"
	"golang.org/x/image/tiff"

	"starphot/pkg/frame"
	"starphot/pkg/segment"
)

// Diagnostic output for eyeballing pipeline stages. None of this is
// consumed downstream; the query/persistence collaborators get the
// numeric values.

// LabelMapPNG renders the label map with one color per aperture
// (golden-angle hue walk, so adjacent labels look nothing alike) and
// the label count annotated.
func LabelMapPNG(lm *segment.LabelMap, title, filename string) error {
	dc := gg.NewContext(lm.Dx(), lm.Dy())
	dc.SetRGB(0, 0, 0)
	dc.Clear()

	for y := 0; y < lm.Dy(); y++ {
		for x := 0; x < lm.Dx(); x++ {
			l := lm.Get(x, y)
			if l == 0 { continue }
			hue := math.Mod(float64(l)*137.508, 360.0)
			dc.SetColor(colorful.Hsv(hue, 0.85, 0.95))
			dc.SetPixel(x, y)
		}
	}

	dc.SetRGB(1, 1, 1)
	dc.DrawString(fmt.Sprintf("%s (%d clusters)", title, lm.MaxLabel()), 10, 15)
	return dc.SavePNG(filename)
}

// cleanedImage adapts a cleaned frame to the hdr.Image interface,
// with negative noise clamped at zero.
type cleanedImage struct {
	cf *frame.CleanedFrame
}

func (ci cleanedImage)ColorModel() color.Model { return hdrcolor.RGBModel }
func (ci cleanedImage)Bounds() image.Rectangle {
	return image.Rectangle{Max: image.Point{ci.cf.Pix.Dx(), ci.cf.Pix.Dy()}}
}
func (ci cleanedImage)At(x, y int) color.Color { return ci.HDRAt(x, y) }
func (ci cleanedImage)Size() int               { return ci.cf.Pix.NumPixels() }
func (ci cleanedImage)HDRAt(x, y int) hdrcolor.Color {
	v := ci.cf.Pix.Get(x, y)
	if v < 0 { v = 0 }
	return hdrcolor.RGB{R: v, G: v, B: v}
}

// CleanedFrameHDR writes the cleaned frame as a Radiance HDR file,
// keeping the full float dynamic range for HDR-aware viewers.
func CleanedFrameHDR(cf *frame.CleanedFrame, filename string) error {
	writer, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	}
	defer writer.Close()
	return rgbe.Encode(writer, cleanedImage{cf})
}

// CleanedFrameTIFF writes the cleaned frame as a 16-bit grayscale
// TIFF, range-stretched.
func CleanedFrameTIFF(cf *frame.CleanedFrame, filename string) error {
	min, max := cf.Pix.MinMax()
	if max == min { max = min + 1 }

	img := image.NewGray16(image.Rectangle{Max: image.Point{cf.Pix.Dx(), cf.Pix.Dy()}})
	for y := 0; y < cf.Pix.Dy(); y++ {
		for x := 0; x < cf.Pix.Dx(); x++ {
			v := (cf.Pix.Get(x, y) - min) / (max - min)
			img.SetGray16(x, y, color.Gray16{Y: uint16(v * 65535.0)})
		}
	}

	writer, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	}
	defer writer.Close()
	return tiff.Encode(writer, img, &tiff.Options{Compression: tiff.Deflate})
}
