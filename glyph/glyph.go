// Package glyph rasterizes wrapped label text into a bitmap so that scripts
// the vector backend cannot shape still look identical in preview and PDF.
// The price is that such labels are not selectable in the PDF.
package glyph

import (
	"errors"
	"fmt"
	"image"
	"math"
	"strings"
	"unicode"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"

	"github.com/pawachai/qrcode-generator/fonts"
	"github.com/pawachai/qrcode-generator/layout"
)

const (
	// DefaultPrintDPI is the resolution the rasterized label is delivered at.
	DefaultPrintDPI = 300
	// DefaultSupersample is the oversampling factor applied before downscaling.
	DefaultSupersample = 4
	// LinePitch is the vertical distance between baselines in glyph sizes.
	LinePitch = 1.5
)

var (
	// ErrFontUnavailable means no font could be used. Callers must fall back
	// to native text drawing.
	ErrFontUnavailable = errors.New("glyph: font unavailable")
	// ErrNoInk means the text produced no visible pixels.
	ErrNoInk = errors.New("glyph: nothing drawn")
)

// Mode selects when labels go through the raster path.
type Mode int

const (
	// ModeAuto rasterizes only text the vector font cannot handle.
	ModeAuto Mode = iota
	// ModeAlways rasterizes every label.
	ModeAlways
	// ModeNever always uses native text.
	ModeNever
)

func (m Mode) String() string {
	switch m {
	case ModeAlways:
		return "always"
	case ModeNever:
		return "never"
	default:
		return "auto"
	}
}

// ParseMode parses auto/always/never.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "always", "raster":
		return ModeAlways, nil
	case "never", "native":
		return ModeNever, nil
	default:
		return ModeAuto, fmt.Errorf("glyph: unknown mode %q", s)
	}
}

// NeedsFallback reports whether text contains runes outside the scripts the
// vector backend handles natively, or runes the font has no glyph for.
func NeedsFallback(text string, f *fonts.Font) bool {
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		if !unicode.In(r, unicode.Latin, unicode.Common, unicode.Inherited) {
			return true
		}
		if f != nil && !f.Covers(r) {
			return true
		}
	}
	return false
}

// Raster is a trimmed label bitmap. Offsets locate the ink box relative to
// the label origin (top-left of the label area), in millimeters.
type Raster struct {
	Image     image.Image
	WidthMM   float64
	HeightMM  float64
	OffsetXMM float64
	OffsetYMM float64
}

// Box returns the canonical rectangle of the ink when the label origin is (x, y).
func (r *Raster) Box(x, y float64) layout.Box {
	return layout.Box{X: x + r.OffsetXMM, Y: y + r.OffsetYMM, W: r.WidthMM, H: r.HeightMM}
}

// Rasterizer renders wrapped text with the first of its fonts that has a
// glyph for every rune. Font is tried before Fallback.
type Rasterizer struct {
	Font        *fonts.Font
	Fallback    fonts.Set
	PrintDPI    float64
	Supersample int
}

// New returns a Rasterizer with the default resolution.
func New(f *fonts.Font, fallback ...*fonts.Font) *Rasterizer {
	return &Rasterizer{Font: f, Fallback: fallback, PrintDPI: DefaultPrintDPI, Supersample: DefaultSupersample}
}

// FontFor returns the font text will be drawn with, or nil when none of the
// fonts covers it.
func (r *Rasterizer) FontFor(text string) *fonts.Font {
	if r == nil {
		return nil
	}
	if r.Font != nil && r.Font.CoversAll(text) {
		return r.Font
	}
	return r.Fallback.Covering(text)
}

// RasterizeText wraps text with the metrics of the font that will draw it,
// so line breaks match the ink, and rasterizes the result.
func (r *Rasterizer) RasterizeText(text string, sizePt, widthMM float64, align layout.Align, c layout.Color) (*Raster, error) {
	f := r.FontFor(text)
	if f == nil {
		return nil, ErrFontUnavailable
	}
	return r.Rasterize(layout.Wrap(text, sizePt, widthMM, f), sizePt, widthMM, align, c)
}

// Rasterize draws each line aligned within widthMM, lines LinePitch glyph
// sizes apart, then trims to the ink and downsamples to the print DPI.
// ErrFontUnavailable is returned when no font covers the text; drawing it
// anyway would only produce .notdef boxes.
func (r *Rasterizer) Rasterize(w layout.WrappedText, sizePt, widthMM float64, align layout.Align, c layout.Color) (*Raster, error) {
	lines := w.Strings()
	f := r.FontFor(strings.Join(lines, "\n"))
	if f == nil {
		return nil, ErrFontUnavailable
	}
	dpi := r.PrintDPI
	if dpi <= 0 {
		dpi = DefaultPrintDPI
	}
	ss := r.Supersample
	if ss < 1 {
		ss = DefaultSupersample
	}
	hiDPI := dpi * float64(ss)
	pxPerMM := hiDPI / layout.MmPerInch
	sizePx := sizePt * hiDPI / 72

	face := f.Face(sizePt, hiDPI)
	if face == nil {
		return nil, ErrFontUnavailable
	}

	boxW := widthMM * pxPerMM
	measure := gg.NewContext(1, 1)
	measure.SetFontFace(face)
	offsets := make([]float64, len(lines))
	minX, maxX := 0.0, boxW
	for i, line := range lines {
		lw, _ := measure.MeasureString(line)
		offsets[i] = align.Offset(boxW, lw)
		minX = math.Min(minX, offsets[i])
		maxX = math.Max(maxX, offsets[i]+lw)
	}
	shift := -minX
	pitch := LinePitch * sizePx
	ascent := float64(face.Metrics().Ascent) / 64
	pad := int(math.Ceil(sizePx * 0.5))
	cw := int(math.Ceil(maxX+shift)) + pad
	ch := int(math.Ceil(pitch*float64(len(lines)))) + pad
	if cw < 1 || ch < 1 {
		return nil, ErrNoInk
	}

	dc := gg.NewContext(cw, ch)
	dc.SetFontFace(face)
	dc.SetRGB255(c.R, c.G, c.B)
	for i, line := range lines {
		if line == "" {
			continue
		}
		dc.DrawString(line, offsets[i]+shift, ascent+float64(i)*pitch)
	}

	src := dc.Image()
	ink, ok := inkBounds(src)
	if !ok {
		return nil, ErrNoInk
	}
	dw := int(math.Max(1, math.Ceil(float64(ink.Dx())/float64(ss))))
	dh := int(math.Max(1, math.Ceil(float64(ink.Dy())/float64(ss))))
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, ink, draw.Over, nil)

	return &Raster{
		Image:     dst,
		WidthMM:   float64(ink.Dx()) / pxPerMM,
		HeightMM:  float64(ink.Dy()) / pxPerMM,
		OffsetXMM: (float64(ink.Min.X) - shift) / pxPerMM,
		OffsetYMM: float64(ink.Min.Y) / pxPerMM,
	}, nil
}

// inkBounds returns the tight box of pixels with non-zero alpha.
func inkBounds(img image.Image) (image.Rectangle, bool) {
	b := img.Bounds()
	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X-1, b.Min.Y-1
	rgba, fast := img.(*image.RGBA)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var a uint32
			if fast {
				a = uint32(rgba.Pix[rgba.PixOffset(x, y)+3])
			} else {
				_, _, _, a = img.At(x, y).RGBA()
			}
			if a == 0 {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < minX || maxY < minY {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}
