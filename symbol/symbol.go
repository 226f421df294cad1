// Package symbol turns text into square machine-readable symbols.
//
// Encoders are opaque to the rest of the pipeline: text goes in, a square
// bitmap with its quiet zone comes out, and the composer scales it to the
// placement box.
package symbol

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sort"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/aztec"
	"github.com/boombuler/barcode/datamatrix"
	"github.com/boombuler/barcode/qr"
)

// DefaultQuietZone is the margin, in modules, added on every side.
const DefaultQuietZone = 2

// MinEdgePx is the smallest edge an encoded symbol is rendered at.
const MinEdgePx = 200

// PixelsPerMM is the raster density used to size symbols for a placement box.
const PixelsPerMM = 10

var (
	ErrUnknownSymbology = errors.New("symbol: unknown symbology")
	ErrEmptyContent     = errors.New("symbol: empty content")
)

// Encoder turns text into a square bitmap of at least edgePx pixels per side.
type Encoder interface {
	Encode(text string, edgePx int) (image.Image, error)
}

// EncoderFunc adapts a function to Encoder.
type EncoderFunc func(text string, edgePx int) (image.Image, error)

func (f EncoderFunc) Encode(text string, edgePx int) (image.Image, error) { return f(text, edgePx) }

// EdgeFor returns the raster edge for a box whose longer side is edgeMM.
func EdgeFor(edgeMM float64) int {
	px := int(edgeMM * PixelsPerMM)
	if px < MinEdgePx {
		return MinEdgePx
	}
	return px
}

// QR encodes QR codes.
type QR struct {
	Level     qr.ErrorCorrectionLevel
	QuietZone int
}

// NewQR returns a QR encoder with medium error correction.
func NewQR() QR { return QR{Level: qr.M, QuietZone: DefaultQuietZone} }

func (q QR) Encode(text string, edgePx int) (image.Image, error) {
	if text == "" {
		return nil, ErrEmptyContent
	}
	bc, err := qr.Encode(text, q.Level, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("symbol: qr: %w", err)
	}
	return render(bc, q.QuietZone, edgePx)
}

// DataMatrix encodes ECC200 Data Matrix symbols.
type DataMatrix struct {
	QuietZone int
}

func (d DataMatrix) Encode(text string, edgePx int) (image.Image, error) {
	if text == "" {
		return nil, ErrEmptyContent
	}
	bc, err := datamatrix.Encode(text)
	if err != nil {
		return nil, fmt.Errorf("symbol: datamatrix: %w", err)
	}
	return render(bc, d.QuietZone, edgePx)
}

// Aztec encodes Aztec codes.
type Aztec struct {
	MinECCPercent int // 0 means 23
	QuietZone     int
}

func (a Aztec) Encode(text string, edgePx int) (image.Image, error) {
	if text == "" {
		return nil, ErrEmptyContent
	}
	ecc := a.MinECCPercent
	if ecc <= 0 {
		ecc = 23
	}
	bc, err := aztec.Encode([]byte(text), ecc, 0)
	if err != nil {
		return nil, fmt.Errorf("symbol: aztec: %w", err)
	}
	return render(bc, a.QuietZone, edgePx)
}

var registry = map[string]Encoder{
	"qr":         NewQR(),
	"datamatrix": DataMatrix{QuietZone: DefaultQuietZone},
	"aztec":      Aztec{QuietZone: DefaultQuietZone},
}

var aliases = map[string]string{
	"":            "qr",
	"qrcode":      "qr",
	"dm":          "datamatrix",
	"data-matrix": "datamatrix",
}

// Lookup returns the encoder registered under name.
func Lookup(name string) (Encoder, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := aliases[key]; ok {
		key = alias
	}
	enc, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSymbology, name)
	}
	return enc, nil
}

// Names lists the registered symbologies.
func Names() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// render scales the module matrix by an integer factor and surrounds it
// with a white quiet zone. The result is square and at least edgePx wide.
func render(bc barcode.Barcode, quiet, edgePx int) (image.Image, error) {
	b := bc.Bounds()
	n := b.Dx()
	if b.Dy() > n {
		n = b.Dy()
	}
	if n == 0 {
		return nil, fmt.Errorf("symbol: empty matrix")
	}
	if quiet < 0 {
		quiet = 0
	}
	total := n + 2*quiet
	factor := (edgePx + total - 1) / total
	if factor < 1 {
		factor = 1
	}
	scaled, err := barcode.Scale(bc, n*factor, n*factor)
	if err != nil {
		return nil, fmt.Errorf("symbol: scale: %w", err)
	}
	edge := total * factor
	out := image.NewGray(image.Rect(0, 0, edge, edge))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	off := quiet * factor
	draw.Draw(out, image.Rect(off, off, off+n*factor, off+n*factor), scaled, image.Point{}, draw.Src)
	return out, nil
}
