// Package compose draws one data row onto a page surface. The same
// placement decisions feed both the raster preview and the vector document;
// only the Surface differs.
package compose

import (
	"image"

	"github.com/pawachai/qrcode-generator/layout"
)

// Surface is one page of a backend. Every rectangle and point handed to it is
// already in the backend's native coordinates, converted by Adapter.
type Surface interface {
	Adapter() layout.Adapter
	// DrawImage stretches img to fill box. smooth selects interpolating
	// resampling; symbols are drawn with smooth = false to keep module edges.
	DrawImage(img image.Image, box layout.Box, smooth bool) error
	// DrawText draws one line starting at x with its baseline at y.
	DrawText(line string, x, y, sizePt float64, c layout.Color) error
	// DrawPlaceholder marks box as failed with a short visible mark.
	DrawPlaceholder(box layout.Box, mark string) error
}

// PageSink produces one Surface per page, in order.
type PageSink interface {
	BeginPage() (Surface, error)
	EndPage() error
}

// Placeholder marks.
const (
	MarkImage  = "?"
	MarkSymbol = "!"
	MarkText   = "T"
)
