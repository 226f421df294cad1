package compose

import (
	"github.com/pawachai/qrcode-generator/binding"
	"github.com/pawachai/qrcode-generator/layout"
)

// ImageProbe answers `ratio auto` by reading the header of the first image
// a field refers to.
type ImageProbe struct {
	Table  *binding.Table
	Loader FileLoader
}

var _ layout.ContentProbe = ImageProbe{}

func (p ImageProbe) Probe(pl layout.Placement) (string, float64, bool) {
	if p.Table == nil {
		return "", 0, false
	}
	col := pl.SourceColumn()
	for i := 0; i < p.Table.Len(); i++ {
		v, ok := p.Table.Lookup(col, i)
		if !ok || pl.Resolve(v) != layout.ContentImage {
			continue
		}
		ratio, err := p.Loader.Ratio(v)
		if err != nil {
			continue
		}
		return p.Loader.Resolve(v), ratio, true
	}
	return "", 0, false
}
