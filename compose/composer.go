package compose

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"strings"

	"github.com/pawachai/qrcode-generator/binding"
	"github.com/pawachai/qrcode-generator/fonts"
	"github.com/pawachai/qrcode-generator/glyph"
	"github.com/pawachai/qrcode-generator/layout"
	"github.com/pawachai/qrcode-generator/symbol"
)

// ErrNoRows is returned when a document would have no pages.
var ErrNoRows = errors.New("compose: data table has no rows")

// SymbolLookup resolves a symbology name to an encoder.
type SymbolLookup func(name string) (symbol.Encoder, error)

// Options configures a Composer. Zero values pick the defaults.
type Options struct {
	Images ImageLoader
	Font   *fonts.Font
	// Measure overrides the text measurer; by default the label font
	// measures itself, or an estimate is used when there is no font.
	Measure layout.Measurer
	// Fallback lists fonts tried, in order, for labels the label font has
	// no glyphs for. Only the raster path uses them.
	Fallback  fonts.Set
	GlyphMode glyph.Mode
	Symbols   SymbolLookup
	Logger    *slog.Logger
}

// Composer turns one row into drawing calls. It holds no per-page state, so
// the preview and every document page go through the same code.
type Composer struct {
	sheet   *layout.Sheet
	images  ImageLoader
	font    *fonts.Font
	measure layout.Measurer
	glyphs  *glyph.Rasterizer
	mode    glyph.Mode
	symbols SymbolLookup
	log     *slog.Logger
}

// New checks the sheet against the available encoders and returns a Composer.
// An unknown symbology is a configuration error, not a per-row one.
func New(sheet *layout.Sheet, opts Options) (*Composer, error) {
	if sheet == nil || sheet.Placements.Len() == 0 {
		return nil, &layout.ConfigError{Err: layout.ErrInvalidPlacement}
	}
	c := &Composer{
		sheet:   sheet,
		images:  opts.Images,
		font:    opts.Font,
		mode:    opts.GlyphMode,
		symbols: opts.Symbols,
		log:     opts.Logger,
	}
	if c.images == nil {
		c.images = FileLoader{}
	}
	if c.symbols == nil {
		c.symbols = symbol.Lookup
	}
	if c.log == nil {
		c.log = slog.New(slog.DiscardHandler)
	}
	c.glyphs = glyph.New(c.font, opts.Fallback...)
	if c.font != nil {
		c.measure = c.font
	} else {
		c.measure = layout.EstimateMeasurer{}
	}
	if opts.Measure != nil {
		c.measure = opts.Measure
	}
	for _, p := range sheet.Placements.All() {
		if p.Kind == layout.KindImage {
			continue
		}
		if _, err := c.symbols(p.Symbology); err != nil {
			return nil, &layout.ConfigError{Field: p.ID, Err: err}
		}
	}
	return c, nil
}

// Sheet returns the frozen configuration being drawn.
func (c *Composer) Sheet() *layout.Sheet { return c.sheet }

// Measurer returns the text measurer shared by wrapping and every backend.
func (c *Composer) Measurer() layout.Measurer { return c.measure }

// Font returns the label font, or nil when labels use the estimate.
func (c *Composer) Font() *fonts.Font { return c.font }

// PageReport counts what happened to the placements of one page.
type PageReport struct {
	Row          int
	Drawn        int
	Skipped      int
	Placeholders int
	Labels       int
	RasterLabels int
	// Uncovered counts labels drawn natively although no font has glyphs
	// for all of their characters.
	Uncovered int
}

func (r *PageReport) add(o PageReport) {
	r.Drawn += o.Drawn
	r.Skipped += o.Skipped
	r.Placeholders += o.Placeholders
	r.Labels += o.Labels
	r.RasterLabels += o.RasterLabels
	r.Uncovered += o.Uncovered
}

// Compose draws every placement for row onto s. Drawing failures of a single
// placement become placeholders and never abort the page.
func (c *Composer) Compose(s Surface, tbl *binding.Table, row int) PageReport {
	return c.compose(s, tbl, row, func(layout.Placement) int { return row })
}

// Sampling selects which row feeds each placement in the preview.
type Sampling int

const (
	// SampleFirstRow uses row 0 for every placement.
	SampleFirstRow Sampling = iota
	// SampleFirstNonEmpty uses, per placement, the first row whose source
	// cell is not empty.
	SampleFirstNonEmpty
)

// ComposePreview draws the preview sample. An empty table draws nothing but
// still returns a report so callers can show the bare page.
func (c *Composer) ComposePreview(s Surface, tbl *binding.Table, mode Sampling) PageReport {
	if tbl == nil || tbl.Len() == 0 {
		return PageReport{}
	}
	return c.compose(s, tbl, 0, func(p layout.Placement) int {
		if mode != SampleFirstNonEmpty {
			return 0
		}
		if i, ok := tbl.FirstNonEmpty(p.SourceColumn()); ok {
			return i
		}
		return 0
	})
}

func (c *Composer) compose(s Surface, tbl *binding.Table, row int, rowFor func(layout.Placement) int) PageReport {
	rep := PageReport{Row: row}
	for i := 0; i < c.sheet.Placements.Len(); i++ {
		p := c.sheet.Placements.At(i)
		rep.add(c.ComposePlacement(s, tbl, p, rowFor(p)))
	}
	return rep
}

// ComposePlacement draws one placement's content and label for row. An empty
// primary value skips the placement entirely.
func (c *Composer) ComposePlacement(s Surface, tbl *binding.Table, p layout.Placement, row int) PageReport {
	var rep PageReport
	value, _ := tbl.Lookup(p.SourceColumn(), row)
	if p.Resolve(value) == layout.ContentNone {
		// 主内容为空时整个字段（包括标签）都不绘制。
		rep.Skipped++
		return rep
	}
	if err := c.drawContent(s, p, value); err != nil {
		c.log.Warn("绘制内容失败", "field", p.ID, "row", row, "err", err)
		rep.Placeholders++
	} else {
		rep.Drawn++
	}
	if !p.Label.Visible {
		return rep
	}
	text := c.LabelText(tbl, p, row)
	if strings.TrimSpace(text) == "" {
		return rep
	}
	path, err := c.drawLabel(s, p, text)
	if err != nil {
		c.log.Warn("绘制标签失败", "field", p.ID, "row", row, "err", err)
		rep.Placeholders++
		return rep
	}
	rep.Labels++
	switch path {
	case labelRaster:
		rep.RasterLabels++
	case labelUncovered:
		c.log.Warn("没有字体覆盖标签中的全部字符，已按原生文本绘制", "field", p.ID, "row", row, "text", text)
		rep.Uncovered++
	}
	return rep
}

// LabelText resolves the label of p for row: the template interpolated
// against the offset row, or the label column of that row.
func (c *Composer) LabelText(tbl *binding.Table, p layout.Placement, row int) string {
	idx, ok := layout.LabelRow(row, p.Label.RowOffset, tbl.Len())
	if !ok {
		return ""
	}
	if p.Label.Template != "" {
		return binding.Interpolate(p.Label.Template, tbl.Row(idx))
	}
	v, _ := tbl.Lookup(p.LabelColumn(), idx)
	return v
}

// drawContent falls back to a placeholder in the content box on failure and
// reports the original error.
func (c *Composer) drawContent(s Surface, p layout.Placement, value string) error {
	box := s.Adapter().Box(p.Box())
	img, smooth, mark, err := c.load(p, value)
	if err == nil {
		err = s.DrawImage(img, box, smooth)
	}
	if err != nil {
		if perr := s.DrawPlaceholder(box, mark); perr != nil {
			return errors.Join(err, perr)
		}
		return err
	}
	return nil
}

func (c *Composer) load(p layout.Placement, value string) (image.Image, bool, string, error) {
	if p.Resolve(value) == layout.ContentImage {
		img, err := c.images.Load(value)
		return img, true, MarkImage, err
	}
	enc, err := c.symbols(p.Symbology)
	if err != nil {
		return nil, false, MarkSymbol, err
	}
	edge := symbol.EdgeFor(math.Max(p.Size.Width, p.Size.Height))
	img, err := enc.Encode(value, edge)
	return img, false, MarkSymbol, err
}

// Wrap wraps a label with the composer's measurer.
func (c *Composer) Wrap(p layout.Placement, text string) layout.WrappedText {
	return layout.Wrap(text, p.LabelFontSize(), p.LabelWidth(), c.measure)
}

func (c *Composer) useRaster(text string) bool {
	switch c.mode {
	case glyph.ModeAlways:
		return true
	case glyph.ModeNever:
		return false
	default:
		return glyph.NeedsFallback(text, c.font)
	}
}

type labelPath int

const (
	labelNative labelPath = iota
	labelRaster
	labelUncovered
)

// drawLabel tries the raster path when the text needs it, then native text,
// then a placeholder over the label area.
func (c *Composer) drawLabel(s Surface, p layout.Placement, text string) (labelPath, error) {
	a := s.Adapter()
	wrapped := c.Wrap(p, text)
	sizePt := p.LabelFontSize()
	ox, oy := p.LabelOrigin()
	color := p.Label.Color
	path := labelNative

	if c.useRaster(text) {
		r, err := c.glyphs.RasterizeText(text, sizePt, p.LabelWidth(), p.Label.Align, color)
		if err == nil {
			if err = s.DrawImage(r.Image, a.Box(r.Box(ox, oy)), true); err == nil {
				return labelRaster, nil
			}
		}
		if errors.Is(err, glyph.ErrFontUnavailable) && c.font != nil && !c.font.CoversAll(text) {
			path = labelUncovered
		}
		c.log.Debug("位图标签不可用，改用原生文本", "field", p.ID, "err", err)
	}

	if err := c.drawNative(s, p, wrapped, ox, oy, color); err != nil {
		area := layout.Box{X: ox, Y: oy, W: p.LabelWidth(), H: float64(wrapped.Len()) * p.LabelLineHeight()}
		if perr := s.DrawPlaceholder(a.Box(area), MarkText); perr != nil {
			return labelNative, errors.Join(err, perr)
		}
		return labelNative, err
	}
	return path, nil
}

func (c *Composer) drawNative(s Surface, p layout.Placement, w layout.WrappedText, ox, oy float64, color layout.Color) error {
	a := s.Adapter()
	sizePt := w.SizePt()
	pitch := p.LabelLineHeight()
	ascent := c.ascent(sizePt)
	for i := 0; i < w.Len(); i++ {
		line := w.Line(i)
		if line.Content == "" {
			continue
		}
		x := ox + p.Label.Align.Offset(p.LabelWidth(), line.Width)
		baseline := oy + float64(i)*pitch + ascent
		nx, ny := a.Point(x, baseline, 0)
		if err := s.DrawText(line.Content, nx, ny, sizePt, color); err != nil {
			return fmt.Errorf("第 %d 行: %w", i+1, err)
		}
	}
	return nil
}

// ascent 返回基线距行顶的距离（mm）。
func (c *Composer) ascent(sizePt float64) float64 {
	if c.font != nil {
		if asc, _, _ := c.font.Metrics(sizePt); asc > 0 {
			return asc
		}
	}
	return 0.8 * sizePt * layout.PtToMm
}
