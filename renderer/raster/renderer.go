// Package rasterrenderer draws the PNG preview with github.com/fogleman/gg.
// It shares every placement decision with the PDF renderer through compose;
// only the final draw calls live here.
package rasterrenderer

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"

	"github.com/pawachai/qrcode-generator/binding"
	"github.com/pawachai/qrcode-generator/compose"
	"github.com/pawachai/qrcode-generator/fonts"
	"github.com/pawachai/qrcode-generator/layout"
	"github.com/pawachai/qrcode-generator/renderer"
)

const (
	DefaultDPI = 96.0
	// StackOffset 是每层叠页阴影的偏移（mm）。
	StackOffset = 1.8
	// MaxStack 是最多绘制的阴影层数。
	MaxStack = 4
	// Pad 是页面四周的留白（mm）。
	Pad = 8.0

	badgeHeight = 3.5
	badgeGap    = 1.5
	badgeFontPt = 5.5
)

var (
	backgroundColor  = "#ffffff"
	shadowFill       = "#f0f0f0"
	shadowStroke     = "#bbbbbb"
	pageStroke       = "#333333"
	fieldFill        = "#fafafa"
	placeholderColor = layout.Color{R: 200, G: 40, B: 40}
)

// Options configures the preview.
type Options struct {
	DPI      float64
	Font     *fonts.Font
	Sampling compose.Sampling
	// Decorate 绘制字段轮廓与名称徽标。
	Decorate bool
	Logger   *slog.Logger
}

// Renderer renders the preview page.
type Renderer struct {
	opts Options
	log  *slog.Logger

	fontMu  sync.Mutex
	font    *fonts.Font
	fontErr error
	loaded  bool
}

var _ renderer.Renderer = (*Renderer)(nil)

func NewRenderer(opts Options) *Renderer {
	if opts.DPI <= 0 {
		opts.DPI = DefaultDPI
	}
	r := &Renderer{opts: opts, log: opts.Logger}
	if r.log == nil {
		r.log = slog.New(slog.DiscardHandler)
	}
	return r
}

// StackCount 返回预览中阴影层数：min(rows-1, 4)，不小于 0。
func StackCount(rows int) int {
	return max(0, min(rows-1, MaxStack))
}

// Render encodes the preview as PNG. progress is called once when done.
func (r *Renderer) Render(c *compose.Composer, tbl *binding.Table, progress func(float64)) ([]byte, error) {
	dc, _, err := r.preview(c, tbl)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("编码 PNG 失败: %w", err)
	}
	if progress != nil {
		progress(1)
	}
	return buf.Bytes(), nil
}

// Preview composes the sample row onto a page with stacked-page shadows
// behind it.
func (r *Renderer) Preview(c *compose.Composer, tbl *binding.Table) (image.Image, compose.PageReport, error) {
	dc, rep, err := r.preview(c, tbl)
	if err != nil {
		return nil, rep, err
	}
	return dc.Image(), rep, nil
}

func (r *Renderer) preview(c *compose.Composer, tbl *binding.Table) (*gg.Context, compose.PageReport, error) {
	if c == nil {
		return nil, compose.PageReport{}, fmt.Errorf("渲染配置为空")
	}
	sheet := c.Sheet()
	page := sheet.Page
	stack := StackCount(tbl.Len())
	extra := float64(stack) * StackOffset

	s := r.newSurface(page.Width+2*Pad+extra, page.Height+2*Pad+extra, Pad, Pad)
	dc := s.dc
	dc.SetHexColor(backgroundColor)
	dc.Clear()

	for i := stack; i > 0; i-- {
		off := float64(i) * StackOffset
		s.rect(layout.Box{X: off, Y: off, W: page.Width, H: page.Height}, shadowFill, shadowStroke, 0.8)
	}
	s.rect(layout.Box{W: page.Width, H: page.Height}, backgroundColor, pageStroke, 2)

	if r.opts.Decorate {
		for i, p := range sheet.Placements.All() {
			col := renderer.FieldColor(i, p)
			s.rect(p.Box(), fieldFill, hex(col), 1.5)
		}
	}

	rep := c.ComposePreview(s, tbl, r.opts.Sampling)

	if r.opts.Decorate {
		for i, p := range sheet.Placements.All() {
			s.badge(p, renderer.FieldColor(i, p))
		}
	}
	r.log.Debug("预览完成", "drawn", rep.Drawn, "skipped", rep.Skipped, "placeholders", rep.Placeholders, "stack", stack)
	return dc, rep, nil
}

// SavePNG 将图片写入文件。
func SavePNG(path string, img image.Image) error {
	return gg.SavePNG(path, img)
}

// Page renders row as a bare page, without shadows or decorations.
func (r *Renderer) Page(c *compose.Composer, tbl *binding.Table, row int) (image.Image, compose.PageReport) {
	page := c.Sheet().Page
	s := r.newSurface(page.Width, page.Height, 0, 0)
	s.dc.SetHexColor(backgroundColor)
	s.dc.Clear()
	rep := c.Compose(s, tbl, row)
	return s.dc.Image(), rep
}

func (r *Renderer) newSurface(wMM, hMM, originX, originY float64) *surface {
	a := layout.BitmapAdapter{DPI: r.opts.DPI, OriginX: originX, OriginY: originY}
	k := a.Scale()
	// 容忍换算误差，避免 60mm@254dpi 变成 601px。
	w := int(math.Ceil(wMM*k - 1e-6))
	h := int(math.Ceil(hMM*k - 1e-6))
	return &surface{r: r, dc: gg.NewContext(max(w, 1), max(h, 1)), adapter: a}
}

// labelFont 懒加载标签字体；未注入时使用内置字体，失败结果被缓存。
func (r *Renderer) labelFont() (*fonts.Font, error) {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	if !r.loaded {
		r.loaded = true
		if r.opts.Font != nil {
			r.font = r.opts.Font
		} else {
			r.font, r.fontErr = fonts.Builtin{}.Load()
		}
	}
	return r.font, r.fontErr
}

// surface 的原生坐标是像素，左上角为原点。
type surface struct {
	r       *Renderer
	dc      *gg.Context
	adapter layout.BitmapAdapter
}

var _ compose.Surface = (*surface)(nil)

func (s *surface) Adapter() layout.Adapter { return s.adapter }

// DrawImage 先在内存中缩放到整数像素框，再按整数位置贴图，
// 避免 gg 的双线性采样模糊符号边缘。
func (s *surface) DrawImage(img image.Image, box layout.Box, smooth bool) error {
	x0, y0 := int(math.Round(box.X)), int(math.Round(box.Y))
	x1, y1 := int(math.Round(box.X+box.W)), int(math.Round(box.Y+box.H))
	if box.W <= 0 || box.H <= 0 {
		return fmt.Errorf("目标框尺寸无效: %gx%g", box.W, box.H)
	}
	// 不足一个像素的框仍至少画一个像素。
	x1 = max(x1, x0+1)
	y1 = max(y1, y0+1)
	if img.Bounds().Empty() {
		return fmt.Errorf("图片尺寸为空")
	}
	dst := image.NewRGBA(image.Rect(0, 0, x1-x0, y1-y0))
	var scaler draw.Scaler = draw.NearestNeighbor
	if smooth {
		scaler = draw.CatmullRom
	}
	scaler.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	s.dc.DrawImage(dst, x0, y0)
	return nil
}

func (s *surface) DrawText(line string, x, y, sizePt float64, c layout.Color) error {
	f, err := s.r.labelFont()
	if err != nil {
		return err
	}
	face := f.Face(sizePt, s.adapter.DPI)
	if face == nil {
		return fonts.ErrNoFont
	}
	s.dc.SetFontFace(face)
	s.dc.SetRGB255(c.R, c.G, c.B)
	s.dc.DrawString(line, x, y)
	return nil
}

func (s *surface) DrawPlaceholder(box layout.Box, mark string) error {
	dc := s.dc
	dc.Push()
	defer dc.Pop()
	dc.SetRGB255(placeholderColor.R, placeholderColor.G, placeholderColor.B)
	dc.SetLineWidth(math.Max(1, 0.3*s.adapter.Scale()))
	dc.DrawRectangle(box.X, box.Y, box.W, box.H)
	dc.Stroke()
	dc.DrawLine(box.X, box.Y, box.X+box.W, box.Y+box.H)
	dc.DrawLine(box.X, box.Y+box.H, box.X+box.W, box.Y)
	dc.Stroke()
	if mark == "" {
		return nil
	}
	f, err := s.r.labelFont()
	if err != nil {
		return nil
	}
	sizePt := box.H / 2 / s.adapter.Scale() * layout.MmToPt
	if face := f.Face(sizePt, s.adapter.DPI); face != nil {
		dc.SetFontFace(face)
		dc.DrawStringAnchored(mark, box.X+box.W/2, box.Y+box.H/2, 0.5, 0.35)
	}
	return nil
}

// rect 绘制规范坐标中的矩形，lineWidthPt 以 pt 计。
func (s *surface) rect(b layout.Box, fill, stroke string, lineWidthPt float64) {
	n := s.adapter.Box(b)
	dc := s.dc
	dc.DrawRectangle(n.X, n.Y, n.W, n.H)
	dc.SetHexColor(fill)
	dc.FillPreserve()
	dc.SetHexColor(stroke)
	dc.SetLineWidth(lineWidthPt * s.adapter.DPI / 72)
	dc.Stroke()
}

// badge 在字段上方绘制名称徽标；上方空间不足时移到下方。
func (s *surface) badge(p layout.Placement, col layout.Color) {
	name := p.ID
	w := math.Max(10, float64(len([]rune(name)))*2.2+4)
	x := p.X + (p.Size.Width-w)/2
	y := p.Y - badgeHeight - badgeGap
	if y < -5 {
		y = p.Y + p.Size.Height + badgeGap
	}
	n := s.adapter.Box(layout.Box{X: x, Y: y, W: w, H: badgeHeight})
	dc := s.dc
	dc.SetRGBA255(col.R, col.G, col.B, 230)
	dc.DrawRoundedRectangle(n.X, n.Y, n.W, n.H, n.H/4)
	dc.Fill()
	f, err := s.r.labelFont()
	if err != nil {
		return
	}
	if face := f.Face(badgeFontPt, s.adapter.DPI); face != nil {
		dc.SetFontFace(face)
		dc.SetRGB255(255, 255, 255)
		dc.DrawStringAnchored(name, n.X+n.W/2, n.Y+n.H/2, 0.5, 0.35)
	}
}

func hex(c layout.Color) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
