package canvasrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/pawachai/qrcode-generator/binding"
	"github.com/pawachai/qrcode-generator/compose"
	"github.com/pawachai/qrcode-generator/fonts"
	"github.com/pawachai/qrcode-generator/layout"
	"github.com/pawachai/qrcode-generator/renderer"
)

// placeholderStroke 是占位框线宽（mm）。
const placeholderStroke = 0.3

var placeholderColor = layout.Color{R: 200, G: 40, B: 40}

// Renderer draws one PDF page per data row via github.com/tdewolff/canvas.
type Renderer struct {
	font *fonts.Font
	log  *slog.Logger

	fontMu  sync.Mutex
	family  *canvas.FontFamily
	famErr  error
	famDone bool
	faces   map[faceKey]*canvas.FontFace
}

var _ renderer.Renderer = (*Renderer)(nil)

type faceKey struct {
	size  float64
	color layout.Color
}

// Options configures the canvas renderer.
type Options struct {
	// Font 必须与排版测量使用的字体一致，nil 时使用内置字体。
	Font   *fonts.Font
	Logger *slog.Logger
}

// NewRenderer creates a PDF renderer.
func NewRenderer(opts Options) *Renderer {
	r := &Renderer{font: opts.Font, log: opts.Logger, faces: map[faceKey]*canvas.FontFace{}}
	if r.log == nil {
		r.log = slog.New(slog.DiscardHandler)
	}
	return r
}

// Render renders every row of tbl into a PDF byte slice.
func (r *Renderer) Render(c *compose.Composer, tbl *binding.Table, progress func(float64)) ([]byte, error) {
	data, _, err := r.RenderReport(c, tbl, progress)
	return data, err
}

// RenderReport is Render that also returns the per-document counters.
func (r *Renderer) RenderReport(c *compose.Composer, tbl *binding.Table, progress func(float64)) ([]byte, compose.DocumentReport, error) {
	if c == nil {
		return nil, compose.DocumentReport{}, fmt.Errorf("渲染配置为空")
	}
	sheet := c.Sheet()
	page := sheet.Page
	if page.Width <= 0 || page.Height <= 0 {
		return nil, compose.DocumentReport{}, fmt.Errorf("页面尺寸无效: %gx%g", page.Width, page.Height)
	}

	var buf bytes.Buffer
	writer := newWriter(&buf, page)
	r.applyMeta(writer, sheet.Meta)
	sink := &pageSink{r: r, writer: writer, page: page}
	rep, err := c.RenderDocument(sink, tbl, progress)
	if err != nil {
		return nil, rep, err
	}
	if err := writer.Close(); err != nil {
		return nil, rep, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	r.log.Info("PDF 渲染完成", "pages", rep.Pages, "placeholders", rep.Placeholders, "bytes", buf.Len())
	return buf.Bytes(), rep, nil
}

func newWriter(w io.Writer, page layout.PageGeometry) *pdf.PDF {
	return pdf.New(w, page.Width, page.Height, nil)
}

func (r *Renderer) applyMeta(writer *pdf.PDF, meta layout.DocumentMeta) {
	if writer == nil {
		return
	}
	keywords := strings.Join(meta.Keywords, ", ")
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, meta.Creator)
}

// pageSink 为每一行打开一页画布，结束时写入 PDF。
type pageSink struct {
	r      *Renderer
	writer *pdf.PDF
	page   layout.PageGeometry
	count  int
	cv     *canvas.Canvas
}

func (s *pageSink) BeginPage() (compose.Surface, error) {
	if s.cv != nil {
		return nil, fmt.Errorf("上一页尚未结束")
	}
	if s.count > 0 {
		s.writer.NewPage(s.page.Width, s.page.Height)
	}
	s.count++
	s.cv = canvas.New(s.page.Width, s.page.Height)
	ctx := canvas.NewContext(s.cv)
	return &surface{r: s.r, ctx: ctx, adapter: layout.VectorAdapter{PageHeight: s.page.Height}}, nil
}

func (s *pageSink) EndPage() error {
	if s.cv == nil {
		return fmt.Errorf("没有打开的页面")
	}
	s.cv.RenderTo(s.writer)
	s.cv = nil
	return nil
}

// surface 接收 pt 为单位、左下角为原点的原生坐标；canvas 以 mm 绘制，
// 所以每次调用在边界处做 pt→mm 换算。坐标系保持默认的 CartesianI。
type surface struct {
	r       *Renderer
	ctx     *canvas.Context
	adapter layout.VectorAdapter
}

var _ compose.Surface = (*surface)(nil)

func (s *surface) Adapter() layout.Adapter { return s.adapter }

func (s *surface) DrawImage(img image.Image, box layout.Box, smooth bool) error {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return fmt.Errorf("图片尺寸为空")
	}
	x, y, w, h := toMm(box.X), toMm(box.Y), toMm(box.W), toMm(box.H)
	// 按像素拉伸到目标框，宽高比例各自独立。
	s.ctx.Push()
	s.ctx.ComposeView(canvas.Identity.Translate(x, y).Scale(w/float64(b.Dx()), h/float64(b.Dy())))
	s.ctx.DrawImage(0, 0, img, canvas.DPMM(1))
	s.ctx.Pop()
	return nil
}

func (s *surface) DrawText(line string, x, y, sizePt float64, c layout.Color) error {
	face, err := s.r.fontFace(sizePt, c)
	if err != nil {
		return err
	}
	s.ctx.DrawText(toMm(x), toMm(y), canvas.NewTextLine(face, line, canvas.Left))
	return nil
}

func (s *surface) DrawPlaceholder(box layout.Box, mark string) error {
	x, y, w, h := toMm(box.X), toMm(box.Y), toMm(box.W), toMm(box.H)
	ctx := s.ctx
	ctx.Push()
	defer ctx.Pop()
	ctx.SetFillColor(color.RGBA{0, 0, 0, 0})
	ctx.SetStrokeColor(colorFromLayout(placeholderColor))
	ctx.SetStrokeWidth(placeholderStroke)
	ctx.DrawPath(x, y, canvas.Rectangle(w, h))
	p := &canvas.Path{}
	p.MoveTo(0, 0)
	p.LineTo(w, h)
	p.MoveTo(0, h)
	p.LineTo(w, 0)
	ctx.DrawPath(x, y, p)
	if mark == "" || h <= 0 {
		return nil
	}
	sizePt := h / 2 * layout.MmToPt
	face, err := s.r.fontFace(sizePt, placeholderColor)
	if err != nil {
		// 框线已经画出，标记字符缺失不影响占位。
		return nil
	}
	m := face.Metrics()
	ctx.DrawText(x+w/2, y+h/2-(m.CapHeight/2), canvas.NewTextLine(face, mark, canvas.Center))
	return nil
}

func (r *Renderer) fontFace(sizePt float64, col layout.Color) (*canvas.FontFace, error) {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	if err := r.ensureFamilyLocked(); err != nil {
		return nil, err
	}
	key := faceKey{size: sizePt, color: col}
	if face, ok := r.faces[key]; ok {
		return face, nil
	}
	face := r.family.Face(sizePt, colorFromLayout(col), canvas.FontRegular, canvas.FontNormal)
	r.faces[key] = face
	return face, nil
}

// ensureFamilyLocked 只加载一次字体族，失败结果同样被缓存。
func (r *Renderer) ensureFamilyLocked() error {
	if r.famDone {
		return r.famErr
	}
	r.famDone = true
	f := r.font
	if f == nil {
		var err error
		if f, err = (fonts.Builtin{}).Load(); err != nil {
			r.famErr = err
			return err
		}
	}
	family := canvas.NewFontFamily(f.Name)
	if err := family.LoadFont(f.Data, 0, canvas.FontRegular); err != nil {
		r.famErr = fmt.Errorf("加载字体 %s 失败: %w", f.Source, err)
		return r.famErr
	}
	r.family = family
	return nil
}

// TextWidth 返回 canvas 字体面下文本宽度（mm），用于与排版测量对照。
func (r *Renderer) TextWidth(s string, sizePt float64) (float64, error) {
	face, err := r.fontFace(sizePt, layout.Black)
	if err != nil {
		return 0, err
	}
	return face.TextWidth(s), nil
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}

// toMm 将点(pt)转换为毫米(mm)。
func toMm(pt float64) float64 { return pt * layout.PtToMm }
