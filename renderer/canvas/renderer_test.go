package canvasrenderer

import (
	"bytes"
	"math"
	"regexp"
	"testing"

	"github.com/pawachai/qrcode-generator/binding"
	"github.com/pawachai/qrcode-generator/compose"
	"github.com/pawachai/qrcode-generator/fonts"
	"github.com/pawachai/qrcode-generator/layout"
)

var pageObject = regexp.MustCompile(`/Type\s*/Page[^s]`)

func loadFont(t *testing.T) *fonts.Font {
	t.Helper()
	f, err := fonts.Builtin{}.Load()
	if err != nil {
		t.Fatalf("load builtin font: %v", err)
	}
	return f
}

func newComposer(t *testing.T, f *fonts.Font, placements ...layout.Placement) *compose.Composer {
	t.Helper()
	ed := layout.NewEditor(layout.AspectFollowContent)
	for _, p := range placements {
		if err := ed.Add(p); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	set, err := ed.Freeze()
	if err != nil {
		t.Fatalf("freeze: %v", err)
	}
	sheet := &layout.Sheet{
		Page:       layout.PageGeometry{Name: "A6", Width: 105, Height: 148},
		Placements: set,
		Meta:       layout.DocumentMeta{Title: "Tags", Creator: "qrsheet"},
	}
	c, err := compose.New(sheet, compose.Options{Font: f, Images: compose.FileLoader{BaseDir: t.TempDir()}})
	if err != nil {
		t.Fatalf("composer: %v", err)
	}
	return c
}

func TestRenderOnePagePerRow(t *testing.T) {
	f := loadFont(t)
	id := layout.Placement{ID: "ID", X: 10, Y: 10, Size: layout.LockedSize(30, 1),
		Label: layout.LabelSpec{Visible: true, FontSize: 8}}
	photo := layout.Placement{ID: "Photo", X: 50, Y: 10, Size: layout.FreeSize(40, 30), Kind: layout.KindImage}
	c := newComposer(t, f, id, photo)
	tbl := binding.NewTable([]string{"ID", "Photo"}, [][]binding.Value{
		{binding.Text("A-001"), binding.Text("missing.png")},
		{binding.Text("A-002"), binding.Missing},
		{binding.Missing, binding.Missing},
		{binding.Text("Λότος 7"), binding.Missing},
	})

	r := NewRenderer(Options{Font: f})
	var last float64
	data, rep, err := r.RenderReport(c, tbl, func(p float64) { last = p })
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("output is not a PDF")
	}
	if rep.Pages != 4 || last != 1 {
		t.Fatalf("report = %+v progress = %g", rep, last)
	}
	if got := len(pageObject.FindAll(data, -1)); got != 4 {
		t.Fatalf("expected 4 page objects, got %d", got)
	}
	if rep.Placeholders != 1 {
		t.Fatalf("missing image should become one placeholder, got %+v", rep)
	}
	// 希腊文标签走位图路径，字体覆盖全部字符。
	if rep.RasterLabels != 1 || rep.Labels != 3 || rep.Uncovered != 0 {
		t.Fatalf("report = %+v", rep)
	}
}

func TestRenderRejectsEmptyTable(t *testing.T) {
	f := loadFont(t)
	c := newComposer(t, f, layout.Placement{ID: "ID", X: 10, Y: 10, Size: layout.LockedSize(20, 1)})
	if _, err := NewRenderer(Options{Font: f}).Render(c, binding.NewTable([]string{"ID"}, nil), nil); err == nil {
		t.Fatalf("expected error for a table without rows")
	}
}

// TestTextWidthMatchesLayoutFont 验证 canvas 字体面与排版测量给出一致的宽度。
func TestTextWidthMatchesLayoutFont(t *testing.T) {
	f := loadFont(t)
	r := NewRenderer(Options{Font: f})
	for _, s := range []string{"SAMPLE-A", "hello world again", "0123456789"} {
		got, err := r.TextWidth(s, 12)
		if err != nil {
			t.Fatalf("canvas width: %v", err)
		}
		want := f.TextWidth(s, 12)
		if want <= 0 || math.Abs(got-want)/want > 0.03 {
			t.Fatalf("%q: canvas width %g, layout width %g", s, got, want)
		}
	}
}

func TestSurfaceUsesVectorAdapter(t *testing.T) {
	f := loadFont(t)
	r := NewRenderer(Options{Font: f})
	c := newComposer(t, f, layout.Placement{ID: "ID", X: 10, Y: 10, Size: layout.LockedSize(30, 0.5)})
	sink := &pageSink{r: r, page: c.Sheet().Page}
	var buf bytes.Buffer
	sink.writer = newWriter(&buf, sink.page)
	s, err := sink.BeginPage()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := sink.BeginPage(); err == nil {
		t.Fatalf("nested BeginPage should fail")
	}
	a := s.Adapter()
	if a.Kind() != layout.BackendVector {
		t.Fatalf("adapter kind = %v", a.Kind())
	}
	// 宽 30mm、比例 0.5 的框在 A6 上：底边位于 148-10-15 = 123mm。
	b := a.Box(layout.Box{X: 10, Y: 10, W: 30, H: 15})
	if math.Abs(toMm(b.Y)-123) > 1e-9 || math.Abs(toMm(b.X)-10) > 1e-9 {
		t.Fatalf("native box = %+v", b)
	}
	if err := s.DrawPlaceholder(b, compose.MarkImage); err != nil {
		t.Fatalf("placeholder: %v", err)
	}
	if err := sink.EndPage(); err != nil {
		t.Fatalf("end: %v", err)
	}
	if err := sink.EndPage(); err == nil {
		t.Fatalf("EndPage without an open page should fail")
	}
}
