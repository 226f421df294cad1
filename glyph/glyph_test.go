package glyph

import (
	"bytes"
	"errors"
	"image"
	"math"
	"os"
	"testing"

	"github.com/pawachai/qrcode-generator/fonts"
	"github.com/pawachai/qrcode-generator/layout"
)

func builtin(t *testing.T) *fonts.Font {
	t.Helper()
	f, err := fonts.Builtin{}.Load()
	if err != nil {
		t.Fatalf("builtin font: %v", err)
	}
	return f
}

func TestRasterizeTrimsToInk(t *testing.T) {
	f := builtin(t)
	r := New(f)
	w := layout.Wrap("HELLO", 10, 40, f)
	out, err := r.Rasterize(w, 10, 40, layout.AlignLeft, layout.Black)
	if err != nil {
		t.Fatalf("rasterize: %v", err)
	}
	if out.Image == nil || out.WidthMM <= 0 || out.HeightMM <= 0 {
		t.Fatalf("empty raster: %+v", out)
	}
	// 墨迹宽度不超过测量宽度，高度小于一个行距。
	if out.WidthMM > w.MaxWidth()+0.1 {
		t.Fatalf("ink %gmm wider than measured %gmm", out.WidthMM, w.MaxWidth())
	}
	if out.HeightMM >= LinePitch*10*layout.PtToMm {
		t.Fatalf("ink height %gmm includes padding", out.HeightMM)
	}
	if out.OffsetXMM < 0 || out.OffsetXMM > 0.5 || out.OffsetYMM <= 0 {
		t.Fatalf("unexpected offsets %+v", out)
	}
	b := out.Image.Bounds()
	wantW := out.WidthMM * DefaultPrintDPI / layout.MmPerInch
	if math.Abs(float64(b.Dx())-wantW) > 1.5 {
		t.Fatalf("raster %dpx for %gmm at print DPI", b.Dx(), out.WidthMM)
	}
}

func TestRasterizeAlignment(t *testing.T) {
	f := builtin(t)
	r := New(f)
	w := layout.Wrap("ID", 8, 40, f)
	right, err := r.Rasterize(w, 8, 40, layout.AlignRight, layout.Black)
	if err != nil {
		t.Fatalf("rasterize: %v", err)
	}
	if end := right.OffsetXMM + right.WidthMM; end > 40.01 || end < 39 {
		t.Fatalf("right aligned ink ends at %gmm", end)
	}
	center, _ := r.Rasterize(w, 8, 40, layout.AlignCenter, layout.Black)
	mid := center.OffsetXMM + center.WidthMM/2
	if math.Abs(mid-20) > 0.5 {
		t.Fatalf("centred ink midpoint at %gmm", mid)
	}
}

func TestRasterizeMultiLine(t *testing.T) {
	f := builtin(t)
	r := New(f)
	one, _ := r.Rasterize(layout.Wrap("Lot", 8, 40, f), 8, 40, layout.AlignLeft, layout.Black)
	two, err := r.Rasterize(layout.Wrap("Lot\nLot", 8, 40, f), 8, 40, layout.AlignLeft, layout.Black)
	if err != nil {
		t.Fatalf("rasterize: %v", err)
	}
	pitch := LinePitch * 8 * layout.PtToMm
	if math.Abs(two.HeightMM-one.HeightMM-pitch) > 0.2 {
		t.Fatalf("second line should add one pitch: %g vs %g", two.HeightMM, one.HeightMM)
	}
}

func TestRasterizeFailures(t *testing.T) {
	var r *Rasterizer
	if _, err := r.Rasterize(layout.Wrap("x", 7, 20, nil), 7, 20, layout.AlignLeft, layout.Black); !errors.Is(err, ErrFontUnavailable) {
		t.Fatalf("expected ErrFontUnavailable, got %v", err)
	}
	if _, err := (&Rasterizer{}).Rasterize(layout.Wrap("x", 7, 20, nil), 7, 20, layout.AlignLeft, layout.Black); !errors.Is(err, ErrFontUnavailable) {
		t.Fatalf("expected ErrFontUnavailable for nil font, got %v", err)
	}
	f := builtin(t)
	if _, err := New(f).Rasterize(layout.Wrap("", 7, 20, f), 7, 20, layout.AlignLeft, layout.Black); !errors.Is(err, ErrNoInk) {
		t.Fatalf("expected ErrNoInk, got %v", err)
	}
}

func TestRasterizeRefusesUncoveredText(t *testing.T) {
	f := builtin(t)
	r := New(f)
	// Go Regular 没有泰文字形，画出来只会是一排 .notdef 方框。
	if _, err := r.Rasterize(layout.Wrap("ขคฆง", 8, 40, f), 8, 40, layout.AlignLeft, layout.Black); !errors.Is(err, ErrFontUnavailable) {
		t.Fatalf("expected ErrFontUnavailable, got %v", err)
	}
	if _, err := r.RasterizeText("ขคฆง", 8, 40, layout.AlignLeft, layout.Black); !errors.Is(err, ErrFontUnavailable) {
		t.Fatalf("RasterizeText: expected ErrFontUnavailable, got %v", err)
	}
}

func TestRasterizeUsesCoveringFallback(t *testing.T) {
	f := builtin(t)
	r := New(nil, f)
	if got := r.FontFor("Αθήνα"); got != f {
		t.Fatalf("FontFor picked %v, want the fallback font", got)
	}
	if got := r.FontFor("ขคฆง"); got != nil {
		t.Fatalf("no font covers Thai, got %v", got)
	}
	a, err := r.RasterizeText("Αθήνα", 10, 40, layout.AlignLeft, layout.Black)
	if err != nil {
		t.Fatalf("rasterize Greek: %v", err)
	}
	b, err := r.RasterizeText("Σπάρτη", 10, 40, layout.AlignLeft, layout.Black)
	if err != nil {
		t.Fatalf("rasterize Greek: %v", err)
	}
	if samePixels(a.Image, b.Image) {
		t.Fatalf("different words rasterized to identical pixels")
	}
}

// thaiFonts 是常见发行版中的泰文字体位置，找不到时跳过相关测试。
var thaiFonts = []string{
	"/usr/share/fonts/truetype/tlwg/Garuda.ttf",
	"/usr/share/fonts/truetype/noto/NotoSansThai-Regular.ttf",
	"/usr/share/fonts/noto/NotoSansThai-Regular.ttf",
	"/usr/share/fonts/google-noto/NotoSansThai-Regular.ttf",
}

func TestRasterizeThaiWithSubstitute(t *testing.T) {
	var thai *fonts.Font
	for _, path := range thaiFonts {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if f, err := (fonts.File{Path: path}).Load(); err == nil && f.CoversAll("ขคฆง") {
			thai = f
			break
		}
	}
	if thai == nil {
		t.Skip("no Thai font installed")
	}
	r := New(builtin(t), thai)
	if r.FontFor("ขคฆง") != thai {
		t.Fatalf("Thai text must switch to the Thai font")
	}
	a, err := r.RasterizeText("ขคฆง", 10, 40, layout.AlignLeft, layout.Black)
	if err != nil {
		t.Fatalf("rasterize: %v", err)
	}
	b, err := r.RasterizeText("ฉชซฌ", 10, 40, layout.AlignLeft, layout.Black)
	if err != nil {
		t.Fatalf("rasterize: %v", err)
	}
	if samePixels(a.Image, b.Image) {
		t.Fatalf("different Thai strings rasterized to identical pixels")
	}
}

func samePixels(a, b image.Image) bool {
	if a.Bounds() != b.Bounds() {
		return false
	}
	ra, okA := a.(*image.RGBA)
	rb, okB := b.(*image.RGBA)
	if !okA || !okB {
		return false
	}
	return bytes.Equal(ra.Pix, rb.Pix)
}

func TestNeedsFallback(t *testing.T) {
	f := builtin(t)
	cases := map[string]bool{
		"SKU-001 / Lot 7": false,
		"Café":            false,
		"ล็อต 7":          true,
		"東京":              true,
	}
	for in, want := range cases {
		if got := NeedsFallback(in, f); got != want {
			t.Fatalf("NeedsFallback(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeAuto, "auto": ModeAuto, "ALWAYS": ModeAlways, "never": ModeNever} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseMode("sometimes"); err == nil {
		t.Fatalf("expected error")
	}
}
