package layout

import (
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pawachai/qrcode-generator/dsl"
)

// buildSheet 是测试辅助：用给定 DSL 文本构建配置。
func buildSheet(t *testing.T, dslText string, opts BuildOptions) *Sheet {
	t.Helper()
	sheet, err := buildSheetErr(t, dslText, opts)
	if err != nil {
		t.Fatalf("构建失败: %v", err)
	}
	return sheet
}

func buildSheetErr(t *testing.T, dslText string, opts BuildOptions) (*Sheet, error) {
	t.Helper()
	doc, err := dsl.Parse(strings.NewReader(dslText))
	if err != nil {
		t.Fatalf("解析 DSL 失败: %v", err)
	}
	return Build(doc, opts)
}

const assetSheet = `
sheet Assets v1 {
  meta {
    title: "Asset tags"
    author: "Ops"
    keywords: ["assets", "q3"]
  }
  defaults {
    size: 25mm
    label-size: 8pt
  }
  page A4 landscape
  field ID x 10mm y 10mm width 30mm ratio 0.5 {
    color: #1F77B4
    label {
      source: "Name"
      offset: -1
      width: 40mm
      align: right
    }
  }
  field Lot
  field Photo x 100mm y 20mm width 40mm height 30mm {
    kind: image
    label: off
  }
}
`

func TestBuildAssetSheet(t *testing.T) {
	sheet := buildSheet(t, assetSheet, BuildOptions{})

	if sheet.Page.Width != 297 || sheet.Page.Height != 210 || !sheet.Page.Landscape {
		t.Fatalf("landscape A4 expected, got %+v", sheet.Page)
	}
	if sheet.Meta.Title != "Asset tags" || sheet.Meta.Creator != "qrsheet" || len(sheet.Meta.Keywords) != 2 {
		t.Fatalf("unexpected meta %+v", sheet.Meta)
	}
	if sheet.Placements.Len() != 3 {
		t.Fatalf("expected 3 placements, got %d", sheet.Placements.Len())
	}

	id := sheet.Placements.At(0)
	if id.ID != "ID" || id.Size.Width != 30 || id.Size.Height != 15 || !id.Size.Locked {
		t.Fatalf("ID placement = %+v", id)
	}
	if id.Accent == nil || id.Accent.R != 0x1F || id.Accent.B != 0xB4 {
		t.Fatalf("accent color = %+v", id.Accent)
	}
	if id.Label.Source != "Name" || id.Label.RowOffset != -1 || id.Label.Width != 40 || id.Label.Align != AlignRight {
		t.Fatalf("label = %+v", id.Label)
	}
	if id.Label.FontSize != 8 || !id.Label.Visible {
		t.Fatalf("label defaults not applied: %+v", id.Label)
	}

	lot := sheet.Placements.At(1)
	if lot.X != DefaultFieldX || lot.Size.Width != 25 {
		t.Fatalf("Lot defaults = %+v", lot)
	}
	// 第二个字段：10 + 1×(25+20) = 55mm。
	if lot.Y != 55 {
		t.Fatalf("Lot default y = %g, want 55", lot.Y)
	}

	photo := sheet.Placements.At(2)
	if photo.Kind != KindImage || photo.Size.Locked || photo.Size.Height != 30 || photo.Label.Visible {
		t.Fatalf("Photo = %+v", photo)
	}
}

func TestBuildPageOverrides(t *testing.T) {
	portrait := false
	sheet := buildSheet(t, assetSheet, BuildOptions{Page: "A5", Landscape: &portrait})
	if sheet.Page.Name != "A5" || sheet.Page.Width != 148 || sheet.Page.Height != 210 {
		t.Fatalf("override ignored: %+v", sheet.Page)
	}
}

func TestBuildCustomPage(t *testing.T) {
	sheet := buildSheet(t, "sheet S {\n  page custom 100mm 50mm\n  field A\n}\n", BuildOptions{})
	if sheet.Page.Width != 100 || sheet.Page.Height != 50 {
		t.Fatalf("custom page = %+v", sheet.Page)
	}
	// 默认 y 被限制在页面内：min(10, 50-30) = 10。
	if a := sheet.Placements.At(0); a.Y != 10 {
		t.Fatalf("A.y = %g", a.Y)
	}
}

func TestBuildDefaultYClampedToPage(t *testing.T) {
	src := "sheet S {\n  page custom 100mm 80mm\n  field A\n  field B\n  field C\n}\n"
	sheet := buildSheet(t, src, BuildOptions{})
	// C: 10 + 2×50 = 110 → 80-30 = 50
	if c := sheet.Placements.At(2); c.Y != 50 {
		t.Fatalf("C.y = %g, want 50", c.Y)
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cases := map[string]string{
		"zero width":     "sheet S {\n  field A width 0mm\n}\n",
		"duplicate":      "sheet S {\n  field A\n  field A\n}\n",
		"height+ratio":   "sheet S {\n  field A height 5mm ratio 1\n}\n",
		"bad kind":       "sheet S {\n  field A { kind: video }\n}\n",
		"bad page":       "sheet S {\n  page A9\n  field A\n}\n",
		"no fields":      "sheet S {\n  page A4\n}\n",
		"bad label prop": "sheet S {\n  field A {\n    label { font: Body }\n  }\n}\n",
		"header typo":    "sheet S {\n  field ID x 12mm y 15mm widht 50mm\n}\n",
		"dangling key":   "sheet S {\n  field ID x 12mm y\n}\n",
		"repeated key":   "sheet S {\n  field ID x 12mm x 15mm\n}\n",
		"width and size": "sheet S {\n  field ID width 20mm size 30mm\n}\n",
	}
	for name, src := range cases {
		_, err := buildSheetErr(t, src, BuildOptions{})
		var cfg *ConfigError
		if !errors.As(err, &cfg) {
			t.Fatalf("%s: expected ConfigError, got %v", name, err)
		}
	}
}

func TestConfigErrorMessage(t *testing.T) {
	_, err := buildSheetErr(t, "sheet S {\n  field ID x 12mm y 15mm widht 50mm\n}\n", BuildOptions{})
	if err == nil {
		t.Fatalf("expected an error")
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, `field "ID": `) || strings.Count(msg, "layout:") != 1 || !strings.Contains(msg, "widht") {
		t.Fatalf("unexpected message %q", msg)
	}
	if !errors.Is(err, ErrInvalidPlacement) {
		t.Fatalf("error must wrap ErrInvalidPlacement: %v", err)
	}
}

func TestBuildAutoRatioUsesProbe(t *testing.T) {
	src := "sheet S {\n  field Photo width 40mm ratio auto { kind: image }\n}\n"
	probe := ProbeFunc(func(p Placement) (string, float64, bool) {
		if p.ID != "Photo" {
			return "", 0, false
		}
		return "img/a.png", 0.75, true
	})
	sheet := buildSheet(t, src, BuildOptions{Probe: probe})
	p := sheet.Placements.At(0)
	if p.Size.Ratio != 0.75 || math.Abs(p.Size.Height-30) > 1e-9 || p.Content != "img/a.png" {
		t.Fatalf("auto ratio not bound: %+v", p)
	}
}

func TestWriteDebugJSON(t *testing.T) {
	sheet := buildSheet(t, assetSheet, BuildOptions{})
	path := filepath.Join(t.TempDir(), "sheet.json")
	if err := WriteDebugJSON(sheet, path); err != nil {
		t.Fatalf("write debug: %v", err)
	}
}
