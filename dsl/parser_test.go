package dsl_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pawachai/qrcode-generator/dsl"
)

const sampleDSL = `
sheet AssetTags v1 {
  meta {
    title: "Asset tags"
    keywords: [
      "assets"
      "q3"
    ]
  }

  defaults {
    size: 30mm
    label-size: 7pt
    show-label: true
  }

  page A4 landscape

  field ID x 10mm y 10mm width 30mm ratio 1 {
    kind: code
    color: #1F77B4
    label {
      source: "Asset Name"
      offset: -1
      align: left
    }
  }

  field "Photo Path" x 60mm y 10mm width 40mm height 30mm {
    kind: image
    label: off
  }
}
`

func TestParseDocument(t *testing.T) {
	doc, err := dsl.ParseString(sampleDSL)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if doc.Name != "AssetTags" {
		t.Fatalf("expected document name AssetTags, got %s", doc.Name)
	}
	if doc.Version != "v1" {
		t.Fatalf("expected version v1, got %s", doc.Version)
	}
	if len(doc.Sections) != 5 {
		t.Fatalf("expected 5 sections, got %d", len(doc.Sections))
	}

	kinds := []string{"meta", "defaults", "page", "field", "field"}
	for i, want := range kinds {
		if got := doc.Sections[i].Kind(); got != want {
			t.Fatalf("section %d: expected %s, got %s", i, want, got)
		}
	}

	meta := doc.Sections[0].Meta
	title := meta.Block.Statements[0].Property
	if title == nil || title.Key != "title" {
		t.Fatalf("expected title assignment, got %+v", meta.Block.Statements[0])
	}
	if got := string(*title.Value.String); got != "Asset tags" {
		t.Fatalf("expected title Asset tags, got %s", got)
	}
	keywords := meta.Block.Statements[1].Property
	if keywords == nil || keywords.Value.List == nil || len(keywords.Value.Strings()) != 2 {
		t.Fatalf("expected two keywords, got %+v", keywords)
	}

	page := doc.Sections[2].Page
	if page.Size != "A4" {
		t.Fatalf("expected page size A4, got %s", page.Size)
	}
	if len(page.Params) != 1 || page.Params[0].Value != "landscape" {
		t.Fatalf("unexpected page params: %+v", page.Params)
	}
}

func TestParseFieldHeaderAndLabelBlock(t *testing.T) {
	doc, err := dsl.ParseString(sampleDSL)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	field := doc.Sections[3].Field
	if field.Name.Value != "ID" {
		t.Fatalf("expected field ID, got %s", field.Name.Value)
	}
	var args []string
	for _, a := range field.Args {
		args = append(args, a.Value)
	}
	if got := strings.Join(args, " "); got != "x 10mm y 10mm width 30mm ratio 1" {
		t.Fatalf("unexpected header args: %q", got)
	}
	if field.Block == nil || len(field.Block.Statements) != 3 {
		t.Fatalf("expected 3 statements in field block, got %+v", field.Block)
	}
	color := field.Block.Statements[1].Property
	if color == nil || color.Value.Color == nil || *color.Value.Color != "#1F77B4" {
		t.Fatalf("expected color assignment, got %+v", field.Block.Statements[1])
	}

	label := field.Block.Statements[2].Group
	if label == nil || label.Name != "label" || label.Block == nil {
		t.Fatalf("expected label group, got %+v", field.Block.Statements[2])
	}
	offset := label.Block.Statements[1].Property
	if offset == nil || offset.Value.Number == nil || *offset.Value.Number != "-1" {
		t.Fatalf("expected negative offset number, got %+v", label.Block.Statements[1])
	}

	photo := doc.Sections[4].Field
	if photo.Name.Value != "Photo Path" {
		t.Fatalf("expected quoted field name to be unquoted, got %q", photo.Name.Value)
	}
	off := photo.Block.Statements[1].Property
	if off == nil || off.Key != "label" || off.Value.Word == nil || off.Value.Text() != "off" {
		t.Fatalf("expected label: off assignment, got %+v", photo.Block.Statements[1])
	}
}

func TestParseFieldWithoutBlock(t *testing.T) {
	src := "sheet S {\n  field SKU x 5mm y 5mm\n  field Lot\n}\n"
	doc, err := dsl.ParseString(src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(doc.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(doc.Sections))
	}
	if doc.Sections[0].Field.Block != nil {
		t.Fatalf("expected no block for SKU")
	}
	if doc.Sections[1].Field.Name.Value != "Lot" || len(doc.Sections[1].Field.Args) != 0 {
		t.Fatalf("unexpected second field: %+v", doc.Sections[1].Field)
	}
}

func TestParseInlineListAndColors(t *testing.T) {
	src := "sheet S {\n  meta { keywords: [\"a\", \"b\", c] }\n  field A { color: #abc }\n}\n"
	doc, err := dsl.ParseString(src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	kw := doc.Sections[0].Meta.Block.Statements[0].Property
	if got := strings.Join(kw.Value.Strings(), "|"); got != "a|b|c" {
		t.Fatalf("keywords = %q", got)
	}
	fields := doc.Fields()
	if len(fields) != 1 {
		t.Fatalf("expected one field, got %d", len(fields))
	}
	c := fields[0].Block.Statements[0].Property
	if c.Value.Color == nil || c.Value.Text() != "#abc" {
		t.Fatalf("short color not lexed: %+v", c.Value)
	}
	if doc.FirstPage() != nil {
		t.Fatalf("no page section expected")
	}
}

func TestParseHeaderArgKinds(t *testing.T) {
	doc, err := dsl.ParseString("sheet S {\n  page custom 100mm 50mm\n  field \"Lot No\" x 5mm ratio auto\n}\n")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	page := doc.FirstPage()
	if page == nil || page.Size != "custom" || len(page.Params) != 2 || page.Params[0].Kind != "Number" {
		t.Fatalf("page = %+v", page)
	}
	f := doc.Fields()[0]
	if f.Name.Kind != "String" || f.Name.Value != "Lot No" {
		t.Fatalf("name = %+v", f.Name)
	}
	if len(f.Args) != 4 || f.Args[3].Kind != "Ident" || f.Args[3].Value != "auto" {
		t.Fatalf("args = %+v", f.Args)
	}
}

func TestParseFileReportsPosition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.sheet")
	if err := os.WriteFile(path, []byte("sheet S {\n  field A {\n    kind video\n  }\n}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := dsl.ParseFile(path)
	if err == nil || !strings.Contains(err.Error(), "bad.sheet") {
		t.Fatalf("expected an error naming the file, got %v", err)
	}
}

func TestParseRejectsUnknownSection(t *testing.T) {
	if _, err := dsl.ParseString("sheet S {\n  flow { }\n}\n"); err == nil {
		t.Fatalf("expected error for unknown section")
	}
}
