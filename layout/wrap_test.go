package layout

import (
	"math"
	"strings"
	"testing"
	"unicode/utf8"
)

// perRune 每个字符宽 factor×size（mm），与具体字体无关。
func perRune(factor float64) Measurer {
	return MeasureFunc(func(s string, sizePt float64) float64 {
		return float64(utf8.RuneCountInString(s)) * factor * sizePt
	})
}

func TestWrapEmptyYieldsOneLine(t *testing.T) {
	w := Wrap("", 7, 20, perRune(0.6))
	if w.Len() != 1 || w.Line(0).Content != "" {
		t.Fatalf("expected exactly one empty line, got %q", w.Strings())
	}
}

func TestWrapUnsegmentedScenario(t *testing.T) {
	text := "abcdefghijklmnopqrstuvwxyz"
	w := Wrap(text, 7, 20, perRune(0.6))
	perLine := int(math.Floor(20 / (0.6 * 7)))
	want := int(math.Ceil(float64(len(text)) / float64(perLine)))
	if w.Len() != want {
		t.Fatalf("expected %d lines, got %d: %q", want, w.Len(), w.Strings())
	}
	for i, l := range w.Lines() {
		if i < w.Len()-1 && utf8.RuneCountInString(l.Content) != perLine {
			t.Fatalf("line %d holds %q, expected %d chars", i, l.Content, perLine)
		}
	}
	if got := strings.Join(w.Strings(), ""); got != text {
		t.Fatalf("concatenation changed text: %q", got)
	}
}

func TestWrapWordsGreedy(t *testing.T) {
	// 每字符 1mm，宽度 10mm。
	w := Wrap("alpha beta gamma delta", 1, 10, perRune(1))
	want := []string{"alpha beta", "gamma", "delta"}
	if got := w.Strings(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("got %q want %q", got, want)
	}
	if w.MaxWidth() != 10 {
		t.Fatalf("max width = %g", w.MaxWidth())
	}
}

func TestWrapOversizeWordKeptWhole(t *testing.T) {
	w := Wrap("a supercalifragilistic b", 1, 6, perRune(1))
	if w.Len() != 3 || w.Line(1).Content != "supercalifragilistic" {
		t.Fatalf("oversize word must stand alone: %q", w.Strings())
	}
}

func TestWrapClampsMinimumWidth(t *testing.T) {
	w := Wrap("abcdefghij", 1, 0.5, perRune(1))
	for _, l := range w.Lines() {
		if l.Width > MinWrapWidth {
			t.Fatalf("line %q exceeds clamped width", l.Content)
		}
	}
	if w.Len() != 2 {
		t.Fatalf("expected 2 lines at 5mm, got %q", w.Strings())
	}
}

func TestWrapHardBreaks(t *testing.T) {
	w := Wrap("Lot 7\nShelf B", 1, 100, perRune(1))
	if got := w.Strings(); len(got) != 2 || got[0] != "Lot 7" || got[1] != "Shelf B" {
		t.Fatalf("hard breaks not honoured: %q", got)
	}
}

func TestWrapKeepsCombiningMarks(t *testing.T) {
	// 组合符号必须与基字符留在同一行。
	text := strings.Repeat("e\u0301", 6)
	w := Wrap(text, 1, 5, MeasureFunc(func(s string, _ float64) float64 {
		return float64(len(clusters(s)))
	}))
	if w.Len() != 2 {
		t.Fatalf("expected 2 lines, got %q", w.Strings())
	}
	for _, l := range w.Lines() {
		if r, _ := utf8.DecodeRuneInString(l.Content); r == '\u0301' {
			t.Fatalf("line starts with a combining mark: %q", w.Strings())
		}
	}
	if strings.Join(w.Strings(), "") != text {
		t.Fatalf("bytes changed: %q", w.Strings())
	}
}

func TestWrappedTextIsImmutable(t *testing.T) {
	w := Wrap("a b", 1, 100, perRune(1))
	lines := w.Lines()
	lines[0].Content = "mutated"
	if w.Line(0).Content != "a b" {
		t.Fatalf("Lines must return a copy")
	}
}

func TestEstimateMeasurer(t *testing.T) {
	got := EstimateMeasurer{}.TextWidth("abcd", 10)
	want := 4 * 10 * 0.55 * PtToMm
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("estimate = %g want %g", got, want)
	}
}
