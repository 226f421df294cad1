package layout

import (
	"encoding/json"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Measurer measures the advance width of s, in millimeters, at sizePt points.
// Both backends wrap through the same Measurer so that line breaks agree.
type Measurer interface {
	TextWidth(s string, sizePt float64) float64
}

// MeasureFunc adapts a plain function to Measurer.
type MeasureFunc func(s string, sizePt float64) float64

func (f MeasureFunc) TextWidth(s string, sizePt float64) float64 { return f(s, sizePt) }

// EstimateMeasurer approximates glyph advance as a fixed fraction of the
// font size per character cluster. It is the last resort when no font loads.
type EstimateMeasurer struct {
	Factor float64 // em fraction per cluster, 0 means 0.55
}

func (m EstimateMeasurer) TextWidth(s string, sizePt float64) float64 {
	f := m.Factor
	if f <= 0 {
		f = 0.55
	}
	return float64(len(clusters(s))) * sizePt * f * PtToMm
}

// WrappedText is the immutable result of Wrap. It always holds at least one line.
type WrappedText struct {
	lines  []TextLine
	sizePt float64
}

// Len returns the number of lines, never zero for a value produced by Wrap.
func (w WrappedText) Len() int { return len(w.lines) }

// Line returns the i-th line.
func (w WrappedText) Line(i int) TextLine { return w.lines[i] }

// Lines returns a copy of all lines.
func (w WrappedText) Lines() []TextLine {
	out := make([]TextLine, len(w.lines))
	copy(out, w.lines)
	return out
}

// Strings returns the line contents only.
func (w WrappedText) Strings() []string {
	out := make([]string, len(w.lines))
	for i, l := range w.lines {
		out[i] = l.Content
	}
	return out
}

// SizePt is the font size the text was measured at.
func (w WrappedText) SizePt() float64 { return w.sizePt }

// MaxWidth returns the widest measured line in millimeters.
func (w WrappedText) MaxWidth() float64 {
	var m float64
	for _, l := range w.lines {
		if l.Width > m {
			m = l.Width
		}
	}
	return m
}

func (w WrappedText) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.lines)
}

// Wrap breaks text into lines no wider than maxWidthMM where possible.
//
// Hard newlines start a new paragraph. A paragraph that contains whitespace is
// packed word by word; one without whitespace is packed by character cluster.
// A single unit wider than the limit still gets a line of its own. Empty input
// yields one empty line.
func Wrap(text string, sizePt, maxWidthMM float64, m Measurer) WrappedText {
	if m == nil {
		m = EstimateMeasurer{}
	}
	if maxWidthMM < MinWrapWidth {
		maxWidthMM = MinWrapWidth
	}
	w := WrappedText{sizePt: sizePt}
	measure := func(s string) TextLine {
		return TextLine{Content: s, Width: m.TextWidth(s, sizePt)}
	}
	if text == "" {
		w.lines = []TextLine{measure("")}
		return w
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	for _, para := range strings.Split(text, "\n") {
		var lines []string
		if strings.IndexFunc(para, unicode.IsSpace) >= 0 {
			lines = packWords(strings.Fields(para), sizePt, maxWidthMM, m)
		} else {
			lines = packClusters(clusters(para), sizePt, maxWidthMM, m)
		}
		if len(lines) == 0 {
			lines = []string{""}
		}
		for _, l := range lines {
			w.lines = append(w.lines, measure(l))
		}
	}
	return w
}

func packWords(words []string, sizePt, limit float64, m Measurer) []string {
	var lines []string
	cur := ""
	for _, word := range words {
		if cur == "" {
			cur = word
			continue
		}
		cand := cur + " " + word
		if m.TextWidth(cand, sizePt) > limit {
			lines = append(lines, cur)
			cur = word
			continue
		}
		cur = cand
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

func packClusters(parts []string, sizePt, limit float64, m Measurer) []string {
	var lines []string
	var cur strings.Builder
	for _, c := range parts {
		if cur.Len() > 0 && m.TextWidth(cur.String()+c, sizePt) > limit {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		cur.WriteString(c)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}

// clusters splits s into base characters with their combining marks
// attached. The input bytes are kept as they are, so joining the result
// reproduces s exactly.
func clusters(s string) []string {
	var out []string
	for len(s) > 0 {
		n := norm.NFC.NextBoundaryInString(s, true)
		if n <= 0 {
			n = len(s)
		}
		out = append(out, s[:n])
		s = s[n:]
	}
	return out
}
