package fonts

import (
	"errors"
	"fmt"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

const ptToMm = 25.4 / 72.0

// ErrNoFont 表示所有候选来源都没有提供可用字体。
var ErrNoFont = errors.New("fonts: no usable font")

// ErrNotCovered 表示已加载的字体都缺少文本中的某些字符。
var ErrNotCovered = errors.New("fonts: no font covers text")

// Font 是解析后的字体。TrueType 轮廓走 freetype，CFF 轮廓的 OpenType 走 sfnt。
// 字形面按 (字号, DPI) 缓存，渲染单线程进行，锁只保护缓存本身。
type Font struct {
	Name   string
	Source string
	Data   []byte

	tt  *truetype.Font
	otf *sfnt.Font

	mu    sync.Mutex
	faces map[faceKey]font.Face
	buf   sfnt.Buffer
}

type faceKey struct {
	size float64
	dpi  float64
}

// Parse 解析 TTF/OTF 字节。
func Parse(source string, data []byte) (*Font, error) {
	f := &Font{Source: source, Data: data, faces: map[faceKey]font.Face{}}
	if tt, err := truetype.Parse(data); err == nil {
		f.tt = tt
		f.Name = tt.Name(truetype.NameIDFontFullName)
		return f, nil
	}
	otf, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("解析字体 %s 失败: %w", source, err)
	}
	f.otf = otf
	f.Name, _ = otf.Name(&f.buf, sfnt.NameIDFull)
	return f, nil
}

// Face 返回给定字号（pt）与分辨率的字形面。
func (f *Font) Face(sizePt, dpi float64) font.Face {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.faceLocked(sizePt, dpi)
}

func (f *Font) faceLocked(sizePt, dpi float64) font.Face {
	key := faceKey{sizePt, dpi}
	if face, ok := f.faces[key]; ok {
		return face
	}
	var face font.Face
	if f.tt != nil {
		face = truetype.NewFace(f.tt, &truetype.Options{Size: sizePt, DPI: dpi, Hinting: font.HintingNone})
	} else {
		var err error
		face, err = opentype.NewFace(f.otf, &opentype.FaceOptions{Size: sizePt, DPI: dpi, Hinting: font.HintingNone})
		if err != nil {
			return nil
		}
	}
	f.faces[key] = face
	return face
}

// TextWidth 返回 s 在 sizePt 下的前进宽度（mm）。
func (f *Font) TextWidth(s string, sizePt float64) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	face := f.faceLocked(sizePt, 72)
	if face == nil {
		return 0
	}
	return fixedToFloat(font.MeasureString(face, s)) * ptToMm
}

// Metrics 返回上伸、下伸与行高（mm）。
func (f *Font) Metrics(sizePt float64) (ascent, descent, height float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	face := f.faceLocked(sizePt, 72)
	if face == nil {
		return sizePt * 0.8 * ptToMm, sizePt * 0.2 * ptToMm, sizePt * ptToMm
	}
	m := face.Metrics()
	return fixedToFloat(m.Ascent) * ptToMm, fixedToFloat(m.Descent) * ptToMm, fixedToFloat(m.Height) * ptToMm
}

// Covers 判断字体是否包含 r 的字形。
func (f *Font) Covers(r rune) bool {
	if f.tt != nil {
		return f.tt.Index(r) != 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	idx, err := f.otf.GlyphIndex(&f.buf, r)
	return err == nil && idx != 0
}

// CoversAll 判断字体是否包含 s 中所有非空白字符。
func (f *Font) CoversAll(s string) bool {
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' {
			continue
		}
		if !f.Covers(r) {
			return false
		}
	}
	return true
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
