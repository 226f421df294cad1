package layout

import (
	"path/filepath"
	"strings"
)

// Defaults that mirror the values a new field receives when nothing is configured.
const (
	DefaultFieldSize     = 30.0 // mm
	DefaultLabelFontSize = 7.0  // pt
	DefaultFieldX        = 10.0 // mm
	DefaultFieldY        = 10.0 // mm
	DefaultFieldSpacing  = 20.0 // mm，默认纵向堆叠时相邻字段之间的间隔

	// LabelGap 是内容框底边与标签首行之间的固定间距（2pt）。
	LabelGap = 2 * PtToMm
	// LabelLineFactor 是原生文本路径的行距倍数。
	LabelLineFactor = 1.4
	// MinWrapWidth 是换行宽度下限（mm）。
	MinWrapWidth = 5.0
)

// LockedSize 返回锁定宽高比的尺寸。
func LockedSize(width, ratio float64) Size {
	return Size{Width: width, Height: width * ratio, Ratio: ratio, Locked: true}
}

// FreeSize 返回独立宽高的尺寸。
func FreeSize(width, height float64) Size {
	return Size{Width: width, Height: height}
}

// WithWidth 修改宽度；锁定时总是按比例重新计算高度。
func (s Size) WithWidth(w float64) Size {
	s.Width = w
	if s.Locked {
		s.Height = w * s.Ratio
	}
	return s
}

// WithHeight 修改高度；锁定时保持比例并反推宽度。
func (s Size) WithHeight(h float64) Size {
	s.Height = h
	if s.Locked && s.Ratio > 0 {
		s.Width = h / s.Ratio
	}
	return s
}

// Lock 以给定比例锁定尺寸，宽度不变。
func (s Size) Lock(ratio float64) Size {
	return LockedSize(s.Width, ratio)
}

// Unlock 解除锁定，保留当前宽高。
func (s Size) Unlock() Size {
	s.Locked = false
	s.Ratio = 0
	return s
}

// Box 返回放置在规范坐标中的内容框。
func (p Placement) Box() Box {
	return Box{X: p.X, Y: p.Y, W: p.Size.Width, H: p.Size.Height}
}

// SourceColumn 返回主内容所在列，未配置时即字段 ID。
func (p Placement) SourceColumn() string {
	if p.Source != "" {
		return p.Source
	}
	return p.ID
}

// LabelColumn 返回标签取值列，未配置时沿用主内容列。
func (p Placement) LabelColumn() string {
	if p.Label.Source != "" {
		return p.Label.Source
	}
	return p.SourceColumn()
}

// LabelWidth 返回标签宽度，未配置时与内容框同宽。
func (p Placement) LabelWidth() float64 {
	if p.Label.Width > 0 {
		return p.Label.Width
	}
	return p.Size.Width
}

// LabelFontSize 返回标签字号（pt）。
func (p Placement) LabelFontSize() float64 {
	if p.Label.FontSize > 0 {
		return p.Label.FontSize
	}
	return DefaultLabelFontSize
}

// LabelLineHeight 返回原生文本路径的行距（mm）。
func (p Placement) LabelLineHeight() float64 {
	spec := LineHeightSpec{Kind: LineHeightFactor, Factor: LabelLineFactor}
	return spec.Resolve(Points(p.LabelFontSize()), UnitMM)
}

// LabelOrigin 返回标签首行左上角（规范坐标，mm）。
func (p Placement) LabelOrigin() (float64, float64) {
	return p.X + p.Label.XOffset, p.Y + p.Size.Height + LabelGap
}

// LabelRow 计算标签取值行：current + offset，超出 [0, rowCount) 时返回 false。
func LabelRow(current, offset, rowCount int) (int, bool) {
	idx := current + offset
	if idx < 0 || idx >= rowCount {
		return 0, false
	}
	return idx, true
}

// Validate 检查结构性错误。位置超出页面不是错误。
func (p Placement) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return configErrorf(p.ID, ErrInvalidPlacement, "field id must not be empty")
	}
	if p.X < 0 || p.Y < 0 {
		return configErrorf(p.ID, ErrInvalidPlacement, "position must be non-negative, got (%g, %g)", p.X, p.Y)
	}
	if p.Size.Width <= 0 {
		return configErrorf(p.ID, ErrInvalidPlacement, "width must be positive, got %g", p.Size.Width)
	}
	if p.Size.Locked && p.Size.Ratio <= 0 {
		return configErrorf(p.ID, ErrInvalidPlacement, "aspect ratio must be positive, got %g", p.Size.Ratio)
	}
	if p.Size.Height <= 0 {
		return configErrorf(p.ID, ErrInvalidPlacement, "height must be positive, got %g", p.Size.Height)
	}
	if p.Label.Visible {
		if p.Label.Width < 0 {
			return configErrorf(p.ID, ErrInvalidPlacement, "label width must not be negative, got %g", p.Label.Width)
		}
		if p.Label.FontSize < 0 {
			return configErrorf(p.ID, ErrInvalidPlacement, "label font size must not be negative, got %g", p.Label.FontSize)
		}
	}
	return nil
}

// ResolvedKind 是某一行主内容的解析结果。
type ResolvedKind int

const (
	ContentNone ResolvedKind = iota
	ContentCode
	ContentImage
)

// imageExtensions 是被识别为图片文件引用的扩展名。
var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// IsImageRef 判断值是否像图片文件路径。
func IsImageRef(value string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(strings.TrimSpace(value)))]
}

// Resolve 根据内容类型与值决定如何绘制。空值总是 ContentNone。
func (p Placement) Resolve(value string) ResolvedKind {
	if strings.TrimSpace(value) == "" {
		return ContentNone
	}
	switch p.Kind {
	case KindCode:
		return ContentCode
	case KindImage:
		return ContentImage
	default:
		if IsImageRef(value) {
			return ContentImage
		}
		return ContentCode
	}
}
