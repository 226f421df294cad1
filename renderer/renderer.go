package renderer

import (
	"github.com/pawachai/qrcode-generator/binding"
	"github.com/pawachai/qrcode-generator/compose"
	"github.com/pawachai/qrcode-generator/layout"
)

// Renderer 将配置与数据表输出为最终文件，例如 PDF 或 PNG 预览。
// Render 返回生成的二进制数据以及可能的错误；progress 可为 nil。
type Renderer interface {
	Render(c *compose.Composer, tbl *binding.Table, progress func(float64)) ([]byte, error)
}

// Palette 是预览中字段轮廓与名称徽标的循环配色。
var Palette = []layout.Color{
	{R: 0xE7, G: 0x4C, B: 0x3C}, {R: 0x34, G: 0x98, B: 0xDB}, {R: 0x2E, G: 0xCC, B: 0x71}, {R: 0xF3, G: 0x9C, B: 0x12},
	{R: 0x9B, G: 0x59, B: 0xB6}, {R: 0x1A, G: 0xBC, B: 0x9C}, {R: 0xE6, G: 0x7E, B: 0x22}, {R: 0x34, G: 0x49, B: 0x5E},
	{R: 0xD3, G: 0x54, B: 0x00}, {R: 0x16, G: 0xA0, B: 0x85}, {R: 0xC0, G: 0x39, B: 0x2B}, {R: 0x29, G: 0x80, B: 0xB9},
}

// FieldColor 返回第 i 个字段的装饰色，配置了 Accent 时优先使用。
func FieldColor(i int, p layout.Placement) layout.Color {
	if p.Accent != nil {
		return *p.Accent
	}
	return Palette[i%len(Palette)]
}
