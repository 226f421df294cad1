package layout

import (
	"sort"
	"strings"
)

// pagePresets 以纵向 (宽, 高) 毫米记录标准纸张。
var pagePresets = map[string][2]float64{
	"A3":     {297, 420},
	"A4":     {210, 297},
	"A5":     {148, 210},
	"A6":     {105, 148},
	"B4":     {250, 353},
	"B5":     {176, 250},
	"LETTER": {215.9, 279.4},
	"LEGAL":  {215.9, 355.6},
}

// PageSizes 返回目录中的纸张名称（大写，已排序）。
func PageSizes() []string {
	names := make([]string, 0, len(pagePresets))
	for name := range pagePresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolvePage 按名称查找纸张并应用方向。方向只在这里交换一次，
// 之后所有放置坐标都基于返回的尺寸解释。
func ResolvePage(name string, landscape bool) (PageGeometry, error) {
	base, ok := pagePresets[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return PageGeometry{}, configErrorf("", ErrInvalidPage, "unsupported page size %q", name)
	}
	return orient(PageGeometry{Name: strings.ToUpper(name), Width: base[0], Height: base[1]}, landscape), nil
}

// CustomPage 构造自定义尺寸的页面，width/height 以纵向给出。
func CustomPage(width, height float64, landscape bool) (PageGeometry, error) {
	if width <= 0 || height <= 0 {
		return PageGeometry{}, configErrorf("", ErrInvalidPage, "custom page must be positive, got %gx%g mm", width, height)
	}
	return orient(PageGeometry{Name: "CUSTOM", Width: width, Height: height}, landscape), nil
}

func orient(p PageGeometry, landscape bool) PageGeometry {
	if landscape {
		p.Width, p.Height = p.Height, p.Width
		p.Landscape = true
	}
	return p
}
