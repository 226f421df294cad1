package layout

// 该文件定义放置模型与页面几何，供配置、合成、渲染与调试 JSON 共用。
// 所有几何量均为规范坐标：原点左上角，x 向右，y 向下，单位毫米。

// Sheet 是冻结后的完整配置：页面、放置集合与文档元信息。
type Sheet struct {
	Page       PageGeometry  `json:"page"`
	Placements *PlacementSet `json:"placements"`
	Meta       DocumentMeta  `json:"meta"`
}

// PageGeometry 记录已应用方向的页面尺寸（mm）。
type PageGeometry struct {
	Name      string  `json:"name"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Landscape bool    `json:"landscape"`
}

// ContentKind 决定主内容的解析方式。
type ContentKind int

const (
	// KindAuto 对识别为图片文件的值加载图片，其余编码为符号。
	KindAuto ContentKind = iota
	// KindCode 总是把文本编码为符号。
	KindCode
	// KindImage 总是把值当作图片路径。
	KindImage
)

func (k ContentKind) String() string {
	switch k {
	case KindCode:
		return "code"
	case KindImage:
		return "image"
	default:
		return "auto"
	}
}

// MarshalText 让调试 JSON 输出可读的名称。
func (k ContentKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Align 是标签行的水平对齐方式。
type Align int

const (
	AlignCenter Align = iota
	AlignLeft
	AlignRight
)

func (a Align) String() string {
	switch a {
	case AlignLeft:
		return "left"
	case AlignRight:
		return "right"
	default:
		return "center"
	}
}

// MarshalText 让调试 JSON 输出可读的名称。
func (a Align) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// Offset 返回宽度为 width 的行在 container 内的水平偏移。
func (a Align) Offset(container, width float64) float64 {
	switch a {
	case AlignLeft:
		return 0
	case AlignRight:
		return container - width
	default:
		return (container - width) / 2
	}
}

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// Black 是标签的默认颜色。
var Black = Color{}

// Size 描述放置框尺寸：独立宽高，或锁定宽高比（Height = Width × Ratio）。
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Ratio  float64 `json:"ratio,omitempty"`
	Locked bool    `json:"locked"`
}

// LabelSpec 是放置框下方的标签子配置。
type LabelSpec struct {
	Visible   bool    `json:"visible"`
	Source    string  `json:"source"`
	Template  string  `json:"template,omitempty"`
	RowOffset int     `json:"rowOffset"`
	XOffset   float64 `json:"xOffset"`
	Width     float64 `json:"width"`
	FontSize  float64 `json:"fontSize"` // pt
	Align     Align   `json:"align"`
	Color     Color   `json:"color"`
}

// Placement 描述每一页上同一位置的一个字段。
type Placement struct {
	ID        string      `json:"id"`
	Source    string      `json:"source"`
	X         float64     `json:"x"`
	Y         float64     `json:"y"`
	Size      Size        `json:"size"`
	Kind      ContentKind `json:"kind"`
	Symbology string      `json:"symbology"`
	Label     LabelSpec   `json:"label"`
	Accent    *Color      `json:"accent,omitempty"`  // 预览装饰色，nil 时按调色板分配
	Content   string      `json:"content,omitempty"` // 当前绑定内容的标识，用于宽高比策略
}

// Box 是一个矩形。规范坐标下为 mm、左上角；后端坐标下由 Adapter 定义。
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Bottom 返回规范坐标下的下边缘。
func (b Box) Bottom() float64 { return b.Y + b.H }

// Right 返回右边缘。
func (b Box) Right() float64 { return b.X + b.W }

// TextLine 表示排版后的一行文本内容及其宽度（mm）。
type TextLine struct {
	Content string  `json:"content"`
	Width   float64 `json:"width"`
}

// DocumentMeta 保存 PDF 元信息。
type DocumentMeta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Keywords []string `json:"keywords"`
}
