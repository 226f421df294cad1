package layout

// BuildOptions 配置构建阶段的覆盖项与外部协作者。
type BuildOptions struct {
	// Page 非空时覆盖 page 段落的纸张名称。
	Page string
	// Landscape 非 nil 时覆盖方向。
	Landscape *bool
	// Policy 决定绑定内容变化时锁定比例如何更新。
	Policy AspectPolicy
	// Probe 为 `ratio auto` 的字段提供首个内容及其原生比例，可为 nil。
	Probe ContentProbe
}

// ContentProbe 查找字段首次出现的内容（例如第一张图片）并返回其身份与 高/宽 比例。
type ContentProbe interface {
	Probe(p Placement) (identity string, ratio float64, ok bool)
}

// ProbeFunc 把普通函数适配为 ContentProbe。
type ProbeFunc func(p Placement) (string, float64, bool)

func (f ProbeFunc) Probe(p Placement) (string, float64, bool) { return f(p) }
