package layout

// BackendKind 标识后端的原生坐标约定。
type BackendKind int

const (
	// BackendBitmap: 原点左上，y 向下，单位像素。
	BackendBitmap BackendKind = iota
	// BackendVector: 原点左下，y 向上，单位点（pt）。
	BackendVector
)

func (k BackendKind) String() string {
	if k == BackendVector {
		return "vector"
	}
	return "bitmap"
}

// Adapter 在规范坐标（mm、左上角、y 向下）与后端原生坐标之间换算。
// 所有绘制调用只接收 Adapter 换算后的矩形。
type Adapter interface {
	Kind() BackendKind
	// Scale 返回 1mm 对应的原生单位数。
	Scale() float64
	// Point 换算元素左上角 (x, y)；h 为元素高度（mm），矢量后端以元素底边为锚点。
	Point(x, y, h float64) (float64, float64)
	// Box 把规范矩形换算为原生矩形，原生矩形的 (X, Y) 是该后端的锚点。
	Box(b Box) Box
	// Canonical 是 Box 的逆变换。
	Canonical(b Box) Box
}

// BitmapAdapter 对应像素画布。OriginX/OriginY 是页面左上角在画布中的位置（mm），
// 预览在页面周围留白时使用。
type BitmapAdapter struct {
	DPI     float64
	OriginX float64
	OriginY float64
}

var _ Adapter = BitmapAdapter{}

func (a BitmapAdapter) Kind() BackendKind { return BackendBitmap }

func (a BitmapAdapter) Scale() float64 { return a.DPI / MmPerInch }

func (a BitmapAdapter) Point(x, y, _ float64) (float64, float64) {
	s := a.Scale()
	return (x + a.OriginX) * s, (y + a.OriginY) * s
}

func (a BitmapAdapter) Box(b Box) Box {
	x, y := a.Point(b.X, b.Y, b.H)
	s := a.Scale()
	return Box{X: x, Y: y, W: b.W * s, H: b.H * s}
}

func (a BitmapAdapter) Canonical(b Box) Box {
	s := a.Scale()
	return Box{X: b.X/s - a.OriginX, Y: b.Y/s - a.OriginY, W: b.W / s, H: b.H / s}
}

// VectorAdapter 对应 PDF 页面。换算时先翻转 y，再减去元素高度，
// 因为矢量原点锚定在元素底边，而规范模型锚定在左上角。
type VectorAdapter struct {
	PageHeight float64 // mm
}

var _ Adapter = VectorAdapter{}

func (a VectorAdapter) Kind() BackendKind { return BackendVector }

func (a VectorAdapter) Scale() float64 { return MmToPt }

func (a VectorAdapter) Point(x, y, h float64) (float64, float64) {
	s := a.Scale()
	return x * s, a.PageHeight*s - y*s - h*s
}

func (a VectorAdapter) Box(b Box) Box {
	x, y := a.Point(b.X, b.Y, b.H)
	s := a.Scale()
	return Box{X: x, Y: y, W: b.W * s, H: b.H * s}
}

func (a VectorAdapter) Canonical(b Box) Box {
	s := a.Scale()
	h := b.H / s
	return Box{X: b.X / s, Y: a.PageHeight - b.Y/s - h, W: b.W / s, H: h}
}

// ToBackend 换算单个点，供不持有 Adapter 的调用方使用。
// scale 对位图后端是 DPI，对矢量后端被忽略（固定为 pt）。
func ToBackend(x, y, elemH float64, kind BackendKind, pageHeight, scale float64) (float64, float64) {
	if kind == BackendVector {
		return VectorAdapter{PageHeight: pageHeight}.Point(x, y, elemH)
	}
	return BitmapAdapter{DPI: scale}.Point(x, y, elemH)
}
