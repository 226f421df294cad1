package layout

import (
	"encoding/json"
	"math"
)

// AspectPolicy 决定锁定比例的字段在绑定内容变化时如何处理比例。
type AspectPolicy int

const (
	// AspectFollowContent 在绑定内容身份变化时按新内容的原生比例重算。
	AspectFollowContent AspectPolicy = iota
	// AspectPinned 保留首次发现内容时确定的比例，直到显式重置。
	AspectPinned
)

func (p AspectPolicy) String() string {
	if p == AspectPinned {
		return "pinned"
	}
	return "follow"
}

// Editor 是配置阶段唯一可变的放置集合。每个操作都显式接收目标字段 ID。
// Freeze 之后 Editor 拒绝进一步修改。
type Editor struct {
	Policy AspectPolicy

	order  []string
	fields map[string]*Placement
	frozen bool
}

// NewEditor 创建空的编辑器。
func NewEditor(policy AspectPolicy) *Editor {
	return &Editor{Policy: policy, fields: map[string]*Placement{}}
}

// Add 追加一个字段，ID 必须唯一；集合顺序即插入顺序。
func (e *Editor) Add(p Placement) error {
	if e.frozen {
		return configErrorf(p.ID, ErrFrozen, "cannot add field")
	}
	if _, ok := e.fields[p.ID]; ok {
		return configErrorf(p.ID, ErrDuplicateField, "field already defined")
	}
	cp := p
	e.fields[p.ID] = &cp
	e.order = append(e.order, p.ID)
	return nil
}

// Get 返回字段的副本。
func (e *Editor) Get(id string) (Placement, bool) {
	p, ok := e.fields[id]
	if !ok {
		return Placement{}, false
	}
	return *p, true
}

// Len 返回字段数量。
func (e *Editor) Len() int { return len(e.order) }

func (e *Editor) edit(id string, fn func(p *Placement)) error {
	if e.frozen {
		return configErrorf(id, ErrFrozen, "cannot edit field")
	}
	p, ok := e.fields[id]
	if !ok {
		return configErrorf(id, ErrUnknownField, "no such field")
	}
	fn(p)
	return nil
}

// Move 设置字段左上角位置（mm）。
func (e *Editor) Move(id string, x, y float64) error {
	return e.edit(id, func(p *Placement) { p.X, p.Y = x, y })
}

// Resize 修改宽度。锁定比例时高度随之变化，否则高度不变。
func (e *Editor) Resize(id string, width float64) error {
	return e.edit(id, func(p *Placement) { p.Size = p.Size.WithWidth(width) })
}

// SetHeight 修改高度。
func (e *Editor) SetHeight(id string, height float64) error {
	return e.edit(id, func(p *Placement) { p.Size = p.Size.WithHeight(height) })
}

// LockAspect 以给定比例锁定，宽度保持不变。
func (e *Editor) LockAspect(id string, ratio float64) error {
	return e.edit(id, func(p *Placement) { p.Size = p.Size.Lock(ratio) })
}

// Unlock 解除比例锁定，宽高保持当前值。
func (e *Editor) Unlock(id string) error {
	return e.edit(id, func(p *Placement) { p.Size = p.Size.Unlock() })
}

// ResetAspect 丢弃已记录的内容身份；下一次 BindContent 会重新确定比例。
func (e *Editor) ResetAspect(id string) error {
	return e.edit(id, func(p *Placement) { p.Content = "" })
}

// BindContent 把内容（如图片路径）绑定到字段，nativeRatio 为内容的 高/宽。
// 比例只在内容身份变化时重算；首次绑定总是确定比例，之后由 Policy 决定。
// 未锁定的字段只记录身份。
func (e *Editor) BindContent(id, identity string, nativeRatio float64) error {
	return e.edit(id, func(p *Placement) {
		if p.Content == identity {
			return
		}
		first := p.Content == ""
		p.Content = identity
		if !p.Size.Locked || nativeRatio <= 0 || math.IsInf(nativeRatio, 0) {
			return
		}
		if first || e.Policy == AspectFollowContent {
			p.Size = p.Size.Lock(nativeRatio)
		}
	})
}

// SetLabel 整体替换标签子配置。
func (e *Editor) SetLabel(id string, label LabelSpec) error {
	return e.edit(id, func(p *Placement) { p.Label = label })
}

// Freeze 校验全部字段并返回不可变快照。成功后 Editor 不再接受修改。
func (e *Editor) Freeze() (*PlacementSet, error) {
	items := make([]Placement, 0, len(e.order))
	for _, id := range e.order {
		p := *e.fields[id]
		if err := p.Validate(); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	e.frozen = true
	index := make(map[string]int, len(items))
	for i, p := range items {
		index[p.ID] = i
	}
	return &PlacementSet{items: items, index: index}, nil
}

// PlacementSet 是冻结后的放置集合，渲染期间只读。
type PlacementSet struct {
	items []Placement
	index map[string]int
}

// Len 返回字段数量。
func (s *PlacementSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// At 返回第 i 个字段（插入顺序）。
func (s *PlacementSet) At(i int) Placement { return s.items[i] }

// Get 按 ID 查找字段。
func (s *PlacementSet) Get(id string) (Placement, bool) {
	if s == nil {
		return Placement{}, false
	}
	i, ok := s.index[id]
	if !ok {
		return Placement{}, false
	}
	return s.items[i], true
}

// All 返回字段副本，调用方修改不会影响集合。
func (s *PlacementSet) All() []Placement {
	if s == nil {
		return nil
	}
	out := make([]Placement, len(s.items))
	copy(out, s.items)
	return out
}

func (s *PlacementSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.All())
}
