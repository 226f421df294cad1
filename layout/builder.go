package layout

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pawachai/qrcode-generator/dsl"
)

// defaults 是 defaults 段落解析后的字段默认值。
type defaults struct {
	size       float64 // mm
	labelSize  float64 // pt
	showLabel  bool
	symbology  string
	kind       ContentKind
	labelAlign Align
}

func baseDefaults() defaults {
	return defaults{
		size:      DefaultFieldSize,
		labelSize: DefaultLabelFontSize,
		showLabel: true,
		symbology: "qr",
	}
}

// Build 根据 DSL AST 生成冻结的配置。结构错误在这里返回，渲染开始后不会再出现配置错误。
func Build(doc *dsl.Document, opts BuildOptions) (*Sheet, error) {
	if doc == nil {
		return nil, fmt.Errorf("文档为空")
	}

	page, err := resolvePage(doc, opts)
	if err != nil {
		return nil, err
	}
	def, err := collectDefaults(doc)
	if err != nil {
		return nil, err
	}

	ed := NewEditor(opts.Policy)
	for index, field := range doc.Fields() {
		p, auto, err := buildPlacement(field, def, page, index)
		if err != nil {
			return nil, err
		}
		if err := ed.Add(p); err != nil {
			return nil, err
		}
		if auto && opts.Probe != nil {
			if identity, ratio, ok := opts.Probe.Probe(p); ok {
				if err := ed.BindContent(p.ID, identity, ratio); err != nil {
					return nil, err
				}
			}
		}
	}
	if ed.Len() == 0 {
		return nil, configErrorf("", ErrInvalidPlacement, "sheet declares no field")
	}

	set, err := ed.Freeze()
	if err != nil {
		return nil, err
	}
	return &Sheet{
		Page:       page,
		Placements: set,
		Meta:       collectMeta(doc),
	}, nil
}

func resolvePage(doc *dsl.Document, opts BuildOptions) (PageGeometry, error) {
	size := "A4"
	var params []*dsl.Arg
	if section := doc.FirstPage(); section != nil {
		size, params = section.Size, section.Params
	}
	if opts.Page != "" {
		size, params = opts.Page, nil
	}

	landscape := false
	var dims []float64
	for _, token := range params {
		switch strings.ToLower(token.Value) {
		case "landscape":
			landscape = true
		case "portrait":
			landscape = false
		default:
			mm, ok := ParseLengthMM(token.Value)
			if !ok {
				return PageGeometry{}, configErrorf("", ErrInvalidPage, "unexpected page argument %q", token.Value)
			}
			dims = append(dims, mm)
		}
	}
	if opts.Landscape != nil {
		landscape = *opts.Landscape
	}

	if strings.EqualFold(size, "custom") {
		if len(dims) != 2 {
			return PageGeometry{}, configErrorf("", ErrInvalidPage, "custom page needs width and height, got %d values", len(dims))
		}
		return CustomPage(dims[0], dims[1], landscape)
	}
	return ResolvePage(size, landscape)
}

func collectDefaults(doc *dsl.Document) (defaults, error) {
	def := baseDefaults()
	for _, section := range doc.Sections {
		if section.Defaults == nil || section.Defaults.Block == nil {
			continue
		}
		for _, stmt := range section.Defaults.Block.Statements {
			if stmt.Property == nil {
				continue
			}
			key := strings.ToLower(stmt.Property.Key)
			val := stmt.Property.Value.Text()
			switch key {
			case "size", "width":
				mm, ok := ParseLengthMM(val)
				if !ok || mm <= 0 {
					return def, configErrorf("", ErrInvalidPlacement, "default size %q must be a positive length", val)
				}
				def.size = mm
			case "label-size":
				pt, ok := ParseFontSizePT(val)
				if !ok || pt <= 0 {
					return def, configErrorf("", ErrInvalidPlacement, "default label-size %q must be positive", val)
				}
				def.labelSize = pt
			case "show-label":
				on, err := parseSwitch(val)
				if err != nil {
					return def, configErrorf("", ErrInvalidPlacement, "show-label: %v", err)
				}
				def.showLabel = on
			case "symbology":
				def.symbology = strings.ToLower(val)
			case "kind":
				k, err := parseKind(val)
				if err != nil {
					return def, configErrorf("", ErrInvalidPlacement, "%v", err)
				}
				def.kind = k
			case "label-align":
				a, err := parseAlign(val)
				if err != nil {
					return def, configErrorf("", ErrInvalidPlacement, "%v", err)
				}
				def.labelAlign = a
			}
		}
	}
	return def, nil
}

// buildPlacement 解析一个 field 段落。auto 表示比例需要由首个内容决定。
func buildPlacement(sec *dsl.FieldSection, def defaults, page PageGeometry, index int) (Placement, bool, error) {
	id := ""
	if sec.Name != nil {
		id = strings.TrimSpace(sec.Name.Value)
	}
	if id == "" {
		return Placement{}, false, configErrorf("", ErrInvalidPlacement, "field needs a name")
	}

	p := Placement{
		ID:        id,
		X:         DefaultFieldX,
		Y:         defaultY(index, def.size, page.Height),
		Size:      LockedSize(def.size, 1),
		Kind:      def.kind,
		Symbology: def.symbology,
		Label: LabelSpec{
			Visible:  def.showLabel,
			FontSize: def.labelSize,
			Align:    def.labelAlign,
			Color:    Black,
		},
	}

	attrs, err := parseArgs(id, sec.Args)
	if err != nil {
		return p, false, err
	}
	auto := false
	width := def.size
	if v, ok := firstAttr(attrs, "width", "size"); ok {
		mm, err := lengthAttr(id, "width", v)
		if err != nil {
			return p, false, err
		}
		width = mm
	}
	if v, ok := attrs["x"]; ok {
		mm, err := lengthAttr(id, "x", v)
		if err != nil {
			return p, false, err
		}
		p.X = mm
	}
	if v, ok := attrs["y"]; ok {
		mm, err := lengthAttr(id, "y", v)
		if err != nil {
			return p, false, err
		}
		p.Y = mm
	}

	_, hasHeight := attrs["height"]
	_, hasRatio := attrs["ratio"]
	switch {
	case hasHeight && hasRatio:
		return p, false, configErrorf(id, ErrInvalidPlacement, "height and ratio are mutually exclusive")
	case hasHeight:
		h, err := lengthAttr(id, "height", attrs["height"])
		if err != nil {
			return p, false, err
		}
		p.Size = FreeSize(width, h)
	case hasRatio:
		raw := attrs["ratio"]
		if strings.EqualFold(raw, "auto") {
			auto = true
			p.Size = LockedSize(width, 1)
			break
		}
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return p, false, configErrorf(id, ErrInvalidPlacement, "ratio %q is not a number", raw)
		}
		p.Size = LockedSize(width, r)
	default:
		p.Size = LockedSize(width, 1)
	}

	if sec.Block != nil {
		if err := applyFieldBlock(&p, sec.Block); err != nil {
			return p, false, err
		}
	}
	return p, auto, nil
}

// defaultY 按顺序纵向堆叠，并保证字段不越出页面底边。
func defaultY(index int, size, pageHeight float64) float64 {
	y := DefaultFieldY + float64(index)*(size+DefaultFieldSpacing)
	return math.Max(0, math.Min(y, pageHeight-size))
}

func applyFieldBlock(p *Placement, block *dsl.Block) error {
	for _, stmt := range block.Statements {
		switch {
		case stmt.Property != nil:
			key := strings.ToLower(stmt.Property.Key)
			val := stmt.Property.Value.Text()
			switch key {
			case "kind":
				k, err := parseKind(val)
				if err != nil {
					return configErrorf(p.ID, ErrInvalidPlacement, "%v", err)
				}
				p.Kind = k
			case "symbology":
				p.Symbology = strings.ToLower(val)
			case "source":
				p.Source = val
			case "color":
				c, err := parseColor(val)
				if err != nil {
					return configErrorf(p.ID, ErrInvalidPlacement, "%v", err)
				}
				p.Accent = &c
			case "label":
				on, err := parseSwitch(val)
				if err != nil {
					return configErrorf(p.ID, ErrInvalidPlacement, "label: %v", err)
				}
				p.Label.Visible = on
			default:
				return configErrorf(p.ID, ErrInvalidPlacement, "unknown property %q", stmt.Property.Key)
			}
		case stmt.Group != nil && stmt.Group.Name == "label":
			p.Label.Visible = true
			if stmt.Group.Block != nil {
				if err := applyLabelBlock(p, stmt.Group.Block); err != nil {
					return err
				}
			}
		case stmt.Group != nil:
			return configErrorf(p.ID, ErrInvalidPlacement, "unknown block %q", stmt.Group.Name)
		}
	}
	return nil
}

func applyLabelBlock(p *Placement, block *dsl.Block) error {
	for _, stmt := range block.Statements {
		if stmt.Property == nil {
			continue
		}
		key := strings.ToLower(stmt.Property.Key)
		val := stmt.Property.Value.Text()
		switch key {
		case "source":
			p.Label.Source = val
		case "template":
			p.Label.Template = val
		case "offset":
			n, err := strconv.Atoi(val)
			if err != nil {
				return configErrorf(p.ID, ErrInvalidPlacement, "label offset %q is not an integer", val)
			}
			p.Label.RowOffset = n
		case "x":
			mm, ok := ParseLengthMM(val)
			if !ok {
				return configErrorf(p.ID, ErrInvalidPlacement, "label x %q is not a length", val)
			}
			p.Label.XOffset = mm
		case "width":
			mm, ok := ParseLengthMM(val)
			if !ok || mm <= 0 {
				return configErrorf(p.ID, ErrInvalidPlacement, "label width %q must be a positive length", val)
			}
			p.Label.Width = mm
		case "size":
			pt, ok := ParseFontSizePT(val)
			if !ok || pt <= 0 {
				return configErrorf(p.ID, ErrInvalidPlacement, "label size %q must be positive", val)
			}
			p.Label.FontSize = pt
		case "align":
			a, err := parseAlign(val)
			if err != nil {
				return configErrorf(p.ID, ErrInvalidPlacement, "%v", err)
			}
			p.Label.Align = a
		case "color":
			c, err := parseColor(val)
			if err != nil {
				return configErrorf(p.ID, ErrInvalidPlacement, "%v", err)
			}
			p.Label.Color = c
		case "visible":
			on, err := parseSwitch(val)
			if err != nil {
				return configErrorf(p.ID, ErrInvalidPlacement, "label visible: %v", err)
			}
			p.Label.Visible = on
		default:
			return configErrorf(p.ID, ErrInvalidPlacement, "unknown label property %q", stmt.Property.Key)
		}
	}
	return nil
}

func lengthAttr(id, key, value string) (float64, error) {
	mm, ok := ParseLengthMM(value)
	if !ok {
		return 0, configErrorf(id, ErrInvalidPlacement, "%s %q is not a length", key, value)
	}
	return mm, nil
}

func firstAttr(attrs map[string]string, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := attrs[k]; ok {
			return v, true
		}
	}
	return "", false
}

func collectMeta(doc *dsl.Document) DocumentMeta {
	meta := DocumentMeta{
		Creator: "qrsheet",
	}
	for _, section := range doc.Sections {
		if section.Meta == nil || section.Meta.Block == nil {
			continue
		}
		for _, stmt := range section.Meta.Block.Statements {
			if stmt.Property == nil {
				continue
			}
			key := strings.ToLower(stmt.Property.Key)
			switch key {
			case "title":
				meta.Title = stmt.Property.Value.Text()
			case "author":
				meta.Author = stmt.Property.Value.Text()
			case "subject":
				meta.Subject = stmt.Property.Value.Text()
			case "creator":
				meta.Creator = stmt.Property.Value.Text()
			case "keywords":
				meta.Keywords = stmt.Property.Value.Strings()
			}
		}
	}
	return meta
}

// headerKeys 是字段头部允许的键。
var headerKeys = map[string]bool{"x": true, "y": true, "width": true, "size": true, "height": true, "ratio": true}

// parseArgs 把字段头部的记号按键值对读取，拒绝未知键、重复键与缺值的键。
func parseArgs(id string, args []*dsl.Arg) (map[string]string, error) {
	result := map[string]string{}
	for cursor := 0; cursor < len(args); cursor += 2 {
		key := strings.ToLower(args[cursor].Value)
		if !headerKeys[key] {
			return nil, configErrorf(id, ErrInvalidPlacement, "unknown header key %q at %s", args[cursor].Value, args[cursor].Pos)
		}
		if cursor+1 >= len(args) {
			return nil, configErrorf(id, ErrInvalidPlacement, "header key %q has no value", key)
		}
		if _, dup := result[key]; dup {
			return nil, configErrorf(id, ErrInvalidPlacement, "header key %q given twice", key)
		}
		result[key] = args[cursor+1].Value
	}
	if _, ok := result["width"]; ok {
		if _, ok := result["size"]; ok {
			return nil, configErrorf(id, ErrInvalidPlacement, "width and size are the same setting")
		}
	}
	return result, nil
}

func parseKind(value string) (ContentKind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto":
		return KindAuto, nil
	case "code", "qr", "symbol":
		return KindCode, nil
	case "image", "img":
		return KindImage, nil
	default:
		return KindAuto, fmt.Errorf("unknown kind %q", value)
	}
}

func parseAlign(value string) (Align, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "center", "middle", "":
		return AlignCenter, nil
	case "left", "start":
		return AlignLeft, nil
	case "right", "end":
		return AlignRight, nil
	default:
		return AlignCenter, fmt.Errorf("unknown alignment %q", value)
	}
}

func parseSwitch(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "true", "yes", "show":
		return true, nil
	case "off", "false", "no", "hide":
		return false, nil
	default:
		return false, fmt.Errorf("expected on/off, got %q", value)
	}
}

// ParseColor 解析 #RGB、#RRGGBB 或 #RRGGBBAA（忽略 alpha）。
func ParseColor(value string) (Color, error) { return parseColor(value) }

func parseColor(value string) (Color, error) {
	value = strings.TrimPrefix(strings.TrimSpace(value), "#")
	switch len(value) {
	case 3:
		r := strings.Repeat(string(value[0]), 2)
		g := strings.Repeat(string(value[1]), 2)
		b := strings.Repeat(string(value[2]), 2)
		return hexColor(r, g, b)
	case 6, 8:
		return hexColor(value[0:2], value[2:4], value[4:6])
	default:
		return Color{}, fmt.Errorf("颜色值 #%s 无法解析", value)
	}
}

func hexColor(r, g, b string) (Color, error) {
	var out [3]int
	for i, s := range []string{r, g, b} {
		v, err := strconv.ParseInt(s, 16, 64)
		if err != nil {
			return Color{}, fmt.Errorf("颜色值 %s 无法解析", r+g+b)
		}
		out[i] = int(v)
	}
	return Color{R: out[0], G: out[1], B: out[2]}, nil
}
