package binding

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Value 是表格中的一个标量：文本、数字或缺失。
type Value struct {
	Text     string
	Number   float64
	IsNumber bool
	Missing  bool
}

// Text 构造文本值；空白文本视为缺失。
func Text(s string) Value {
	if strings.TrimSpace(s) == "" {
		return Value{Missing: true}
	}
	return Value{Text: s}
}

// Number 构造数字值；NaN 视为缺失。
func Number(f float64) Value {
	if math.IsNaN(f) {
		return Value{Missing: true}
	}
	return Value{Number: f, IsNumber: true}
}

// Missing 是缺失值。
var Missing = Value{Missing: true}

// ParseCell 推断原始单元格文本的类型。带前导零的数字（如 "007"）保留为文本，
// 以免编号被改写。
func ParseCell(raw string) Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Missing
	}
	if hasLeadingZero(s) {
		return Text(raw)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return Text(raw)
	}
	return Number(f)
}

func hasLeadingZero(s string) bool {
	s = strings.TrimPrefix(s, "-")
	return len(s) > 1 && s[0] == '0' && s[1] != '.'
}

// String 输出值的展示形式：整数不带小数点，缺失为空串。
func (v Value) String() string {
	switch {
	case v.Missing:
		return ""
	case v.IsNumber:
		if v.Number == math.Trunc(v.Number) && math.Abs(v.Number) < 1e15 {
			return strconv.FormatFloat(v.Number, 'f', 0, 64)
		}
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	default:
		return v.Text
	}
}

// Empty 判断值是否为空（缺失或仅含空白）。
func (v Value) Empty() bool {
	return v.Missing || (!v.IsNumber && strings.TrimSpace(v.Text) == "")
}

// Table 是按列名访问的只读矩形表格。
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]Value
}

// NewTable 构造表格。列名按 NFC 规范化，重复列名追加 ".1"、".2" 后缀；
// 行长度不足的部分视为缺失。
func NewTable(columns []string, rows [][]Value) *Table {
	t := &Table{index: make(map[string]int, len(columns))}
	seen := map[string]int{} // 每个基名已用到的最大后缀
	for i, c := range columns {
		name := norm.NFC.String(strings.TrimSpace(c))
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if _, taken := t.index[name]; taken {
			// 生成的名称也可能与已有列冲突，继续递增直到空闲。
			base, n := name, seen[name]
			for {
				n++
				name = fmt.Sprintf("%s.%d", base, n)
				if _, taken := t.index[name]; !taken {
					break
				}
			}
			seen[base] = n
		}
		t.index[name] = len(t.columns)
		t.columns = append(t.columns, name)
	}
	t.rows = make([][]Value, len(rows))
	for i, r := range rows {
		row := make([]Value, len(t.columns))
		for j := range row {
			if j < len(r) {
				row[j] = r[j]
			} else {
				row[j] = Missing
			}
		}
		t.rows[i] = row
	}
	return t
}

// Columns 返回列名副本。
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Len 返回行数。
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// HasColumn 判断列是否存在。
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[norm.NFC.String(name)]
	return ok
}

// Value 返回单元格；列不存在或行越界时返回缺失值。
func (t *Table) Value(column string, row int) Value {
	if t == nil || row < 0 || row >= len(t.rows) {
		return Missing
	}
	j, ok := t.index[norm.NFC.String(column)]
	if !ok {
		return Missing
	}
	return t.rows[row][j]
}

// Lookup 返回单元格的展示文本；空或缺失时 ok 为 false。
func (t *Table) Lookup(column string, row int) (string, bool) {
	v := t.Value(column, row)
	if v.Empty() {
		return "", false
	}
	return v.String(), true
}

// Row 返回第 i 行的视图。
func (t *Table) Row(i int) Row { return Row{table: t, index: i} }

// FirstNonEmpty 返回列中第一个非空值所在行。
func (t *Table) FirstNonEmpty(column string) (int, bool) {
	for i := 0; i < t.Len(); i++ {
		if _, ok := t.Lookup(column, i); ok {
			return i, true
		}
	}
	return 0, false
}

// Select 按 1 起始、闭区间选取行；to 为 0 表示到末尾。
func (t *Table) Select(from, to int) (*Table, error) {
	n := t.Len()
	if from <= 0 {
		from = 1
	}
	if to <= 0 || to > n {
		to = n
	}
	if from > to {
		return nil, fmt.Errorf("binding: row range %d-%d is empty (table has %d rows)", from, to, n)
	}
	return &Table{columns: t.columns, index: t.index, rows: t.rows[from-1 : to]}, nil
}

// Row 是表格中一行的只读视图。
type Row struct {
	table *Table
	index int
}

// Index 返回行号（0 起始）。
func (r Row) Index() int { return r.index }

// Get 返回列的展示文本，缺失时为空串。
func (r Row) Get(column string) string {
	s, _ := r.table.Lookup(column, r.index)
	return s
}

// AlphaName 返回第 i 列（0 起始）的字母列名：A…Z, AA, AB…
func AlphaName(i int) string {
	name := ""
	for n := i + 1; n > 0; n = (n - 1) / 26 {
		name = string(rune('A'+(n-1)%26)) + name
	}
	return name
}
