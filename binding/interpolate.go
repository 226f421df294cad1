package binding

import (
	"regexp"
	"strings"
)

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Lookuper 按列名取值，ok 为 false 表示缺失。
type Lookuper interface {
	Lookup(column string) (string, bool)
}

// Lookup 让 Row 满足 Lookuper。
func (r Row) Lookup(column string) (string, bool) {
	return r.table.Lookup(column, r.index)
}

// Interpolate 将文本中的 ${列名} 替换为该行的值。
// 列不存在或值缺失时替换为空串；标签因此降级为空文本而不是报错。
func Interpolate(text string, data Lookuper) string {
	if data == nil || !strings.Contains(text, "${") {
		return text
	}
	return exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := exprPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		column := strings.TrimSpace(groups[1])
		if column == "" {
			return match
		}
		val, _ := data.Lookup(column)
		return val
	})
}

// Placeholders 返回模板中引用的列名，按出现顺序去重。
func Placeholders(text string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range exprPattern.FindAllStringSubmatch(text, -1) {
		c := strings.TrimSpace(m[1])
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
