package binding

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tsawler/tabula/xlsx"
)

// ErrUnsupportedFormat 表示无法识别的数据文件扩展名。
var ErrUnsupportedFormat = errors.New("binding: unsupported data format")

// LoadOptions 控制数据文件的读取方式。
type LoadOptions struct {
	// Header 为 true 时首行作为列名，否则按 A、B、C… 自动命名。
	Header bool
	// Sheet 选择工作表：名称或 0 起始序号，空串表示第一个。仅对 XLSX 生效。
	Sheet string
	// Comma 覆盖 CSV 分隔符，0 时 .tsv 用制表符，其余用逗号。
	Comma rune
}

// Load 根据扩展名读取 CSV/TSV/XLSX。
func Load(path string, opts LoadOptions) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return loadCSVFile(path, opts)
	case ".tsv":
		if opts.Comma == 0 {
			opts.Comma = '\t'
		}
		return loadCSVFile(path, opts)
	case ".xlsx", ".xlsm":
		return LoadXLSX(path, opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func loadCSVFile(path string, opts LoadOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开数据文件失败: %w", err)
	}
	defer f.Close()
	return LoadCSV(f, opts)
}

// LoadCSV 读取 CSV。单元格按 ParseCell 推断类型。
func LoadCSV(r io.Reader, opts LoadOptions) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("解析 CSV 失败: %w", err)
	}
	raw := make([][]Value, len(records))
	for i, rec := range records {
		row := make([]Value, len(rec))
		for j, cell := range rec {
			row[j] = ParseCell(strings.TrimPrefix(cell, "\ufeff"))
		}
		raw[i] = row
	}
	return shape(raw, opts.Header), nil
}

// LoadXLSX 读取 XLSX 工作表。数字单元格保留为数字，错误单元格视为缺失。
func LoadXLSX(path string, opts LoadOptions) (*Table, error) {
	rd, err := xlsx.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开工作簿失败: %w", err)
	}
	defer rd.Close()

	sheet, err := pickSheet(rd, opts.Sheet)
	if err != nil {
		return nil, err
	}

	raw := make([][]Value, len(sheet.Rows))
	for i, cells := range sheet.Rows {
		row := make([]Value, len(cells))
		for j := range cells {
			row[j] = cellValue(&cells[j])
		}
		raw[i] = row
	}
	return shape(raw, opts.Header), nil
}

// SheetNames 列出工作簿中的工作表。
func SheetNames(path string) ([]string, error) {
	rd, err := xlsx.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开工作簿失败: %w", err)
	}
	defer rd.Close()
	return rd.SheetNames(), nil
}

func pickSheet(rd *xlsx.Reader, name string) (*xlsx.Sheet, error) {
	if name == "" {
		return rd.Sheet(0)
	}
	if sh, err := rd.SheetByName(name); err == nil {
		return sh, nil
	}
	if idx, err := strconv.Atoi(name); err == nil {
		return rd.Sheet(idx)
	}
	return nil, fmt.Errorf("工作表 %q 不存在，可选: %s", name, strings.Join(rd.SheetNames(), ", "))
}

func cellValue(c *xlsx.Cell) Value {
	if c.IsEmpty() {
		return Missing
	}
	switch c.Type {
	case xlsx.CellTypeNumber:
		if f, err := strconv.ParseFloat(c.Value, 64); err == nil {
			return Number(f)
		}
		return Text(c.Value)
	case xlsx.CellTypeError:
		return Missing
	default:
		return Text(c.Value)
	}
}

// shape 把原始行转换为带列名的表格。
func shape(raw [][]Value, header bool) *Table {
	width := 0
	for _, r := range raw {
		if len(r) > width {
			width = len(r)
		}
	}
	var columns []string
	if header && len(raw) > 0 {
		for j := 0; j < width; j++ {
			name := ""
			if j < len(raw[0]) {
				name = raw[0][j].String()
			}
			columns = append(columns, name)
		}
		raw = raw[1:]
	} else {
		for j := 0; j < width; j++ {
			columns = append(columns, AlphaName(j))
		}
	}
	return NewTable(columns, raw)
}
