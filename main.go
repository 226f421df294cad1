package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pawachai/qrcode-generator/binding"
	"github.com/pawachai/qrcode-generator/compose"
	"github.com/pawachai/qrcode-generator/dsl"
	"github.com/pawachai/qrcode-generator/fonts"
	"github.com/pawachai/qrcode-generator/glyph"
	"github.com/pawachai/qrcode-generator/layout"
	canvasrenderer "github.com/pawachai/qrcode-generator/renderer/canvas"
	rasterrenderer "github.com/pawachai/qrcode-generator/renderer/raster"
)

const (
	// fontEnv 是字体路径列表的环境变量，按系统路径分隔符分隔。
	fontEnv = "QRSHEET_FONT"
	// fallbackEnv 列出标签字体缺字时用于位图标签的替补字体。
	fallbackEnv = "QRSHEET_FALLBACK_FONT"
)

type config struct {
	data       string
	sheet      string
	header     bool
	layoutPath string
	output     string
	preview    string
	previewDPI float64
	decorate   bool
	sample     bool
	from, to   int
	fontList   string
	fallback   string
	glyphMode  string
	assets     string
	page       string
	landscape  *bool
	debug      string
	verbose    bool
}

func main() {
	var cfg config
	flag.StringVar(&cfg.data, "in", "examples/assets.csv", "数据表路径（.csv/.tsv/.xlsx）")
	flag.StringVar(&cfg.sheet, "sheet", "", "XLSX 工作表名称或序号")
	flag.BoolVar(&cfg.header, "header", true, "首行作为列名")
	flag.StringVar(&cfg.layoutPath, "layout", "examples/assets.sheet", "字段布局 DSL 文件")
	flag.StringVar(&cfg.output, "out", "output/labels.pdf", "PDF 输出路径")
	flag.StringVar(&cfg.preview, "preview", "", "PNG 预览输出路径")
	flag.Float64Var(&cfg.previewDPI, "preview-dpi", rasterrenderer.DefaultDPI, "预览分辨率")
	flag.BoolVar(&cfg.decorate, "decorate", true, "预览中绘制字段轮廓与名称徽标")
	flag.BoolVar(&cfg.sample, "sample", false, "预览时每个字段使用第一个非空值")
	flag.IntVar(&cfg.from, "from", 0, "起始行（1 起始，含）")
	flag.IntVar(&cfg.to, "to", 0, "结束行（含），0 表示到末尾")
	flag.StringVar(&cfg.fontList, "font", "", "标签字体文件，逗号分隔，按顺序尝试")
	flag.StringVar(&cfg.fallback, "fallback-font", "", "替补字体文件，逗号分隔；标签字体缺字时按顺序选用第一个能覆盖的")
	flag.StringVar(&cfg.glyphMode, "glyph", "auto", "位图标签策略：auto|always|never")
	flag.StringVar(&cfg.assets, "assets", "", "图片相对路径的根目录，默认为数据表所在目录")
	flag.StringVar(&cfg.page, "page", "", "覆盖纸张尺寸，例如 A4、LETTER")
	landscape := flag.Bool("landscape", false, "横向（仅在显式指定时覆盖布局文件）")
	flag.StringVar(&cfg.debug, "debug", "", "冻结后配置的调试 JSON 输出路径")
	flag.BoolVar(&cfg.verbose, "v", false, "输出调试日志")
	flag.Parse()

	flag.Visit(func(f *flag.Flag) {
		if f.Name == "landscape" {
			cfg.landscape = landscape
		}
	})

	level := slog.LevelInfo
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	pages, err := run(cfg, logger)
	if err != nil {
		log.Fatalf("生成失败: %v", err)
	}
	fmt.Printf("已生成 PDF：%s（%d 页）\n", cfg.output, pages)
	if cfg.preview != "" {
		fmt.Printf("已生成预览：%s\n", cfg.preview)
	}
}

// run 串联数据读取、配置构建与两个渲染后端，返回 PDF 页数。
func run(cfg config, logger *slog.Logger) (int, error) {
	tbl, err := binding.Load(cfg.data, binding.LoadOptions{Header: cfg.header, Sheet: cfg.sheet})
	if err != nil {
		return 0, fmt.Errorf("读取数据表失败: %w", err)
	}
	if tbl, err = tbl.Select(cfg.from, cfg.to); err != nil {
		return 0, err
	}
	logger.Debug("数据表已加载", "rows", tbl.Len(), "columns", tbl.Columns())

	assets := cfg.assets
	if assets == "" {
		assets = filepath.Dir(cfg.data)
	}
	loader := compose.FileLoader{BaseDir: assets}

	sheet, err := buildSheet(cfg, tbl, loader)
	if err != nil {
		return 0, err
	}
	for _, p := range sheet.Placements.All() {
		if !tbl.HasColumn(p.SourceColumn()) {
			logger.Warn("字段对应的列不存在，所有页面都将跳过该字段", "field", p.ID, "column", p.SourceColumn())
		}
	}
	if cfg.debug != "" {
		if err := writeDebug(sheet, cfg.debug); err != nil {
			return 0, err
		}
	}

	mode, err := glyph.ParseMode(cfg.glyphMode)
	if err != nil {
		return 0, err
	}
	chain := append(fonts.Files(cfg.fontList), fonts.Env{Var: fontEnv}, fonts.Builtin{})
	font, err := chain.Load()
	if err != nil {
		return 0, fmt.Errorf("加载字体失败: %w", err)
	}
	logger.Debug("标签字体", "source", font.Source)
	fallback := loadFallback(cfg, logger)

	c, err := compose.New(sheet, compose.Options{Images: loader, Font: font, Fallback: fallback, GlyphMode: mode, Logger: logger})
	if err != nil {
		return 0, fmt.Errorf("配置无效: %w", err)
	}

	if cfg.preview != "" {
		if err := writePreview(cfg, c, tbl, font, logger); err != nil {
			return 0, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.output), 0o755); err != nil {
		return 0, fmt.Errorf("创建输出目录失败: %w", err)
	}
	pdfRenderer := canvasrenderer.NewRenderer(canvasrenderer.Options{Font: font, Logger: logger})
	progress := func(f float64) {
		fmt.Fprintf(os.Stderr, "\r渲染进度 %3.0f%%", f*100)
		if f >= 1 {
			fmt.Fprintln(os.Stderr)
		}
	}
	pdfBytes, rep, err := pdfRenderer.RenderReport(c, tbl, progress)
	if err != nil {
		return 0, fmt.Errorf("渲染 PDF 失败: %w", err)
	}
	if err := os.WriteFile(cfg.output, pdfBytes, 0o644); err != nil {
		return 0, fmt.Errorf("写入 PDF 文件失败: %w", err)
	}
	if rep.Placeholders > 0 {
		logger.Warn("部分内容以占位框代替", "count", rep.Placeholders)
	}
	if rep.Uncovered > 0 {
		logger.Warn("部分标签缺少字形，请用 -fallback-font 或 "+fallbackEnv+" 指定覆盖该文字的字体", "count", rep.Uncovered)
	}
	return rep.Pages, nil
}

// loadFallback 依次加载 -fallback-font、替补环境变量与 QRSHEET_FONT 中的全部字体。
// 单个文件失败只记日志，位图路径会在没有覆盖字体时改用原生文本。
func loadFallback(cfg config, logger *slog.Logger) fonts.Set {
	chain := fonts.Files(cfg.fallback)
	chain = append(chain, fonts.Env{Var: fallbackEnv}.Chain()...)
	chain = append(chain, fonts.Env{Var: fontEnv}.Chain()...)
	if len(chain) == 0 {
		return nil
	}
	set, err := chain.LoadAll()
	if err != nil {
		logger.Warn("替补字体均不可用", "chain", chain.String(), "err", err)
		return nil
	}
	logger.Debug("替补字体", "count", len(set), "chain", chain.String())
	return set
}

func buildSheet(cfg config, tbl *binding.Table, loader compose.FileLoader) (*layout.Sheet, error) {
	doc, err := dsl.ParseFile(cfg.layoutPath)
	if err != nil {
		return nil, fmt.Errorf("解析布局文件失败: %w", err)
	}
	sheet, err := layout.Build(doc, layout.BuildOptions{
		Page:      cfg.page,
		Landscape: cfg.landscape,
		Probe:     compose.ImageProbe{Table: tbl, Loader: loader},
	})
	if err != nil {
		return nil, fmt.Errorf("布局配置无效: %w", err)
	}
	return sheet, nil
}

func writePreview(cfg config, c *compose.Composer, tbl *binding.Table, font *fonts.Font, logger *slog.Logger) error {
	sampling := compose.SampleFirstRow
	if cfg.sample {
		sampling = compose.SampleFirstNonEmpty
	}
	r := rasterrenderer.NewRenderer(rasterrenderer.Options{
		DPI:      cfg.previewDPI,
		Font:     font,
		Sampling: sampling,
		Decorate: cfg.decorate,
		Logger:   logger,
	})
	data, err := r.Render(c, tbl, nil)
	if err != nil {
		return fmt.Errorf("渲染预览失败: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.preview), 0o755); err != nil {
		return fmt.Errorf("创建预览目录失败: %w", err)
	}
	return os.WriteFile(cfg.preview, data, 0o644)
}

func writeDebug(sheet *layout.Sheet, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(sheet, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
