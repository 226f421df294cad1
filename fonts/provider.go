package fonts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font/gofont/goregular"
)

// Provider 是一种字体来源。解析策略由调用方注入，不依赖任何操作系统的安装布局。
type Provider interface {
	Load() (*Font, error)
	String() string
}

// Builtin 提供随程序编译的 Go Regular 字体。
type Builtin struct{}

func (Builtin) Load() (*Font, error) { return Parse("builtin:goregular", goregular.TTF) }

func (Builtin) String() string { return "builtin:goregular" }

// File 从指定路径读取字体。
type File struct {
	Path string
}

func (p File) Load() (*Font, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, fmt.Errorf("读取字体 %s 失败: %w", p.Path, err)
	}
	return Parse(p.Path, data)
}

func (p File) String() string { return "file:" + p.Path }

// Env 从环境变量给出的路径读取字体，变量可包含多个以路径分隔符分开的候选。
type Env struct {
	Var string
}

func (p Env) Load() (*Font, error) {
	chain := p.Chain()
	if len(chain) == 0 {
		return nil, fmt.Errorf("环境变量 %s 未设置", p.Var)
	}
	return chain.Load()
}

// Chain 把环境变量中的每个候选展开为独立来源，未设置时为空。
func (p Env) Chain() Chain {
	var chain Chain
	for _, path := range filepath.SplitList(strings.TrimSpace(os.Getenv(p.Var))) {
		if path = strings.TrimSpace(path); path != "" {
			chain = append(chain, File{Path: path})
		}
	}
	return chain
}

func (p Env) String() string { return "env:" + p.Var }

// Dir 在目录中按文件名顺序查找字体。
type Dir struct {
	Path  string
	Names []string
}

func (p Dir) Load() (*Font, error) {
	var chain Chain
	for _, name := range p.Names {
		chain = append(chain, File{Path: filepath.Join(p.Path, name)})
	}
	return chain.Load()
}

func (p Dir) String() string { return "dir:" + p.Path }

// Chain 依次尝试各个来源，第一个成功者胜出。
type Chain []Provider

func (c Chain) Load() (*Font, error) {
	var errs []error
	for _, p := range c {
		f, err := p.Load()
		if err == nil {
			return f, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", p, err))
	}
	if len(errs) == 0 {
		return nil, ErrNoFont
	}
	return nil, fmt.Errorf("%w: %w", ErrNoFont, errors.Join(errs...))
}

// LoadAll 加载所有可用来源，按链中顺序返回。全部失败时返回 ErrNoFont。
func (c Chain) LoadAll() (Set, error) {
	var (
		set  Set
		errs []error
	)
	for _, p := range c {
		f, err := p.Load()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
			continue
		}
		set = append(set, f)
	}
	if len(set) == 0 {
		if len(errs) == 0 {
			return nil, ErrNoFont
		}
		return nil, fmt.Errorf("%w: %w", ErrNoFont, errors.Join(errs...))
	}
	return set, nil
}

// LoadCovering 返回链中第一个能加载且包含 text 全部字符的字体。
func (c Chain) LoadCovering(text string) (*Font, error) {
	set, err := c.LoadAll()
	if err != nil {
		return nil, err
	}
	if f := set.Covering(text); f != nil {
		return f, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNotCovered, text)
}

func (c Chain) String() string {
	parts := make([]string, len(c))
	for i, p := range c {
		parts[i] = p.String()
	}
	return strings.Join(parts, " -> ")
}

// Files 把逗号分隔的路径列表转为 Chain。
func Files(list string) Chain {
	var chain Chain
	for _, p := range strings.Split(list, ",") {
		if p = strings.TrimSpace(p); p != "" {
			chain = append(chain, File{Path: p})
		}
	}
	return chain
}

// Set 是已加载的字体，按优先级排列。
type Set []*Font

// Covering 返回第一个包含 text 全部非空白字符的字体，没有则返回 nil。
func (s Set) Covering(text string) *Font {
	for _, f := range s {
		if f != nil && f.CoversAll(text) {
			return f
		}
	}
	return nil
}
