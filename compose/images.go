package compose

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageLoader loads the image a cell refers to.
type ImageLoader interface {
	Load(ref string) (image.Image, error)
}

// FileLoader decodes image files, resolving relative paths against BaseDir.
// Each call opens and closes its own file.
type FileLoader struct {
	BaseDir string
}

func (l FileLoader) Resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if filepath.IsAbs(ref) || l.BaseDir == "" {
		return ref
	}
	return filepath.Join(l.BaseDir, ref)
}

func (l FileLoader) Load(ref string) (image.Image, error) {
	path := l.Resolve(ref)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开图片失败: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("解码图片 %s 失败: %w", path, err)
	}
	return img, nil
}

// Ratio reads only the image header and returns height/width.
func (l FileLoader) Ratio(ref string) (float64, error) {
	path := l.Resolve(ref)
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("打开图片失败: %w", err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, fmt.Errorf("解码图片 %s 失败: %w", path, err)
	}
	if cfg.Width == 0 {
		return 0, fmt.Errorf("图片 %s 宽度为 0", path)
	}
	return float64(cfg.Height) / float64(cfg.Width), nil
}
