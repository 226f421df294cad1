package compose

import (
	"fmt"

	"github.com/pawachai/qrcode-generator/binding"
)

// DocumentReport summarizes a full document run.
type DocumentReport struct {
	Pages        int
	Drawn        int
	Skipped      int
	Placeholders int
	Labels       int
	RasterLabels int
	Uncovered    int
}

// RenderDocument emits exactly one page per table row, in row order, even
// when every placement of a row is empty. progress, when non-nil, receives
// the completed fraction after each page. Only sink failures stop the run.
func (c *Composer) RenderDocument(sink PageSink, tbl *binding.Table, progress func(float64)) (DocumentReport, error) {
	var rep DocumentReport
	if tbl == nil || tbl.Len() == 0 {
		return rep, ErrNoRows
	}
	n := tbl.Len()
	for row := 0; row < n; row++ {
		s, err := sink.BeginPage()
		if err != nil {
			return rep, fmt.Errorf("开始第 %d 页失败: %w", row+1, err)
		}
		page := c.Compose(s, tbl, row)
		if err := sink.EndPage(); err != nil {
			return rep, fmt.Errorf("结束第 %d 页失败: %w", row+1, err)
		}
		rep.Pages++
		rep.Drawn += page.Drawn
		rep.Skipped += page.Skipped
		rep.Placeholders += page.Placeholders
		rep.Labels += page.Labels
		rep.RasterLabels += page.RasterLabels
		rep.Uncovered += page.Uncovered
		c.log.Debug("页面完成", "page", row+1, "of", n, "drawn", page.Drawn, "placeholders", page.Placeholders)
		if progress != nil {
			progress(float64(row+1) / float64(n))
		}
	}
	return rep, nil
}
