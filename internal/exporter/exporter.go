package exporter

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"enrollboard/internal/model"
)

// 工作簿中的 sheet 名称
const (
	SheetTrend      = "Trend"
	SheetComparison = "Comparison"
	SheetGrowth     = "Growth"
	SheetCharts     = "Charts"
	SheetInfo       = "Info"
)

// 图片之间间隔的行数
const rowsPerChart = 24

// Exporter 报告导出器
//
// 每次导出生成一个新工作簿，无模板依赖；无定义的数值写为空单元格。
type Exporter struct {
	title string
}

// NewExporter 创建导出器，title 写入 Info sheet
func NewExporter(title string) *Exporter {
	return &Exporter{title: title}
}

// ExportOptions 导出选项
type ExportOptions struct {
	SkipCharts bool
	Progress   func(ProgressEvent)
}

// Filename 下载时使用的文件名
func Filename(r *model.Report) string {
	return fmt.Sprintf("enrollment-report-%s.xlsx", r.GeneratedAt.Format("20060102-150405"))
}

// Export 导出 Excel
func (e *Exporter) Export(report *model.Report, opts ExportOptions) (*excelize.File, error) {
	if report == nil || report.Series == nil || report.Growth == nil {
		return nil, errors.New("export: report is incomplete")
	}

	f := excelize.NewFile()
	if err := e.fill(f, report, opts); err != nil {
		_ = f.Close()
		return nil, err
	}

	f.SetActiveSheet(0)
	reportProgress(opts.Progress, 100, "done")
	return f, nil
}

// Write 导出并写入 w
func (e *Exporter) Write(w io.Writer, report *model.Report, opts ExportOptions) error {
	f, err := e.Export(report, opts)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("写出工作簿失败: %w", err)
	}
	return nil
}

func (e *Exporter) fill(f *excelize.File, report *model.Report, opts ExportOptions) error {
	styles, err := newSheetStyles(f)
	if err != nil {
		return err
	}

	reportProgress(opts.Progress, 10, SheetTrend)
	if err := f.SetSheetName("Sheet1", SheetTrend); err != nil {
		return err
	}
	if err := writeTrendSheet(f, styles, report.Series); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", SheetTrend, err)
	}

	reportProgress(opts.Progress, 30, SheetComparison)
	if _, err := f.NewSheet(SheetComparison); err != nil {
		return err
	}
	if err := writeComparisonSheet(f, styles, report); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", SheetComparison, err)
	}

	reportProgress(opts.Progress, 50, SheetGrowth)
	if _, err := f.NewSheet(SheetGrowth); err != nil {
		return err
	}
	if err := writeGrowthSheet(f, styles, report.Growth); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", SheetGrowth, err)
	}

	if !opts.SkipCharts {
		reportProgress(opts.Progress, 70, SheetCharts)
		if _, err := f.NewSheet(SheetCharts); err != nil {
			return err
		}
		if err := writeChartsSheet(f, report); err != nil {
			return fmt.Errorf("写入 %s 失败: %w", SheetCharts, err)
		}
	}

	reportProgress(opts.Progress, 90, SheetInfo)
	if _, err := f.NewSheet(SheetInfo); err != nil {
		return err
	}
	if err := e.writeInfoSheet(f, styles, report); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", SheetInfo, err)
	}
	return nil
}

type sheetStyles struct {
	header  int
	percent int
}

func newSheetStyles(f *excelize.File) (sheetStyles, error) {
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DCE6F1"}},
	})
	if err != nil {
		return sheetStyles{}, err
	}
	percent, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return sheetStyles{}, err
	}
	return sheetStyles{header: header, percent: percent}, nil
}

// ---------- 数据 sheet ----------

func writeTrendSheet(f *excelize.File, styles sheetStyles, s *model.Series) error {
	header := s.Headers()
	if err := writeHeader(f, styles, SheetTrend, header); err != nil {
		return err
	}
	for i, row := range s.Rows {
		r := i + 2
		if err := setCell(f, SheetTrend, 1, r, row.Date); err != nil {
			return err
		}
		for j, v := range row.Values {
			if err := setCell(f, SheetTrend, j+2, r, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeComparisonSheet(f *excelize.File, styles sheetStyles, report *model.Report) error {
	header := []string{"Centre", report.BaselineLabel, report.CurrentLabel, "% Change"}
	if err := writeHeader(f, styles, SheetComparison, header); err != nil {
		return err
	}
	for i, c := range report.Comparisons {
		r := i + 2
		if err := setCell(f, SheetComparison, 1, r, c.Centre); err != nil {
			return err
		}
		for j, v := range []*float64{c.Baseline, c.Latest, c.PercentChange} {
			if err := setOptionalCell(f, SheetComparison, j+2, r, v); err != nil {
				return err
			}
		}
	}
	if len(report.Comparisons) > 0 {
		last, err := excelize.CoordinatesToCellName(4, len(report.Comparisons)+1)
		if err != nil {
			return err
		}
		return f.SetCellStyle(SheetComparison, "D2", last, styles.percent)
	}
	return nil
}

func writeGrowthSheet(f *excelize.File, styles sheetStyles, g *model.Growth) error {
	header := make([]string, 0, len(g.Columns)+1)
	header = append(header, model.DateColumn)
	for _, c := range g.Columns {
		header = append(header, c.Header)
	}
	if err := writeHeader(f, styles, SheetGrowth, header); err != nil {
		return err
	}
	for i, row := range g.Rows {
		r := i + 2
		if err := setCell(f, SheetGrowth, 1, r, row.Date); err != nil {
			return err
		}
		for j, v := range row.Values {
			if err := setOptionalCell(f, SheetGrowth, j+2, r, v); err != nil {
				return err
			}
		}
	}
	if len(g.Rows) > 0 && len(g.Columns) > 0 {
		last, err := excelize.CoordinatesToCellName(len(g.Columns)+1, len(g.Rows)+1)
		if err != nil {
			return err
		}
		return f.SetCellStyle(SheetGrowth, "B2", last, styles.percent)
	}
	return nil
}

func writeChartsSheet(f *excelize.File, report *model.Report) error {
	images, err := renderCharts(report)
	if err != nil {
		return err
	}
	for i, img := range images {
		cell, err := excelize.CoordinatesToCellName(1, i*rowsPerChart+1)
		if err != nil {
			return err
		}
		if err := f.AddPictureFromBytes(SheetCharts, cell, &excelize.Picture{
			Extension: ".png",
			File:      img.PNG,
			Format:    &excelize.GraphicOptions{AltText: img.Title},
		}); err != nil {
			return fmt.Errorf("插入图表 %s 失败: %w", img.Title, err)
		}
	}
	return nil
}

func (e *Exporter) writeInfoSheet(f *excelize.File, styles sheetStyles, report *model.Report) error {
	rows := [][2]interface{}{
		{"Title", e.title},
		{"Run ID", report.RunID},
		{"Generated At", report.GeneratedAt.Format(time.RFC3339)},
		{"Source", report.Source},
		{"Raw Rows", report.Stats.RawRows},
		{"Kept Rows", report.Stats.Kept},
		{"Dropped (missing date)", report.Stats.MissingDate},
		{"Dropped (header-like)", report.Stats.HeaderLike},
		{"Dropped (incomplete)", report.Stats.Incomplete},
		{"Centre Columns", report.Stats.CentreColumns},
		{"Ignored Columns", report.Stats.IgnoredColumns},
	}
	for i, kv := range rows {
		if err := setCell(f, SheetInfo, 1, i+1, kv[0]); err != nil {
			return err
		}
		if err := setCell(f, SheetInfo, 2, i+1, kv[1]); err != nil {
			return err
		}
	}
	last := fmt.Sprintf("A%d", len(rows))
	if err := f.SetCellStyle(SheetInfo, "A1", last, styles.header); err != nil {
		return err
	}
	return f.SetColWidth(SheetInfo, "A", "A", 24)
}

// ---------- 通用工具函数 ----------

func writeHeader(f *excelize.File, styles sheetStyles, sheet string, header []string) error {
	for i, h := range header {
		if err := setCell(f, sheet, i+1, 1, h); err != nil {
			return err
		}
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, styles.header); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func setCell(f *excelize.File, sheet string, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}

// setOptionalCell nil 保持空单元格
func setOptionalCell(f *excelize.File, sheet string, col, row int, v *float64) error {
	if v == nil {
		return nil
	}
	return setCell(f, sheet, col, row, *v)
}
