package render

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"io"

	echartsrender "github.com/go-echarts/go-echarts/v2/render"

	"enrollboard/internal/model"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/dashboard.html"))

// chartHTML 嵌入页面的图表片段
type chartHTML struct {
	Element template.HTML
	Script  template.HTML
}

type pageData struct {
	Title      string
	Assets     string
	Error      string
	Report     *model.Report
	Trend      chartHTML
	Comparison chartHTML
	Change     chartHTML
	Growth     chartHTML
}

// Renderer 渲染仪表盘页面
type Renderer struct {
	title  string
	assets string
}

// NewRenderer 创建渲染器，assets 为 echarts 脚本地址
func NewRenderer(title, assets string) *Renderer {
	return &Renderer{title: title, assets: assets}
}

// Dashboard 渲染成功页面：状态条 + 四张图
// 先渲染到缓冲区，失败时不会写出任何部分内容
func (r *Renderer) Dashboard(w io.Writer, report *model.Report) error {
	if report == nil || report.Series == nil || report.Growth == nil {
		return errors.New("render: report is incomplete")
	}

	data := pageData{
		Title:      r.title,
		Assets:     r.assets,
		Report:     report,
		Trend:      snippet(TrendChart(report).RenderSnippet()),
		Comparison: snippet(ComparisonChart(report).RenderSnippet()),
		Change:     snippet(PercentChangeChart(report).RenderSnippet()),
		Growth:     snippet(GrowthChart(report).RenderSnippet()),
	}
	return r.execute(w, data)
}

// Error 渲染错误页面：只有标题与错误状态条
func (r *Renderer) Error(w io.Writer, message string) error {
	return r.execute(w, pageData{
		Title:  r.title,
		Assets: r.assets,
		Error:  message,
	})
}

func snippet(s echartsrender.ChartSnippet) chartHTML {
	return chartHTML{
		Element: template.HTML(s.Element),
		Script:  template.HTML(s.Script),
	}
}

func (r *Renderer) execute(w io.Writer, data pageData) error {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}
