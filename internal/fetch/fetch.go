package fetch

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Format 数据源格式
type Format string

const (
	FormatAuto Format = "auto"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ErrDecode 响应已取得但无法解码为表格
var ErrDecode = errors.New("decode sheet")

// maxBodyBytes 单次拉取的响应体上限
const maxBodyBytes = 32 << 20

// Table 原始表格，Table[0] 为表头
type Table [][]string

// Options 拉取选项
type Options struct {
	URL    string
	Format Format
	Sheet  string // xlsx 工作表名，为空取第一个
}

// Fetcher 拉取并解码数据源
type Fetcher struct {
	client *http.Client
}

// NewHTTPClient 创建带超时的 http.Client，timeout <= 0 时使用 30s
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// New 创建 Fetcher，client 为 nil 时使用默认超时的客户端
func New(client *http.Client) *Fetcher {
	if client == nil {
		client = NewHTTPClient(0)
	}
	return &Fetcher{client: client}
}

// Fetch 拉取一次数据源并解码，不做重试
func (f *Fetcher) Fetch(ctx context.Context, opts Options) (Table, error) {
	body, contentType, err := f.read(ctx, opts.URL)
	if err != nil {
		return nil, err
	}

	format := opts.Format
	if format == "" || format == FormatAuto {
		format = detectFormat(opts.URL, contentType, body)
	}

	switch format {
	case FormatXLSX:
		return decodeXLSX(body, opts.Sheet)
	case FormatCSV:
		return decodeCSV(body)
	}
	return nil, fmt.Errorf("%w: unsupported format %q", ErrDecode, format)
}

// read 读取原始字节：http(s) 走网络，file:// 或本地路径直接读文件
func (f *Fetcher) read(ctx context.Context, rawURL string) ([]byte, string, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, "", errors.New("empty source url")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("parse source url: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		return f.get(ctx, rawURL)
	case "file":
		path := u.Path
		if u.Host != "" {
			path = filepath.Join(u.Host, u.Path)
		}
		b, err := os.ReadFile(path)
		return b, "", err
	case "":
		b, err := os.ReadFile(rawURL)
		return b, "", err
	}
	return nil, "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("accept", "text/csv, application/vnd.openxmlformats-officedocument.spreadsheetml.sheet;q=0.9, */*;q=0.5")
	req.Header.Set("user-agent", "enrollboard/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("unexpected status %d from sheet endpoint snippet=%q", resp.StatusCode, snippet(b))
	}
	return b, resp.Header.Get("Content-Type"), nil
}

// detectFormat 根据 Content-Type、扩展名与文件头推断格式
func detectFormat(rawURL, contentType string, body []byte) Format {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "spreadsheetml") {
		return FormatXLSX
	}
	if strings.Contains(ct, "csv") {
		return FormatCSV
	}
	if u, err := url.Parse(rawURL); err == nil && strings.EqualFold(filepath.Ext(u.Path), ".xlsx") {
		return FormatXLSX
	}
	// xlsx 为 zip 容器
	if bytes.HasPrefix(body, []byte("PK\x03\x04")) {
		return FormatXLSX
	}
	return FormatCSV
}

func decodeCSV(body []byte) (Table, error) {
	body = bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrDecode)
	}
	// 已发布的表格出错时通常返回 HTML 页面
	if trimmed[0] == '<' {
		return nil, fmt.Errorf("%w: response appears to be HTML, not CSV snippet=%q", ErrDecode, snippet(trimmed))
	}

	r := csv.NewReader(bytes.NewReader(body))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrDecode)
	}

	width := len(records[0])
	for i, rec := range records[1:] {
		if len(rec) > width {
			return nil, fmt.Errorf("%w: expected %d fields in line %d, saw %d", ErrDecode, width, i+2, len(rec))
		}
	}
	return Table(records), nil
}

func decodeXLSX(body []byte, sheet string) (Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", ErrDecode, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: workbook has no sheets", ErrDecode)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrDecode, sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %q is empty", ErrDecode, sheet)
	}

	// 数据区比表头宽时补齐表头（空表头稍后命名为 Unnamed）
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	for len(rows[0]) < width {
		rows[0] = append(rows[0], "")
	}
	return Table(rows), nil
}

func snippet(b []byte) string {
	s := string(b)
	if len(s) > 512 {
		s = s[:512]
	}
	return s
}
