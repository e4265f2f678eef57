package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"enrollboard/internal/model"
)

// DefaultSheetURL 已发布的 AY2025 每日跟踪表（CSV 导出）
const DefaultSheetURL = "https://docs.google.com/spreadsheets/d/1JlYsQdyKyvUgq3Cv-KwZxW3O-Lktzy4p30L7WFk5W1M/gviz/tq?tqx=out:csv&sheet=ay2025%20daily%20tracking"

// DefaultEChartsAssets 页面使用的 echarts 脚本
const DefaultEChartsAssets = "https://go-echarts.github.io/go-echarts-assets/assets/echarts.min.js"

// AppConfig 应用配置
type AppConfig struct {
	Server   ServerConfig   `toml:"server"`
	Source   SourceConfig   `toml:"source"`
	Centres  CentresConfig  `toml:"centres"`
	Baseline BaselineConfig `toml:"baseline"`
	Log      LogConfig      `toml:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port          int    `toml:"port"`
	DevMode       bool   `toml:"dev_mode"`
	OpenBrowser   bool   `toml:"open_browser"`
	Title         string `toml:"title"`
	EChartsAssets string `toml:"echarts_assets"`
}

// SourceConfig 数据源配置
type SourceConfig struct {
	URL            string `toml:"url"`
	Format         string `toml:"format"` // auto / csv / xlsx
	Sheet          string `toml:"sheet"`  // 仅 xlsx 生效，为空取第一个 sheet
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// CentresConfig 中心列匹配配置
type CentresConfig struct {
	Tokens []string `toml:"tokens"`
	Match  string   `toml:"match"` // substring / word
}

// BaselineConfig 上年基准配置
type BaselineConfig struct {
	Label        string             `toml:"label"`
	CurrentLabel string             `toml:"current_label"`
	Order        []string           `toml:"order"`
	Totals       map[string]float64 `toml:"totals"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `toml:"level"`
	Dev   bool   `toml:"dev"`
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	Path          string
	FromFile      bool
	PortSpecified bool
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:          20265,
			DevMode:       false,
			OpenBrowser:   true,
			Title:         "Tuition Centre Enrollment Dashboard – AY2025 (Google Sheets Live)",
			EChartsAssets: DefaultEChartsAssets,
		},
		Source: SourceConfig{
			URL:            DefaultSheetURL,
			Format:         "auto",
			TimeoutSeconds: 30,
		},
		Centres: CentresConfig{
			Tokens: []string{"PR1", "PR2", "TP", "WD", "CCK", "JW", "OL"},
			Match:  "substring",
		},
		Baseline: BaselineConfig{
			Label:        "AY2024",
			CurrentLabel: "AY2025",
			Order:        []string{"PR1", "PR2", "TP", "WD", "CCK", "JW", "OL", "SN"},
			Totals: map[string]float64{
				"PR1": 361,
				"PR2": 157,
				"TP":  406,
				"WD":  97,
				"CCK": 196,
				"JW":  297,
				"OL":  498,
				"SN":  82,
			},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func tomlHasKey(data []byte, section, key string) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	sectionAny, ok := raw[section]
	if !ok {
		return false
	}

	sectionMap, ok := sectionAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = sectionMap[key]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// DefaultConfigPath 可执行文件同目录下的 config.toml
func DefaultConfigPath() string {
	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		exeDir = "."
	}
	return filepath.Join(exeDir, "config.toml")
}

// LoadConfigWithInfo 从 config.toml 加载配置并返回元信息
// path 为空时读取可执行文件同目录下的 config.toml
func LoadConfigWithInfo(path string) (*AppConfig, LoadConfigInfo, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	info := LoadConfigInfo{Path: path}
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, info, err
		}
		// 配置文件不存在，使用默认配置
	} else {
		info.FromFile = true
		info.PortSpecified = tomlHasKey(data, "server", "port")

		// 显式配置的基准表整体替换默认值，而不是与默认值合并
		if tomlHasKey(data, "baseline", "totals") {
			config.Baseline.Totals = nil
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, info, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	// 环境变量覆盖（用于部署 / 本地运行）
	if v := os.Getenv("ENROLLBOARD_SOURCE_URL"); v != "" {
		config.Source.URL = v
	}
	if v := os.Getenv("ENROLLBOARD_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			config.Server.Port = port
			info.PortSpecified = true
		}
	}
	if v := os.Getenv("ENROLLBOARD_LOG_LEVEL"); v != "" {
		config.Log.Level = v
	}

	if err := config.Validate(); err != nil {
		return nil, info, err
	}
	return config, info, nil
}

// SaveConfig 保存配置到 path
func SaveConfig(config *AppConfig, path string) error {
	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate 校验配置
func (c *AppConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Source.URL) == "" {
		errs = append(errs, errors.New("source.url is required"))
	}
	switch c.Source.Format {
	case "", "auto", "csv", "xlsx":
	default:
		errs = append(errs, fmt.Errorf("source.format %q: want auto, csv or xlsx", c.Source.Format))
	}
	if c.Source.TimeoutSeconds < 0 {
		errs = append(errs, errors.New("source.timeout_seconds must not be negative"))
	}
	if len(c.Centres.Tokens) == 0 {
		errs = append(errs, errors.New("centres.tokens must not be empty"))
	}
	for _, tok := range c.Centres.Tokens {
		if strings.TrimSpace(tok) == "" {
			errs = append(errs, errors.New("centres.tokens contains an empty token"))
			break
		}
	}
	switch c.Centres.Match {
	case "", "substring", "word":
	default:
		errs = append(errs, fmt.Errorf("centres.match %q: want substring or word", c.Centres.Match))
	}
	if len(c.Baseline.Totals) == 0 {
		errs = append(errs, errors.New("baseline.totals must not be empty"))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	return errors.Join(errs...)
}

// BaselineTotals 按配置顺序构造基准；未出现在 order 中的中心按代码排序追加在后
func (c *AppConfig) BaselineTotals() model.Baseline {
	baseline := make(model.Baseline, 0, len(c.Baseline.Totals))
	seen := make(map[string]bool, len(c.Baseline.Totals))
	for _, id := range c.Baseline.Order {
		total, ok := c.Baseline.Totals[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		baseline = append(baseline, model.BaselineEntry{Centre: id, Total: total})
	}

	var rest []string
	for id := range c.Baseline.Totals {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	for _, id := range rest {
		baseline = append(baseline, model.BaselineEntry{Centre: id, Total: c.Baseline.Totals[id]})
	}
	return baseline
}
