package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"enrollboard/internal/calculator"
	"enrollboard/internal/config"
	"enrollboard/internal/fetch"
	"enrollboard/internal/metrics"
	"enrollboard/internal/model"
	"enrollboard/internal/parser"
)

// Runner 执行一次完整的流水线
type Runner interface {
	Run(ctx context.Context) (*model.Report, error)
}

// Pipeline Fetch -> Clean -> Compare -> Growth
//
// 无状态：每次 Run 都从数据源重新计算，多个 goroutine 可以并发调用。
type Pipeline struct {
	source        fetch.Options
	fetcher       *fetch.Fetcher
	cleaner       *parser.Cleaner
	calc          *calculator.Calculator
	baselineLabel string
	currentLabel  string

	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// Option 可选配置
type Option func(*Pipeline)

// WithFetcher 替换默认 Fetcher（测试中注入 mock transport）
func WithFetcher(f *fetch.Fetcher) Option {
	return func(p *Pipeline) { p.fetcher = f }
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger 设置日志
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithClock 设置时钟
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New 根据配置创建流水线
func New(cfg *config.AppConfig, opts ...Option) (*Pipeline, error) {
	mode, err := parser.ParseMatchMode(cfg.Centres.Match)
	if err != nil {
		return nil, err
	}
	matcher, err := parser.NewCentreMatcher(cfg.Centres.Tokens, mode)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		source: fetch.Options{
			URL:    cfg.Source.URL,
			Format: fetch.Format(cfg.Source.Format),
			Sheet:  cfg.Source.Sheet,
		},
		cleaner:       parser.NewCleaner(matcher),
		calc:          calculator.NewCalculator(cfg.BaselineTotals()),
		baselineLabel: cfg.Baseline.Label,
		currentLabel:  cfg.Baseline.CurrentLabel,
		logger:        zap.NewNop(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.fetcher == nil {
		timeout := time.Duration(cfg.Source.TimeoutSeconds) * time.Second
		p.fetcher = fetch.New(fetch.NewHTTPClient(timeout))
	}
	return p, nil
}

// Run 执行一次流水线，失败时返回 *Error
func (p *Pipeline) Run(ctx context.Context) (*model.Report, error) {
	start := p.now()
	runID := uuid.NewString()
	logger := p.logger.With(zap.String("run_id", runID))

	report, err := p.run(ctx, runID, logger)
	elapsed := p.now().Sub(start)

	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
		logger.Warn("Pipeline failed",
			zap.String("kind", outcome),
			zap.Duration("duration", elapsed),
			zap.Error(err))
	} else {
		logger.Info("Pipeline completed",
			zap.Int("rows", report.Series.Len()),
			zap.Int("centres", len(report.Series.Columns)),
			zap.Duration("duration", elapsed))
	}
	p.metrics.ObserveRun(outcome, elapsed.Seconds())

	return report, err
}

func (p *Pipeline) run(ctx context.Context, runID string, logger *zap.Logger) (*model.Report, error) {
	// 1. Fetch
	logger.Debug("Fetching sheet", zap.String("url", p.source.URL))
	fetchStart := p.now()
	table, err := p.fetcher.Fetch(ctx, p.source)
	p.metrics.ObserveFetch(p.now().Sub(fetchStart).Seconds())
	if err != nil {
		if errors.Is(err, fetch.ErrDecode) {
			return nil, newError("fetch", KindParse, err)
		}
		return nil, newError("fetch", KindNetwork, err)
	}

	// 2. Clean
	series, stats, err := p.cleaner.Clean(table)
	p.metrics.SetCleanRows(stats.Kept, stats.RawRows-stats.Kept)
	if err != nil {
		return nil, newError("clean", KindShape, err)
	}
	logger.Debug("Sheet cleaned",
		zap.Int("raw_rows", stats.RawRows),
		zap.Int("kept", stats.Kept),
		zap.Int("header_like", stats.HeaderLike),
		zap.Int("incomplete", stats.Incomplete),
		zap.Int("ignored_columns", stats.IgnoredColumns))

	// 3. Compare
	comparisons, err := p.calc.Compare(series)
	if err != nil {
		return nil, newError("compare", KindShape, err)
	}

	// 4. Growth
	growth := p.calc.Growth(series)

	return &model.Report{
		RunID:         runID,
		GeneratedAt:   p.now(),
		Source:        p.source.URL,
		BaselineLabel: p.baselineLabel,
		CurrentLabel:  p.currentLabel,
		Series:        series,
		Comparisons:   comparisons,
		Growth:        growth,
		Stats:         stats,
	}, nil
}
