package exporter

// ProgressEvent 导出进度事件（CLI 输出与日志使用）
type ProgressEvent struct {
	Percent int
	Stage   string
}

func reportProgress(progress func(ProgressEvent), percent int, stage string) {
	if progress == nil {
		return
	}
	percent = max(0, min(percent, 100))
	progress(ProgressEvent{
		Percent: percent,
		Stage:   stage,
	})
}
