package v1

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"enrollboard/internal/exporter"
	"enrollboard/internal/pipeline"
)

const downloadTTL = 10 * time.Minute

type exportProgressEvent struct {
	Type      string      `json:"type"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// ExportStream 导出 Excel（SSE 进度 + 完成后提供一次性下载地址）
// POST /api/export/stream
func (h *Handler) ExportStream(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	send := func(event exportProgressEvent) {
		event.Timestamp = time.Now()
		if event.Data == nil {
			event.Data = map[string]any{}
		}
		b, err := json.Marshal(event)
		if err != nil {
			return
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", b)
		flusher.Flush()
	}

	send(exportProgressEvent{Type: "start", Message: "loading sheet"})

	report, err := h.runner.Run(c.Request.Context())
	if err != nil {
		send(exportProgressEvent{
			Type:    "error",
			Message: pipeline.UserMessage(err),
			Data:    map[string]any{"kind": pipeline.KindOf(err)},
		})
		return
	}

	lastPercent := -1
	progressFn := func(p exporter.ProgressEvent) {
		if p.Percent == lastPercent {
			return
		}
		lastPercent = p.Percent
		send(exportProgressEvent{
			Type:    "progress",
			Message: p.Stage,
			Data:    map[string]any{"percent": p.Percent},
		})
	}

	file, err := os.CreateTemp("", "enrollboard_export_*.xlsx")
	if err != nil {
		send(exportProgressEvent{Type: "error", Message: "export failed: " + err.Error()})
		return
	}
	tempPath := file.Name()

	err = h.exporter.Write(file, report, exporter.ExportOptions{Progress: progressFn})
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		h.logger.Error("Export failed", zap.String("run_id", report.RunID), zap.Error(err))
		send(exportProgressEvent{Type: "error", Message: "export failed: " + err.Error()})
		_ = os.Remove(tempPath)
		return
	}

	token := h.downloads.put(tempPath, exporter.Filename(report), downloadTTL)
	prefix := strings.TrimSuffix(c.Request.URL.Path, "/export/stream")
	downloadURL := path.Join(prefix, "export/download", token)

	send(exportProgressEvent{
		Type:    "done",
		Message: "export complete",
		Data: map[string]any{
			"percent":     100,
			"runId":       report.RunID,
			"downloadUrl": downloadURL,
		},
	})
}

// DownloadExport 下载导出的 Excel 文件（一次性）
// GET /api/export/download/:token
func (h *Handler) DownloadExport(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing token"})
		return
	}

	item, ok := h.downloads.get(token)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "download link expired"})
		return
	}

	if _, err := os.Stat(item.filePath); err != nil {
		h.downloads.delete(token)
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "export file not found"})
		return
	}

	c.Header("Content-Disposition", buildExportContentDisposition(item.filename))
	c.Header("Content-Type", xlsxContentType)
	c.File(item.filePath)

	h.downloads.delete(token)
	_ = os.Remove(item.filePath)
}
