package v1

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"enrollboard/internal/exporter"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Export 运行流水线并直接下载 Excel
// GET /api/export
func (h *Handler) Export(c *gin.Context) {
	report, err := h.runner.Run(c.Request.Context())
	if err != nil {
		h.abortWithPipelineError(c, err)
		return
	}

	// 先写入缓冲区，失败时还能返回 JSON 错误
	var buf bytes.Buffer
	if err := h.exporter.Write(&buf, report, exporter.ExportOptions{}); err != nil {
		h.logger.Error("Export failed", zap.String("run_id", report.RunID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "export failed: " + err.Error()})
		return
	}

	c.Header("Content-Disposition", buildExportContentDisposition(exporter.Filename(report)))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func buildExportContentDisposition(filename string) string {
	return fmt.Sprintf("attachment; filename=%q", filename)
}
