package v1

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GetReport 返回完整报告，无定义的数值为 null
// GET /api/report
func (h *Handler) GetReport(c *gin.Context) {
	report, err := h.runner.Run(c.Request.Context())
	if err != nil {
		h.abortWithPipelineError(c, err)
		return
	}

	// 先编码再写出，编码失败返回 500
	body, err := json.Marshal(report)
	if err != nil {
		h.logger.Error("Encode report failed", zap.String("run_id", report.RunID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "encode report: " + err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
