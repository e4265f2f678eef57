package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"enrollboard/internal/pipeline"
)

// StatusResponse 数据源状态响应
type StatusResponse struct {
	OK          bool          `json:"ok"`                    // 本次是否成功加载
	RunID       string        `json:"runId,omitempty"`       // 运行 ID
	GeneratedAt *time.Time    `json:"generatedAt,omitempty"` // 生成时间
	Rows        int           `json:"rows"`                  // 清洗后行数
	Centres     int           `json:"centres"`               // 中心列数
	Error       string        `json:"error,omitempty"`       // 失败消息
	Kind        pipeline.Kind `json:"kind,omitempty"`        // 失败类别
}

// GetStatus 运行一次流水线并返回摘要，失败也返回 200
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	report, err := h.runner.Run(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusOK, StatusResponse{
			OK:    false,
			Error: pipeline.UserMessage(err),
			Kind:  pipeline.KindOf(err),
		})
		return
	}

	c.JSON(http.StatusOK, StatusResponse{
		OK:          true,
		RunID:       report.RunID,
		GeneratedAt: &report.GeneratedAt,
		Rows:        report.Series.Len(),
		Centres:     len(report.Series.Columns),
	})
}
