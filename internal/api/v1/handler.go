package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"enrollboard/internal/exporter"
	"enrollboard/internal/pipeline"
)

// Handler 报告 API 处理器
type Handler struct {
	runner    pipeline.Runner
	exporter  *exporter.Exporter
	downloads *exportDownloadStore
	logger    *zap.Logger
}

// NewHandler 创建 API 处理器
func NewHandler(runner pipeline.Runner, exp *exporter.Exporter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		runner:    runner,
		exporter:  exp,
		downloads: newExportDownloadStore(),
		logger:    logger,
	}
}

// RegisterRoutes 注册 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 数据源状态
	router.GET("/status", h.GetStatus)
	// 完整报告
	router.GET("/report", h.GetReport)

	// 数据导出
	router.GET("/export", h.Export)
	router.POST("/export/stream", h.ExportStream)
	router.GET("/export/download/:token", h.DownloadExport)
}

// ErrorResponse 流水线失败时的响应体
type ErrorResponse struct {
	Error string        `json:"error"`
	Kind  pipeline.Kind `json:"kind,omitempty"`
}

// statusForError 网络失败 502，解析与结构问题 422
func statusForError(err error) int {
	switch pipeline.KindOf(err) {
	case pipeline.KindNetwork:
		return http.StatusBadGateway
	case pipeline.KindParse, pipeline.KindShape:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) abortWithPipelineError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusForError(err), ErrorResponse{
		Error: pipeline.UserMessage(err),
		Kind:  pipeline.KindOf(err),
	})
}
