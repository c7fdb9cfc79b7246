package handler

import (
	"net/http"

	"smart-edu-go/internal/service"
	"smart-edu-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// IndexHandler 负责网站内容索引接口。
type IndexHandler struct {
	indexer service.IndexerService
}

// NewIndexHandler 创建一个新的 IndexHandler。
func NewIndexHandler(indexer service.IndexerService) *IndexHandler {
	return &IndexHandler{indexer: indexer}
}

// Describe 返回接口能力说明，供 GET 探测使用。不触发扫描，无副作用。
func (h *IndexHandler) Describe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "使用 POST 方法触发全站索引",
		"data": gin.H{
			"endpoint":    "/api/index-website",
			"method":      "POST",
			"description": "扫描网站页面与文档并写入向量索引，需管理员凭证",
		},
	})
}

// Index 触发一次全站内容索引。全部成功返回 200，部分失败返回 207，
// 扫描失败或全部失败返回 500。
func (h *IndexHandler) Index(c *gin.Context) {
	log.Infof("[IndexHandler] 收到全站索引请求")

	report, err := h.indexer.IndexWebsite(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": err.Error(), "data": nil})
		return
	}

	status := http.StatusOK
	message := "success"
	switch {
	case report.Indexed == 0 && len(report.Errors) > 0:
		status = http.StatusInternalServerError
		message = "全部内容索引失败"
	case len(report.Errors) > 0:
		status = http.StatusMultiStatus
		message = "部分内容索引失败"
	}
	c.JSON(status, gin.H{"code": status, "message": message, "data": report})
}
