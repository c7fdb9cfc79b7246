package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"smart-edu-go/internal/service"
	"smart-edu-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// 上传大小上限 50MB
const maxUploadSize = 50 << 20

// IngestHandler 负责文档上传与查询接口。
type IngestHandler struct {
	ingest service.IngestService
}

// NewIngestHandler 创建一个新的 IngestHandler。
func NewIngestHandler(ingest service.IngestService) *IngestHandler {
	return &IngestHandler{ingest: ingest}
}

// Upload 接收 multipart 上传的文档并投递异步处理任务。
func (h *IngestHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "缺少 file 字段", "data": nil})
		return
	}
	if fileHeader.Size > maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"code": http.StatusRequestEntityTooLarge, "message": "文件超过大小限制", "data": nil})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "读取上传文件失败", "data": nil})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "读取上传文件失败", "data": nil})
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	upload, err := h.ingest.UploadDocument(c.Request.Context(), data, fileHeader.Filename, mimeType)
	if err != nil {
		if errors.Is(err, service.ErrDocumentExists) {
			c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": err.Error(), "data": upload})
			return
		}
		log.Errorf("[IngestHandler] 文档摄取失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": err.Error(), "data": nil})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"code": http.StatusAccepted, "message": "文件已接收，正在后台处理", "data": upload})
}

// Download 为原始文件签发限时下载链接。
func (h *IngestHandler) Download(c *gin.Context) {
	fileMD5 := c.Param("md5")
	url, err := h.ingest.GetDownloadURL(c.Request.Context(), fileMD5)
	if err != nil {
		if errors.Is(err, service.ErrDocumentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": err.Error(), "data": nil})
			return
		}
		log.Errorf("[IngestHandler] 生成下载链接失败, md5: %s, err: %v", fileMD5, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": err.Error(), "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": gin.H{"url": url}})
}

// List 分页返回上传台账。
func (h *IngestHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	uploads, total, err := h.ingest.ListDocuments(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": err.Error(), "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    gin.H{"total": total, "items": uploads},
	})
}
