// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"

	"smart-edu-go/internal/model"
	"smart-edu-go/internal/service"
	"smart-edu-go/pkg/log"
	"smart-edu-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// ChatHandler 负责处理对话请求，包括一次性 REST 应答与 WebSocket 流式应答。
type ChatHandler struct {
	chatService service.ChatService
	jwtManager  *token.JWTManager
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService, jwtManager *token.JWTManager) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		jwtManager:  jwtManager,
	}
}

type chatRequest struct {
	Message string              `json:"message" binding:"required"`
	History []model.ChatMessage `json:"history"`
}

// Chat 处理一次性的 RAG 对话请求。
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "message 字段不能为空", "data": nil})
		return
	}
	log.Infof("[ChatHandler] 收到对话请求, messageLen: %d, history: %d", len(req.Message), len(req.History))

	result, err := h.chatService.GenerateResponse(c.Request.Context(), req.Message, req.History)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"code": http.StatusServiceUnavailable, "message": err.Error(), "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": result})
}

// ClearHistory 清空调用者自己的会话历史。会话标识与 WebSocket 路径一致，
// 取自 token 中的用户名。
func (h *ChatHandler) ClearHistory(c *gin.Context) {
	value, exists := c.Get("claims")
	claims, ok := value.(*token.CustomClaims)
	if !exists || !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "未认证", "data": nil})
		return
	}

	if err := h.chatService.ClearHistory(c.Request.Context(), claims.Username); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": err.Error(), "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "会话历史已清空", "data": nil})
}

// HandleWebSocket 处理流式对话连接。路径参数中的 token 用于鉴权，
// 其持有者用户名同时作为会话标识。
func (h *ChatHandler) HandleWebSocket(c *gin.Context) {
	tokenString := c.Param("token")
	claims, err := h.jwtManager.VerifyToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效的 token", "data": nil})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()
	log.Infof("WebSocket 连接已建立，用户: %s", claims.Username)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warnf("WebSocket 异常断开: %v", err)
			}
			return
		}

		if err := h.chatService.StreamResponse(c.Request.Context(), claims.Username, string(message), conn); err != nil {
			log.Errorf("[ChatHandler] 流式应答失败: %v", err)
			if writeErr := conn.WriteMessage(websocket.TextMessage, []byte("[ERROR] AI 服务暂时不可用，请稍后再试")); writeErr != nil {
				return
			}
			continue
		}

		// 结束标记，前端据此关闭加载态
		if err := conn.WriteMessage(websocket.TextMessage, []byte("[DONE]")); err != nil {
			return
		}
	}
}
