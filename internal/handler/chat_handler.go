// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"magistral-go/internal/model"
	"magistral-go/internal/service"
	"magistral-go/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源，与 CORS 策略一致
	},
}

// anonymousUser 在请求未携带用户标识时使用。
const anonymousUser = "anonimo"

// upstreamUserMessage 是完成服务故障时返回给用户的安全文案。
const upstreamUserMessage = "El servicio de IA no está disponible en este momento, inténtelo de nuevo más tarde."

// ChatHandler 负责处理对话请求。
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Chat 处理一轮对话请求。multipart 表单：history 为 JSON 编码的消息数组，
// file 为可选附件（PDF 或图片）。
func (h *ChatHandler) Chat(c *gin.Context) {
	userID := c.PostForm("user_id")
	if userID == "" {
		userID = c.GetHeader("X-User-ID")
	}
	if userID == "" {
		userID = anonymousUser
	}

	historyJSON := c.PostForm("history")
	if historyJSON == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": service.ErrEmptyHistory.Error()})
		return
	}
	var history []model.ChatMessage
	if err := json.Unmarshal([]byte(historyJSON), &history); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Historial inválido"})
		return
	}

	upload, err := readUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No se pudo leer el archivo adjunto"})
		return
	}

	reply, err := h.chatService.HandleTurn(c.Request.Context(), userID, history, upload)
	if err != nil {
		respondTurnError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reply": reply.Content})
}

// readUpload 读取可选的附件，没有附件时返回 nil。
func readUpload(c *gin.Context) (*service.Upload, error) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return &service.Upload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// respondTurnError 把业务错误映射为 HTTP 响应。
// 输入类错误的文案直接可见；上游故障只暴露用户安全文案，诊断进日志。
func respondTurnError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyHistory),
		errors.Is(err, service.ErrUnsupportedArtifact),
		errors.Is(err, service.ErrMissingUser):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUpstream):
		log.Errorf("完成服务调用失败: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": upstreamUserMessage})
	default:
		log.Errorf("处理对话请求失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error interno del servidor"})
	}
}

// streamTurnRequest 是 WebSocket 流式对话的一轮请求。
type streamTurnRequest struct {
	History []model.ChatMessage `json:"history"`
}

// Stream 处理一个传入的 WebSocket 连接。每条文本消息是一轮请求：
// JSON {"history":[...]}，或纯文本（视作单条用户消息）。
func (h *ChatHandler) Stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warnf("从 WebSocket 读取消息失败: %v", err)
			break
		}

		var req streamTurnRequest
		if jsonErr := json.Unmarshal(message, &req); jsonErr != nil || len(req.History) == 0 {
			// 兼容纯文本：整条消息视作一条用户消息
			req.History = []model.ChatMessage{{Role: model.RoleUser, Content: string(message)}}
		}

		writer := &wsChunkWriter{conn: conn}
		if err := h.chatService.StreamTurn(c.Request.Context(), req.History, writer); err != nil {
			log.Errorf("处理流式响应失败: %v", err)
			errResp := map[string]string{"error": upstreamUserMessage}
			b, _ := json.Marshal(errResp)
			_ = conn.WriteMessage(websocket.TextMessage, b)
		}
		sendCompletion(conn)
	}
}

// wsChunkWriter 把流式分块包装成 {"chunk":"..."} 再写入连接。
type wsChunkWriter struct {
	conn *websocket.Conn
}

// WriteMessage 满足 llm.MessageWriter 接口。
func (w *wsChunkWriter) WriteMessage(messageType int, data []byte) error {
	payload := map[string]string{"chunk": string(data)}
	b, _ := json.Marshal(payload)
	return w.conn.WriteMessage(messageType, b)
}

// sendCompletion 发送完成通知 JSON
func sendCompletion(conn *websocket.Conn) {
	notif := map[string]interface{}{
		"type":      "completion",
		"status":    "finished",
		"timestamp": time.Now().UnixMilli(),
	}
	b, _ := json.Marshal(notif)
	_ = conn.WriteMessage(websocket.TextMessage, b)
}
