package service

import (
	"context"
	"fmt"

	"magistral-go/internal/artifact"
	"magistral-go/internal/extractor"
	"magistral-go/internal/model"
	"magistral-go/pkg/llm"
)

// attachmentPreamble 是附件内容的归属标记，与用户直接输入的文本区分开，
// 让下游模型能分辨"用户打的字"和"随附文档的内容"。文案沿用原产品。
const attachmentPreamble = "🧾 También se ha enviado este contenido:"

// Upload 是一次附件上传的原始内容。
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ChatService 定义了一轮对话处理的接口。
type ChatService interface {
	// HandleTurn 处理一轮对话：分类附件、提取文本、组装上下文并调用完成服务。
	// history 由客户端按轮提供并视为权威，最后一条应为用户的当前问题。
	HandleTurn(ctx context.Context, userID string, history []model.ChatMessage, upload *Upload) (model.ChatMessage, error)
	// StreamTurn 以流式方式处理一轮纯文本对话，分块写入 writer。
	StreamTurn(ctx context.Context, history []model.ChatMessage, writer llm.MessageWriter) error
}

type chatService struct {
	llmClient      llm.Client
	pdfExtractor   extractor.Extractor
	imageExtractor extractor.Extractor
	archiver       ArtifactArchiver
	systemPrompt   string
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(
	llmClient llm.Client,
	pdfExtractor extractor.Extractor,
	imageExtractor extractor.Extractor,
	archiver ArtifactArchiver,
	systemPrompt string,
) ChatService {
	return &chatService{
		llmClient:      llmClient,
		pdfExtractor:   pdfExtractor,
		imageExtractor: imageExtractor,
		archiver:       archiver,
		systemPrompt:   systemPrompt,
	}
}

// HandleTurn 协调一轮对话的完整流程。
func (s *chatService) HandleTurn(ctx context.Context, userID string, history []model.ChatMessage, upload *Upload) (model.ChatMessage, error) {
	if len(history) == 0 && upload == nil {
		return model.ChatMessage{}, ErrEmptyHistory
	}

	// 1. 附件分类与文本提取。不支持的类型在任何提取发生之前短路返回。
	var extracted *model.ExtractedContent
	if upload != nil {
		kind := artifact.Classify(upload.FileName, upload.ContentType)
		if kind == artifact.Unsupported {
			return model.ChatMessage{}, ErrUnsupportedArtifact
		}

		var content model.ExtractedContent
		switch kind {
		case artifact.PDF:
			content = s.pdfExtractor.Extract(ctx, upload.Data, upload.FileName)
		case artifact.Image:
			content = s.imageExtractor.Extract(ctx, upload.Data, upload.FileName)
		}
		extracted = &content

		// 原始附件归档是尽力而为的旁路，失败只记日志
		s.archiver.Archive(ctx, userID, *upload, kind)
	}

	// 2. 组装消息序列并调用完成服务
	messages := composeMessages(s.systemPrompt, history, extracted)
	reply, err := s.llmClient.Complete(ctx, toLLMMessages(messages))
	if err != nil {
		return model.ChatMessage{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	return model.ChatMessage{Role: model.RoleAssistant, Content: reply}, nil
}

// StreamTurn 以流式方式处理一轮纯文本对话。
func (s *chatService) StreamTurn(ctx context.Context, history []model.ChatMessage, writer llm.MessageWriter) error {
	if len(history) == 0 {
		return ErrEmptyHistory
	}
	messages := composeMessages(s.systemPrompt, history, nil)
	if err := s.llmClient.StreamChatMessages(ctx, toLLMMessages(messages), writer); err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return nil
}

// composeMessages 组装发给完成服务的消息序列：
// 恰好一条 system 消息开头，历史按原顺序原样追加，有附件时再追加
// 一条带归属标记的 user 消息。纯函数，无任何副作用。
// 输出长度恒为 len(history) + 1 + (有附件 ? 1 : 0)。
func composeMessages(systemPrompt string, history []model.ChatMessage, extracted *model.ExtractedContent) []model.ChatMessage {
	msgs := make([]model.ChatMessage, 0, len(history)+2)
	msgs = append(msgs, model.ChatMessage{Role: model.RoleSystem, Content: systemPrompt})
	msgs = append(msgs, history...)
	if extracted != nil {
		msgs = append(msgs, model.ChatMessage{
			Role:    model.RoleUser,
			Content: fmt.Sprintf("%s\n\n%s", attachmentPreamble, extractedBody(extracted)),
		})
	}
	return msgs
}

// extractedBody 把提取结果折叠为可插入对话的文本。
// 提取失败降级为内联错误说明，用户能看到出了什么问题，请求继续。
func extractedBody(extracted *model.ExtractedContent) string {
	if extracted.Status == model.ExtractError {
		return fmt.Sprintf("[No se pudo procesar el archivo adjunto: %s]", extracted.Diagnostic)
	}
	return extracted.Text
}

func toLLMMessages(messages []model.ChatMessage) []llm.Message {
	llmMsgs := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		llmMsgs = append(llmMsgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	return llmMsgs
}
