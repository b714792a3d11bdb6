package model

// ExtractStatus 区分"成功提取"、"无可提取文本"与"提取失败"三种结果，
// 调用方据此决定如何把结果折叠进对话内容。
type ExtractStatus string

const (
	ExtractOK    ExtractStatus = "ok"
	ExtractEmpty ExtractStatus = "empty"
	ExtractError ExtractStatus = "error"
)

// 附件来源类型。
const (
	SourcePDF   = "pdf"
	SourceImage = "image"
)

// ExtractedContent 是一次附件文本提取的结果。
// 每次上传创建一份，折叠进消息后即丢弃，不单独持久化。
type ExtractedContent struct {
	SourceKind string
	// Text 为提取出的纯文本；Empty 状态下为固定占位符。
	Text   string
	Status ExtractStatus
	// Diagnostic 仅在 Error 状态下携带简短的诊断信息。
	Diagnostic string
}
