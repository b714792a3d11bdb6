// Package extractor 把附件原始字节转换为纯文本。
//
// 两个实现都把真正的解析/OCR 委托给外部 Tika 服务，本层只负责
// 三值结果的归一化：提取失败在这里被就地吸收为 error 状态结果，
// 永远不会让一次损坏的上传中断请求处理。
package extractor

import (
	"bytes"
	"context"
	"strings"
	"unicode/utf8"

	"magistral-go/internal/config"
	"magistral-go/internal/model"
	"magistral-go/pkg/tika"
)

// PlaceholderNoText 是"文档中没有可提取文本"时返回的占位文本。
// 纯扫描件 PDF 没有内嵌文本是合法的非致命结果。
const PlaceholderNoText = "No se pudo extraer texto del documento."

// DefaultOCRLanguages 是图片 OCR 的默认语言提示（西语为主，英语兜底）。
const DefaultOCRLanguages = "spa+eng"

// maxDiagnosticLen 限制 error 状态结果中诊断信息的长度。
const maxDiagnosticLen = 200

// Extractor 把附件字节提取为带状态的纯文本结果。
// 实现不返回 error：任何解析失败都折叠为 ExtractError 状态。
type Extractor interface {
	Extract(ctx context.Context, data []byte, fileName string) model.ExtractedContent
}

// PDFExtractor 按页序提取 PDF 内嵌文本。
type PDFExtractor struct {
	tikaClient *tika.Client
}

// NewPDFExtractor 创建一个新的 PDFExtractor。
func NewPDFExtractor(tikaClient *tika.Client) *PDFExtractor {
	return &PDFExtractor{tikaClient: tikaClient}
}

// Extract 实现 Extractor 接口。
func (e *PDFExtractor) Extract(ctx context.Context, data []byte, fileName string) model.ExtractedContent {
	text, err := e.tikaClient.ExtractText(ctx, bytes.NewReader(data), fileName)
	return normalize(model.SourcePDF, text, err)
}

// ImageExtractor 对光栅图片执行 OCR 提取。
type ImageExtractor struct {
	tikaClient   *tika.Client
	ocrLanguages string
}

// NewImageExtractor 创建一个新的 ImageExtractor。languages 为空时使用默认语言提示。
func NewImageExtractor(tikaClient *tika.Client, cfg config.TikaConfig) *ImageExtractor {
	languages := cfg.OCRLanguages
	if languages == "" {
		languages = DefaultOCRLanguages
	}
	return &ImageExtractor{tikaClient: tikaClient, ocrLanguages: languages}
}

// Extract 实现 Extractor 接口。
func (e *ImageExtractor) Extract(ctx context.Context, data []byte, fileName string) model.ExtractedContent {
	text, err := e.tikaClient.ExtractImageText(ctx, bytes.NewReader(data), fileName, e.ocrLanguages)
	return normalize(model.SourceImage, text, err)
}

// normalize 把提取调用的原始结果归一化为三值状态。
func normalize(sourceKind, text string, err error) model.ExtractedContent {
	if err != nil {
		diag := err.Error()
		if len(diag) > maxDiagnosticLen {
			// 在 rune 边界截断，诊断里的多字节字符不能被切成非法 UTF-8
			cut := maxDiagnosticLen
			for cut > 0 && !utf8.RuneStart(diag[cut]) {
				cut--
			}
			diag = diag[:cut]
		}
		return model.ExtractedContent{
			SourceKind: sourceKind,
			Status:     model.ExtractError,
			Diagnostic: diag,
		}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return model.ExtractedContent{
			SourceKind: sourceKind,
			Status:     model.ExtractEmpty,
			Text:       PlaceholderNoText,
		}
	}

	return model.ExtractedContent{
		SourceKind: sourceKind,
		Status:     model.ExtractOK,
		Text:       text,
	}
}
