// Package artifact 负责判定上传附件的类型。
package artifact

import (
	"path/filepath"
	"strings"
)

// Kind 是附件分类结果。
type Kind int

const (
	// Unsupported 表示不支持的附件类型，处理管道必须在提取前短路返回。
	Unsupported Kind = iota
	// PDF 表示按页提取文本的 PDF 文档。
	PDF
	// Image 表示需要 OCR 的光栅图片。
	Image
)

// String 返回类型的可读名称。
func (k Kind) String() string {
	switch k {
	case PDF:
		return "pdf"
	case Image:
		return "image"
	default:
		return "unsupported"
	}
}

// 支持的图片扩展名，与原产品保持一致。
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

// Classify 根据文件名和/或声明的 Content-Type 判定附件类型。
// 扩展名匹配不区分大小写；Content-Type 是独立信号，二者有其一命中即可，
// 因为不同调用方可能只带其中一个。
func Classify(fileName, contentType string) Kind {
	ext := strings.ToLower(filepath.Ext(fileName))
	ct := strings.ToLower(strings.TrimSpace(contentType))
	// Content-Type 可能带 "; charset=..." 之类的参数
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}

	switch {
	case ext == ".pdf" || ct == "application/pdf":
		return PDF
	case imageExtensions[ext] || strings.HasPrefix(ct, "image/"):
		return Image
	default:
		return Unsupported
	}
}
