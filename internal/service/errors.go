// Package service 包含了应用的业务逻辑层。
package service

import "errors"

// 输入类错误：立即报告给调用方，绝不重试。
// 错误文案即用户可见文案，与原产品保持一致。
var (
	// ErrEmptyHistory 表示请求中既没有历史消息也没有附件。
	ErrEmptyHistory = errors.New("Historial vacío")
	// ErrUnsupportedArtifact 表示附件类型不受支持。
	ErrUnsupportedArtifact = errors.New("Tipo de archivo no soportado")
	// ErrMissingUser 表示请求缺少用户标识。
	ErrMissingUser = errors.New("Falta el identificador de usuario")
)

// ErrUpstream 标记完成服务故障。handler 据此返回用户安全的文案，
// 内部诊断只进日志。
var ErrUpstream = errors.New("completion service unavailable")
