// Package apperr 定义了贯穿各层的错误分类。
// 处理函数通过 errors.Is 判断类别，并映射为对应的 HTTP 状态码。
package apperr

import (
	"errors"
	"net/http"
)

// 客户端错误（映射为 400）。
var (
	// ErrInvalidArgument 表示请求参数缺失或非法。
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrDecode 表示 base64 解码失败。
	ErrDecode = errors.New("invalid base64 payload")
	// ErrParse 表示字节流不是可读取的 PDF。
	ErrParse = errors.New("unreadable pdf")
)

// 服务端错误（映射为 500，可能是瞬时故障）。
var (
	// ErrEmbeddingService 表示 Embedding 模型调用失败。
	ErrEmbeddingService = errors.New("embedding service failure")
	// ErrStorage 表示向量库写入或查询失败。
	ErrStorage = errors.New("vector storage failure")
)

// IsClientFault 判断错误是否属于客户端错误类别。
func IsClientFault(err error) bool {
	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrDecode) ||
		errors.Is(err, ErrParse)
}

// HTTPStatus 将错误类别映射为 HTTP 状态码。
// 未归类的错误一律按服务端错误处理。
func HTTPStatus(err error) int {
	if IsClientFault(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
