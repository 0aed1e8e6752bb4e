// Package loader 负责把 base64 编码的 PDF 解析为逐页的文档单元。
package loader

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"

	"pdf-embeddings-go/internal/apperr"
	"pdf-embeddings-go/internal/model"
	"pdf-embeddings-go/pkg/log"

	"github.com/ledongthuc/pdf"
)

// Loader 定义了 PDF 解析操作，便于上层以假实现进行测试。
type Loader interface {
	// Load 解码并解析 PDF，按页序返回文档单元。
	// 零页或全空白页的 PDF 返回空/全空内容序列，不视为错误。
	Load(pdfBase64, filename, userID string) ([]model.DocumentUnit, error)
	// Decode 仅做 base64 解码与 PDF 头校验，供需要原始字节的调用方使用。
	Decode(pdfBase64 string) ([]byte, error)
}

type pdfLoader struct{}

// NewPDFLoader 创建一个基于 ledongthuc/pdf 的加载器。
func NewPDFLoader() Loader {
	return &pdfLoader{}
}

var pdfHeader = []byte("%PDF")

// Decode 将 base64 字符串解码为字节并校验 PDF 文件头。
func (l *pdfLoader) Decode(pdfBase64 string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(pdfBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrDecode, err)
	}
	if !bytes.HasPrefix(raw, pdfHeader) {
		return nil, fmt.Errorf("%w: missing %%PDF header", apperr.ErrParse)
	}
	return raw, nil
}

// Load 实现 Loader 接口。
// 解码后的字节会写入每次请求独立的临时文件，任何退出路径都保证清理。
func (l *pdfLoader) Load(pdfBase64, filename, userID string) (units []model.DocumentUnit, err error) {
	raw, err := l.Decode(pdfBase64)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp("", "pdf-ingest-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("创建临时文件失败: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	// 底层解析库在个别畸形文件上会 panic，统一转换为解析错误，
	// 保证临时文件的 defer 清理仍然执行。
	defer func() {
		if r := recover(); r != nil {
			log.Warnf("[PDFLoader] 解析 '%s' 时发生 panic: %v", filename, r)
			units = nil
			err = fmt.Errorf("%w: %v", apperr.ErrParse, r)
		}
	}()

	if _, err = tmp.Write(raw); err != nil {
		return nil, fmt.Errorf("写入临时文件失败: %w", err)
	}

	reader, err := pdf.NewReader(tmp, int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrParse, err)
	}

	numPages := reader.NumPage()
	units = make([]model.DocumentUnit, 0, numPages)
	for i := 1; i <= numPages; i++ {
		content := ""
		page := reader.Page(i)
		if !page.V.IsNull() {
			fonts := make(map[string]*pdf.Font)
			text, textErr := page.GetPlainText(fonts)
			if textErr != nil {
				// 单页提取失败按无可提取文本处理，不中断整个文件
				log.Warnf("[PDFLoader] 提取第 %d 页文本失败: %v", i, textErr)
			} else {
				content = text
			}
		}
		units = append(units, model.DocumentUnit{
			Content: content,
			Metadata: model.Metadata{
				Source: filename,
				Page:   i - 1,
				UserID: userID,
			},
		})
	}

	log.Infof("[PDFLoader] 解析完成, file: %s, pages: %d", filename, numPages)
	return units, nil
}
