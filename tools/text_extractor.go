package tools

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/drummonds/pdftoolbox/toolkit"
)

// TextExtractor pulls the plain text out of a PDF. Pages without a
// text layer contribute nothing; scanned documents come back empty.
type TextExtractor struct{}

func (t *TextExtractor) Spec() toolkit.Spec {
	return toolkit.Spec{
		Name:        "pdf_text_extractor",
		Label:       toolkit.I18nString{EnUS: "PDF Text Extractor"},
		Description: toolkit.I18nString{EnUS: "Extract the plain text of a PDF file, returned as text plus a JSON summary."},
		Params: []toolkit.Param{
			toolkit.PDFContentParam(toolkit.I18nString{
				EnUS:   "PDF file to extract text from",
				ZhHans: "要提取文本的 PDF 文件",
			}),
		},
	}
}

func (t *TextExtractor) Invoke(ctx context.Context, req *toolkit.Request, emit toolkit.EmitFunc) error {
	if len(req.FileData) == 0 {
		return fmt.Errorf("Invalid PDF content format. Expected File object.")
	}

	reader, err := pdf.NewReader(bytes.NewReader(req.FileData), int64(len(req.FileData)))
	if err != nil {
		return fmt.Errorf("Invalid PDF file: %v", err)
	}

	totalPages := reader.NumPage()
	var fullText string
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not sink the document
			continue
		}
		fullText += text
	}

	if err := emit(toolkit.TextMessage(fullText)); err != nil {
		return err
	}
	summary, err := toolkit.JSONMessage(map[string]int{
		"total_pages": totalPages,
		"characters":  len(fullText),
	})
	if err != nil {
		return fmt.Errorf("Error extracting text from PDF: %v", err)
	}
	return emit(summary)
}
